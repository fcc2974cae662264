package api

import "errors"

// ErrBadRequest marks malformed request parameters.
var ErrBadRequest = errors.New("bad request")
