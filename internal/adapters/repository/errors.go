package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotLoaded    = errors.New("shot store has not been loaded")
	ErrLoadReplaced = errors.New("shot store load was replaced during a read")
)
