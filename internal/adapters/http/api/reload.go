package api

import (
	"context"
	"net/http"

	"github.com/okian/rinkxg/internal/domain/types"
)

// ReloadDependencies reloads the shot source.
type ReloadDependencies interface {
	Reload(ctx context.Context) (types.ReloadResult, error)
}

// ReloadHandler handles reload requests.
type ReloadHandler struct {
	deps ReloadDependencies
	errs errorWriter
}

// HandlePostReload handles POST /reload requests.
func (h *ReloadHandler) HandlePostReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Reload(r.Context())
	if err != nil {
		h.errs.write(r.Context(), w, "api.post_reload", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
