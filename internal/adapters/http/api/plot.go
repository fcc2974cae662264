package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/rinkxg/internal/domain/types"
)

// PlotDependencies renders or fetches comparison images.
type PlotDependencies interface {
	Plot(ctx context.Context, playerID string, mode types.Mode, strength string) (types.PlotImage, error)
}

// PlotHandler serves PNG plots.
type PlotHandler struct {
	deps PlotDependencies
	errs errorWriter
}

// HandleGetPlot handles GET /plot/{player_id}?mode=&strength= requests.
func (h *PlotHandler) HandleGetPlot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_plot"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := pathID(r, "/plot/")
	if err != nil {
		h.errs.write(r.Context(), w, op, err)
		return
	}
	mode, strength, err := query(r)
	if err != nil {
		h.errs.write(r.Context(), w, op, err)
		return
	}
	img, err := h.deps.Plot(r.Context(), id, mode, strength)
	if err != nil {
		h.errs.write(r.Context(), w, op, err)
		return
	}

	source := "live"
	if img.Precomputed {
		source = "store"
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("X-Plot-Source", source)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
