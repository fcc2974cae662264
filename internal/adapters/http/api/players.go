package api

import (
	"context"
	"net/http"

	"github.com/okian/rinkxg/internal/domain/types"
)

// PlayersDependencies lists players.
type PlayersDependencies interface {
	Players(ctx context.Context, strength string) ([]types.PlayerSummary, error)
}

// PlayersHandler handles player listing requests.
type PlayersHandler struct {
	deps PlayersDependencies
	errs errorWriter
}

// HandleGetPlayers handles GET /players?strength=ev requests.
func (h *PlayersHandler) HandleGetPlayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	players, err := h.deps.Players(r.Context(), r.URL.Query().Get("strength"))
	if err != nil {
		h.errs.write(r.Context(), w, "api.get_players", err)
		return
	}
	if players == nil {
		players = []types.PlayerSummary{}
	}
	writeJSON(w, http.StatusOK, players)
}
