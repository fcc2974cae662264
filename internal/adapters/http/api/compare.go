package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/rinkxg/internal/domain/types"
)

// CompareDependencies builds comparison surfaces.
type CompareDependencies interface {
	ComparePlayer(ctx context.Context, playerID string, mode types.Mode, strength string) (types.ComparisonResult, error)
}

// CompareHandler handles comparison requests.
type CompareHandler struct {
	deps CompareDependencies
	errs errorWriter
}

type compareResponse struct {
	PlayerID      string      `json:"player_id"`
	StrengthState string      `json:"strength_state"`
	Mode          types.Mode  `json:"mode"`
	Legend        string      `json:"legend"`
	Rows          int         `json:"rows"`
	Cols          int         `json:"cols"`
	Grid          [][]float64 `json:"grid"`
	Lower         float64     `json:"lower"`
	Upper         float64     `json:"upper"`
	DataMin       float64     `json:"data_min"`
	DataMax       float64     `json:"data_max"`
	ShowScale     bool        `json:"show_scale"`
	PlayerSamples int         `json:"player_samples"`
}

func newCompareResponse(res types.ComparisonResult) compareResponse { //nolint:gocritic // hugeParam
	g := res.Grid
	rows := make([][]float64, g.Rows)
	for j := range rows {
		rows[j] = g.Values[j*g.Cols : (j+1)*g.Cols]
	}
	return compareResponse{
		PlayerID:      res.PlayerID,
		StrengthState: res.StrengthState,
		Mode:          res.Mode,
		Legend:        res.Mode.Legend(),
		Rows:          g.Rows,
		Cols:          g.Cols,
		Grid:          rows,
		Lower:         res.Lower,
		Upper:         res.Upper,
		DataMin:       res.DataMin,
		DataMax:       res.DataMax,
		ShowScale:     res.ShowScale,
		PlayerSamples: res.PlayerSamples,
	}
}

// pathID returns the single path segment after prefix.
func pathID(r *http.Request, prefix string) (string, error) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("%w: expected %s{player_id}", ErrBadRequest, prefix)
	}
	return id, nil
}

// HandleGetCompare handles GET /compare/{player_id}?mode=&strength= requests.
func (h *CompareHandler) HandleGetCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_compare"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, err := pathID(r, "/compare/")
	if err != nil {
		h.errs.write(r.Context(), w, op, err)
		return
	}
	mode, strength, err := query(r)
	if err != nil {
		h.errs.write(r.Context(), w, op, err)
		return
	}
	res, err := h.deps.ComparePlayer(r.Context(), id, mode, strength)
	if err != nil {
		h.errs.write(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newCompareResponse(res))
}
