package api

import (
	"net/http"
	"strings"

	"github.com/okian/rinkxg/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	metrics http.Handler
	stats   StatsProvider
}

// NewHealthHandler creates a health handler. stats may be nil.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		stats:   stats,
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	SourceVersion string `json:"source_version,omitempty"`
}

// HandleHealth handles GET /healthz. Clients asking for JSON get a status
// document, 503 until the service has started; everyone else gets the
// Prometheus exposition.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept"), "application/json") {
		h.metrics.ServeHTTP(w, r)
		return
	}

	resp := healthResponse{Status: "ok"}
	if h.stats != nil {
		stats := h.stats.GetStats()
		if started, _ := stats["started"].(bool); !started {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
			return
		}
		resp.SourceVersion, _ = stats["sourceVersion"].(string)
	}
	writeJSON(w, http.StatusOK, resp)
}
