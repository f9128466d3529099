package handlers

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	httpContracts "github.com/sawpanic/astrorun/internal/http"
)

// Health handles GET /health. An open breaker or an unreachable database
// reports "degraded" with status 503.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := httpContracts.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Provider:  httpContracts.ProviderHealth{Name: h.svc.ProviderName()},
	}

	if h.opts.Breaker != nil {
		state := h.opts.Breaker.State()
		resp.Provider.CircuitState = state.String()
		if state == gobreaker.StateOpen {
			resp.Status = "degraded"
		}
	}

	if h.opts.Database != nil {
		check := h.opts.Database.Health(r.Context())
		resp.Database = &httpContracts.DatabaseHealth{
			Healthy:        check.Healthy,
			Errors:         check.Errors,
			ResponseTimeMS: check.ResponseTimeMS,
		}
		if !check.Healthy {
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}
