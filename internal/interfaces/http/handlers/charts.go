package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sawpanic/astrorun/internal/application/astro"
	httpContracts "github.com/sawpanic/astrorun/internal/http"
)

const maxChartBody = 16 << 10

// CreateChart handles POST /charts
func (h *Handlers) CreateChart(w http.ResponseWriter, r *http.Request) {
	var req httpContracts.ChartRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChartBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeFailure(w, r, fmt.Errorf("%w: %v", astro.ErrInvalidChart, err))
		return
	}

	view, err := h.svc.SaveChart(r.Context(), astro.ChartRequest{
		Name:      req.Name,
		BirthDate: req.BirthDate,
		BirthTime: req.BirthTime,
		City:      req.City,
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Location", "/charts/"+view.Chart.ID)
	h.writeJSON(w, http.StatusCreated, chartResponse(view))
}

// GetChart handles GET /charts/{id}
func (h *Handlers) GetChart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Chart(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chartResponse(view))
}

// ListCharts handles GET /charts?limit=N
func (h *Handlers) ListCharts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			h.writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = n
	}

	charts, err := h.svc.Charts(r.Context(), limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	out := make([]httpContracts.ChartSummary, len(charts))
	for i, c := range charts {
		out[i] = httpContracts.ChartSummary{
			ID:        c.ID,
			Name:      c.Name,
			BirthDate: c.BirthDate,
			BirthTime: c.BirthTime,
			City:      c.City,
			UpdatedAt: c.UpdatedAt,
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func chartResponse(v *astro.ChartView) httpContracts.ChartResponse {
	return httpContracts.ChartResponse{
		ID:        v.Chart.ID,
		Name:      v.Chart.Name,
		BirthDate: v.Chart.BirthDate,
		BirthTime: v.Chart.BirthTime,
		City:      v.Chart.City,
		Instant:   v.Instant,
		Sign:      signResponse(v.Sign),
		Planets:   planetRows(v.Positions),
		Aspects:   aspectRows(v.Aspects),
		CreatedAt: v.Chart.CreatedAt,
		UpdatedAt: v.Chart.UpdatedAt,
	}
}
