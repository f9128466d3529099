package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	"github.com/sawpanic/astrorun/internal/domain/zodiac"
	httpContracts "github.com/sawpanic/astrorun/internal/http"
)

// Root handles GET /
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, httpContracts.MessageResponse{Message: "Welcome to the AstroRun API"})
}

// Planets handles GET /planets?date=YYYY-MM-DD. An omitted date means today.
func (h *Handlers) Planets(w http.ResponseWriter, r *http.Request) {
	date, err := h.svc.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	positions, err := h.svc.Planets(r.Context(), date)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, planetRows(positions))
}

// ZodiacSigns handles GET /zodiac-signs
func (h *Handlers) ZodiacSigns(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]httpContracts.SignInfo, 12)
	for _, s := range zodiac.Signs() {
		out[string(s.Name)] = httpContracts.SignInfo{
			Name:      string(s.Name),
			StartDate: s.Start,
			EndDate:   s.End,
			Element:   string(s.Element),
			Quality:   string(s.Quality),
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ZodiacSign handles GET /zodiac-sign/{date}
func (h *Handlers) ZodiacSign(w http.ResponseWriter, r *http.Request) {
	date, err := h.svc.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	sign, err := h.svc.Sign(date)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signResponse(sign))
}

// Aspects handles GET /aspects?date=YYYY-MM-DD
func (h *Handlers) Aspects(w http.ResponseWriter, r *http.Request) {
	date, err := h.svc.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	aspects, err := h.svc.Aspects(r.Context(), date)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, aspectRows(aspects))
}

func planetRows(positions []ephemeris.EclipticPosition) []httpContracts.PlanetPosition {
	out := make([]httpContracts.PlanetPosition, len(positions))
	for i, p := range positions {
		out[i] = httpContracts.PlanetPosition{
			Name:          p.Body.String(),
			Longitude:     p.Longitude,
			Latitude:      p.Latitude,
			Distance:      p.DistanceAU,
			Constellation: string(p.Constellation),
		}
	}
	return out
}

func aspectRows(aspects []ephemeris.Aspect) []httpContracts.AspectInfo {
	out := make([]httpContracts.AspectInfo, len(aspects))
	for i, a := range aspects {
		out[i] = httpContracts.AspectInfo{
			Planet1: a.Body1.String(),
			Planet2: a.Body2.String(),
			Type:    string(a.Type),
			Orb:     a.Orb,
		}
	}
	return out
}

func signResponse(m zodiac.SignMetadata) httpContracts.SignResponse {
	return httpContracts.SignResponse{
		Sign:    string(m.Name),
		Element: string(m.Element),
		Quality: string(m.Quality),
	}
}
