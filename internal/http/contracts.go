package http

import "time"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageResponse is the root greeting.
type MessageResponse struct {
	Message string `json:"message"`
}

// PlanetPosition is one row of GET /planets.
type PlanetPosition struct {
	Name          string  `json:"name"`
	Longitude     float64 `json:"longitude"`
	Latitude      float64 `json:"latitude"`
	Distance      float64 `json:"distance"` // AU
	Constellation string  `json:"constellation"`
}

// SignInfo is one entry of GET /zodiac-signs.
type SignInfo struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"` // MM-DD
	EndDate   string `json:"end_date"`   // MM-DD
	Element   string `json:"element"`
	Quality   string `json:"quality"`
}

// SignResponse answers GET /zodiac-sign/{date}.
type SignResponse struct {
	Sign    string `json:"sign"`
	Element string `json:"element"`
	Quality string `json:"quality"`
}

// AspectInfo is one row of GET /aspects.
type AspectInfo struct {
	Planet1 string  `json:"planet1"`
	Planet2 string  `json:"planet2"`
	Type    string  `json:"type"`
	Orb     float64 `json:"orb"`
}

// ChartRequest is the body of POST /charts.
type ChartRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	BirthTime string `json:"birth_time"`
	City      string `json:"city"`
}

// ChartResponse is a saved chart with its computed sky.
type ChartResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	BirthDate string           `json:"birth_date"`
	BirthTime string           `json:"birth_time"`
	City      string           `json:"city"`
	Instant   time.Time        `json:"instant"`
	Sign      SignResponse     `json:"sign"`
	Planets   []PlanetPosition `json:"planets"`
	Aspects   []AspectInfo     `json:"aspects"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ChartSummary is one entry of GET /charts.
type ChartSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date"`
	BirthTime string    `json:"birth_time"`
	City      string    `json:"city"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string          `json:"status"` // healthy, degraded
	Timestamp time.Time       `json:"timestamp"`
	Provider  ProviderHealth  `json:"provider"`
	Database  *DatabaseHealth `json:"database,omitempty"`
}

// ProviderHealth reports the ephemeris backend.
type ProviderHealth struct {
	Name         string `json:"name"`
	CircuitState string `json:"circuit_state,omitempty"` // closed, half-open, open
}

// DatabaseHealth reports the chart store.
type DatabaseHealth struct {
	Healthy        bool     `json:"healthy"`
	Errors         []string `json:"errors,omitempty"`
	ResponseTimeMS int64    `json:"response_time_ms"`
}

// StreamFrame is one websocket message on /ws/now.
type StreamFrame struct {
	Type    string           `json:"type"` // positions, error
	Instant *time.Time       `json:"instant,omitempty"`
	Planets []PlanetPosition `json:"planets,omitempty"`
	Error   *ErrorResponse   `json:"error,omitempty"`
}
