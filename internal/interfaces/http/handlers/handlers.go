package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/astrorun/internal/application/astro"
	"github.com/sawpanic/astrorun/internal/domain"
	httpContracts "github.com/sawpanic/astrorun/internal/http"
	"github.com/sawpanic/astrorun/internal/persistence"
)

type requestIDKey struct{}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "unknown".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}

// BreakerStater reports a provider circuit breaker state.
type BreakerStater interface {
	State() gobreaker.State
}

// StreamObserver is told when live stream clients come and go.
type StreamObserver interface {
	StreamOpened()
	StreamClosed()
}

// Options carries the optional dependencies of the handlers.
type Options struct {
	StreamInterval time.Duration
	Breaker        BreakerStater
	Database       persistence.RepositoryHealth
	StreamObserver StreamObserver
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	svc      *astro.Service
	opts     Options
	upgrader websocket.Upgrader
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *astro.Service, opts Options) *Handlers {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 10 * time.Second
	}
	return &Handlers{
		svc:  svc,
		opts: opts,
		upgrader: websocket.Upgrader{
			// Any origin may subscribe, matching the CORS policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func newErrorResponse(r *http.Request, status int, code, message string) httpContracts.ErrorResponse {
	return httpContracts.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, newErrorResponse(r, status, code, message))
}

// classify maps an application error onto a status and error code.
func classify(err error) (int, string) {
	if kind, ok := domain.KindOf(err); ok {
		switch kind {
		case domain.KindInvalidDateFormat:
			return http.StatusBadRequest, string(kind)
		case domain.KindUnknownSign:
			return http.StatusNotFound, string(kind)
		case domain.KindEphemeris:
			return http.StatusInternalServerError, string(kind)
		}
	}
	switch {
	case errors.Is(err, persistence.ErrChartNotFound):
		return http.StatusNotFound, "chart_not_found"
	case errors.Is(err, astro.ErrInvalidChart):
		return http.StatusBadRequest, "invalid_chart"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeFailure logs err and writes the mapped error response.
func (h *Handlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("request_id", RequestID(r.Context())).Str("code", code).Msg("request failed")
	h.writeError(w, r, status, code, err.Error())
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

// MethodNotAllowed handles 405 responses
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		"The requested method is not supported for this endpoint")
}
