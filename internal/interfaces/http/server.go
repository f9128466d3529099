package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/astrorun/internal/config"
	"github.com/sawpanic/astrorun/internal/interfaces/http/handlers"
)

// Server is the AstroRun HTTP API.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *MetricsRegistry
	config   config.ServerConfig
}

// NewServer builds the router and the underlying http.Server. A nil metrics
// registry disables /metrics and request metrics.
func NewServer(cfg config.ServerConfig, h *handlers.Handlers, metrics *MetricsRegistry) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		handlers: h,
		metrics:  metrics,
		config:   cfg,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler is the full middleware chain. CORS, request ids and request logging
// wrap the router so preflights and unmatched paths get them too.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.requestIDMiddleware(s.requestLoggingMiddleware(s.router)))
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.routeTemplateMiddleware)

	// Long-lived and non-JSON routes skip the request timeout.
	s.router.HandleFunc("/ws/now", s.handlers.Now).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	}

	s.router.Handle("/", s.api(s.handlers.Root)).Methods(http.MethodGet)
	s.router.Handle("/health", s.api(s.handlers.Health)).Methods(http.MethodGet)
	s.router.Handle("/planets", s.api(s.handlers.Planets)).Methods(http.MethodGet)
	s.router.Handle("/zodiac-signs", s.api(s.handlers.ZodiacSigns)).Methods(http.MethodGet)
	s.router.Handle("/zodiac-sign/{date}", s.api(s.handlers.ZodiacSign)).Methods(http.MethodGet)
	s.router.Handle("/aspects", s.api(s.handlers.Aspects)).Methods(http.MethodGet)
	s.router.Handle("/charts", s.api(s.handlers.CreateChart)).Methods(http.MethodPost)
	s.router.Handle("/charts", s.api(s.handlers.ListCharts)).Methods(http.MethodGet)
	s.router.Handle("/charts/{id}", s.api(s.handlers.GetChart)).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handlers.MethodNotAllowed)
}

// api applies the timeout and JSON content type to one route.
func (s *Server) api(h http.HandlerFunc) http.Handler {
	return s.timeoutMiddleware(s.jsonContentTypeMiddleware(h))
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(handlers.WithRequestID(r.Context(), requestID)))
	})
}

type routeSlotKey struct{}

// requestLoggingMiddleware logs every request and feeds the request metrics.
// Requests no route matched are labelled "unmatched".
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := "unmatched"
		r = r.WithContext(context.WithValue(r.Context(), routeSlotKey{}, &route))
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		duration := time.Since(start)

		if s.metrics != nil {
			s.metrics.ObserveRequest(route, r.Method, wrapper.statusCode, duration)
		}

		log.Info().
			Str("request_id", handlers.RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// routeTemplateMiddleware runs on matched routes only and reports the path
// template back to requestLoggingMiddleware.
func (s *Server) routeTemplateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slot, ok := r.Context().Value(routeSlotKey{}).(*string); ok {
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					*slot = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds the request context.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware allows every origin on GET, POST and OPTIONS.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start listens and serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("port %d is busy or unavailable: %w", s.config.Port, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return s.config.Addr()
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
