package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/astrorun/internal/application/astro"
	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	httpContracts "github.com/sawpanic/astrorun/internal/http"
	"github.com/sawpanic/astrorun/internal/persistence"
	"github.com/sawpanic/astrorun/internal/providers/analytic"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) Position(context.Context, ephemeris.Body, time.Time) (ephemeris.Coordinates, error) {
	return ephemeris.Coordinates{}, errors.New("backend unavailable")
}

type fixedBreaker gobreaker.State

func (b fixedBreaker) State() gobreaker.State { return gobreaker.State(b) }

type fixedDB persistence.HealthCheck

func (d fixedDB) Health(context.Context) persistence.HealthCheck { return persistence.HealthCheck(d) }

func (d fixedDB) Ping(context.Context) error { return nil }

type streamCounter struct{ opened, closed atomic.Int32 }

func (c *streamCounter) StreamOpened() { c.opened.Add(1) }
func (c *streamCounter) StreamClosed() { c.closed.Add(1) }

func newHandlers(t *testing.T, p ephemeris.Provider, opts Options) *Handlers {
	t.Helper()
	if p == nil {
		a, err := analytic.New(analytic.DefaultConfig())
		require.NoError(t, err)
		p = a
	}
	svc := astro.NewService(ephemeris.NewAssembler(ephemeris.NewEvaluator(p), 2), persistence.NewMemoryChartRepo())
	return NewHandlers(svc, opts)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRoot(t *testing.T) {
	h := newHandlers(t, nil, Options{})
	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Welcome to the AstroRun API"}`, rec.Body.String())
}

func TestPlanets(t *testing.T) {
	h := newHandlers(t, nil, Options{})
	rec := httptest.NewRecorder()
	h.Planets(rec, httptest.NewRequest(http.MethodGet, "/planets?date=2024-06-21", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]httpContracts.PlanetPosition](t, rec)
	require.Len(t, rows, 10)
	assert.Equal(t, "Sun", rows[0].Name)
	assert.Equal(t, "Capricorn", rows[0].Constellation)
	assert.Equal(t, "Pluto", rows[9].Name)
	for _, row := range rows {
		assert.GreaterOrEqual(t, row.Longitude, 0.0)
		assert.Less(t, row.Longitude, 360.0)
		assert.GreaterOrEqual(t, row.Distance, 0.0)
	}
}

func TestPlanetsInvalidDate(t *testing.T) {
	h := newHandlers(t, nil, Options{})
	req := httptest.NewRequest(http.MethodGet, "/planets?date=not-a-date", nil)
	req = req.WithContext(WithRequestID(req.Context(), "abc123"))
	rec := httptest.NewRecorder()
	h.Planets(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpContracts.ErrorResponse](t, rec)
	assert.Equal(t, "invalid_date_format", body.Code)
	assert.Equal(t, "Bad Request", body.Error)
	assert.Equal(t, "abc123", body.RequestID)
	assert.Contains(t, body.Message, "not-a-date")
}

func TestPlanetsProviderFailure(t *testing.T) {
	h := newHandlers(t, failingProvider{}, Options{})
	rec := httptest.NewRecorder()
	h.Planets(rec, httptest.NewRequest(http.MethodGet, "/planets?date=2024-06-21", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ephemeris_error", decode[httpContracts.ErrorResponse](t, rec).Code)
}

func TestZodiacSigns(t *testing.T) {
	h := newHandlers(t, nil, Options{})
	rec := httptest.NewRecorder()
	h.ZodiacSigns(rec, httptest.NewRequest(http.MethodGet, "/zodiac-signs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	signs := decode[map[string]httpContracts.SignInfo](t, rec)
	require.Len(t, signs, 12)
	assert.Equal(t, httpContracts.SignInfo{
		Name: "Capricorn", StartDate: "12-22", EndDate: "01-19", Element: "Earth", Quality: "Cardinal",
	}, signs["Capricorn"])
}

func TestZodiacSign(t *testing.T) {
	h := newHandlers(t, nil, Options{})

	cases := []struct {
		date   string
		status int
		sign   string
	}{
		{"2024-03-21", http.StatusOK, "Aries"},
		{"2024-04-19", http.StatusOK, "Aries"},
		{"2024-04-20", http.StatusOK, "Taurus"},
		{"2024-01-01", http.StatusOK, "Capricorn"},
		{"2024-12-25", http.StatusOK, "Capricorn"},
		{"2024-13-01", http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/zodiac-sign/"+tc.date, nil), map[string]string{"date": tc.date})
			rec := httptest.NewRecorder()
			h.ZodiacSign(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.sign, decode[httpContracts.SignResponse](t, rec).Sign)
			}
		})
	}
}

func TestAspects(t *testing.T) {
	h := newHandlers(t, nil, Options{})
	rec := httptest.NewRecorder()
	h.Aspects(rec, httptest.NewRequest(http.MethodGet, "/aspects?date=2024-06-21", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]httpContracts.AspectInfo](t, rec)
	for _, a := range rows {
		assert.NotEqual(t, a.Planet1, a.Planet2)
		assert.LessOrEqual(t, a.Orb, ephemeris.DefaultOrb)
		assert.Contains(t, []string{"conjunction", "sextile", "square", "trine", "opposition"}, a.Type)
	}
}

func TestChartLifecycle(t *testing.T) {
	h := newHandlers(t, nil, Options{})

	body := `{"name":"Ada","birth_date":"1990-12-10","birth_time":"14:30","city":"London"}`
	rec := httptest.NewRecorder()
	h.CreateChart(rec, httptest.NewRequest(http.MethodPost, "/charts", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[httpContracts.ChartResponse](t, rec)
	assert.Equal(t, "/charts/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, "Sagittarius", created.Sign.Sign)
	assert.Len(t, created.Planets, 10)
	assert.Equal(t, time.Date(1990, 12, 10, 14, 30, 0, 0, time.UTC), created.Instant.UTC())

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/charts/"+created.ID, nil), map[string]string{"id": created.ID})
	rec = httptest.NewRecorder()
	h.GetChart(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[httpContracts.ChartResponse](t, rec).ID)

	rec = httptest.NewRecorder()
	h.ListCharts(rec, httptest.NewRequest(http.MethodGet, "/charts?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]httpContracts.ChartSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestChartErrors(t *testing.T) {
	h := newHandlers(t, nil, Options{})

	cases := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"name":`, "invalid_chart"},
		{"unknown field", `{"planet":"mars"}`, "invalid_chart"},
		{"missing city", `{"name":"a","birth_date":"1990-12-10","birth_time":"14:30"}`, "invalid_chart"},
		{"bad date", `{"name":"a","birth_date":"1990-02-30","birth_time":"14:30","city":"x"}`, "invalid_date_format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateChart(rec, httptest.NewRequest(http.MethodPost, "/charts", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decode[httpContracts.ErrorResponse](t, rec).Code)
		})
	}

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/charts/nope", nil), map[string]string{"id": "nope"})
	rec := httptest.NewRecorder()
	h.GetChart(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "chart_not_found", decode[httpContracts.ErrorResponse](t, rec).Code)

	rec = httptest.NewRecorder()
	h.ListCharts(rec, httptest.NewRequest(http.MethodGet, "/charts?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newHandlers(t, nil, Options{
			Breaker:  fixedBreaker(gobreaker.StateClosed),
			Database: fixedDB{Healthy: true, ResponseTimeMS: 3},
		})
		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[httpContracts.HealthResponse](t, rec)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "analytic", body.Provider.Name)
		assert.Equal(t, "closed", body.Provider.CircuitState)
		require.NotNil(t, body.Database)
		assert.EqualValues(t, 3, body.Database.ResponseTimeMS)
	})

	t.Run("open breaker", func(t *testing.T) {
		h := newHandlers(t, nil, Options{Breaker: fixedBreaker(gobreaker.StateOpen)})
		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode[httpContracts.HealthResponse](t, rec)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "open", body.Provider.CircuitState)
		assert.Nil(t, body.Database)
	})

	t.Run("database down", func(t *testing.T) {
		h := newHandlers(t, nil, Options{Database: fixedDB{Errors: []string{"ping failed"}}})
		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, []string{"ping failed"}, decode[httpContracts.HealthResponse](t, rec).Database.Errors)
	})
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newHandlers(t, nil, Options{})

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint_not_found", decode[httpContracts.ErrorResponse](t, rec).Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/planets", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "unknown", decode[httpContracts.ErrorResponse](t, rec).RequestID)
}

func dialStream(t *testing.T, h *Handlers) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.Now))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamPushesPositions(t *testing.T) {
	counter := &streamCounter{}
	h := newHandlers(t, nil, Options{StreamInterval: 20 * time.Millisecond, StreamObserver: counter})
	conn := dialStream(t, h)

	for i := 0; i < 2; i++ {
		var frame httpContracts.StreamFrame
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "positions", frame.Type)
		assert.Len(t, frame.Planets, 10)
		require.NotNil(t, frame.Instant)
	}
	assert.EqualValues(t, 1, counter.opened.Load())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return counter.closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamSendsErrorAndCloses(t *testing.T) {
	h := newHandlers(t, failingProvider{}, Options{StreamInterval: time.Hour})
	conn := dialStream(t, h)

	var frame httpContracts.StreamFrame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	require.NotNil(t, frame.Error)
	assert.Equal(t, "ephemeris_error", frame.Error.Code)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}
