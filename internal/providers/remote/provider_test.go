package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/astrorun/internal/cache"
	"github.com/sawpanic/astrorun/internal/domain"
	"github.com/sawpanic/astrorun/internal/domain/calendar"
	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	"github.com/sawpanic/astrorun/internal/providers/guards"
)

const marsPayload = `{"longitude":38.7,"latitude":0.6,"distance_au":2.01}`

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"}, nil)
	assert.Error(t, err)

	p, err := New(Config{BaseURL: "https://ephemeris.example.com/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "remote", p.Name())
	assert.Equal(t, "heliocentric", p.config.Frame)
	assert.Equal(t, 10*time.Second, p.config.Timeout)
}

func TestPositionRequest(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/positions/mars", r.URL.Path)
		assert.Equal(t, "2024-06-21T00:00:00Z", r.URL.Query().Get("instant"))
		assert.Equal(t, "geocentric", r.URL.Query().Get("frame"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(marsPayload))
	})

	p, err := New(Config{BaseURL: srv.URL + "/api", APIKey: "secret", Frame: "geocentric"}, nil)
	require.NoError(t, err)

	c, err := p.Position(context.Background(), ephemeris.Mars, calendar.MustParse("2024-06-21").Midnight())
	require.NoError(t, err)
	assert.Equal(t, ephemeris.Coordinates{Longitude: 38.7, Latitude: 0.6, DistanceAU: 2.01}, c)
}

func TestPositionHTTPError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Position(context.Background(), ephemeris.Sun, time.Now())
	var pe *guards.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "bad key", pe.Message)
	assert.False(t, pe.Retryable)
}

func TestPositionIncompletePayload(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"longitude":10}`))
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Position(context.Background(), ephemeris.Moon, time.Now())
	var pe *guards.ProviderError
	require.ErrorAs(t, err, &pe)
}

func TestPositionMalformedJSON(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"longitude":`))
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Position(context.Background(), ephemeris.Moon, time.Now())
	assert.ErrorContains(t, err, "decode position")
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(marsPayload))
	})

	cfg := Config{BaseURL: srv.URL, MaxRetries: 1}
	cfg.Circuit.FailureThreshold = 5
	p, err := New(cfg, nil)
	require.NoError(t, err)

	c, err := p.Position(context.Background(), ephemeris.Mars, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 38.7, c.Longitude, 1e-9)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	cfg := Config{BaseURL: srv.URL}
	cfg.Circuit = CircuitConfig{FailureThreshold: 2, OpenTimeout: time.Hour}
	p, err := New(cfg, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = p.Position(context.Background(), ephemeris.Saturn, time.Now())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, p.Guard().State())
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.ErrorContains(t, err, "circuit breaker open")
}

func TestMemoryCacheAvoidsSecondRequest(t *testing.T) {
	var calls int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(marsPayload))
	})

	p, err := New(Config{BaseURL: srv.URL}, cache.NewMemory())
	require.NoError(t, err)

	instant := calendar.MustParse("2024-06-21").Midnight()
	for i := 0; i < 3; i++ {
		_, err := p.Position(context.Background(), ephemeris.Mars, instant)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRedisCacheHit(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called on a cache hit")
	})

	db, mock := redismock.NewClientMock()
	instant := calendar.MustParse("2024-06-21").Midnight()
	mock.ExpectGet("astrorun:remote:geocentric:mars:1718928000").SetVal(marsPayload)

	p, err := New(Config{BaseURL: srv.URL}, cache.NewRedis(db, "astrorun:", time.Second))
	require.NoError(t, err)

	c, err := p.Position(context.Background(), ephemeris.Mars, instant)
	require.NoError(t, err)
	assert.InDelta(t, 38.7, c.Longitude, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMissStores(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marsPayload))
	})

	db, mock := redismock.NewClientMock()
	key := "astrorun:remote:geocentric:mars:1718928000"
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, []byte(marsPayload), time.Hour).SetVal("OK")

	p, err := New(Config{BaseURL: srv.URL, TTL: time.Hour}, cache.NewRedis(db, "astrorun:", time.Second))
	require.NoError(t, err)

	_, err = p.Position(context.Background(), ephemeris.Mars, calendar.MustParse("2024-06-21").Midnight())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureThroughEvaluator(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = ephemeris.NewEvaluator(p).Evaluate(context.Background(), ephemeris.Venus, time.Now())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindEphemeris))

	var pe *guards.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
}

func TestCancelledContext(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marsPayload))
	})

	p, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Position(ctx, ephemeris.Mars, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, p.Guard().State())
}
