package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/acmap/internal/cache"
	"github.com/ppiankov/acmap/internal/model"
	"github.com/ppiankov/acmap/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accidentsJSON = `[
	{"date": "1977-03-27", "operator": "KLM", "flightNumber": "KL4805", "aircraftType": "Boeing 747-206B",
	 "occupants": 248, "fatalities": 248, "latitude": 28.48, "longitude": -16.34, "categories": ["Runway incursion"]},
	{"date": "2009-01-15", "operator": "US Airways", "flightNumber": "US1549", "aircraftType": "Airbus A320-214",
	 "occupants": 155, "fatalities": 0, "latitude": 40.77, "longitude": -74.0, "categories": ["Bird strike"]}
]`

func testConfig(baseURL string) model.APIConfig {
	return model.APIConfig{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
		MaxRetries:   3,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchAccidents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/accidents", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, accidentsJSON)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL+"/api/"), nil, nil, nil)
	accidents, err := c.FetchAccidents(context.Background())
	require.NoError(t, err)
	require.Len(t, accidents, 2)

	assert.Equal(t, "KLM", accidents[0].Operator)
	assert.Equal(t, model.NewDate(1977, time.March, 27), accidents[0].Date)
	assert.Equal(t, []string{"Bird strike"}, accidents[1].Categories)
}

func TestFetchAccidents_UsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, accidentsJSON)
	}))
	defer server.Close()

	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	c := NewClient(testConfig(server.URL), nil, mem, nil)

	for i := 0; i < 3; i++ {
		accidents, err := c.FetchAccidents(context.Background())
		require.NoError(t, err)
		assert.Len(t, accidents, 2)
	}
	assert.Equal(t, int32(1), hits.Load())

	_, found := mem.Get(cache.Key(c.AccidentsURL()))
	assert.True(t, found)
}

func TestFetchAccidents_CorruptCacheEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, accidentsJSON)
	}))
	defer server.Close()

	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	c := NewClient(testConfig(server.URL), nil, mem, nil)
	require.NoError(t, mem.Set(cache.Key(c.AccidentsURL()), []byte("{broken"), 0))

	accidents, err := c.FetchAccidents(context.Background())
	require.NoError(t, err)
	assert.Len(t, accidents, 2)
}

func TestFetchAccidents_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "null")
	}))
	defer server.Close()

	accidents, err := NewClient(testConfig(server.URL), nil, nil, nil).FetchAccidents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, accidents)
	assert.Empty(t, accidents)
}

func TestFetchAccidents_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"message": "not a list"}`)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), nil, nil, nil).FetchAccidents(context.Background())
	assert.ErrorContains(t, err, "decode accidents")
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, accidentsJSON)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxBodyBytes = 16
	_, err := NewClient(cfg, nil, nil, nil).Fetch(context.Background(), server.URL)
	assert.ErrorContains(t, err, "exceeds 16 bytes")
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil, nil, nil)
	result, err := c.FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(result.Body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil, nil, nil)
	_, err := c.FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), attempts.Load(), "404 is not retried")
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), nil, nil, nil).FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	noSleep(t)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), nil, nil, nil).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetch_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	limiter := worker.NewLimiter(0.001, 1)
	c := NewClient(testConfig(server.URL), limiter, nil, nil)

	_, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, server.URL)
	assert.ErrorContains(t, err, "rate limit")
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500, Status: "500 Internal Server Error"}, true},
		{"429", &StatusError{Code: 429, Status: "429 Too Many Requests"}, true},
		{"404", &StatusError{Code: 404, Status: "404 Not Found"}, false},
		{"401", &StatusError{Code: 401, Status: "401 Unauthorized"}, false},
		{"transport", fmt.Errorf("fetch: %w", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}), true},
		{"cancelled", fmt.Errorf("fetch: %w", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}), false},
		{"decode", errors.New("decode accidents: unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableFetchError(tt.err))
		})
	}
}
