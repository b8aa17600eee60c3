package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blakkisvuohi/internal/database"
	"blakkisvuohi/internal/metrics"
	"blakkisvuohi/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) PingContext(context.Context) error { return errors.New("database is locked") }

func (brokenStore) CountUsers(context.Context) (int, error) { return 0, errors.New("database is locked") }

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(database.DriverSQLite, ":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T, store Store, opts Options) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	srv := NewHTTPServer(opts, store, reg, m, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	ts, m := newTestServer(t, newTestDB(t), Options{RPS: -1})

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, body)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/healthz")))
}

func TestHealthz_DatabaseDown(t *testing.T) {
	ts, _ := newTestServer(t, brokenStore{}, Options{RPS: -1})

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "database is locked")
}

func TestHealthz_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, newTestDB(t), Options{RPS: -1})

	resp, err := http.Post(ts.URL+"/healthz", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateUser(ctx, &models.User{UserID: "a", Username: "x", Weight: 80, Gender: models.GenderMale, Height: 180}))
	require.NoError(t, db.CreateUser(ctx, &models.User{UserID: "b", Username: "y", Weight: 60, Gender: models.GenderFemale, Height: 165}))

	ts, _ := newTestServer(t, db, Options{RPS: -1})

	resp, body := get(t, ts.URL+"/api/v1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Users int `json:"users"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, 2, out.Users)

	ts, _ = newTestServer(t, brokenStore{}, Options{RPS: -1})
	resp, _ = get(t, ts.URL+"/api/v1/stats")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, m := newTestServer(t, newTestDB(t), Options{RPS: -1})
	m.DrinksRecorded.Add(3)

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "blakkisvuohi_drinks_recorded_total 3")

	get(t, ts.URL+"/nope")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("other")))
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t, newTestDB(t), Options{RPS: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		resp, _ := get(t, ts.URL+"/healthz")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "rate limit exceeded")
}
