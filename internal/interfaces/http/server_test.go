package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/derivscan/internal/domain/signal"
	"github.com/sawpanic/derivscan/internal/persistence"
)

type stubStore struct {
	rows []persistence.SignalClassificationRow
	err  error
}

func (s *stubStore) UpsertBatch(ctx context.Context, rows []persistence.SignalClassificationRow) (int64, error) {
	return 0, nil
}

func (s *stubStore) ByDate(ctx context.Context, date time.Time) ([]persistence.SignalClassificationRow, error) {
	return s.rows, s.err
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestServer(store *stubStore, pinger *stubPinger) *Server {
	return NewServer(Config{Host: "127.0.0.1", Port: 0}, store, pinger, prometheus.NewRegistry(), zerolog.Nop())
}

func TestHealth_OK(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubPinger{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_DegradedWhenStorageDown(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubPinger{err: errors.New("no route to host")})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSignals_ReturnsRows(t *testing.T) {
	store := &stubStore{rows: []persistence.SignalClassificationRow{
		{Entity: "RELIANCE", BullishCount: 3, BearishCount: 1, Label: signal.LabelBullish},
	}}
	srv := newTestServer(store, &stubPinger{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signals/2026-03-02", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2026-03-02", body.Date)
	assert.Equal(t, 1, body.Count)
}

func TestSignals_BadDate(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubPinger{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signals/yesterday", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignals_StoreFailureNeverLeaksError(t *testing.T) {
	store := &stubStore{err: errors.New("pq: connection refused")}
	srv := newTestServer(store, &stubPinger{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signals/2026-03-02", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "data not yet available")
}

func TestMetricsEndpointRegistered(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubPinger{})

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
