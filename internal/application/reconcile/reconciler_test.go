package reconcile

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/derivscan/internal/domain/indicators"
	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/metrics"
	"github.com/sawpanic/derivscan/internal/persistence"
)

type fakeSource struct {
	series    map[series.Entity]series.Series
	contracts map[series.Entity][]series.ContractBar
	seriesErr map[series.Entity]error
}

func (f *fakeSource) Entities(ctx context.Context) ([]series.Entity, error) {
	out := make([]series.Entity, 0, len(f.series))
	for e := range f.series {
		out = append(out, e)
	}
	for e := range f.contracts {
		if _, ok := f.series[e]; !ok {
			out = append(out, e)
		}
	}
	// Stable order keeps the tests deterministic.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeSource) DailySeries(ctx context.Context, entity series.Entity) (series.Series, error) {
	if err := f.seriesErr[entity]; err != nil {
		return series.Series{}, err
	}
	s, ok := f.series[entity]
	if !ok || s.Len() == 0 {
		return series.Series{}, persistence.ErrEmptySeries
	}
	return s, nil
}

func (f *fakeSource) ContractBars(ctx context.Context, entity series.Entity) ([]series.ContractBar, error) {
	return f.contracts[entity], nil
}

type fakeSnapshotStore struct {
	keys       persistence.KeySet
	rows       []persistence.IndicatorSnapshot
	upsertErr  error
	batchCalls int
}

func (f *fakeSnapshotStore) CachedKeys(ctx context.Context) (persistence.KeySet, error) {
	out := make(persistence.KeySet, len(f.keys))
	for k := range f.keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeSnapshotStore) UpsertBatch(ctx context.Context, rows []persistence.IndicatorSnapshot) (int64, error) {
	f.batchCalls++
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	var written int64
	for _, row := range rows {
		k := persistence.Key{Date: series.DateKey(row.TradeDate), Entity: series.Entity(row.Entity)}
		if _, ok := f.keys[k]; ok {
			continue // conflict: no-op
		}
		f.keys[k] = struct{}{}
		f.rows = append(f.rows, row)
		written++
	}
	return written, nil
}

func dailySeries(entity series.Entity, n int) series.Series {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]series.Bar, n)
	for i := range bars {
		bars[i] = series.Bar{
			Date:   start.AddDate(0, 0, i),
			Close:  100 + float64(i%9),
			Open:   math.NaN(),
			High:   math.NaN(),
			Low:    math.NaN(),
			Volume: 1000,
		}
	}
	return series.Series{Entity: entity, Bars: bars}
}

func newTestReconciler(source *fakeSource, store *fakeSnapshotStore) *Reconciler {
	return NewReconciler(source, store, indicators.NewDefaultEngine(), metrics.NewRegistry(), zerolog.Nop())
}

func TestReconciler_FirstRunWritesFullHistory(t *testing.T) {
	source := &fakeSource{series: map[series.Entity]series.Series{
		"RELIANCE": dailySeries("RELIANCE", 60),
	}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	report, err := r.Run(context.Background(), make(persistence.KeySet))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, int64(60), report.RowsWritten)
	assert.Len(t, store.rows, 60)
}

func TestReconciler_SecondRunIsIdempotent(t *testing.T) {
	source := &fakeSource{series: map[series.Entity]series.Series{
		"RELIANCE": dailySeries("RELIANCE", 60),
		"TCS":      dailySeries("TCS", 80),
	}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	cached, err := store.CachedKeys(context.Background())
	require.NoError(t, err)
	first, err := r.Run(context.Background(), cached)
	require.NoError(t, err)
	require.Equal(t, int64(140), first.RowsWritten)

	cached, err = store.CachedKeys(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background(), cached)
	require.NoError(t, err)

	assert.Equal(t, int64(0), second.RowsWritten, "unchanged source must produce zero writes")
	assert.Equal(t, 2, second.SkippedUpToDate)
	assert.Equal(t, 0, second.Processed)
}

func TestReconciler_OnlyMissingDatesEmitted(t *testing.T) {
	s := dailySeries("INFY", 70)
	source := &fakeSource{series: map[series.Entity]series.Series{"INFY": s}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	// Pretend the first 65 days are already cached.
	cached := make(persistence.KeySet)
	for _, bar := range s.Bars[:65] {
		cached.Add(bar.Date, "INFY")
	}

	report, err := r.Run(context.Background(), cached)
	require.NoError(t, err)

	assert.Equal(t, int64(5), report.RowsWritten)
	require.Len(t, store.rows, 5)
	// The emitted rows carry full-history indicators: SMA50 is warm by
	// day 65 even though only the tail is persisted.
	assert.NotNil(t, store.rows[0].SMA50)
	assert.Equal(t, series.DateKey(s.Bars[65].Date), series.DateKey(store.rows[0].TradeDate))
}

func TestReconciler_ShortHistorySkipped(t *testing.T) {
	source := &fakeSource{series: map[series.Entity]series.Series{
		"NEWLIST":  dailySeries("NEWLIST", 49),
		"SEASONED": dailySeries("SEASONED", 50),
	}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	report, err := r.Run(context.Background(), make(persistence.KeySet))
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedShortHistory)
	assert.Equal(t, 1, report.Processed)
	for _, row := range store.rows {
		assert.Equal(t, "SEASONED", row.Entity)
	}
}

func TestReconciler_EmptyEntitySkipped(t *testing.T) {
	source := &fakeSource{series: map[series.Entity]series.Series{
		"GHOST": {Entity: "GHOST"},
	}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	report, err := r.Run(context.Background(), make(persistence.KeySet))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SkippedEmpty)
	assert.Zero(t, report.RowsWritten)
}

func TestReconciler_EntityFailureDoesNotAbortBatch(t *testing.T) {
	source := &fakeSource{
		series: map[series.Entity]series.Series{
			"BROKEN": dailySeries("BROKEN", 60),
			"ZGOOD":  dailySeries("ZGOOD", 60),
		},
		seriesErr: map[series.Entity]error{
			"BROKEN": errors.New("malformed numeric data"),
		},
	}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	report, err := r.Run(context.Background(), make(persistence.KeySet))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, int64(60), report.RowsWritten)
}

func TestReconciler_StorageFailureIsFatal(t *testing.T) {
	source := &fakeSource{series: map[series.Entity]series.Series{
		"RELIANCE": dailySeries("RELIANCE", 60),
	}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet), upsertErr: errors.New("connection reset")}
	r := newTestReconciler(source, store)

	_, err := r.Run(context.Background(), make(persistence.KeySet))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReconciler_CancelledBeforeEntityBoundary(t *testing.T) {
	source := &fakeSource{series: map[series.Entity]series.Series{
		"RELIANCE": dailySeries("RELIANCE", 60),
	}}
	store := &fakeSnapshotStore{keys: make(persistence.KeySet)}
	r := newTestReconciler(source, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, make(persistence.KeySet))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.RowsWritten)
	assert.Zero(t, store.batchCalls, "no writes after cancellation")
}
