// Package reconcile drives the indicator engines over every entity, writing
// only the cache rows that are not persisted yet. Runs are idempotent: a
// second run over an unchanged source writes nothing.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/derivscan/internal/domain/indicators"
	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/metrics"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// MinBars is the minimum series length accepted for indicator computation.
// Shorter entities are skipped and retried once more history accumulates.
const MinBars = 50

// Reconciler fills the technical indicator cache. Entities are independent;
// a failure in one is logged and never aborts the batch. Only a storage
// write failure is fatal, and rerunning after one is safe.
type Reconciler struct {
	source  persistence.SeriesSource
	store   persistence.SnapshotStore
	engine  *indicators.Engine
	metrics *metrics.Registry
	log     zerolog.Logger
	minBars int
}

// NewReconciler wires a technical-cache reconciler.
func NewReconciler(source persistence.SeriesSource, store persistence.SnapshotStore, engine *indicators.Engine, m *metrics.Registry, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		source:  source,
		store:   store,
		engine:  engine,
		metrics: m,
		log:     log.With().Str("cache", metrics.CacheTechnical).Logger(),
		minBars: MinBars,
	}
}

// Run processes every entity against the given cached-key snapshot. The
// snapshot is fetched once by the caller, before processing begins; it is
// never re-queried per entity. Cancellation is honored at entity boundaries
// only, so an interrupted run leaves the cache valid and resumable.
func (r *Reconciler) Run(ctx context.Context, cached persistence.KeySet) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		Cache:     metrics.CacheTechnical,
		StartedAt: time.Now(),
	}
	log := r.log.With().Str("run_id", report.RunID.String()).Logger()

	entities, err := r.source.Entities(ctx)
	if err != nil {
		return report, fmt.Errorf("listing entities: %w", err)
	}
	log.Info().Int("entities", len(entities)).Int("cached_keys", len(cached)).Msg("technical cache run started")

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			log.Warn().Err(err).Msg("run cancelled at entity boundary")
			return report, err
		}

		written, err := r.reconcileEntity(ctx, entity, cached, report)
		if err != nil {
			var fatal *storageError
			if errors.As(err, &fatal) {
				report.FinishedAt = time.Now()
				return report, fmt.Errorf("entity %s: %w", entity, fatal.err)
			}
			report.Failed++
			r.metrics.EntitiesFailed.WithLabelValues(metrics.CacheTechnical).Inc()
			log.Warn().Err(err).Str("entity", string(entity)).Msg("entity failed, will retry next run")
			continue
		}
		report.RowsWritten += written
	}

	report.FinishedAt = time.Now()
	r.metrics.RunDuration.WithLabelValues(metrics.CacheTechnical).Observe(report.Duration().Seconds())
	r.metrics.LastRunTimestamp.WithLabelValues(metrics.CacheTechnical).SetToCurrentTime()
	log.Info().
		Int("processed", report.Processed).
		Int("up_to_date", report.SkippedUpToDate).
		Int("short_history", report.SkippedShortHistory).
		Int("empty", report.SkippedEmpty).
		Int("failed", report.Failed).
		Int64("rows_written", report.RowsWritten).
		Dur("took", report.Duration()).
		Msg("technical cache run finished")
	return report, nil
}

// storageError marks a persistence write failure, which is fatal for the
// run while per-entity computation errors are not.
type storageError struct{ err error }

func (e *storageError) Error() string { return e.err.Error() }
func (e *storageError) Unwrap() error { return e.err }

func (r *Reconciler) reconcileEntity(ctx context.Context, entity series.Entity, cached persistence.KeySet, report *Report) (int64, error) {
	s, err := r.source.DailySeries(ctx, entity)
	if err != nil {
		if errors.Is(err, persistence.ErrEmptySeries) {
			report.SkippedEmpty++
			r.metrics.EntitiesSkipped.WithLabelValues(metrics.CacheTechnical, metrics.ReasonEmpty).Inc()
			return 0, nil
		}
		return 0, fmt.Errorf("loading series: %w", err)
	}

	if s.Len() < r.minBars {
		report.SkippedShortHistory++
		r.metrics.EntitiesSkipped.WithLabelValues(metrics.CacheTechnical, metrics.ReasonShortHistory).Inc()
		r.log.Debug().Str("entity", string(entity)).Int("bars", s.Len()).Msg("insufficient history")
		return 0, nil
	}

	missing := 0
	for _, bar := range s.Bars {
		if !cached.Has(bar.Date, entity) {
			missing++
		}
	}
	if missing == 0 {
		report.SkippedUpToDate++
		r.metrics.EntitiesSkipped.WithLabelValues(metrics.CacheTechnical, metrics.ReasonUpToDate).Inc()
		return 0, nil
	}

	// Rolling windows need the full lookback, so the engine always runs
	// over the entire series; only rows for missing dates are emitted.
	points, err := r.engine.Compute(s)
	if err != nil {
		return 0, fmt.Errorf("computing indicators: %w", err)
	}

	rows := make([]persistence.IndicatorSnapshot, 0, missing)
	for i, bar := range s.Bars {
		if cached.Has(bar.Date, entity) {
			continue
		}
		rows = append(rows, persistence.SnapshotFromPoint(bar.Date, entity, points[i]))
	}

	written, err := r.store.UpsertBatch(ctx, rows)
	if err != nil {
		return 0, &storageError{err: fmt.Errorf("writing snapshots: %w", err)}
	}

	report.Processed++
	r.metrics.EntitiesProcessed.WithLabelValues(metrics.CacheTechnical).Inc()
	r.metrics.RowsWritten.WithLabelValues(metrics.CacheTechnical).Add(float64(written))
	r.log.Debug().Str("entity", string(entity)).Int("missing", missing).Int64("written", written).Msg("entity reconciled")
	return written, nil
}
