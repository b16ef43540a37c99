package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/derivscan/internal/domain/signal"
	"github.com/sawpanic/derivscan/internal/metrics"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// SignalRunner classifies one date's screening-bucket memberships and
// persists the result. Classifications are recomputable at any time, so a
// rerun for the same date is harmless.
type SignalRunner struct {
	memberships persistence.MembershipSource
	store       persistence.ClassificationStore
	metrics     *metrics.Registry
	log         zerolog.Logger
}

// NewSignalRunner wires a classification runner.
func NewSignalRunner(memberships persistence.MembershipSource, store persistence.ClassificationStore, m *metrics.Registry, log zerolog.Logger) *SignalRunner {
	return &SignalRunner{
		memberships: memberships,
		store:       store,
		metrics:     m,
		log:         log.With().Str("cache", metrics.CacheSignal).Logger(),
	}
}

// Run classifies the date and persists one row per entity. The returned
// classifications carry the full audit breakdown regardless of whether the
// caller wants only the labels.
func (r *SignalRunner) Run(ctx context.Context, date time.Time) ([]signal.Classification, *Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		Cache:     metrics.CacheSignal,
		StartedAt: time.Now(),
	}
	log := r.log.With().Str("run_id", report.RunID.String()).Str("date", date.Format("2006-01-02")).Logger()

	ms, err := r.memberships.Memberships(ctx, date)
	if err != nil {
		return nil, report, fmt.Errorf("loading memberships for %s: %w", date.Format("2006-01-02"), err)
	}

	classifications := signal.Classify(ms)

	rows := make([]persistence.SignalClassificationRow, len(classifications))
	for i, c := range classifications {
		rows[i] = persistence.SignalClassificationRow{
			TradeDate:         date,
			Entity:            string(c.Entity),
			BullishCount:      c.BullishCount,
			BearishCount:      c.BearishCount,
			BullishCategories: c.BullishCategories,
			BearishCategories: c.BearishCategories,
			Label:             c.Label,
		}
	}

	written, err := r.store.UpsertBatch(ctx, rows)
	if err != nil {
		report.FinishedAt = time.Now()
		return nil, report, fmt.Errorf("writing classifications: %w", err)
	}

	report.Processed = len(classifications)
	report.RowsWritten = written
	report.FinishedAt = time.Now()
	r.metrics.EntitiesProcessed.WithLabelValues(metrics.CacheSignal).Add(float64(len(classifications)))
	r.metrics.RowsWritten.WithLabelValues(metrics.CacheSignal).Add(float64(written))
	r.metrics.RunDuration.WithLabelValues(metrics.CacheSignal).Observe(report.Duration().Seconds())
	r.metrics.LastRunTimestamp.WithLabelValues(metrics.CacheSignal).SetToCurrentTime()
	log.Info().
		Int("memberships", len(ms)).
		Int("entities", len(classifications)).
		Int64("rows_written", written).
		Msg("signal classification finished")
	return classifications, report, nil
}
