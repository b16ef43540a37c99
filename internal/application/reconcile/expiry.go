package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sawpanic/derivscan/internal/domain/percentile"
	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/metrics"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// ExpiryReconciler fills the expiry-bucket open-interest cache. Per date the
// entity's three nearest future expiries map to the near/next/far buckets,
// and price/OI rank against the trailing window of the same bucket's prior
// observations.
type ExpiryReconciler struct {
	source  persistence.SeriesSource
	store   persistence.ExpiryStore
	metrics *metrics.Registry
	log     zerolog.Logger
	window  int
}

// NewExpiryReconciler wires an expiry-cache reconciler.
func NewExpiryReconciler(source persistence.SeriesSource, store persistence.ExpiryStore, m *metrics.Registry, log zerolog.Logger) *ExpiryReconciler {
	return &ExpiryReconciler{
		source:  source,
		store:   store,
		metrics: m,
		log:     log.With().Str("cache", metrics.CacheExpiry).Logger(),
		window:  percentile.WindowSize,
	}
}

// Run processes every entity against the given cached-key snapshot, with
// the same cancellation and error-isolation rules as the technical run.
func (r *ExpiryReconciler) Run(ctx context.Context, cached persistence.BucketKeySet) (*Report, error) {
	report := &Report{
		RunID:     uuid.New(),
		Cache:     metrics.CacheExpiry,
		StartedAt: time.Now(),
	}
	log := r.log.With().Str("run_id", report.RunID.String()).Logger()

	entities, err := r.source.Entities(ctx)
	if err != nil {
		return report, fmt.Errorf("listing entities: %w", err)
	}
	log.Info().Int("entities", len(entities)).Int("cached_keys", len(cached)).Msg("expiry cache run started")

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
			r.metrics.EntitiesFailed.WithLabelValues(metrics.CacheExpiry).Inc()
			log.Warn().Err(err).Str("entity", string(entity)).Msg("entity failed, will retry next run")
			continue
		}
		report.RowsWritten += written
	}

	report.FinishedAt = time.Now()
	r.metrics.RunDuration.WithLabelValues(metrics.CacheExpiry).Observe(report.Duration().Seconds())
	r.metrics.LastRunTimestamp.WithLabelValues(metrics.CacheExpiry).SetToCurrentTime()
	log.Info().
		Int("processed", report.Processed).
		Int("up_to_date", report.SkippedUpToDate).
		Int("empty", report.SkippedEmpty).
		Int("failed", report.Failed).
		Int64("rows_written", report.RowsWritten).
		Dur("took", report.Duration()).
		Msg("expiry cache run finished")
	return report, nil
}

// bucketHistory accumulates one bucket's observations in date order, so
// each new observation ranks against its own trailing window.
type bucketHistory struct {
	prices []float64
	ois    []float64
}

func (r *ExpiryReconciler) reconcileEntity(ctx context.Context, entity series.Entity, cached persistence.BucketKeySet, report *Report) (int64, error) {
	bars, err := r.source.ContractBars(ctx, entity)
	if err != nil {
		if errors.Is(err, persistence.ErrEmptySeries) {
			report.SkippedEmpty++
			r.metrics.EntitiesSkipped.WithLabelValues(metrics.CacheExpiry, metrics.ReasonEmpty).Inc()
			return 0, nil
		}
		return 0, fmt.Errorf("loading contract bars: %w", err)
	}
	if len(bars) == 0 {
		report.SkippedEmpty++
		r.metrics.EntitiesSkipped.WithLabelValues(metrics.CacheExpiry, metrics.ReasonEmpty).Inc()
		return 0, nil
	}

	byDate := make(map[string][]series.ContractBar)
	dates := make([]time.Time, 0)
	seenDates := make(map[string]struct{})
	for _, b := range bars {
		key := series.DateKey(b.Date)
		byDate[key] = append(byDate[key], b)
		if _, ok := seenDates[key]; !ok {
			seenDates[key] = struct{}{}
			dates = append(dates, b.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// Percentile windows need the bucket's full history, so every date is
	// walked even when its keys are already cached; only missing keys
	// become rows.
	history := make(map[percentile.ExpiryBucket]*bucketHistory, 3)
	rows := make([]persistence.ExpiryBucketObservation, 0)

	for _, date := range dates {
		dayBars := byDate[series.DateKey(date)]
		expiries := make([]time.Time, 0, len(dayBars))
		barByExpiry := make(map[time.Time]series.ContractBar, len(dayBars))
		for _, b := range dayBars {
			if _, ok := barByExpiry[b.Expiry]; !ok {
				expiries = append(expiries, b.Expiry)
				barByExpiry[b.Expiry] = b
			}
		}

		for expiry, bucket := range percentile.AssignBuckets(date, expiries) {
			b := barByExpiry[expiry]
			h := history[bucket]
			if h == nil {
				h = &bucketHistory{}
				history[bucket] = h
			}
			h.prices = append(h.prices, b.Close)
			h.ois = append(h.ois, b.OpenInterest)

			if cached.Has(date, entity, bucket) {
				continue
			}
			i := len(h.prices) - 1
			rows = append(rows, persistence.ExpiryBucketObservation{
				TradeDate:       date,
				Entity:          string(entity),
				Bucket:          bucket,
				Expiry:          expiry,
				Price:           b.Close,
				OpenInterest:    b.OpenInterest,
				OIChange:        b.OIChange,
				UnderlyingPrice: nullableUnderlying(b.UnderlyingPrice),
				PricePctRank:    percentile.Rank(b.Close, percentile.Trailing(h.prices, i, r.window)),
				OIPctRank:       percentile.Rank(b.OpenInterest, percentile.Trailing(h.ois, i, r.window)),
			})
		}
	}

	if len(rows) == 0 {
		report.SkippedUpToDate++
		r.metrics.EntitiesSkipped.WithLabelValues(metrics.CacheExpiry, metrics.ReasonUpToDate).Inc()
		return 0, nil
	}

	written, err := r.store.UpsertBatch(ctx, rows)
	if err != nil {
		return 0, &storageError{err: fmt.Errorf("writing observations: %w", err)}
	}

	report.Processed++
	r.metrics.EntitiesProcessed.WithLabelValues(metrics.CacheExpiry).Inc()
	r.metrics.RowsWritten.WithLabelValues(metrics.CacheExpiry).Add(float64(written))
	r.log.Debug().Str("entity", string(entity)).Int("rows", len(rows)).Int64("written", written).Msg("entity reconciled")
	return written, nil
}

func nullableUnderlying(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
