// Package application wires the engines, stores and interfaces into the
// runnable service.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/sawpanic/derivscan/internal/application/reconcile"
	"github.com/sawpanic/derivscan/internal/domain/indicators"
	"github.com/sawpanic/derivscan/internal/infrastructure/cache"
	"github.com/sawpanic/derivscan/internal/infrastructure/db"
	httpiface "github.com/sawpanic/derivscan/internal/interfaces/http"
	"github.com/sawpanic/derivscan/internal/metrics"
	"github.com/sawpanic/derivscan/internal/persistence"
	"github.com/sawpanic/derivscan/internal/scheduler"
)

// Service owns every long-lived component. Build one per process.
type Service struct {
	cfg        *Config
	log        zerolog.Logger
	manager    *db.Manager
	registry   *prometheus.Registry
	appMetrics *metrics.Registry

	source      persistence.SeriesSource
	technical   *reconcile.Reconciler
	expiry      *reconcile.ExpiryReconciler
	signals     *reconcile.SignalRunner
	signalCache *cache.ClassificationCache
}

// NewService connects to storage and wires the reconcilers. The caller owns
// Close.
func NewService(cfg *Config, log zerolog.Logger) (*Service, error) {
	manager, err := db.NewManager(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := manager.EnsureSchema(ctx); err != nil {
		manager.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewRegistry()
	if err := appMetrics.Register(registry); err != nil {
		manager.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	stores := manager.Stores()
	source := db.NewGuardedSeriesSource(stores.Source, cfg.Guard, log)
	engine := indicators.NewEngine(indicators.DefaultSyntheticRange(), cfg.Thresholds)
	signalCache := cache.NewClassificationCache(stores.Classifications, cfg.Redis, log)

	return &Service{
		cfg:        cfg,
		log:        log,
		manager:    manager,
		registry:   registry,
		appMetrics: appMetrics,

		source:      source,
		technical:   reconcile.NewReconciler(source, stores.Snapshots, engine, appMetrics, log),
		expiry:      reconcile.NewExpiryReconciler(source, stores.Expiries, appMetrics, log),
		signals:     reconcile.NewSignalRunner(stores.Memberships, signalCache, appMetrics, log),
		signalCache: signalCache,
	}, nil
}

// UpdateTechnical runs one technical-cache reconciliation: fetch the cached
// key snapshot once, then sweep every entity.
func (s *Service) UpdateTechnical(ctx context.Context) (*reconcile.Report, error) {
	cached, err := s.manager.Stores().Snapshots.CachedKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching cached keys: %w", err)
	}
	return s.technical.Run(ctx, cached)
}

// UpdateExpiry runs one expiry-cache reconciliation.
func (s *Service) UpdateExpiry(ctx context.Context) (*reconcile.Report, error) {
	cached, err := s.manager.Stores().Expiries.CachedKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching cached keys: %w", err)
	}
	return s.expiry.Run(ctx, cached)
}

// ClassifyDate classifies and persists one date's screening signals.
func (s *Service) ClassifyDate(ctx context.Context, date time.Time) (*reconcile.Report, error) {
	_, report, err := s.signals.Run(ctx, date)
	return report, err
}

// RunScheduler blocks running the nightly jobs until ctx is cancelled.
func (s *Service) RunScheduler(ctx context.Context) error {
	sched, err := scheduler.New(s.cfg.Scheduler, s.log)
	if err != nil {
		return err
	}

	jobs := []scheduler.Job{
		{Name: "technical-cache", Spec: s.cfg.Scheduler.Technical, Run: func(ctx context.Context) error {
			_, err := s.UpdateTechnical(ctx)
			return err
		}},
		{Name: "expiry-cache", Spec: s.cfg.Scheduler.Expiry, Run: func(ctx context.Context) error {
			_, err := s.UpdateExpiry(ctx)
			return err
		}},
		{Name: "signal-classification", Spec: s.cfg.Scheduler.Signal, Run: func(ctx context.Context) error {
			_, err := s.ClassifyDate(ctx, previousTradingDay(time.Now()))
			return err
		}},
	}
	for _, job := range jobs {
		if err := sched.Add(ctx, job); err != nil {
			return err
		}
	}

	sched.Start(ctx)
	return nil
}

// RunMonitor serves the monitoring endpoints until ctx is cancelled.
func (s *Service) RunMonitor(ctx context.Context) error {
	srv := httpiface.NewServer(s.cfg.Monitor, s.signalCache, s.manager, s.registry, s.log)
	return srv.Run(ctx)
}

// Close releases storage connections.
func (s *Service) Close() {
	if err := s.signalCache.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing redis client")
	}
	if err := s.manager.Close(); err != nil {
		s.log.Warn().Err(err).Msg("closing database pool")
	}
}

// previousTradingDay steps back to the most recent weekday before now.
// Exchange holidays still classify to an empty membership set, which is
// harmless.
func previousTradingDay(now time.Time) time.Time {
	d := now.AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
