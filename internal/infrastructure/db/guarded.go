package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// GuardConfig tunes the read-path guard. The breaker protects a struggling
// database from the full entity sweep; the limiter smooths query bursts.
type GuardConfig struct {
	MaxRequestsHalfOpen uint32        `yaml:"max_requests_half_open" default:"3"`
	OpenTimeout         time.Duration `yaml:"open_timeout" default:"30s"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5"`
	QueriesPerSecond    float64       `yaml:"queries_per_second" default:"50"`
	Burst               int           `yaml:"burst" default:"10"`
}

// DefaultGuardConfig returns the standard guard settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxRequestsHalfOpen: 3,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
		QueriesPerSecond:    50,
		Burst:               10,
	}
}

// GuardedSeriesSource decorates a SeriesSource with a circuit breaker and a
// rate limiter. Reconciliation sweeps issue one series query per entity;
// without the guard a dying database gets hammered for the whole universe.
type GuardedSeriesSource struct {
	inner   persistence.SeriesSource
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuardedSeriesSource wraps the source with the given guard settings.
func NewGuardedSeriesSource(inner persistence.SeriesSource, cfg GuardConfig, log zerolog.Logger) *GuardedSeriesSource {
	settings := gobreaker.Settings{
		Name:        "series-source",
		MaxRequests: cfg.MaxRequestsHalfOpen,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// An entity with no rows is a normal outcome, not a database
		// failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, persistence.ErrEmptySeries)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("series source breaker state changed")
		},
	}
	return &GuardedSeriesSource{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), cfg.Burst),
	}
}

func (g *GuardedSeriesSource) Entities(ctx context.Context) ([]series.Entity, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Entities(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]series.Entity), nil
}

func (g *GuardedSeriesSource) DailySeries(ctx context.Context, entity series.Entity) (series.Series, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return series.Series{}, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.DailySeries(ctx, entity)
	})
	if err != nil {
		return series.Series{}, err
	}
	return out.(series.Series), nil
}

func (g *GuardedSeriesSource) ContractBars(ctx context.Context, entity series.Entity) ([]series.ContractBar, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.ContractBars(ctx, entity)
	})
	if err != nil {
		return nil, err
	}
	return out.([]series.ContractBar), nil
}
