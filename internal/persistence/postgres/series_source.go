package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// seriesSource reads the raw futures bhavcopy rows. The daily close for an
// entity follows the front-month proxy convention: for each trade date the
// row with the nearest expiry on or after that date stands in for the
// underlying, since no clean cash series exists for every entity.
type seriesSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSeriesSource creates a PostgreSQL-backed raw series reader.
func NewSeriesSource(db *sqlx.DB, timeout time.Duration) persistence.SeriesSource {
	return &seriesSource{db: db, timeout: timeout}
}

func (s *seriesSource) Entities(ctx context.Context) ([]series.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var tickers []string
	err := s.db.SelectContext(ctx, &tickers,
		`SELECT DISTINCT ticker FROM futures_bhav ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}

	out := make([]series.Entity, len(tickers))
	for i, t := range tickers {
		out[i] = series.Entity(t)
	}
	return out, nil
}

type dailyRow struct {
	TradeDate time.Time       `db:"trade_date"`
	Close     float64         `db:"close_price"`
	Open      sql.NullFloat64 `db:"open_price"`
	High      sql.NullFloat64 `db:"high_price"`
	Low       sql.NullFloat64 `db:"low_price"`
	Volume    sql.NullFloat64 `db:"volume"`
}

func (s *seriesSource) DailySeries(ctx context.Context, entity series.Entity) (series.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// DISTINCT ON picks exactly one row per date: the contract with the
	// nearest expiry still alive on that date.
	query := `
		SELECT DISTINCT ON (trade_date)
			trade_date, close_price, open_price, high_price, low_price, volume
		FROM futures_bhav
		WHERE ticker = $1 AND expiry_date >= trade_date
		ORDER BY trade_date ASC, expiry_date ASC`

	var rows []dailyRow
	if err := s.db.SelectContext(ctx, &rows, query, string(entity)); err != nil {
		return series.Series{}, fmt.Errorf("loading daily series for %s: %w", entity, err)
	}
	if len(rows) == 0 {
		return series.Series{}, fmt.Errorf("entity %s: %w", entity, persistence.ErrEmptySeries)
	}

	bars := make([]series.Bar, len(rows))
	for i, r := range rows {
		bars[i] = series.Bar{
			Date:   r.TradeDate,
			Close:  r.Close,
			Open:   fromNull(r.Open),
			High:   fromNull(r.High),
			Low:    fromNull(r.Low),
			Volume: fromNull(r.Volume),
		}
	}
	return series.Series{Entity: entity, Bars: bars}, nil
}

type contractRow struct {
	TradeDate       time.Time       `db:"trade_date"`
	Expiry          time.Time       `db:"expiry_date"`
	Close           float64         `db:"close_price"`
	OpenInterest    float64         `db:"open_interest"`
	OIChange        float64         `db:"oi_change"`
	UnderlyingPrice sql.NullFloat64 `db:"underlying_price"`
}

func (s *seriesSource) ContractBars(ctx context.Context, entity series.Entity) ([]series.ContractBar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT trade_date, expiry_date, close_price,
			COALESCE(open_interest, 0) AS open_interest,
			COALESCE(oi_change, 0) AS oi_change,
			underlying_price
		FROM futures_bhav
		WHERE ticker = $1
		ORDER BY trade_date ASC, expiry_date ASC`

	var rows []contractRow
	if err := s.db.SelectContext(ctx, &rows, query, string(entity)); err != nil {
		return nil, fmt.Errorf("loading contract bars for %s: %w", entity, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("entity %s: %w", entity, persistence.ErrEmptySeries)
	}

	out := make([]series.ContractBar, len(rows))
	for i, r := range rows {
		out[i] = series.ContractBar{
			Date:            r.TradeDate,
			Expiry:          r.Expiry,
			Close:           r.Close,
			OpenInterest:    r.OpenInterest,
			OIChange:        r.OIChange,
			UnderlyingPrice: fromNull(r.UnderlyingPrice),
		}
	}
	return out, nil
}

// fromNull maps SQL NULL to the in-memory NaN convention.
func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
