package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// snapshotStore implements SnapshotStore against technical_indicator_cache.
type snapshotStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotStore creates a PostgreSQL technical-cache store.
func NewSnapshotStore(db *sqlx.DB, timeout time.Duration) persistence.SnapshotStore {
	return &snapshotStore{db: db, timeout: timeout}
}

func (s *snapshotStore) CachedKeys(ctx context.Context) (persistence.KeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type keyRow struct {
		TradeDate time.Time `db:"trade_date"`
		Ticker    string    `db:"ticker"`
	}
	var rows []keyRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT trade_date, ticker FROM technical_indicator_cache`)
	if err != nil {
		return nil, fmt.Errorf("loading cached keys: %w", err)
	}

	keys := make(persistence.KeySet, len(rows))
	for _, r := range rows {
		keys.Add(r.TradeDate, series.Entity(r.Ticker))
	}
	return keys, nil
}

const insertSnapshotQuery = `
	INSERT INTO technical_indicator_cache (
		trade_date, ticker,
		close_price, price_change_pct, volume, volume_change_pct,
		rsi_14, rsi_above_80, rsi_60_80, rsi_40_60, rsi_20_40, rsi_below_20,
		macd, macd_signal, macd_histogram, macd_bullish_crossover, macd_bearish_crossover,
		sma_50, sma_200, above_50_sma, above_200_sma, below_50_sma, below_200_sma,
		dist_from_50_sma_pct, dist_from_200_sma_pct, golden_cross, death_cross,
		bb_upper, bb_middle, bb_lower, bb_width, bb_squeeze,
		adx_14, strong_trend,
		pivot_point, resistance_1, resistance_2, resistance_3,
		support_1, support_2, support_3,
		r1_breakout, r2_breakout, r3_breakout,
		s1_breakdown, s2_breakdown, s3_breakdown,
		momentum_score, is_high_momentum,
		week_1_high, week_1_low, week_4_high, week_4_low, week_52_high, week_52_low,
		week_1_high_breakout, week_1_low_breakdown,
		week_4_high_breakout, week_4_low_breakdown,
		week_52_high_breakout, week_52_low_breakdown,
		potential_high_volume, unusually_high_volume
	) VALUES (
		:trade_date, :ticker,
		:close_price, :price_change_pct, :volume, :volume_change_pct,
		:rsi_14, :rsi_above_80, :rsi_60_80, :rsi_40_60, :rsi_20_40, :rsi_below_20,
		:macd, :macd_signal, :macd_histogram, :macd_bullish_crossover, :macd_bearish_crossover,
		:sma_50, :sma_200, :above_50_sma, :above_200_sma, :below_50_sma, :below_200_sma,
		:dist_from_50_sma_pct, :dist_from_200_sma_pct, :golden_cross, :death_cross,
		:bb_upper, :bb_middle, :bb_lower, :bb_width, :bb_squeeze,
		:adx_14, :strong_trend,
		:pivot_point, :resistance_1, :resistance_2, :resistance_3,
		:support_1, :support_2, :support_3,
		:r1_breakout, :r2_breakout, :r3_breakout,
		:s1_breakdown, :s2_breakdown, :s3_breakdown,
		:momentum_score, :is_high_momentum,
		:week_1_high, :week_1_low, :week_4_high, :week_4_low, :week_52_high, :week_52_low,
		:week_1_high_breakout, :week_1_low_breakdown,
		:week_4_high_breakout, :week_4_low_breakdown,
		:week_52_high_breakout, :week_52_low_breakdown,
		:potential_high_volume, :unusually_high_volume
	)
	ON CONFLICT (trade_date, ticker) DO NOTHING`

// UpsertBatch inserts rows inside one transaction; rows whose key already
// exists are silently skipped. Returns the number of rows actually written.
func (s *snapshotStore) UpsertBatch(ctx context.Context, rows []persistence.IndicatorSnapshot) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertSnapshotQuery)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row)
		if err != nil {
			return 0, fmt.Errorf("inserting snapshot (%s, %s): %w",
				row.TradeDate.Format("2006-01-02"), row.Entity, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reading rows affected: %w", err)
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}
	return written, nil
}
