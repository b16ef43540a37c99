// Package postgres implements the persistence contracts against PostgreSQL.
// All cache tables carry a unique key constraint; batch writers insert with
// ON CONFLICT DO NOTHING so concurrent or re-entrant runs stay correct.
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS technical_indicator_cache (
	id BIGSERIAL PRIMARY KEY,
	trade_date DATE NOT NULL,
	ticker VARCHAR(50) NOT NULL,

	close_price NUMERIC NOT NULL,
	price_change_pct NUMERIC NOT NULL DEFAULT 0,
	volume NUMERIC,
	volume_change_pct NUMERIC NOT NULL DEFAULT 0,

	rsi_14 NUMERIC,
	rsi_above_80 BOOLEAN NOT NULL DEFAULT FALSE,
	rsi_60_80 BOOLEAN NOT NULL DEFAULT FALSE,
	rsi_40_60 BOOLEAN NOT NULL DEFAULT FALSE,
	rsi_20_40 BOOLEAN NOT NULL DEFAULT FALSE,
	rsi_below_20 BOOLEAN NOT NULL DEFAULT FALSE,

	macd NUMERIC,
	macd_signal NUMERIC,
	macd_histogram NUMERIC,
	macd_bullish_crossover BOOLEAN NOT NULL DEFAULT FALSE,
	macd_bearish_crossover BOOLEAN NOT NULL DEFAULT FALSE,

	sma_50 NUMERIC,
	sma_200 NUMERIC,
	above_50_sma BOOLEAN NOT NULL DEFAULT FALSE,
	above_200_sma BOOLEAN NOT NULL DEFAULT FALSE,
	below_50_sma BOOLEAN NOT NULL DEFAULT FALSE,
	below_200_sma BOOLEAN NOT NULL DEFAULT FALSE,
	dist_from_50_sma_pct NUMERIC,
	dist_from_200_sma_pct NUMERIC,
	golden_cross BOOLEAN NOT NULL DEFAULT FALSE,
	death_cross BOOLEAN NOT NULL DEFAULT FALSE,

	bb_upper NUMERIC,
	bb_middle NUMERIC,
	bb_lower NUMERIC,
	bb_width NUMERIC,
	bb_squeeze BOOLEAN NOT NULL DEFAULT FALSE,

	adx_14 NUMERIC,
	strong_trend BOOLEAN NOT NULL DEFAULT FALSE,

	pivot_point NUMERIC,
	resistance_1 NUMERIC,
	resistance_2 NUMERIC,
	resistance_3 NUMERIC,
	support_1 NUMERIC,
	support_2 NUMERIC,
	support_3 NUMERIC,
	r1_breakout BOOLEAN NOT NULL DEFAULT FALSE,
	r2_breakout BOOLEAN NOT NULL DEFAULT FALSE,
	r3_breakout BOOLEAN NOT NULL DEFAULT FALSE,
	s1_breakdown BOOLEAN NOT NULL DEFAULT FALSE,
	s2_breakdown BOOLEAN NOT NULL DEFAULT FALSE,
	s3_breakdown BOOLEAN NOT NULL DEFAULT FALSE,

	momentum_score NUMERIC,
	is_high_momentum BOOLEAN NOT NULL DEFAULT FALSE,

	week_1_high NUMERIC,
	week_1_low NUMERIC,
	week_4_high NUMERIC,
	week_4_low NUMERIC,
	week_52_high NUMERIC,
	week_52_low NUMERIC,
	week_1_high_breakout BOOLEAN NOT NULL DEFAULT FALSE,
	week_1_low_breakdown BOOLEAN NOT NULL DEFAULT FALSE,
	week_4_high_breakout BOOLEAN NOT NULL DEFAULT FALSE,
	week_4_low_breakdown BOOLEAN NOT NULL DEFAULT FALSE,
	week_52_high_breakout BOOLEAN NOT NULL DEFAULT FALSE,
	week_52_low_breakdown BOOLEAN NOT NULL DEFAULT FALSE,

	potential_high_volume BOOLEAN NOT NULL DEFAULT FALSE,
	unusually_high_volume BOOLEAN NOT NULL DEFAULT FALSE,

	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (trade_date, ticker)
);

CREATE INDEX IF NOT EXISTS idx_tech_cache_date ON technical_indicator_cache (trade_date);
CREATE INDEX IF NOT EXISTS idx_tech_cache_ticker ON technical_indicator_cache (ticker);
CREATE INDEX IF NOT EXISTS idx_tech_cache_rsi ON technical_indicator_cache (rsi_14);
CREATE INDEX IF NOT EXISTS idx_tech_cache_adx ON technical_indicator_cache (adx_14);

CREATE TABLE IF NOT EXISTS futures_oi_cache (
	id BIGSERIAL PRIMARY KEY,
	trade_date DATE NOT NULL,
	ticker VARCHAR(50) NOT NULL,
	expiry_bucket VARCHAR(10) NOT NULL,
	expiry_date DATE NOT NULL,
	close_price NUMERIC NOT NULL,
	open_interest NUMERIC NOT NULL,
	oi_change NUMERIC NOT NULL DEFAULT 0,
	underlying_price NUMERIC,
	price_percentile NUMERIC NOT NULL,
	oi_percentile NUMERIC NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (trade_date, ticker, expiry_bucket)
);

CREATE INDEX IF NOT EXISTS idx_futures_oi_cache_date ON futures_oi_cache (trade_date);
CREATE INDEX IF NOT EXISTS idx_futures_oi_cache_ticker ON futures_oi_cache (ticker);
CREATE INDEX IF NOT EXISTS idx_futures_oi_cache_bucket ON futures_oi_cache (expiry_bucket);

CREATE TABLE IF NOT EXISTS signal_classification_cache (
	id BIGSERIAL PRIMARY KEY,
	trade_date DATE NOT NULL,
	ticker VARCHAR(50) NOT NULL,
	bullish_count INT NOT NULL DEFAULT 0,
	bearish_count INT NOT NULL DEFAULT 0,
	bullish_categories TEXT[] NOT NULL DEFAULT '{}',
	bearish_categories TEXT[] NOT NULL DEFAULT '{}',
	final_signal VARCHAR(10) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (trade_date, ticker)
);

CREATE INDEX IF NOT EXISTS idx_signal_cache_date ON signal_classification_cache (trade_date);
`

// EnsureSchema creates the cache tables and indexes if they do not exist.
// Never drops anything.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensuring cache schema: %w", err)
	}
	return nil
}
