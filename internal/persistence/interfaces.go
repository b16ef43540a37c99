// Package persistence defines the storage contracts for the indicator and
// expiry caches. The cache key-sets only grow: rows are appended for
// previously-missing keys and never rewritten.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/derivscan/internal/domain/percentile"
	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/domain/signal"
)

var (
	// ErrEmptySeries marks an entity with no rows at all in the source.
	ErrEmptySeries = errors.New("no observations for entity")

	// ErrInsufficientHistory marks an entity with fewer bars than the
	// minimum lookback. Non-fatal; the entity is retried once more
	// history accumulates.
	ErrInsufficientHistory = errors.New("insufficient history for entity")
)

// IndicatorSnapshot is one persisted row of the technical cache, keyed by
// (trade_date, entity). Numeric indicator columns are nullable until their
// warm-up window is satisfied.
type IndicatorSnapshot struct {
	TradeDate time.Time `db:"trade_date"`
	Entity    string    `db:"ticker"`

	Close           float64  `db:"close_price"`
	PriceChangePct  float64  `db:"price_change_pct"`
	Volume          *float64 `db:"volume"`
	VolumeChangePct float64  `db:"volume_change_pct"`

	RSI        *float64 `db:"rsi_14"`
	RSIAbove80 bool     `db:"rsi_above_80"`
	RSI6080    bool     `db:"rsi_60_80"`
	RSI4060    bool     `db:"rsi_40_60"`
	RSI2040    bool     `db:"rsi_20_40"`
	RSIBelow20 bool     `db:"rsi_below_20"`

	MACD             *float64 `db:"macd"`
	MACDSignal       *float64 `db:"macd_signal"`
	MACDHistogram    *float64 `db:"macd_histogram"`
	MACDBullishCross bool     `db:"macd_bullish_crossover"`
	MACDBearishCross bool     `db:"macd_bearish_crossover"`

	SMA50             *float64 `db:"sma_50"`
	SMA200            *float64 `db:"sma_200"`
	Above50SMA        bool     `db:"above_50_sma"`
	Above200SMA       bool     `db:"above_200_sma"`
	Below50SMA        bool     `db:"below_50_sma"`
	Below200SMA       bool     `db:"below_200_sma"`
	DistFrom50SMAPct  *float64 `db:"dist_from_50_sma_pct"`
	DistFrom200SMAPct *float64 `db:"dist_from_200_sma_pct"`
	GoldenCross       bool     `db:"golden_cross"`
	DeathCross        bool     `db:"death_cross"`

	BBUpper  *float64 `db:"bb_upper"`
	BBMiddle *float64 `db:"bb_middle"`
	BBLower  *float64 `db:"bb_lower"`
	BBWidth  *float64 `db:"bb_width"`
	Squeeze  bool     `db:"bb_squeeze"`

	ADX         *float64 `db:"adx_14"`
	StrongTrend bool     `db:"strong_trend"`

	PivotPoint  *float64 `db:"pivot_point"`
	R1          *float64 `db:"resistance_1"`
	R2          *float64 `db:"resistance_2"`
	R3          *float64 `db:"resistance_3"`
	S1          *float64 `db:"support_1"`
	S2          *float64 `db:"support_2"`
	S3          *float64 `db:"support_3"`
	R1Breakout  bool     `db:"r1_breakout"`
	R2Breakout  bool     `db:"r2_breakout"`
	R3Breakout  bool     `db:"r3_breakout"`
	S1Breakdown bool     `db:"s1_breakdown"`
	S2Breakdown bool     `db:"s2_breakdown"`
	S3Breakdown bool     `db:"s3_breakdown"`

	MomentumScore *float64 `db:"momentum_score"`
	HighMomentum  bool     `db:"is_high_momentum"`

	Week1High  *float64 `db:"week_1_high"`
	Week1Low   *float64 `db:"week_1_low"`
	Week4High  *float64 `db:"week_4_high"`
	Week4Low   *float64 `db:"week_4_low"`
	Week52High *float64 `db:"week_52_high"`
	Week52Low  *float64 `db:"week_52_low"`

	Week1HighBreakout  bool `db:"week_1_high_breakout"`
	Week1LowBreakdown  bool `db:"week_1_low_breakdown"`
	Week4HighBreakout  bool `db:"week_4_high_breakout"`
	Week4LowBreakdown  bool `db:"week_4_low_breakdown"`
	Week52HighBreakout bool `db:"week_52_high_breakout"`
	Week52LowBreakdown bool `db:"week_52_low_breakdown"`

	PotentialHighVolume bool `db:"potential_high_volume"`
	UnusuallyHighVolume bool `db:"unusually_high_volume"`
}

// ExpiryBucketObservation is one persisted row of the futures open-interest
// cache, keyed by (trade_date, entity, bucket).
type ExpiryBucketObservation struct {
	TradeDate       time.Time               `db:"trade_date"`
	Entity          string                  `db:"ticker"`
	Bucket          percentile.ExpiryBucket `db:"expiry_bucket"`
	Expiry          time.Time               `db:"expiry_date"`
	Price           float64                 `db:"close_price"`
	OpenInterest    float64                 `db:"open_interest"`
	OIChange        float64                 `db:"oi_change"`
	UnderlyingPrice *float64                `db:"underlying_price"`
	PricePctRank    float64                 `db:"price_percentile"`
	OIPctRank       float64                 `db:"oi_percentile"`
}

// SignalClassificationRow is one persisted classification, keyed by
// (trade_date, entity).
type SignalClassificationRow struct {
	TradeDate         time.Time    `db:"trade_date"`
	Entity            string       `db:"ticker"`
	BullishCount      int          `db:"bullish_count"`
	BearishCount      int          `db:"bearish_count"`
	BullishCategories []string     `db:"bullish_categories"`
	BearishCategories []string     `db:"bearish_categories"`
	Label             signal.Label `db:"final_signal"`
}

// Key identifies one indicator snapshot.
type Key struct {
	Date   string
	Entity series.Entity
}

// BucketKey identifies one expiry-bucket observation.
type BucketKey struct {
	Date   string
	Entity series.Entity
	Bucket percentile.ExpiryBucket
}

// KeySet is the in-memory snapshot of the already-persisted indicator keys,
// fetched once per run and passed to the reconciler by argument.
type KeySet map[Key]struct{}

// Has reports whether the (date, entity) key is already persisted.
func (s KeySet) Has(date time.Time, entity series.Entity) bool {
	_, ok := s[Key{Date: series.DateKey(date), Entity: entity}]
	return ok
}

// Add records a key. Used by stores building the snapshot and by tests.
func (s KeySet) Add(date time.Time, entity series.Entity) {
	s[Key{Date: series.DateKey(date), Entity: entity}] = struct{}{}
}

// BucketKeySet is the expiry-cache analogue of KeySet.
type BucketKeySet map[BucketKey]struct{}

// Has reports whether the (date, entity, bucket) key is already persisted.
func (s BucketKeySet) Has(date time.Time, entity series.Entity, bucket percentile.ExpiryBucket) bool {
	_, ok := s[BucketKey{Date: series.DateKey(date), Entity: entity, Bucket: bucket}]
	return ok
}

// Add records a key.
func (s BucketKeySet) Add(date time.Time, entity series.Entity, bucket percentile.ExpiryBucket) {
	s[BucketKey{Date: series.DateKey(date), Entity: entity, Bucket: bucket}] = struct{}{}
}

// SeriesSource reads raw daily observations. The daily close for an entity
// follows the front-month proxy convention: the nearest-expiry futures row
// for each date stands in for the underlying.
type SeriesSource interface {
	// Entities lists every entity present in the source.
	Entities(ctx context.Context) ([]series.Entity, error)

	// DailySeries returns the entity's full ascending proxy series.
	// Returns ErrEmptySeries when the entity has no rows.
	DailySeries(ctx context.Context, entity series.Entity) (series.Series, error)

	// ContractBars returns every per-contract observation for the entity,
	// ascending by (date, expiry), for the expiry-bucket cache.
	ContractBars(ctx context.Context, entity series.Entity) ([]series.ContractBar, error)
}

// SnapshotStore persists the technical indicator cache.
type SnapshotStore interface {
	// CachedKeys returns every (date, entity) key already persisted.
	// Called once per run, before entity processing begins.
	CachedKeys(ctx context.Context) (KeySet, error)

	// UpsertBatch writes finished rows. A row whose key already exists is
	// a no-op, never an error; returns the number of rows actually
	// written.
	UpsertBatch(ctx context.Context, rows []IndicatorSnapshot) (int64, error)
}

// ExpiryStore persists the expiry-bucket open-interest cache.
type ExpiryStore interface {
	// CachedKeys returns every (date, entity, bucket) key already
	// persisted.
	CachedKeys(ctx context.Context) (BucketKeySet, error)

	// UpsertBatch writes finished rows with no-op-on-conflict semantics;
	// returns the number of rows actually written.
	UpsertBatch(ctx context.Context, rows []ExpiryBucketObservation) (int64, error)
}

// ClassificationStore persists per-date signal classifications.
type ClassificationStore interface {
	// UpsertBatch writes classifications, overwriting any existing row for
	// the same key; classifications are recomputable, unlike the indicator
	// caches.
	UpsertBatch(ctx context.Context, rows []SignalClassificationRow) (int64, error)

	// ByDate returns every classification persisted for the date.
	ByDate(ctx context.Context, date time.Time) ([]SignalClassificationRow, error)
}

// MembershipSource supplies one date's screening-bucket memberships,
// produced by the upstream screeners.
type MembershipSource interface {
	Memberships(ctx context.Context, date time.Time) ([]signal.Membership, error)
}
