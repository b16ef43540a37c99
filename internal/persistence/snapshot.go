package persistence

import (
	"math"
	"time"

	"github.com/sawpanic/derivscan/internal/domain/indicators"
	"github.com/sawpanic/derivscan/internal/domain/series"
)

// nullable converts the in-memory NaN convention to the persisted NULL.
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// SnapshotFromPoint converts one computed indicator panel into its persisted
// row form. Warm-up NaNs become NULL columns.
func SnapshotFromPoint(date time.Time, entity series.Entity, p indicators.Point) IndicatorSnapshot {
	return IndicatorSnapshot{
		TradeDate: date,
		Entity:    string(entity),

		Close:           p.Close,
		PriceChangePct:  p.PriceChangePct,
		Volume:          nullable(p.Volume),
		VolumeChangePct: p.VolumeChangePct,

		RSI:        nullable(p.RSI),
		RSIAbove80: p.RSIAbove80,
		RSI6080:    p.RSI6080,
		RSI4060:    p.RSI4060,
		RSI2040:    p.RSI2040,
		RSIBelow20: p.RSIBelow20,

		MACD:             nullable(p.MACD),
		MACDSignal:       nullable(p.MACDSignal),
		MACDHistogram:    nullable(p.MACDHistogram),
		MACDBullishCross: p.MACDBullishCross,
		MACDBearishCross: p.MACDBearishCross,

		SMA50:             nullable(p.SMA50),
		SMA200:            nullable(p.SMA200),
		Above50SMA:        p.Above50SMA,
		Above200SMA:       p.Above200SMA,
		Below50SMA:        p.Below50SMA,
		Below200SMA:       p.Below200SMA,
		DistFrom50SMAPct:  nullable(p.DistFrom50SMAPct),
		DistFrom200SMAPct: nullable(p.DistFrom200SMAPct),
		GoldenCross:       p.GoldenCross,
		DeathCross:        p.DeathCross,

		BBUpper:  nullable(p.BBUpper),
		BBMiddle: nullable(p.BBMiddle),
		BBLower:  nullable(p.BBLower),
		BBWidth:  nullable(p.BBWidth),
		Squeeze:  p.Squeeze,

		ADX:         nullable(p.ADX),
		StrongTrend: p.StrongTrend,

		PivotPoint:  nullable(p.PP),
		R1:          nullable(p.R1),
		R2:          nullable(p.R2),
		R3:          nullable(p.R3),
		S1:          nullable(p.S1),
		S2:          nullable(p.S2),
		S3:          nullable(p.S3),
		R1Breakout:  p.R1Breakout,
		R2Breakout:  p.R2Breakout,
		R3Breakout:  p.R3Breakout,
		S1Breakdown: p.S1Breakdown,
		S2Breakdown: p.S2Breakdown,
		S3Breakdown: p.S3Breakdown,

		MomentumScore: nullable(p.MomentumScore),
		HighMomentum:  p.HighMomentum,

		Week1High:  nullable(p.Week1High),
		Week1Low:   nullable(p.Week1Low),
		Week4High:  nullable(p.Week4High),
		Week4Low:   nullable(p.Week4Low),
		Week52High: nullable(p.Week52High),
		Week52Low:  nullable(p.Week52Low),

		Week1HighBreakout:  p.Week1HighBreakout,
		Week1LowBreakdown:  p.Week1LowBreakdown,
		Week4HighBreakout:  p.Week4HighBreakout,
		Week4LowBreakdown:  p.Week4LowBreakdown,
		Week52HighBreakout: p.Week52HighBreakout,
		Week52LowBreakdown: p.Week52LowBreakdown,

		PotentialHighVolume: p.PotentialHighVolume,
		UnusuallyHighVolume: p.UnusuallyHighVolume,
	}
}
