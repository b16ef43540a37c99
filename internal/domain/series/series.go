package series

import (
	"fmt"
	"math"
	"time"
)

// Entity identifies one tradeable name (ticker). Opaque beyond equality.
type Entity string

// Bar is one end-of-day observation. Open/High/Low/Volume may be absent in
// the source data; absent values are NaN.
type Bar struct {
	Date   time.Time
	Close  float64
	Open   float64
	High   float64
	Low    float64
	Volume float64
}

// Series is one entity's daily bars, ascending by date, at most one bar per
// date. Produced by the data source, read-only to the engines.
type Series struct {
	Entity Entity
	Bars   []Bar
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Closes returns the aligned close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the aligned volume column (NaN where absent).
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Dates returns the aligned date column.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Validate checks the series invariants: dates strictly increasing, closes
// finite. A violation means the upstream loader is broken, not the market.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			return fmt.Errorf("series %s: bar %d (%s) has non-finite close", s.Entity, i, b.Date.Format(DateLayout))
		}
		if i > 0 && !s.Bars[i-1].Date.Before(b.Date) {
			return fmt.Errorf("series %s: dates not strictly increasing at bar %d (%s)", s.Entity, i, b.Date.Format(DateLayout))
		}
	}
	return nil
}

// ContractBar is one end-of-day observation for a single futures contract of
// an entity. The expiry-bucket engine consumes these.
type ContractBar struct {
	Date            time.Time
	Expiry          time.Time
	Close           float64
	OpenInterest    float64
	OIChange        float64
	UnderlyingPrice float64
}

// DateLayout is the canonical date key format used for cache keys.
const DateLayout = "2006-01-02"

// DateKey renders a time as a cache key component, discarding the clock.
func DateKey(t time.Time) string { return t.Format(DateLayout) }

// NaN is the canonical "no value" marker for optional numeric columns.
func NaN() float64 { return math.NaN() }
