package indicators

// RangeStrategy supplies the high/low columns for indicators that need an
// intraday range. The bhavcopy-style sources this engine targets carry no
// trustworthy intraday high/low, so the default strategy derives a synthetic
// range from the close; a source with genuine OHLC can plug in its own
// implementation without touching the indicator math.
type RangeStrategy interface {
	// DailyRange derives the high/low columns used by ADX.
	DailyRange(close []float64) (high, low []float64)
	// PivotRange derives the previous-session high/low columns used by the
	// pivot levels, from the shifted close column.
	PivotRange(prevClose []float64) (high, low []float64)
}

// SyntheticRange derives high/low by scaling the close.
type SyntheticRange struct {
	DailyHighFactor float64
	DailyLowFactor  float64
	PivotHighFactor float64
	PivotLowFactor  float64
}

// DefaultSyntheticRange returns the canonical close-only approximation.
func DefaultSyntheticRange() SyntheticRange {
	return SyntheticRange{
		DailyHighFactor: 1.001,
		DailyLowFactor:  0.999,
		PivotHighFactor: 1.02,
		PivotLowFactor:  0.98,
	}
}

func (s SyntheticRange) DailyRange(close []float64) (high, low []float64) {
	return scale(close, s.DailyHighFactor), scale(close, s.DailyLowFactor)
}

func (s SyntheticRange) PivotRange(prevClose []float64) (high, low []float64) {
	return scale(prevClose, s.PivotHighFactor), scale(prevClose, s.PivotLowFactor)
}

func scale(xs []float64, f float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = v * f
	}
	return out
}
