package indicators

import "math"

// PivotLevels holds the classic floor-trader pivot columns, aligned to the
// input series. All columns are NaN at position 0 (no previous session).
type PivotLevels struct {
	PP, R1, R2, R3, S1, S2, S3 []float64
}

// pivotSeries computes classic pivots from the previous close and a derived
// previous-session range.
func pivotSeries(close []float64, rng RangeStrategy) PivotLevels {
	prevClose := shift(close)
	high, low := rng.PivotRange(prevClose)

	n := len(close)
	p := PivotLevels{
		PP: make([]float64, n), R1: make([]float64, n), R2: make([]float64, n), R3: make([]float64, n),
		S1: make([]float64, n), S2: make([]float64, n), S3: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		h, l, c := high[i], low[i], prevClose[i]
		if isNull(c) {
			p.PP[i], p.R1[i], p.R2[i], p.R3[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			p.S1[i], p.S2[i], p.S3[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		pp := (h + l + c) / 3
		p.PP[i] = pp
		p.R1[i] = 2*pp - l
		p.R2[i] = pp + (h - l)
		p.R3[i] = h + 2*(pp-l)
		p.S1[i] = 2*pp - h
		p.S2[i] = pp - (h - l)
		p.S3[i] = l - 2*(h-pp)
	}
	return p
}

// momentumSeries is the 10-bar rate of change in percent.
func momentumSeries(close []float64, lag int) []float64 {
	out := make([]float64, len(close))
	for i := range close {
		if i < lag || close[i-lag] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (close[i] - close[i-lag]) / close[i-lag] * 100
	}
	return out
}
