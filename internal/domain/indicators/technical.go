package indicators

import "math"

// rsiSeries computes RSI over a simple (non-Wilder) rolling mean of gains and
// losses. The zero-loss branch resolves to 100 only when gains exist; a fully
// flat window is neutral 50.
func rsiSeries(close []float64, period int) []float64 {
	deltas := diff(close)
	gains := make([]float64, len(deltas))
	losses := make([]float64, len(deltas))
	for i, d := range deltas {
		if isNull(d) {
			gains[i], losses[i] = math.NaN(), math.NaN()
			continue
		}
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	out := make([]float64, len(close))
	for i := range close {
		g, l := avgGain[i], avgLoss[i]
		switch {
		case isNull(g) || isNull(l):
			out[i] = math.NaN()
		case l == 0 && g == 0:
			out[i] = 50.0
		case l == 0:
			out[i] = 100.0
		default:
			rs := g / l
			out[i] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return out
}

// macdSeries returns the MACD line, signal line and histogram.
func macdSeries(close []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	emaFast := ema(close, fast)
	emaSlow := ema(close, slow)

	macd = make([]float64, len(close))
	for i := range close {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig = ema(macd, signal)

	hist = make([]float64, len(close))
	for i := range close {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

// bollingerSeries returns upper/middle/lower bands and the width percent.
func bollingerSeries(close []float64, period int, stdDev float64) (upper, middle, lower, width []float64) {
	middle = rollingMean(close, period)
	sd := rollingStd(close, period)

	upper = make([]float64, len(close))
	lower = make([]float64, len(close))
	width = make([]float64, len(close))
	for i := range close {
		if isNull(middle[i]) || isNull(sd[i]) {
			upper[i], lower[i], width[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		upper[i] = middle[i] + stdDev*sd[i]
		lower[i] = middle[i] - stdDev*sd[i]
		if middle[i] == 0 {
			width[i] = math.NaN()
		} else {
			width[i] = (upper[i] - lower[i]) / middle[i] * 100
		}
	}
	return upper, middle, lower, width
}

// adxSeries computes the close-only ADX approximation: the directional
// movements come from a synthetic range and the true range collapses to
// |Δclose|. Zero denominators resolve the ratio to 0 rather than ±Inf.
func adxSeries(close []float64, period int, rng RangeStrategy) []float64 {
	high, low := rng.DailyRange(close)

	plusDM := clampPositive(diff(high))
	minusDM := make([]float64, len(low))
	for i, d := range diff(low) {
		if isNull(d) {
			minusDM[i] = math.NaN()
		} else {
			minusDM[i] = math.Max(-d, 0)
		}
	}

	tr := make([]float64, len(close))
	for i, d := range diff(close) {
		if isNull(d) {
			tr[i] = math.NaN()
		} else {
			tr[i] = math.Abs(d)
		}
	}

	atr := rollingMean(tr, period)
	avgPlus := rollingMean(plusDM, period)
	avgMinus := rollingMean(minusDM, period)

	dx := make([]float64, len(close))
	for i := range close {
		if isNull(atr[i]) || isNull(avgPlus[i]) || isNull(avgMinus[i]) {
			dx[i] = math.NaN()
			continue
		}
		pdi := safeRatio(100*avgPlus[i], atr[i])
		mdi := safeRatio(100*avgMinus[i], atr[i])
		dx[i] = safeRatio(100*math.Abs(pdi-mdi), pdi+mdi)
	}
	return rollingMean(dx, period)
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
