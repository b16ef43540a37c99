package indicators

import "math"

// All rolling helpers preserve alignment: output[i] belongs to input[i], and
// positions whose window is not yet satisfied carry NaN.

func isNull(v float64) bool { return math.IsNaN(v) }

// diff returns x[i]-x[i-1], NaN at position 0.
func diff(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i] - xs[i-1]
	}
	return out
}

// shift returns the series displaced forward by one position, NaN at 0.
func shift(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	out[0] = math.NaN()
	copy(out[1:], xs[:len(xs)-1])
	return out
}

// rollingMean is the simple mean over the trailing window of w values
// including the current one. NaN until the window is full or while the
// window contains a NaN.
func rollingMean(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = windowMean(xs, i-w+1, i+1)
	}
	return out
}

// rollingMeanPrior is the simple mean over the w values strictly before the
// current position (current bar excluded).
func rollingMeanPrior(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = windowMean(xs, i-w, i)
	}
	return out
}

func windowMean(xs []float64, lo, hi int) float64 {
	if lo < 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range xs[lo:hi] {
		if isNull(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(hi-lo)
}

// rollingStd is the trailing sample standard deviation over w values
// including the current one.
func rollingStd(xs []float64, w int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		lo := i - w + 1
		if lo < 0 {
			out[i] = math.NaN()
			continue
		}
		mean := windowMean(xs, lo, i+1)
		if isNull(mean) {
			out[i] = math.NaN()
			continue
		}
		var ss float64
		for _, v := range xs[lo : i+1] {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// ema is an exponential moving average with alpha=2/(span+1), seeded by the
// first value, no bias-correction adjustment.
func ema(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// priorMax returns the max over the w bars strictly before position i,
// NaN when fewer than w prior bars exist.
func priorMax(xs []float64, w int) []float64 {
	return priorExtreme(xs, w, math.Max)
}

// priorMin returns the min over the w bars strictly before position i.
func priorMin(xs []float64, w int) []float64 {
	return priorExtreme(xs, w, math.Min)
}

func priorExtreme(xs []float64, w int, pick func(a, b float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = windowExtreme(xs, i-w, i, pick)
	}
	return out
}

// priorExtremeFallback is the 52-week variant: a trailing window of w prior
// bars, degrading to all available prior bars when at least minBars of them
// exist. Below minBars the value stays NaN.
func priorExtremeFallback(xs []float64, w, minBars int, pick func(a, b float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		switch {
		case i >= w:
			out[i] = windowExtreme(xs, i-w, i, pick)
		case i >= minBars:
			out[i] = windowExtreme(xs, 0, i, pick)
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

func windowExtreme(xs []float64, lo, hi int, pick func(a, b float64) float64) float64 {
	if lo < 0 || lo >= hi {
		return math.NaN()
	}
	ext := math.NaN()
	for _, v := range xs[lo:hi] {
		if isNull(v) {
			continue
		}
		if isNull(ext) {
			ext = v
		} else {
			ext = pick(ext, v)
		}
	}
	return ext
}

// pctChange is the day-over-day percent change, defined as 0 when the
// previous value is absent or zero.
func pctChange(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i == 0 || isNull(xs[i]) || isNull(xs[i-1]) || xs[i-1] == 0 {
			out[i] = 0
			continue
		}
		out[i] = (xs[i] - xs[i-1]) / xs[i-1] * 100
	}
	return out
}

// clampPositive zeroes negative and NaN-preserving values.
func clampPositive(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		if isNull(v) {
			out[i] = v
		} else if v > 0 {
			out[i] = v
		} else {
			out[i] = 0
		}
	}
	return out
}
