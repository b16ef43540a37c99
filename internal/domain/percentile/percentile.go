// Package percentile ranks a value against a trailing window of prior
// observations. Used for the open-interest and price percentile screens.
package percentile

import "math"

// WindowSize is the number of trailing observations, including the current
// one, ranked against.
const WindowSize = 20

// Rank returns the midpoint percentile rank of value within window:
// (countLess + 0.5*countEqual) / n * 100, with NaN entries excluded from the
// window. An empty window or a NaN value ranks at the neutral 50.0.
//
// Properties: the result is always in [0,100]; a value tied with every
// window member ranks exactly 50 for any window size; a strict minimum
// ranks 50/n.
func Rank(value float64, window []float64) float64 {
	if math.IsNaN(value) {
		return 50.0
	}
	n := 0
	less := 0
	equal := 0
	for _, v := range window {
		if math.IsNaN(v) {
			continue
		}
		n++
		switch {
		case v < value:
			less++
		case v == value:
			equal++
		}
	}
	if n == 0 {
		return 50.0
	}
	return (float64(less) + 0.5*float64(equal)) / float64(n) * 100.0
}

// Trailing returns the trailing window of at most size observations ending
// at (and including) position i.
func Trailing(xs []float64, i, size int) []float64 {
	if i < 0 || i >= len(xs) {
		return nil
	}
	lo := i - size + 1
	if lo < 0 {
		lo = 0
	}
	return xs[lo : i+1]
}

// RankSeries ranks every position of xs against its own trailing window of
// the given size, current observation included.
func RankSeries(xs []float64, size int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = Rank(xs[i], Trailing(xs, i, size))
	}
	return out
}
