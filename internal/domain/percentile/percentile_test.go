package percentile

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank_MidpointDefinition(t *testing.T) {
	// Two below, one tie: (2 + 0.5)/5 * 100.
	got := Rank(30, []float64{10, 20, 30, 40, 50})
	assert.Equal(t, 50.0, got)
}

func TestRank_AllTiesIsFiftyForAnyWindowSize(t *testing.T) {
	for n := 1; n <= 25; n++ {
		window := make([]float64, n)
		for i := range window {
			window[i] = 42.0
		}
		assert.Equal(t, 50.0, Rank(42.0, window), "n=%d", n)
	}
}

func TestRank_StrictMinimum(t *testing.T) {
	window := []float64{5, 10, 20, 30}
	// Zero below, one tie: 0.5/4 * 100 = 50/n.
	assert.Equal(t, 12.5, Rank(5, window))
}

func TestRank_NeutralOnEmptyOrNull(t *testing.T) {
	assert.Equal(t, 50.0, Rank(7, nil))
	assert.Equal(t, 50.0, Rank(math.NaN(), []float64{1, 2, 3}))
	// Window of only NaNs counts as empty.
	assert.Equal(t, 50.0, Rank(7, []float64{math.NaN(), math.NaN()}))
}

func TestRank_ExcludesNaNsFromWindow(t *testing.T) {
	got := Rank(30, []float64{10, math.NaN(), 20, 30, math.NaN(), 40, 50})
	assert.Equal(t, 50.0, got)
}

func TestRank_Bounded(t *testing.T) {
	window := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	for _, v := range []float64{-100, 0, 4.5, 8, 1000} {
		r := Rank(v, window)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 100.0)
	}
}

func TestTrailing_ClipsAtStart(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{1, 2, 3}, Trailing(xs, 2, WindowSize))
	assert.Equal(t, []float64{2, 3, 4, 5}, Trailing(xs, 4, 4))
	assert.Nil(t, Trailing(xs, 5, 4))
}

func TestRankSeries_IncludesCurrentObservation(t *testing.T) {
	// Strictly increasing: each value is the max of its window and ties
	// only with itself.
	xs := []float64{10, 20, 30, 40}
	ranks := RankSeries(xs, WindowSize)

	require.Len(t, ranks, 4)
	assert.Equal(t, 50.0, ranks[0]) // window of one, all tie
	// At i=3: 3 below + 0.5 tie over 4 obs.
	assert.Equal(t, 87.5, ranks[3])
}

func TestAssignBuckets_ThreeNearestDistinctExpiries(t *testing.T) {
	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 26, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	// Unsorted input, a duplicate and an expired contract.
	got := AssignBuckets(date, []time.Time{mar, jan, feb, apr, feb})

	require.Len(t, got, 3)
	assert.Equal(t, BucketNear, got[feb])
	assert.Equal(t, BucketNext, got[mar])
	assert.Equal(t, BucketFar, got[apr])
}

func TestAssignBuckets_FewerThanThreeOmitsLaterBuckets(t *testing.T) {
	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)

	got := AssignBuckets(date, []time.Time{feb})
	require.Len(t, got, 1)
	assert.Equal(t, BucketNear, got[feb])

	assert.Empty(t, AssignBuckets(date, nil))
}

func TestAssignBuckets_ExpiryOnDateCounts(t *testing.T) {
	date := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)
	got := AssignBuckets(date, []time.Time{date})
	assert.Equal(t, BucketNear, got[date])
}
