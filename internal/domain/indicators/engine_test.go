package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/derivscan/internal/domain/series"
)

func buildSeries(t *testing.T, closes []float64, volumes []float64) series.Series {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]series.Bar, len(closes))
	for i, c := range closes {
		v := math.NaN()
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = series.Bar{
			Date:   start.AddDate(0, 0, i),
			Close:  c,
			Open:   math.NaN(),
			High:   math.NaN(),
			Low:    math.NaN(),
			Volume: v,
		}
	}
	return series.Series{Entity: "TESTSYM", Bars: bars}
}

func TestEngine_Compute_EmptySeriesFails(t *testing.T) {
	eng := NewDefaultEngine()
	_, err := eng.Compute(series.Series{Entity: "EMPTY"})
	require.Error(t, err)
}

func TestEngine_Compute_OnePointPerBar(t *testing.T) {
	eng := NewDefaultEngine()
	s := buildSeries(t, risingSeries(100, 0.5, 60), nil)

	points, err := eng.Compute(s)
	require.NoError(t, err)
	assert.Len(t, points, 60)
}

func TestEngine_Compute_RSIBandsArePartition(t *testing.T) {
	eng := NewDefaultEngine()
	close := []float64{
		100, 103, 101, 104, 99, 102, 105, 103, 107, 106,
		110, 108, 112, 109, 113, 111, 115, 112, 116, 114,
		118, 115, 119, 117, 121, 118, 122, 120, 124, 121,
	}
	points, err := eng.Compute(buildSeries(t, close, nil))
	require.NoError(t, err)

	for i, p := range points {
		if math.IsNaN(p.RSI) {
			assert.False(t, p.RSIAbove80 || p.RSI6080 || p.RSI4060 || p.RSI2040 || p.RSIBelow20,
				"null RSI must not set any band flag at %d", i)
			continue
		}
		set := 0
		for _, f := range []bool{p.RSIAbove80, p.RSI6080, p.RSI4060, p.RSI2040, p.RSIBelow20} {
			if f {
				set++
			}
		}
		assert.Equal(t, 1, set, "exactly one RSI band at %d (rsi=%v)", i, p.RSI)
	}
}

func TestEngine_Compute_PivotBreakoutFlagsAreIndependent(t *testing.T) {
	eng := NewDefaultEngine()
	// Previous close 100 gives synthetic range 98..102, pp=100,
	// r1=102, r2=104, r3=106. A close of 105 clears r1 and r2 only.
	points, err := eng.Compute(buildSeries(t, []float64{100, 105}, nil))
	require.NoError(t, err)

	p := points[1]
	assert.True(t, p.R1Breakout)
	assert.True(t, p.R2Breakout)
	assert.False(t, p.R3Breakout)
	assert.False(t, p.S1Breakdown)
	assert.False(t, p.S2Breakdown)
	assert.False(t, p.S3Breakdown)
}

func TestEngine_Compute_Week52FallbackBelowFullWindow(t *testing.T) {
	eng := NewDefaultEngine()
	// 120 bars: fewer than the 250-bar window but past the 50-bar floor,
	// so the extreme must degrade to all prior bars.
	n := 120
	close := make([]float64, n)
	for i := range close {
		close[i] = 100 + float64(i%7)
	}
	close[30] = 140 // the running max lives well inside the fallback span

	points, err := eng.Compute(buildSeries(t, close, nil))
	require.NoError(t, err)

	last := points[n-1]
	require.False(t, math.IsNaN(last.Week52High))
	assert.Equal(t, 140.0, last.Week52High)

	// Below the floor the value stays null.
	assert.True(t, math.IsNaN(points[49].Week52High))
	assert.False(t, math.IsNaN(points[50].Week52High))
}

func TestEngine_Compute_ExtremesExcludeCurrentBar(t *testing.T) {
	eng := NewDefaultEngine()
	close := risingSeries(100, 1, 10)
	points, err := eng.Compute(buildSeries(t, close, nil))
	require.NoError(t, err)

	// On a strictly rising series every bar beats the prior 5-bar high.
	for i := Week1Window; i < len(points); i++ {
		assert.Equal(t, close[i-1], points[i].Week1High, "week1 high at %d", i)
		assert.True(t, points[i].Week1HighBreakout, "breakout at %d", i)
	}
}

func TestEngine_Compute_VolumeSpikeTiers(t *testing.T) {
	eng := NewDefaultEngine()
	n := 25
	close := flatSeries(100, n)
	vol := flatSeries(1000, n)
	vol[22] = 1600 // 1.6x the prior-20 mean: high, not unusual
	vol[24] = 3000 // 3.0x: both tiers

	points, err := eng.Compute(buildSeries(t, close, vol))
	require.NoError(t, err)

	assert.True(t, points[22].PotentialHighVolume)
	assert.False(t, points[22].UnusuallyHighVolume)

	p := points[24]
	assert.True(t, p.PotentialHighVolume)
	assert.True(t, p.UnusuallyHighVolume)

	// Prior-20 window not yet available early on: no flags.
	assert.False(t, points[10].PotentialHighVolume)
}

func TestEngine_Compute_PctChangeZeroWhenPrevMissing(t *testing.T) {
	eng := NewDefaultEngine()
	points, err := eng.Compute(buildSeries(t, []float64{100, 110}, nil))
	require.NoError(t, err)

	assert.Equal(t, 0.0, points[0].PriceChangePct)
	assert.InDelta(t, 10.0, points[1].PriceChangePct, 1e-9)
	// Volume column is absent: change stays 0, never NaN.
	assert.Equal(t, 0.0, points[1].VolumeChangePct)
}

func TestEngine_Compute_GoldenCross(t *testing.T) {
	eng := NewDefaultEngine()
	// Long decline then a strong recovery long enough for the 50-bar mean
	// to overtake the 200-bar mean.
	n := 420
	close := make([]float64, n)
	for i := 0; i < 220; i++ {
		close[i] = 300 - 0.5*float64(i)
	}
	for i := 220; i < n; i++ {
		close[i] = close[219] + 1.2*float64(i-219)
	}

	points, err := eng.Compute(buildSeries(t, close, nil))
	require.NoError(t, err)

	crosses := 0
	for _, p := range points {
		if p.GoldenCross {
			crosses++
		}
		assert.False(t, p.GoldenCross && p.DeathCross, "flags are mutually exclusive")
	}
	assert.Equal(t, 1, crosses, "one recovery, one golden cross")
}

func TestEngine_Compute_RejectsUnsortedDates(t *testing.T) {
	eng := NewDefaultEngine()
	s := buildSeries(t, []float64{100, 101, 102}, nil)
	s.Bars[2].Date = s.Bars[0].Date

	_, err := eng.Compute(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
}
