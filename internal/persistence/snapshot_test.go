package persistence

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/derivscan/internal/domain/indicators"
)

func TestSnapshotFromPoint_WarmupBecomesNull(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	p := indicators.Point{
		Close:          105.5,
		PriceChangePct: 1.2,
		Volume:         math.NaN(),
		RSI:            math.NaN(),
		SMA50:          math.NaN(),
		MomentumScore:  math.NaN(),
		BBWidth:        math.NaN(),
	}

	row := SnapshotFromPoint(date, "RELIANCE", p)

	assert.Equal(t, "RELIANCE", row.Entity)
	assert.Equal(t, date, row.TradeDate)
	assert.Equal(t, 105.5, row.Close)
	assert.Nil(t, row.Volume)
	assert.Nil(t, row.RSI)
	assert.Nil(t, row.SMA50)
	assert.Nil(t, row.MomentumScore)
	assert.Nil(t, row.BBWidth)
}

func TestSnapshotFromPoint_DefinedValuesSurvive(t *testing.T) {
	p := indicators.Point{
		Close:        100,
		RSI:          62.5,
		RSI6080:      true,
		SMA50:        98.2,
		Above50SMA:   true,
		R1:           101.0,
		R1Breakout:   false,
		HighMomentum: true,
	}

	row := SnapshotFromPoint(time.Now(), "TCS", p)

	require.NotNil(t, row.RSI)
	assert.Equal(t, 62.5, *row.RSI)
	assert.True(t, row.RSI6080)
	require.NotNil(t, row.SMA50)
	assert.Equal(t, 98.2, *row.SMA50)
	assert.True(t, row.Above50SMA)
	require.NotNil(t, row.R1)
	assert.False(t, row.R1Breakout)
	assert.True(t, row.HighMomentum)
}

func TestKeySet_HasAndAdd(t *testing.T) {
	ks := make(KeySet)
	d := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	assert.False(t, ks.Has(d, "SBIN"))
	ks.Add(d, "SBIN")
	assert.True(t, ks.Has(d, "SBIN"))

	// The clock is discarded from the key.
	midnight := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.True(t, ks.Has(midnight, "SBIN"))
	assert.False(t, ks.Has(midnight, "INFY"))
}
