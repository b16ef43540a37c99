package indicators

import (
	"fmt"
	"math"

	"github.com/sawpanic/derivscan/internal/domain/series"
)

// Standard lookback windows for the daily panel.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	SMAShort        = 50
	SMALong         = 200
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	ADXPeriod       = 14
	MomentumLag     = 10
	Week1Window     = 5
	Week4Window     = 20
	Week52Window    = 250
	Week52MinBars   = 50
	VolumeWindow    = 20
)

// Thresholds are the screening cutoffs applied on top of the raw indicator
// values.
type Thresholds struct {
	SqueezeMaxWidthPct float64 `yaml:"squeeze_max_width_pct" default:"5.0"`
	StrongTrendADX     float64 `yaml:"strong_trend_adx" default:"25.0"`
	HighMomentumScore  float64 `yaml:"high_momentum_score" default:"5.0"`
	VolumeSpikeHigh    float64 `yaml:"volume_spike_high" default:"1.5"`
	VolumeSpikeUnusual float64 `yaml:"volume_spike_unusual" default:"2.5"`
}

// DefaultThresholds returns the canonical screening cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SqueezeMaxWidthPct: 5.0,
		StrongTrendADX:     25.0,
		HighMomentumScore:  5.0,
		VolumeSpikeHigh:    1.5,
		VolumeSpikeUnusual: 2.5,
	}
}

// Point is the full indicator panel for one bar. Numeric fields are NaN
// until their warm-up window is satisfied; flags derived from a NaN value
// are false.
type Point struct {
	Close           float64
	PriceChangePct  float64
	Volume          float64
	VolumeChangePct float64

	RSI        float64
	RSIAbove80 bool
	RSI6080    bool
	RSI4060    bool
	RSI2040    bool
	RSIBelow20 bool

	MACD             float64
	MACDSignal       float64
	MACDHistogram    float64
	MACDBullishCross bool
	MACDBearishCross bool

	SMA50             float64
	SMA200            float64
	Above50SMA        bool
	Above200SMA       bool
	Below50SMA        bool
	Below200SMA       bool
	DistFrom50SMAPct  float64
	DistFrom200SMAPct float64
	GoldenCross       bool
	DeathCross        bool

	BBUpper  float64
	BBMiddle float64
	BBLower  float64
	BBWidth  float64
	Squeeze  bool

	ADX         float64
	StrongTrend bool

	PP, R1, R2, R3 float64
	S1, S2, S3     float64
	R1Breakout     bool
	R2Breakout     bool
	R3Breakout     bool
	S1Breakdown    bool
	S2Breakdown    bool
	S3Breakdown    bool

	MomentumScore float64
	HighMomentum  bool

	Week1High  float64
	Week1Low   float64
	Week4High  float64
	Week4Low   float64
	Week52High float64
	Week52Low  float64

	Week1HighBreakout  bool
	Week1LowBreakdown  bool
	Week4HighBreakout  bool
	Week4LowBreakdown  bool
	Week52HighBreakout bool
	Week52LowBreakdown bool

	PotentialHighVolume bool
	UnusuallyHighVolume bool
}

// Engine turns one entity's ordered close/volume series into the aligned
// indicator panel. Pure and deterministic; no I/O.
type Engine struct {
	rng RangeStrategy
	th  Thresholds
}

// NewEngine builds an engine with the given range strategy and thresholds.
func NewEngine(rng RangeStrategy, th Thresholds) *Engine {
	return &Engine{rng: rng, th: th}
}

// NewDefaultEngine builds an engine with the synthetic close-only range and
// canonical thresholds.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultSyntheticRange(), DefaultThresholds())
}

// Compute returns one Point per input bar. The input must pass
// series.Validate; length must be at least 1.
func (e *Engine) Compute(s series.Series) ([]Point, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("entity %s: empty series", s.Entity)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	close := s.Closes()
	volume := s.Volumes()

	rsi := rsiSeries(close, RSIPeriod)
	macd, macdSig, macdHist := macdSeries(close, MACDFast, MACDSlow, MACDSignal)
	sma50 := rollingMean(close, SMAShort)
	sma200 := rollingMean(close, SMALong)
	bbUpper, bbMiddle, bbLower, bbWidth := bollingerSeries(close, BollingerPeriod, BollingerStdDev)
	adx := adxSeries(close, ADXPeriod, e.rng)
	pivots := pivotSeries(close, e.rng)
	momentum := momentumSeries(close, MomentumLag)

	week1High := priorMax(close, Week1Window)
	week1Low := priorMin(close, Week1Window)
	week4High := priorMax(close, Week4Window)
	week4Low := priorMin(close, Week4Window)
	week52High := priorExtremeFallback(close, Week52Window, Week52MinBars, math.Max)
	week52Low := priorExtremeFallback(close, Week52Window, Week52MinBars, math.Min)

	volMean := rollingMeanPrior(volume, VolumeWindow)
	priceChange := pctChange(close)
	volumeChange := pctChange(volume)

	points := make([]Point, s.Len())
	for i := range points {
		p := &points[i]
		c := close[i]

		p.Close = c
		p.PriceChangePct = priceChange[i]
		p.Volume = volume[i]
		p.VolumeChangePct = volumeChange[i]

		p.RSI = rsi[i]
		if !isNull(p.RSI) {
			p.RSIAbove80 = p.RSI > 80
			p.RSI6080 = p.RSI > 60 && p.RSI <= 80
			p.RSI4060 = p.RSI >= 40 && p.RSI <= 60
			p.RSI2040 = p.RSI >= 20 && p.RSI < 40
			p.RSIBelow20 = p.RSI < 20
		}

		p.MACD = macd[i]
		p.MACDSignal = macdSig[i]
		p.MACDHistogram = macdHist[i]
		if i > 0 {
			prev := macdHist[i-1]
			curr := macdHist[i]
			if !isNull(prev) && !isNull(curr) {
				p.MACDBullishCross = prev < 0 && curr > 0
				p.MACDBearishCross = prev > 0 && curr < 0
			}
		}

		p.SMA50 = sma50[i]
		p.SMA200 = sma200[i]
		if !isNull(p.SMA50) {
			p.Above50SMA = c > p.SMA50
			p.Below50SMA = c < p.SMA50
			if p.SMA50 != 0 {
				p.DistFrom50SMAPct = (c - p.SMA50) / p.SMA50 * 100
			} else {
				p.DistFrom50SMAPct = math.NaN()
			}
		} else {
			p.DistFrom50SMAPct = math.NaN()
		}
		if !isNull(p.SMA200) {
			p.Above200SMA = c > p.SMA200
			p.Below200SMA = c < p.SMA200
			if p.SMA200 != 0 {
				p.DistFrom200SMAPct = (c - p.SMA200) / p.SMA200 * 100
			} else {
				p.DistFrom200SMAPct = math.NaN()
			}
		} else {
			p.DistFrom200SMAPct = math.NaN()
		}
		if i > 0 && !isNull(sma50[i-1]) && !isNull(sma200[i-1]) && !isNull(sma50[i]) && !isNull(sma200[i]) {
			p.GoldenCross = sma50[i-1] <= sma200[i-1] && sma50[i] > sma200[i]
			p.DeathCross = sma50[i-1] >= sma200[i-1] && sma50[i] < sma200[i]
		}

		p.BBUpper = bbUpper[i]
		p.BBMiddle = bbMiddle[i]
		p.BBLower = bbLower[i]
		p.BBWidth = bbWidth[i]
		p.Squeeze = !isNull(p.BBWidth) && p.BBWidth < e.th.SqueezeMaxWidthPct

		p.ADX = adx[i]
		p.StrongTrend = !isNull(p.ADX) && p.ADX > e.th.StrongTrendADX

		p.PP, p.R1, p.R2, p.R3 = pivots.PP[i], pivots.R1[i], pivots.R2[i], pivots.R3[i]
		p.S1, p.S2, p.S3 = pivots.S1[i], pivots.S2[i], pivots.S3[i]
		p.R1Breakout = !isNull(p.R1) && c > p.R1
		p.R2Breakout = !isNull(p.R2) && c > p.R2
		p.R3Breakout = !isNull(p.R3) && c > p.R3
		p.S1Breakdown = !isNull(p.S1) && c < p.S1
		p.S2Breakdown = !isNull(p.S2) && c < p.S2
		p.S3Breakdown = !isNull(p.S3) && c < p.S3

		p.MomentumScore = momentum[i]
		p.HighMomentum = !isNull(p.MomentumScore) && p.MomentumScore > e.th.HighMomentumScore

		p.Week1High, p.Week1Low = week1High[i], week1Low[i]
		p.Week4High, p.Week4Low = week4High[i], week4Low[i]
		p.Week52High, p.Week52Low = week52High[i], week52Low[i]
		p.Week1HighBreakout = !isNull(p.Week1High) && c > p.Week1High
		p.Week1LowBreakdown = !isNull(p.Week1Low) && c < p.Week1Low
		p.Week4HighBreakout = !isNull(p.Week4High) && c > p.Week4High
		p.Week4LowBreakdown = !isNull(p.Week4Low) && c < p.Week4Low
		p.Week52HighBreakout = !isNull(p.Week52High) && c > p.Week52High
		p.Week52LowBreakdown = !isNull(p.Week52Low) && c < p.Week52Low

		if !isNull(volMean[i]) && !isNull(volume[i]) && volMean[i] > 0 {
			p.PotentialHighVolume = volume[i] > e.th.VolumeSpikeHigh*volMean[i]
			p.UnusuallyHighVolume = volume[i] > e.th.VolumeSpikeUnusual*volMean[i]
		}
	}

	return points, nil
}
