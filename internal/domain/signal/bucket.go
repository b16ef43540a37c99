// Package signal turns per-date screening-bucket memberships into one
// bullish/bearish/neutral label per entity.
package signal

import "fmt"

// Bucket identifies one named screening list an entity can appear in on a
// given date. The set is closed: every bucket has a fixed polarity, so the
// classifier is exhaustively checkable instead of dispatching on free-form
// strings.
type Bucket int

const (
	bucketUnknown Bucket = iota

	CallIVGainersAll
	CallIVGainersITM
	CallIVGainersOTM
	CallMoneynessGainersAll
	CallMoneynessGainersITM
	CallMoneynessGainersOTM
	PutIVLosersAll
	PutIVLosersITM
	PutIVLosersOTM
	PutMoneynessLosersAll
	PutMoneynessLosersITM
	PutMoneynessLosersOTM
	FutOIGainersAll
	CallOIGainersAll
	CallOIGainersITM
	CallOIGainersOTM
	PutOILosersAll
	PutOILosersITM
	PutOILosersOTM

	CallIVLosersAll
	CallIVLosersITM
	CallIVLosersOTM
	CallMoneynessLosersAll
	CallMoneynessLosersITM
	CallMoneynessLosersOTM
	PutIVGainersAll
	PutIVGainersITM
	PutIVGainersOTM
	PutMoneynessGainersAll
	PutMoneynessGainersITM
	PutMoneynessGainersOTM
	FutOILosersAll
	CallOILosersAll
	CallOILosersITM
	CallOILosersOTM
	PutOIGainersAll
	PutOIGainersITM
	PutOIGainersOTM
)

// Polarity is a bucket's directional reading.
type Polarity int

const (
	PolarityBullish Polarity = iota + 1
	PolarityBearish
)

var bucketNames = map[Bucket]string{
	CallIVGainersAll:        "CALL_IV_GAINERS_ALL",
	CallIVGainersITM:        "CALL_IV_GAINERS_ITM",
	CallIVGainersOTM:        "CALL_IV_GAINERS_OTM",
	CallMoneynessGainersAll: "CALL_MONEYNESS_GAINERS_ALL",
	CallMoneynessGainersITM: "CALL_MONEYNESS_GAINERS_ITM",
	CallMoneynessGainersOTM: "CALL_MONEYNESS_GAINERS_OTM",
	PutIVLosersAll:          "PUT_IV_LOSERS_ALL",
	PutIVLosersITM:          "PUT_IV_LOSERS_ITM",
	PutIVLosersOTM:          "PUT_IV_LOSERS_OTM",
	PutMoneynessLosersAll:   "PUT_MONEYNESS_LOSERS_ALL",
	PutMoneynessLosersITM:   "PUT_MONEYNESS_LOSERS_ITM",
	PutMoneynessLosersOTM:   "PUT_MONEYNESS_LOSERS_OTM",
	FutOIGainersAll:         "FUT_OI_GAINERS_ALL",
	CallOIGainersAll:        "CALL_OI_GAINERS_ALL",
	CallOIGainersITM:        "CALL_OI_GAINERS_ITM",
	CallOIGainersOTM:        "CALL_OI_GAINERS_OTM",
	PutOILosersAll:          "PUT_OI_LOSERS_ALL",
	PutOILosersITM:          "PUT_OI_LOSERS_ITM",
	PutOILosersOTM:          "PUT_OI_LOSERS_OTM",

	CallIVLosersAll:         "CALL_IV_LOSERS_ALL",
	CallIVLosersITM:         "CALL_IV_LOSERS_ITM",
	CallIVLosersOTM:         "CALL_IV_LOSERS_OTM",
	CallMoneynessLosersAll:  "CALL_MONEYNESS_LOSERS_ALL",
	CallMoneynessLosersITM:  "CALL_MONEYNESS_LOSERS_ITM",
	CallMoneynessLosersOTM:  "CALL_MONEYNESS_LOSERS_OTM",
	PutIVGainersAll:         "PUT_IV_GAINERS_ALL",
	PutIVGainersITM:         "PUT_IV_GAINERS_ITM",
	PutIVGainersOTM:         "PUT_IV_GAINERS_OTM",
	PutMoneynessGainersAll:  "PUT_MONEYNESS_GAINERS_ALL",
	PutMoneynessGainersITM:  "PUT_MONEYNESS_GAINERS_ITM",
	PutMoneynessGainersOTM:  "PUT_MONEYNESS_GAINERS_OTM",
	FutOILosersAll:          "FUT_OI_LOSERS_ALL",
	CallOILosersAll:         "CALL_OI_LOSERS_ALL",
	CallOILosersITM:         "CALL_OI_LOSERS_ITM",
	CallOILosersOTM:         "CALL_OI_LOSERS_OTM",
	PutOIGainersAll:         "PUT_OI_GAINERS_ALL",
	PutOIGainersITM:         "PUT_OI_GAINERS_ITM",
	PutOIGainersOTM:         "PUT_OI_GAINERS_OTM",
}

// IV and moneyness rising on calls, or falling on puts, reads bullish for
// the underlying; the mirror image reads bearish. Futures OI follows price
// direction.
var bucketPolarity = map[Bucket]Polarity{
	CallIVGainersAll:        PolarityBullish,
	CallIVGainersITM:        PolarityBullish,
	CallIVGainersOTM:        PolarityBullish,
	CallMoneynessGainersAll: PolarityBullish,
	CallMoneynessGainersITM: PolarityBullish,
	CallMoneynessGainersOTM: PolarityBullish,
	PutIVLosersAll:          PolarityBullish,
	PutIVLosersITM:          PolarityBullish,
	PutIVLosersOTM:          PolarityBullish,
	PutMoneynessLosersAll:   PolarityBullish,
	PutMoneynessLosersITM:   PolarityBullish,
	PutMoneynessLosersOTM:   PolarityBullish,
	FutOIGainersAll:         PolarityBullish,
	CallOIGainersAll:        PolarityBullish,
	CallOIGainersITM:        PolarityBullish,
	CallOIGainersOTM:        PolarityBullish,
	PutOILosersAll:          PolarityBullish,
	PutOILosersITM:          PolarityBullish,
	PutOILosersOTM:          PolarityBullish,

	CallIVLosersAll:         PolarityBearish,
	CallIVLosersITM:         PolarityBearish,
	CallIVLosersOTM:         PolarityBearish,
	CallMoneynessLosersAll:  PolarityBearish,
	CallMoneynessLosersITM:  PolarityBearish,
	CallMoneynessLosersOTM:  PolarityBearish,
	PutIVGainersAll:         PolarityBearish,
	PutIVGainersITM:         PolarityBearish,
	PutIVGainersOTM:         PolarityBearish,
	PutMoneynessGainersAll:  PolarityBearish,
	PutMoneynessGainersITM:  PolarityBearish,
	PutMoneynessGainersOTM:  PolarityBearish,
	FutOILosersAll:          PolarityBearish,
	CallOILosersAll:         PolarityBearish,
	CallOILosersITM:         PolarityBearish,
	CallOILosersOTM:         PolarityBearish,
	PutOIGainersAll:         PolarityBearish,
	PutOIGainersITM:         PolarityBearish,
	PutOIGainersOTM:         PolarityBearish,
}

var bucketByName = func() map[string]Bucket {
	m := make(map[string]Bucket, len(bucketNames))
	for b, name := range bucketNames {
		m[name] = b
	}
	return m
}()

// String returns the bucket's canonical upstream name.
func (b Bucket) String() string {
	if name, ok := bucketNames[b]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_BUCKET(%d)", int(b))
}

// Polarity returns the bucket's directional reading; ok is false for an
// unknown bucket.
func (b Bucket) Polarity() (Polarity, bool) {
	p, ok := bucketPolarity[b]
	return p, ok
}

// ParseBucket resolves a canonical upstream name to its bucket.
func ParseBucket(name string) (Bucket, error) {
	if b, ok := bucketByName[name]; ok {
		return b, nil
	}
	return bucketUnknown, fmt.Errorf("unknown screening bucket %q", name)
}

// AllBuckets returns every known bucket in declaration order.
func AllBuckets() []Bucket {
	out := make([]Bucket, 0, len(bucketNames))
	for b := CallIVGainersAll; b <= PutOIGainersOTM; b++ {
		out = append(out, b)
	}
	return out
}
