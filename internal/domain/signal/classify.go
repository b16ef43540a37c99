package signal

import (
	"sort"

	"github.com/sawpanic/derivscan/internal/domain/series"
)

// Label is the final per-entity verdict.
type Label string

const (
	LabelBullish Label = "BULLISH"
	LabelBearish Label = "BEARISH"
	LabelNeutral Label = "NEUTRAL"
)

// Membership records one entity's presence in one screening bucket.
type Membership struct {
	Entity series.Entity
	Bucket Bucket
}

// Classification is the voting result for one entity: the counts, the
// contributing bucket names for audit, and the final label. One computation
// serves both the label-only and the breakdown consumers.
type Classification struct {
	Entity            series.Entity
	BullishCount      int
	BearishCount      int
	BullishCategories []string
	BearishCategories []string
	Label             Label
}

// Vote resolves the two counts to a label. Ties, including the zero/zero
// case, are neutral rather than defaulting to either side.
func Vote(bullish, bearish int) Label {
	switch {
	case bullish > bearish:
		return LabelBullish
	case bearish > bullish:
		return LabelBearish
	default:
		return LabelNeutral
	}
}

// Classify tallies one date's memberships into per-entity classifications,
// sorted by entity for deterministic output. Memberships in unknown buckets
// are ignored; duplicate (entity, bucket) pairs count once.
func Classify(memberships []Membership) []Classification {
	type tally struct {
		bullish map[Bucket]struct{}
		bearish map[Bucket]struct{}
	}
	byEntity := make(map[series.Entity]*tally)

	for _, m := range memberships {
		pol, ok := m.Bucket.Polarity()
		if !ok {
			continue
		}
		t := byEntity[m.Entity]
		if t == nil {
			t = &tally{bullish: map[Bucket]struct{}{}, bearish: map[Bucket]struct{}{}}
			byEntity[m.Entity] = t
		}
		switch pol {
		case PolarityBullish:
			t.bullish[m.Bucket] = struct{}{}
		case PolarityBearish:
			t.bearish[m.Bucket] = struct{}{}
		}
	}

	out := make([]Classification, 0, len(byEntity))
	for entity, t := range byEntity {
		c := Classification{
			Entity:            entity,
			BullishCount:      len(t.bullish),
			BearishCount:      len(t.bearish),
			BullishCategories: bucketNameList(t.bullish),
			BearishCategories: bucketNameList(t.bearish),
		}
		c.Label = Vote(c.BullishCount, c.BearishCount)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

func bucketNameList(set map[Bucket]struct{}) []string {
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b.String())
	}
	sort.Strings(out)
	return out
}
