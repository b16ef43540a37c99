package percentile

import (
	"sort"
	"time"
)

// ExpiryBucket names one of the three nearest contract expiries tracked per
// entity per date.
type ExpiryBucket string

const (
	BucketNear ExpiryBucket = "near"
	BucketNext ExpiryBucket = "next"
	BucketFar  ExpiryBucket = "far"
)

// Buckets lists the tracked buckets in ascending expiry order.
func Buckets() []ExpiryBucket {
	return []ExpiryBucket{BucketNear, BucketNext, BucketFar}
}

// AssignBuckets maps the 1st/2nd/3rd distinct expiry on or after date to
// near/next/far. Expired contracts are ignored; with fewer than three future
// expiries the later buckets are simply absent from the result.
func AssignBuckets(date time.Time, expiries []time.Time) map[time.Time]ExpiryBucket {
	seen := make(map[time.Time]struct{}, len(expiries))
	future := make([]time.Time, 0, len(expiries))
	for _, e := range expiries {
		if e.Before(date) {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		future = append(future, e)
	}
	sort.Slice(future, func(i, j int) bool { return future[i].Before(future[j]) })

	out := make(map[time.Time]ExpiryBucket, 3)
	for i, b := range Buckets() {
		if i >= len(future) {
			break
		}
		out[future[i]] = b
	}
	return out
}
