package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// Report summarizes one reconciliation run. Counts are per entity except
// RowsWritten, which counts rows actually inserted.
type Report struct {
	RunID               uuid.UUID
	Cache               string
	StartedAt           time.Time
	FinishedAt          time.Time
	Processed           int
	SkippedUpToDate     int
	SkippedShortHistory int
	SkippedEmpty        int
	Failed              int
	RowsWritten         int64
}

// Duration is the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Total is the number of entities considered.
func (r *Report) Total() int {
	return r.Processed + r.SkippedUpToDate + r.SkippedShortHistory + r.SkippedEmpty + r.Failed
}
