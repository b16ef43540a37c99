package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/domain/signal"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// membershipSource reads the screening-bucket memberships written by the
// upstream screeners. Rows naming a bucket this build does not know are
// skipped rather than failing the classification run.
type membershipSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMembershipSource creates a PostgreSQL-backed membership reader.
func NewMembershipSource(db *sqlx.DB, timeout time.Duration) persistence.MembershipSource {
	return &membershipSource{db: db, timeout: timeout}
}

func (s *membershipSource) Memberships(ctx context.Context, date time.Time) ([]signal.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type row struct {
		Ticker   string `db:"ticker"`
		Category string `db:"category"`
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT ticker, category
		FROM screener_membership
		WHERE trade_date = $1
		ORDER BY ticker, category`, date)
	if err != nil {
		return nil, fmt.Errorf("loading memberships for %s: %w", date.Format("2006-01-02"), err)
	}

	out := make([]signal.Membership, 0, len(rows))
	for _, r := range rows {
		bucket, err := signal.ParseBucket(r.Category)
		if err != nil {
			continue
		}
		out = append(out, signal.Membership{Entity: series.Entity(r.Ticker), Bucket: bucket})
	}
	return out, nil
}
