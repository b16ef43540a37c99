package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/derivscan/internal/domain/percentile"
	"github.com/sawpanic/derivscan/internal/domain/series"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// expiryStore implements ExpiryStore against futures_oi_cache.
type expiryStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewExpiryStore creates a PostgreSQL expiry-cache store.
func NewExpiryStore(db *sqlx.DB, timeout time.Duration) persistence.ExpiryStore {
	return &expiryStore{db: db, timeout: timeout}
}

func (s *expiryStore) CachedKeys(ctx context.Context) (persistence.BucketKeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type keyRow struct {
		TradeDate time.Time `db:"trade_date"`
		Ticker    string    `db:"ticker"`
		Bucket    string    `db:"expiry_bucket"`
	}
	var rows []keyRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT trade_date, ticker, expiry_bucket FROM futures_oi_cache`)
	if err != nil {
		return nil, fmt.Errorf("loading cached keys: %w", err)
	}

	keys := make(persistence.BucketKeySet, len(rows))
	for _, r := range rows {
		keys.Add(r.TradeDate, series.Entity(r.Ticker), percentile.ExpiryBucket(r.Bucket))
	}
	return keys, nil
}

const insertObservationQuery = `
	INSERT INTO futures_oi_cache (
		trade_date, ticker, expiry_bucket, expiry_date,
		close_price, open_interest, oi_change, underlying_price,
		price_percentile, oi_percentile
	) VALUES (
		:trade_date, :ticker, :expiry_bucket, :expiry_date,
		:close_price, :open_interest, :oi_change, :underlying_price,
		:price_percentile, :oi_percentile
	)
	ON CONFLICT (trade_date, ticker, expiry_bucket) DO NOTHING`

// UpsertBatch inserts rows inside one transaction with no-op-on-conflict
// semantics; returns the number of rows actually written.
func (s *expiryStore) UpsertBatch(ctx context.Context, rows []persistence.ExpiryBucketObservation) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertObservationQuery)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, row := range rows {
		res, err := stmt.ExecContext(ctx, row)
		if err != nil {
			return 0, fmt.Errorf("inserting observation (%s, %s, %s): %w",
				row.TradeDate.Format("2006-01-02"), row.Entity, row.Bucket, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reading rows affected: %w", err)
		}
		written += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing batch: %w", err)
	}
	return written, nil
}
