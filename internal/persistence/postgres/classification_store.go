package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/derivscan/internal/domain/signal"
	"github.com/sawpanic/derivscan/internal/persistence"
)

// classificationStore implements ClassificationStore against
// signal_classification_cache. Classifications are recomputable, so a rerun
// for the same date replaces the existing rows instead of skipping them.
type classificationStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewClassificationStore creates a PostgreSQL classification store.
func NewClassificationStore(db *sqlx.DB, timeout time.Duration) persistence.ClassificationStore {
	return &classificationStore{db: db, timeout: timeout}
}

// classificationRecord adapts the row type to pq's array binding.
type classificationRecord struct {
	TradeDate         time.Time      `db:"trade_date"`
	Ticker            string         `db:"ticker"`
	BullishCount      int            `db:"bullish_count"`
	BearishCount      int            `db:"bearish_count"`
	BullishCategories pq.StringArray `db:"bullish_categories"`
	BearishCategories pq.StringArray `db:"bearish_categories"`
	FinalSignal       string         `db:"final_signal"`
}

const insertClassificationQuery = `
	INSERT INTO signal_classification_cache (
		trade_date, ticker, bullish_count, bearish_count,
		bullish_categories, bearish_categories, final_signal
	) VALUES (
		:trade_date, :ticker, :bullish_count, :bearish_count,
		:bullish_categories, :bearish_categories, :final_signal
	)
	ON CONFLICT (trade_date, ticker) DO UPDATE SET
		bullish_count = EXCLUDED.bullish_count,
		bearish_count = EXCLUDED.bearish_count,
		bullish_categories = EXCLUDED.bullish_categories,
		bearish_categories = EXCLUDED.bearish_categories,
		final_signal = EXCLUDED.final_signal`

func (s *classificationStore) UpsertBatch(ctx context.Context, rows []persistence.SignalClassificationRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertClassificationQuery)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, row := range rows {
		rec := classificationRecord{
			TradeDate:         row.TradeDate,
			Ticker:            row.Entity,
			BullishCount:      row.BullishCount,
			BearishCount:      row.BearishCount,
			BullishCategories: pq.StringArray(row.BullishCategories),
			BearishCategories: pq.StringArray(row.BearishCategories),
			FinalSignal:       string(row.Label),
		}
		res, err := stmt.ExecContext(ctx, rec)
		if err != nil {
			return 0, fmt.Errorf("inserting classification (%s, %s): %w",
				row.TradeDate.Format("2006-01-02"), row.Entity, err)
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

func (s *classificationStore) ByDate(ctx context.Context, date time.Time) ([]persistence.SignalClassificationRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var recs []classificationRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT trade_date, ticker, bullish_count, bearish_count,
			bullish_categories, bearish_categories, final_signal
		FROM signal_classification_cache
		WHERE trade_date = $1
		ORDER BY ticker`, date)
	if err != nil {
		return nil, fmt.Errorf("loading classifications for %s: %w", date.Format("2006-01-02"), err)
	}

	out := make([]persistence.SignalClassificationRow, len(recs))
	for i, r := range recs {
		out[i] = persistence.SignalClassificationRow{
			TradeDate:         r.TradeDate,
			Entity:            r.Ticker,
			BullishCount:      r.BullishCount,
			BearishCount:      r.BearishCount,
			BullishCategories: []string(r.BullishCategories),
			BearishCategories: []string(r.BearishCategories),
			Label:             signal.Label(r.FinalSignal),
		}
	}
	return out, nil
}
