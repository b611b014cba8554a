// README: ai_usage persistence with a lazy monthly reset.
package aiusage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"wanderplan/internal/infra"
)

const monthLayout = "2006-01"

// Store handles ai_usage persistence.
type Store struct {
	db      infra.DB
	monthly int
	now     func() time.Time
}

// NewStore returns a Store granting monthlyTokens per month; values below 1 use DefaultTokens.
func NewStore(db infra.DB, monthlyTokens int) *Store {
	if monthlyTokens < 1 {
		monthlyTokens = DefaultTokens
	}
	return &Store{db: db, monthly: monthlyTokens, now: time.Now}
}

func (s *Store) month() string {
	return s.now().UTC().Format(monthLayout)
}

// UseToken atomically checks the monthly quota and deducts one token.
// It resets the counter when last_reset_month is behind the current month.
// Returns ErrInsufficientTokens when 0 rows are updated (quota exhausted or user absent).
func (s *Store) UseToken(ctx context.Context, uid string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			tokens_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
	`, s.month(), s.monthly, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureUser inserts a new ai_usage row for uid with the full allowance.
// If the row already exists the insert is silently skipped.
func (s *Store) EnsureUser(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, s.monthly, s.month())
	return err
}

// Refund gives back one token spent this month, never exceeding the allowance.
func (s *Store) Refund(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET tokens_remaining = LEAST(tokens_remaining + 1, $2)
		WHERE uid = $1 AND last_reset_month = $3
	`, uid, s.monthly, s.month())
	return err
}

// Get reports the allowance without consuming it. Unknown users and rows from an
// earlier month report the full allowance.
func (s *Store) Get(ctx context.Context, uid string) (Usage, error) {
	u := Usage{UID: uid, Remaining: s.monthly, Monthly: s.monthly, Month: s.month()}
	var remaining int
	var month string
	err := s.db.QueryRow(ctx,
		`SELECT tokens_remaining, last_reset_month FROM ai_usage WHERE uid = $1`, uid,
	).Scan(&remaining, &month)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return Usage{}, err
	}
	if month == u.Month {
		u.Remaining = remaining
	}
	return u, nil
}
