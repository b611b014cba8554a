// README: Trip store backed by PostgreSQL. Every query is scoped by user_id.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wanderplan/internal/infra"
)

const tripColumns = `id, user_id, title, status, trip_data, created_at, updated_at`

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t Trip) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, user_id, title, status, trip_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+tripColumns,
		t.ID, t.UserID, t.Title, string(t.Status), []byte(t.Data),
	)
	out, err := scanTrip(row)
	if err != nil {
		return Trip{}, fmt.Errorf("trip.Store.Create: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, userID, id string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE id = $1 AND user_id = $2`, id, userID,
	)
	out, err := scanTrip(row)
	if err != nil {
		return Trip{}, fmt.Errorf("trip.Store.Get: %w", err)
	}
	return out, nil
}

// List returns one page of the user's trips, newest first, and the user's total count.
func (s *Store) List(ctx context.Context, userID, status string, limit, offset int) ([]Trip, int64, error) {
	args := []any{userID}
	where := "user_id = $1"
	if status != "" {
		args = append(args, status)
		where += " AND status = $2"
	}
	args = append(args, limit, offset)
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT `+tripColumns+`, COUNT(*) OVER () AS total
		FROM trips
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("trip.Store.List: %w", err)
	}
	defer rows.Close()

	trips := []Trip{}
	var total int64
	for rows.Next() {
		var (
			t      Trip
			status string
			data   []byte
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &status, &data, &t.CreatedAt, &t.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("trip.Store.List: scan: %w", err)
		}
		t.Status, t.Data = Status(status), data
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("trip.Store.List: rows: %w", err)
	}
	return trips, total, nil
}

// Update applies the non-nil fields and bumps updated_at.
func (s *Store) Update(ctx context.Context, userID, id string, title, status *string, data []byte) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE trips SET
			title = COALESCE($3, title),
			status = COALESCE($4, status),
			trip_data = COALESCE($5, trip_data),
			updated_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING `+tripColumns,
		id, userID, title, status, data, time.Now().UTC(),
	)
	out, err := scanTrip(row)
	if err != nil {
		return Trip{}, fmt.Errorf("trip.Store.Update: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("trip.Store.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTrip(row pgx.Row) (Trip, error) {
	var (
		t      Trip
		status string
		data   []byte
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &status, &data, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, ErrNotFound
	}
	if err != nil {
		return Trip{}, err
	}
	t.Status, t.Data = Status(status), data
	return t, nil
}
