package llmsettings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wanderplan/internal/infra"
)

const settingsColumns = `uid, api_key, base_url, model, updated_at`

type Store struct {
	db infra.DB
}

func NewStore(db infra.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, uid string) (Settings, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+settingsColumns+`
		FROM llm_settings
		WHERE uid = $1`, uid,
	)
	out, err := scanSettings(row)
	if err != nil {
		return Settings{}, fmt.Errorf("llmsettings.Store.Get: %w", err)
	}
	return out, nil
}

// Upsert writes the row for st.UID. An empty api key leaves the stored key in place.
func (s *Store) Upsert(ctx context.Context, st Settings) (Settings, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO llm_settings (uid, api_key, base_url, model, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uid) DO UPDATE SET
			api_key = COALESCE(NULLIF(EXCLUDED.api_key, ''), llm_settings.api_key),
			base_url = EXCLUDED.base_url,
			model = EXCLUDED.model,
			updated_at = EXCLUDED.updated_at
		RETURNING `+settingsColumns,
		st.UID, st.APIKey, st.BaseURL, st.Model, time.Now().UTC(),
	)
	out, err := scanSettings(row)
	if err != nil {
		return Settings{}, fmt.Errorf("llmsettings.Store.Upsert: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, uid string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM llm_settings WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("llmsettings.Store.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSettings(row pgx.Row) (Settings, error) {
	var st Settings
	err := row.Scan(&st.UID, &st.APIKey, &st.BaseURL, &st.Model, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	return st, nil
}
