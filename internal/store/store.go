// Package store persists the small amount of game state that survives a
// restart: which cities have already been played, and player settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys. Values are stored as plain text.
const (
	SettingDifficulty = "difficulty"
	SettingTheme      = "theme"
	SettingAPIKey     = "oracle_api_key"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// AddUsedCity records that a city has been played. Re-recording the same
// key is a no-op.
func (s *Store) AddUsedCity(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO used_cities (key) VALUES (?)
	`, key)
	if err != nil {
		return fmt.Errorf("recording used city: %w", err)
	}
	return nil
}

// UsedCities loads every recorded city key into a set.
func (s *Store) UsedCities(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM used_cities`)
	if err != nil {
		return nil, fmt.Errorf("loading used cities: %w", err)
	}
	defer rows.Close()

	used := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		used[key] = struct{}{}
	}
	return used, rows.Err()
}

// ResetUsedCities forgets every played city, so the full pool is
// selectable again.
func (s *Store) ResetUsedCities(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM used_cities`)
	if err != nil {
		return fmt.Errorf("resetting used cities: %w", err)
	}
	return nil
}

// Setting returns the stored value for key, or fallback when the key has
// never been set.
func (s *Store) Setting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("saving setting %q: %w", key, err)
	}
	return nil
}
