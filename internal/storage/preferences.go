package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Zachkp/portfolio/internal/theme"
)

// PreferenceStorage is one visitor's slice of the preferences table. It
// implements theme.Storage.
type PreferenceStorage struct {
	db        *DB
	visitorID string
}

var (
	_ theme.Storage = (*PreferenceStorage)(nil)
	_ theme.Batcher = (*PreferenceStorage)(nil)
)

const (
	upsertPreference = `
		INSERT INTO preferences (visitor_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (visitor_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	deletePreference = `DELETE FROM preferences WHERE visitor_id = ? AND key = ?`
)

// VisitorStorage scopes the preferences table to visitorID.
func (db *DB) VisitorStorage(visitorID string) *PreferenceStorage {
	return &PreferenceStorage{db: db, visitorID: visitorID}
}

func (p *PreferenceStorage) Get(key string) (string, bool, error) {
	var value string
	err := p.db.sql.QueryRow(
		`SELECT value FROM preferences WHERE visitor_id = ? AND key = ?`,
		p.visitorID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PreferenceStorage) Set(key, value string) error {
	_, err := p.db.sql.Exec(upsertPreference, p.visitorID, key, value, p.db.now().Unix())
	if err != nil {
		return fmt.Errorf("write preference %s: %w", key, err)
	}
	return nil
}

func (p *PreferenceStorage) Remove(key string) error {
	_, err := p.db.sql.Exec(deletePreference, p.visitorID, key)
	if err != nil {
		return fmt.Errorf("remove preference %s: %w", key, err)
	}
	return nil
}

// Apply writes changes in one transaction.
func (p *PreferenceStorage) Apply(changes []theme.Change) (err error) {
	tx, err := p.db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin preferences: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := p.db.now().Unix()
	for _, c := range changes {
		if c.Remove {
			_, err = tx.Exec(deletePreference, p.visitorID, c.Key)
		} else {
			_, err = tx.Exec(upsertPreference, p.visitorID, c.Key, c.Value, now)
		}
		if err != nil {
			return fmt.Errorf("write preference %s: %w", c.Key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}

// ThemeStats counts visitors by how their theme is chosen.
type ThemeStats struct {
	ExplicitLight int64 `json:"explicit_light"`
	ExplicitDark  int64 `json:"explicit_dark"`
	FollowSystem  int64 `json:"follow_system"`
}

// ThemeStats aggregates the persisted theme keys across visitors.
func (db *DB) ThemeStats() (ThemeStats, error) {
	var stats ThemeStats

	rows, err := db.sql.Query(`
		SELECT m.value, COUNT(*)
		FROM preferences m
		LEFT JOIN preferences f ON f.visitor_id = m.visitor_id AND f.key = ?
		WHERE m.key = ? AND COALESCE(f.value, 'false') != 'true'
		GROUP BY m.value
	`, theme.KeyUseSystem, theme.KeyMode)
	if err != nil {
		return stats, fmt.Errorf("theme stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			value string
			count int64
		)
		if err := rows.Scan(&value, &count); err != nil {
			return stats, fmt.Errorf("theme stats: %w", err)
		}
		switch theme.Mode(value) {
		case theme.ModeLight:
			stats.ExplicitLight = count
		case theme.ModeDark:
			stats.ExplicitDark = count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("theme stats: %w", err)
	}

	err = db.sql.QueryRow(
		`SELECT COUNT(*) FROM preferences WHERE key = ? AND value = 'true'`,
		theme.KeyUseSystem,
	).Scan(&stats.FollowSystem)
	if err != nil {
		return stats, fmt.Errorf("theme stats: %w", err)
	}
	return stats, nil
}
