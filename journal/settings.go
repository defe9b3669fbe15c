package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rustyeddy/ftjournal/store"
	"github.com/rustyeddy/ftjournal/tz"
)

// DefaultTimezone is used until the user picks one.
const DefaultTimezone = "America/New_York"

const keyTimezone = "timezone"

// Settings is the user-editable configuration stored inside the database.
type Settings struct {
	Timezone string `json:"timezone"`
}

// SettingsStore reads and writes the settings table. Values are stored
// JSON-encoded so other value types can share the table.
type SettingsStore struct {
	db *store.Manager
}

// NewSettingsStore returns a SettingsStore borrowing connections from db.
func NewSettingsStore(db *store.Manager) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the current settings with defaults filled in.
func (s *SettingsStore) Get(ctx context.Context) (Settings, error) {
	zone := DefaultTimezone
	err := s.db.WithConn(func(q store.DBTX) error {
		_, err := getJSON(ctx, q, keyTimezone, &zone)
		return err
	})
	return Settings{Timezone: zone}, err
}

// SetTimezone validates zone and stores it.
func (s *SettingsStore) SetTimezone(ctx context.Context, zone string) (Settings, error) {
	if _, err := tz.Load(zone); err != nil {
		return Settings{}, err
	}
	err := s.db.WithConn(func(q store.DBTX) error {
		return putJSON(ctx, q, keyTimezone, zone)
	})
	if err != nil {
		return Settings{}, err
	}
	return Settings{Timezone: zone}, nil
}

func getJSON(ctx context.Context, q store.DBTX, key string, dst any) (bool, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value_json FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("parse setting %s: %w", key, err)
	}
	return true, nil
}

func putJSON(ctx context.Context, q store.DBTX, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO settings (key, value_json) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json`,
		key, string(raw))
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}
