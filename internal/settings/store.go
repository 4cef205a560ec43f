// Package settings persists per-user preferences in SQLite.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	MarketJP = "jp"
	MarketUS = "us"
)

var (
	ErrUserRequired  = errors.New("user id is required")
	ErrInvalidMarket = errors.New(`preferred market must be "jp" or "us"`)
)

// Settings are the account preferences a user can edit
type Settings struct {
	DefaultTickers       string     `json:"defaultTickers"`
	PreferredMarket      string     `json:"preferredMarket"`
	SubscribeDigest      bool       `json:"subscribeDigest"`
	NotifyProductUpdates bool       `json:"notifyProductUpdates"`
	Notes                string     `json:"notes"`
	UpdatedAt            *time.Time `json:"updatedAt,omitempty"`
}

// Defaults is what a user sees before saving anything
func Defaults() Settings {
	return Settings{
		PreferredMarket:      MarketJP,
		SubscribeDigest:      true,
		NotifyProductUpdates: true,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS user_settings (
	uid TEXT PRIMARY KEY,
	default_tickers TEXT NOT NULL DEFAULT '',
	preferred_market TEXT NOT NULL DEFAULT 'jp',
	subscribe_digest INTEGER NOT NULL DEFAULT 1,
	notify_product_updates INTEGER NOT NULL DEFAULT 1,
	notes TEXT NOT NULL DEFAULT '',
	updated_at DATETIME
);`

// Store reads and writes Settings rows
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings db: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the user's settings, or Defaults when none are stored
func (s *Store) Get(ctx context.Context, uid string) (Settings, error) {
	if uid == "" {
		return Settings{}, ErrUserRequired
	}
	var (
		out       Settings
		updatedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT default_tickers, preferred_market, subscribe_digest, notify_product_updates, notes, updated_at
		FROM user_settings WHERE uid = ?`, uid,
	).Scan(&out.DefaultTickers, &out.PreferredMarket, &out.SubscribeDigest, &out.NotifyProductUpdates, &out.Notes, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings for %s: %w", uid, err)
	}
	if out.PreferredMarket != MarketJP && out.PreferredMarket != MarketUS {
		out.PreferredMarket = MarketJP
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		out.UpdatedAt = &t
	}
	return out, nil
}

// Put upserts the user's settings and returns them with UpdatedAt set
func (s *Store) Put(ctx context.Context, uid string, in Settings) (Settings, error) {
	if uid == "" {
		return Settings{}, ErrUserRequired
	}
	if in.PreferredMarket == "" {
		in.PreferredMarket = MarketJP
	}
	if in.PreferredMarket != MarketJP && in.PreferredMarket != MarketUS {
		return Settings{}, ErrInvalidMarket
	}
	now := s.now().UTC().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (uid, default_tickers, preferred_market, subscribe_digest, notify_product_updates, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			default_tickers = excluded.default_tickers,
			preferred_market = excluded.preferred_market,
			subscribe_digest = excluded.subscribe_digest,
			notify_product_updates = excluded.notify_product_updates,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		uid, in.DefaultTickers, in.PreferredMarket, in.SubscribeDigest, in.NotifyProductUpdates, in.Notes, now,
	)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to save settings for %s: %w", uid, err)
	}
	in.UpdatedAt = &now
	return in, nil
}
