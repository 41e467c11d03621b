// Package store provides SQLite persistence for login sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

type Store struct {
	sqldb *sql.DB
	db    *bun.DB
	now   func() time.Time
}

// Session maps the hash of a Trakt access token to the profile it belongs to.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	TokenHash string           `bun:"token_hash,pk"`
	Slug      string           `bun:"slug,notnull"`
	Username  string           `bun:"username,notnull"`
	Name      sql.Null[string] `bun:"name,nullzero"`
	AvatarURL sql.Null[string] `bun:"avatar_url,nullzero"`

	CreatedAt string `bun:"created_at,notnull"`
	ExpiresAt string `bun:"expires_at,notnull"`
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	exp, err := time.Parse(time.RFC3339, s.ExpiresAt)
	if err != nil {
		return true
	}
	return !t.Before(exp)
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &Store{sqldb: sqldb, db: bdb, now: time.Now}, nil
}

func (s *Store) Close() error { return s.sqldb.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
	token_hash TEXT PRIMARY KEY,
	slug TEXT NOT NULL,
	username TEXT NOT NULL,
	name TEXT,
	avatar_url TEXT,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveSession stores sess for ttl, replacing any row with the same hash.
func (s *Store) SaveSession(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess.TokenHash == "" {
		return errors.New("token hash is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", ttl)
	}

	now := s.now().UTC()

	// Copy to avoid mutating caller-owned object.
	row := *sess
	row.CreatedAt = now.Format(time.RFC3339)
	row.ExpiresAt = now.Add(ttl).Format(time.RFC3339)

	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (token_hash) DO UPDATE").
		Set("slug = EXCLUDED.slug").
		Set("username = EXCLUDED.username").
		Set("name = EXCLUDED.name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("created_at = EXCLUDED.created_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	return err
}

// GetSession returns sql.ErrNoRows for unknown or expired hashes.
func (s *Store) GetSession(ctx context.Context, tokenHash string) (Session, error) {
	var sess Session
	err := s.db.NewSelect().
		Model(&sess).
		Where("token_hash = ?", tokenHash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(s.now()) {
		return Session{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	res, err := s.db.NewDelete().
		Table("sessions").
		Where("token_hash = ?", tokenHash).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRowsAffected(res)
}

// PurgeExpired deletes every session past its expiry and reports how many went.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	now := s.now().UTC().Format(time.RFC3339)
	res, err := s.db.NewDelete().
		Table("sessions").
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func expectRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
