// Package tokenstore keeps the last access token in a SQLite database, so a restart does not need to authenticate.
package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/clambin/getair-monitor/internal/getair"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
    session_key TEXT PRIMARY KEY,
    token TEXT NOT NULL,
    issued_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);
`

var _ getair.TokenStore = &Store{}

type Store struct {
	db *sql.DB
}

// Open opens, or creates, the token database at path. The file is only readable by its owner.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}
	_ = f.Close()
	if err = os.Chmod(path, 0o600); err != nil {
		return nil, fmt.Errorf("chmod %q: %w", path, err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000;", schema} {
		if _, err = db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init token store: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the token stored for key. The boolean is false if no token was stored.
func (s *Store) Load(ctx context.Context, key string) (getair.Token, bool, error) {
	var token getair.Token
	var issuedAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT token, issued_at, expires_at FROM tokens WHERE session_key = ?`, key,
	).Scan(&token.Value, &issuedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return getair.Token{}, false, nil
	}
	if err != nil {
		return getair.Token{}, false, fmt.Errorf("load token: %w", err)
	}
	token.IssuedAt = time.UnixMilli(issuedAt)
	token.ExpiresAt = time.UnixMilli(expiresAt)
	return token, true, nil
}

// Save stores the token for key, replacing any previous one.
func (s *Store) Save(ctx context.Context, key string, token getair.Token) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tokens (session_key, token, issued_at, expires_at) VALUES (?, ?, ?, ?)
ON CONFLICT(session_key) DO UPDATE SET token = excluded.token, issued_at = excluded.issued_at, expires_at = excluded.expires_at`,
		key, token.Value, token.IssuedAt.UnixMilli(), token.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Delete removes the token stored for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
