package session

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoSession is returned when a session ID is unknown or expired.
var ErrNoSession = errors.New("no such session")

// Store persists browser sessions in SQLite. Each session row holds the
// opaque backend bearer token under a random session ID; the ID is the
// only thing that ever reaches the browser.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStore(path string, ttl time.Duration) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  token TEXT NOT NULL,
  issued_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sessions_issued_at ON sessions(issued_at);`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, ttl: ttl}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Issue stores the backend token under a fresh session ID and returns
// the ID. Expired rows are purged opportunistically.
func (s *Store) Issue(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token required")
	}

	_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE issued_at < ?`, time.Now().UTC().Add(-s.ttl))

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, token, issued_at) VALUES (?, ?, ?);
`, id, token, time.Now().UTC()); err != nil {
		return "", err
	}
	return id, nil
}

// Read resolves a session ID to its bearer token. Unknown or expired
// sessions yield ErrNoSession.
func (s *Store) Read(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrNoSession
	}

	var (
		token    string
		issuedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT token, issued_at FROM sessions WHERE id = ?;`, id).Scan(&token, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}

	if time.Since(issuedAt) > s.ttl {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
		return "", ErrNoSession
	}
	return token, nil
}

// Revoke deletes a session. Revoking an unknown ID is not an error.
func (s *Store) Revoke(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?;`, id)
	return err
}
