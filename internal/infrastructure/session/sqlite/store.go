package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/geogli/chatbot/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
`

// Store keeps per-session conversation turns in SQLite. History is bounded
// per read and evicted by inactivity, never by explicit delete from callers.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

func New(path string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent streams.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply session schema: %w", err)
	}
	return NewWithDB(db, ttl, logger), nil
}

// NewWithDB wraps an existing handle. The caller owns schema creation.
func NewWithDB(db *sql.DB, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, ttl: ttl, logger: logger}
}

func (s *Store) AppendTurn(ctx context.Context, turn domain.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		turn.SessionID, string(turn.Role), turn.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns for the session in chronological
// order, newest window of the conversation.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, role, content, created_at
		 FROM (
			SELECT id, session_id, role, content, created_at
			FROM conversations
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		 ) ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var turn domain.Turn
		var role string
		if err := rows.Scan(&turn.SessionID, &role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = domain.TurnRole(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// EvictInactive deletes every turn of sessions whose newest turn is older
// than the TTL. Returns the number of rows removed.
func (s *Store) EvictInactive(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.ttl)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE session_id IN (
			SELECT session_id FROM conversations
			GROUP BY session_id
			HAVING MAX(created_at) < ?
		 )`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("evict inactive sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evicted rows count: %w", err)
	}
	return int(affected), nil
}

// RunJanitor sweeps expired sessions on the given interval until the context
// is cancelled. Intended to run in its own goroutine.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.EvictInactive(ctx)
			if err != nil {
				s.logger.Error("session eviction sweep failed", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				s.logger.Info("evicted expired session turns", slog.Int("rows", removed))
			}
		}
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
