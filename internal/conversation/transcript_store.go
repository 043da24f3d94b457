package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TranscriptStore persists session transcripts to PostgreSQL for long-term
// history. All methods are nil-safe so transcript persistence stays optional:
// a nil store silently drops writes.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore wraps an open database handle. A nil handle yields a
// nil store, which every method tolerates.
func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

// TranscriptMessage is one stored utterance or reply.
type TranscriptMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// EnsureSession creates the session row if it does not exist yet and bumps
// its activity timestamp when it does.
func (s *TranscriptStore) EnsureSession(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("conversation: session id is required")
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, session_id, status, started_at, updated_at)
		VALUES ($1, $2, 'active', $3, $3)
		ON CONFLICT (session_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, uuid.New(), sessionID, now)
	if err != nil {
		return fmt.Errorf("conversation: failed to ensure session %s: %w", sessionID, err)
	}
	return nil
}

// AppendMessage stores one turn half under the session. The role is "user"
// or "assistant".
func (s *TranscriptStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	if s == nil || s.db == nil {
		return nil
	}

	if err := s.EnsureSession(ctx, sessionID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), sessionID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("conversation: failed to insert message for %s: %w", sessionID, err)
	}
	return nil
}

// Messages returns the session's transcript in insertion order, optionally
// capped at limit.
func (s *TranscriptStore) Messages(ctx context.Context, sessionID string, limit int) ([]TranscriptMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	query := `
		SELECT id, session_id, role, content, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load transcript for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var msgs []TranscriptMessage
	for rows.Next() {
		var m TranscriptMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan transcript row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: transcript read failed for %s: %w", sessionID, err)
	}
	return msgs, nil
}

// EndSession marks the session terminated.
func (s *TranscriptStore) EndSession(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'ended', ended_at = $1, updated_at = $1
		WHERE session_id = $2 AND ended_at IS NULL
	`, now, sessionID)
	if err != nil {
		return fmt.Errorf("conversation: failed to end session %s: %w", sessionID, err)
	}
	return nil
}
