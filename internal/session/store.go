package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// Status is the session lifecycle state. Resolved and escalated are
// terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusEscalated Status = "escalated"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// Session is one end-user conversation with a tenant's assistant.
type Session struct {
	ID               string
	TenantID         string
	Status           Status
	TurnCount        int
	StartedAt        time.Time
	EndedAt          *time.Time
	EscalationReason *string
	LastActivityAt   time.Time
}

// TurnRecord is the immutable record of one user message and its
// assistant response.
type TurnRecord struct {
	SessionID      string
	TurnNumber     int
	UserMessage    string
	ResponseText   string
	IntentType     string
	Confidence     *float64
	Sources        []byte // JSON array of source refs, nil for non-domain turns
	EscalationFlag bool
	LowConfidence  bool
	TokensIn       int
	TokensOut      int
	LatencyMs      int64
}

// TranscriptEntry is one exchange included in an escalation snapshot.
type TranscriptEntry struct {
	TurnNumber   int    `json:"turn_number"`
	UserMessage  string `json:"user_message"`
	ResponseText string `json:"response_text"`
	IntentType   string `json:"intent_type"`
}

// Store persists sessions and their append-only turn log.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// GetOrCreate returns the session, creating it on first user contact.
// An empty session id creates a fresh session.
func (s *Store) GetOrCreate(ctx context.Context, tenantID, sessionID string) (Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var session Session
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO artrix.sessions (id, tenant_id, status, turn_count, started_at, last_activity_at)
		VALUES ($1, $2, 'active', 0, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET id = artrix.sessions.id
		RETURNING id, tenant_id, status, turn_count, started_at, ended_at, escalation_reason, last_activity_at
	`, sessionID, tenantID).Scan(
		&session.ID,
		&session.TenantID,
		&session.Status,
		&session.TurnCount,
		&session.StartedAt,
		&session.EndedAt,
		&session.EscalationReason,
		&session.LastActivityAt,
	)
	if err != nil {
		return Session{}, fmt.Errorf("get or create session: %w", err)
	}
	if session.TenantID != tenantID {
		return Session{}, fmt.Errorf("session %s belongs to another tenant", sessionID)
	}
	return session, nil
}

// IncrementTurn bumps the turn counter and activity timestamp atomically
// and returns the new count. Exactly one increment happens per user
// message regardless of branch.
func (s *Store) IncrementTurn(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE artrix.sessions
		SET turn_count = turn_count + 1, last_activity_at = NOW()
		WHERE id = $1
		RETURNING turn_count
	`, sessionID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment turn: %w", err)
	}
	return count, nil
}

// Close transitions a session out of active. It reports whether this call
// performed the transition: closing an already-closed session is a no-op,
// not an error, which keeps billing flushes idempotent. The update is
// scoped to the owning tenant so a caller cannot close or bill against
// another tenant's session.
func (s *Store) Close(ctx context.Context, tenantID, sessionID string, status Status, reason *string) (bool, error) {
	if status == StatusActive {
		return false, errors.New("cannot close a session into active status")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE artrix.sessions
		SET status = $3, ended_at = NOW(), escalation_reason = $4
		WHERE id = $1 AND tenant_id = $2 AND status = 'active'
	`, sessionID, tenantID, string(status), reason)
	if err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close session rows: %w", err)
	}
	return affected == 1, nil
}

// RecordTurn appends one turn to the session's immutable turn log.
func (s *Store) RecordTurn(ctx context.Context, turn TurnRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artrix.turns (
			session_id, turn_number, user_message, response_text, intent_type,
			confidence, sources, escalation_flag, low_confidence,
			tokens_in, tokens_out, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	`,
		turn.SessionID,
		turn.TurnNumber,
		turn.UserMessage,
		turn.ResponseText,
		turn.IntentType,
		turn.Confidence,
		turn.Sources,
		turn.EscalationFlag,
		turn.LowConfidence,
		turn.TokensIn,
		turn.TokensOut,
		turn.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// Transcript returns the most recent turns for an escalation snapshot,
// oldest first.
func (s *Store) Transcript(ctx context.Context, sessionID string, limit int) ([]TranscriptEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_number, user_message, response_text, intent_type
		FROM (
			SELECT turn_number, user_message, response_text, intent_type
			FROM artrix.turns
			WHERE session_id = $1
			ORDER BY turn_number DESC
			LIMIT $2
		) recent
		ORDER BY turn_number ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	var entries []TranscriptEntry
	for rows.Next() {
		var entry TranscriptEntry
		if err := rows.Scan(&entry.TurnNumber, &entry.UserMessage, &entry.ResponseText, &entry.IntentType); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return entries, nil
}

// ListIdle returns active sessions whose last activity is older than the
// cutoff. Used by the billing sweeper to time out abandoned sessions.
func (s *Store) ListIdle(ctx context.Context, olderThan time.Time, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, status, turn_count, started_at, ended_at, escalation_reason, last_activity_at
		FROM artrix.sessions
		WHERE status = 'active' AND last_activity_at < $1
		ORDER BY last_activity_at ASC
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(
			&session.ID,
			&session.TenantID,
			&session.Status,
			&session.TurnCount,
			&session.StartedAt,
			&session.EndedAt,
			&session.EscalationReason,
			&session.LastActivityAt,
		); err != nil {
			return nil, fmt.Errorf("scan idle session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle sessions: %w", err)
	}
	return sessions, nil
}

// MarshalSources encodes source refs for the turns table.
func MarshalSources(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	return payload, nil
}
