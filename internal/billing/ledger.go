package billing

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/abhilash2429/Artrix-AI/internal/session"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// EventType names how a session ended for billing purposes.
type EventType string

const (
	EventResolved  EventType = "resolved"
	EventEscalated EventType = "escalated"
	EventTimeout   EventType = "timeout"
)

// UsagePublisher sends usage summaries downstream. *Publisher satisfies
// this; a nil publisher drops summaries.
type UsagePublisher interface {
	PublishUsageSummary(summary UsageSummary) error
}

// Ledger accumulates per-session token usage in fast counters and flushes
// them into a durable billing record exactly once, at session close.
type Ledger struct {
	db          *sql.DB
	sessions    *session.Store
	counters    Counters
	publisher   UsagePublisher
	idleTimeout time.Duration
	logger      logging.Logger

	pendingMu sync.Mutex
	pending   []UsageSummary
}

func NewLedger(db *sql.DB, sessions *session.Store, counters Counters, publisher UsagePublisher, idleTimeout time.Duration, logger logging.Logger) *Ledger {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Ledger{
		db:          db,
		sessions:    sessions,
		counters:    counters,
		publisher:   publisher,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// IdleTimeout is the inactivity window after which a session is timed out.
func (l *Ledger) IdleTimeout() time.Duration {
	return l.idleTimeout
}

func counterKeys(sessionID string) (turns, in, out string) {
	prefix := "artrix:billing:" + sessionID + ":"
	return prefix + "turns", prefix + "input_tokens", prefix + "output_tokens"
}

// RecordTurn accumulates one turn's token usage for an active session.
// Counters expire at twice the idle timeout so abandoned entries cannot
// leak past the sweeper.
func (l *Ledger) RecordTurn(ctx context.Context, sessionID string, tokensIn, tokensOut int) error {
	turnsKey, inKey, outKey := counterKeys(sessionID)
	ttl := 2 * l.idleTimeout

	for _, inc := range []struct {
		key   string
		value int64
	}{
		{turnsKey, 1},
		{inKey, int64(tokensIn)},
		{outKey, int64(tokensOut)},
	} {
		if err := l.counters.IncrBy(ctx, inc.key, inc.value); err != nil {
			return fmt.Errorf("record turn usage: %w", err)
		}
		if err := l.counters.Expire(ctx, inc.key, ttl); err != nil {
			return fmt.Errorf("record turn usage: %w", err)
		}
	}
	return nil
}

// CloseSession transitions the session out of active, writes exactly one
// billing event, clears the counters, and publishes a usage summary.
// Closing an already-closed session is a no-op: the durable record is
// keyed by the one successful status transition.
func (l *Ledger) CloseSession(ctx context.Context, tenantID, sessionID string, eventType EventType, escalationReason *string) error {
	status := session.StatusResolved
	if eventType == EventEscalated {
		status = session.StatusEscalated
	}

	closed, err := l.sessions.Close(ctx, tenantID, sessionID, status, escalationReason)
	if err != nil {
		return fmt.Errorf("close session %s: %w", sessionID, err)
	}
	if !closed {
		return nil
	}

	turnsKey, inKey, outKey := counterKeys(sessionID)
	turns, err := l.counters.GetInt(ctx, turnsKey)
	if err != nil {
		return fmt.Errorf("read usage counters: %w", err)
	}
	tokensIn, err := l.counters.GetInt(ctx, inKey)
	if err != nil {
		return fmt.Errorf("read usage counters: %w", err)
	}
	tokensOut, err := l.counters.GetInt(ctx, outKey)
	if err != nil {
		return fmt.Errorf("read usage counters: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, `
		INSERT INTO artrix.billing_events (
			session_id, tenant_id, event_type, turns, input_tokens, output_tokens, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, sessionID, tenantID, string(eventType), turns, tokensIn, tokensOut); err != nil {
		return fmt.Errorf("write billing event: %w", err)
	}

	if err := l.counters.Del(ctx, turnsKey, inKey, outKey); err != nil {
		l.logger.WithError(err).WithFields(logging.Fields{"session_id": sessionID}).
			Warn("Failed to clear usage counters after close")
	}

	sessionsClosedTotal.WithLabelValues(string(eventType)).Inc()

	l.publish(UsageSummary{
		TenantID:     tenantID,
		SessionID:    sessionID,
		EventType:    string(eventType),
		Turns:        turns,
		InputTokens:  tokensIn,
		OutputTokens: tokensOut,
		ClosedAt:     time.Now().UTC(),
	})
	return nil
}

// publish sends the summary plus any previously failed ones. Publish
// failures are queued for the next flush, never surfaced to the turn path.
func (l *Ledger) publish(summary UsageSummary) {
	if l.publisher == nil {
		return
	}

	l.pendingMu.Lock()
	batch := append(l.pending, summary)
	l.pending = nil
	l.pendingMu.Unlock()

	var failed []UsageSummary
	for _, s := range batch {
		if err := l.publisher.PublishUsageSummary(s); err != nil {
			usagePublishFailures.Inc()
			l.logger.WithError(err).WithFields(logging.Fields{"session_id": s.SessionID}).
				Warn("Usage summary publish failed, requeued")
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		l.pendingMu.Lock()
		l.pending = append(failed, l.pending...)
		l.pendingMu.Unlock()
	}
}
