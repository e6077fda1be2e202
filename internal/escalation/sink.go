package escalation

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/abhilash2429/Artrix-AI/internal/session"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// DeliveryStatus tracks the webhook delivery lifecycle of an event.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

const (
	maxDeliveryAttempts = 3
	webhookTimeout      = 10 * time.Second
)

// Event is one session handoff to a human, with a transcript snapshot for
// the receiving agent.
type Event struct {
	SessionID  string                    `json:"session_id"`
	TenantID   string                    `json:"tenant_id"`
	Reason     string                    `json:"reason"`
	OccurredAt time.Time                 `json:"occurred_at"`
	Transcript []session.TranscriptEntry `json:"transcript"`
	WebhookURL string                    `json:"-"`
}

// Sink persists escalation events and delivers them to the tenant's
// webhook. Delivery is fire-and-forget from the turn path: failures are
// retried with backoff, then recorded and logged, never raised back.
type Sink struct {
	db         *sql.DB
	client     *http.Client
	retryDelay time.Duration
	logger     logging.Logger
}

func NewSink(db *sql.DB, logger logging.Logger) *Sink {
	return &Sink{
		db:         db,
		client:     &http.Client{Timeout: webhookTimeout},
		retryDelay: time.Second,
		logger:     logger,
	}
}

// Emit hands the event off for asynchronous delivery.
func (s *Sink) Emit(event Event) {
	go s.process(context.Background(), event)
}

func (s *Sink) process(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	transcript, err := json.Marshal(event.Transcript)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode escalation transcript")
		return
	}

	var eventID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO artrix.escalation_events (
			session_id, tenant_id, reason, transcript, delivery_status, retry_count, created_at
		) VALUES ($1, $2, $3, $4, 'pending', 0, $5)
		RETURNING id
	`, event.SessionID, event.TenantID, event.Reason, transcript, event.OccurredAt).Scan(&eventID)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"session_id": event.SessionID}).
			Error("Failed to persist escalation event")
		return
	}

	if event.WebhookURL == "" {
		s.logger.WithFields(logging.Fields{
			"session_id": event.SessionID,
			"tenant_id":  event.TenantID,
		}).Info("No escalation webhook configured, event recorded only")
		return
	}

	attempts, deliverErr := s.deliver(ctx, event)
	status := DeliveryDelivered
	if deliverErr != nil {
		status = DeliveryFailed
		eventsTotal.WithLabelValues(event.Reason, "failed").Inc()
		s.logger.WithError(deliverErr).WithFields(logging.Fields{
			"session_id": event.SessionID,
			"tenant_id":  event.TenantID,
			"attempts":   attempts,
		}).Error("Escalation webhook delivery failed permanently")
	} else {
		eventsTotal.WithLabelValues(event.Reason, "delivered").Inc()
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE artrix.escalation_events
		SET delivery_status = $2, retry_count = $3, delivered_at = CASE WHEN $2 = 'delivered' THEN NOW() END
		WHERE id = $1
	`, eventID, string(status), attempts); err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{"event_id": eventID}).
			Error("Failed to record escalation delivery outcome")
	}
}

// deliver posts the event with exponential backoff and returns the number
// of attempts made.
func (s *Sink) deliver(ctx context.Context, event Event) (int, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("encode escalation payload: %w", err)
	}

	attempts := 0
	err = retry.Do(
		func() error {
			attempts++
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, event.WebhookURL, bytes.NewReader(payload))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

			if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
				return fmt.Errorf("webhook returned status %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(maxDeliveryAttempts),
		retry.Delay(s.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	return attempts, err
}
