package billing

import (
	"context"
	"time"

	"github.com/abhilash2429/Artrix-AI/internal/session"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

const sweepBatchSize = 100

// Sweeper times out idle sessions. Idle handling is a ledger lifecycle
// rule: an abandoned session is closed with event_type timeout and billed
// as resolved.
type Sweeper struct {
	sessions *session.Store
	memory   *session.Memory
	ledger   *Ledger
	interval time.Duration
	logger   logging.Logger
}

func NewSweeper(sessions *session.Store, memory *session.Memory, ledger *Ledger, interval time.Duration, logger logging.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		sessions: sessions,
		memory:   memory,
		ledger:   ledger,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.ledger.IdleTimeout())
	idle, err := s.sessions.ListIdle(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.WithError(err).Warn("Idle session sweep failed")
		return
	}

	for _, sess := range idle {
		if err := s.ledger.CloseSession(ctx, sess.TenantID, sess.ID, EventTimeout, nil); err != nil {
			s.logger.WithError(err).WithFields(logging.Fields{"session_id": sess.ID}).
				Warn("Failed to time out idle session")
			continue
		}
		if s.memory != nil {
			if err := s.memory.Clear(ctx, sess.ID); err != nil {
				s.logger.WithError(err).WithFields(logging.Fields{"session_id": sess.ID}).
					Warn("Failed to clear memory for timed-out session")
			}
		}
		s.logger.WithFields(logging.Fields{
			"session_id": sess.ID,
			"tenant_id":  sess.TenantID,
			"turn_count": sess.TurnCount,
		}).Info("Closed idle session")
	}
}
