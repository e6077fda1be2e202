package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// ErrTenantNotFound is returned when no policy row exists for a tenant.
var ErrTenantNotFound = errors.New("tenant not found")

// Store reads tenant policies from Postgres. Policies are intentionally
// not cached: threshold changes must apply on the very next turn.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// GetPolicy loads and validates the tenant's policy.
func (s *Store) GetPolicy(ctx context.Context, tenantID string) (Policy, error) {
	policy := DefaultPolicy(tenantID)

	err := s.db.QueryRowContext(ctx, `
		SELECT persona_name, persona_description, vertical,
		       allowed_topics, blocked_topics,
		       escalation_threshold, auto_resolve_threshold,
		       max_turns_before_escalation,
		       COALESCE(escalation_webhook_url, '')
		FROM artrix.tenant_policies
		WHERE tenant_id = $1`, tenantID).Scan(
		&policy.PersonaName,
		&policy.PersonaDescription,
		&policy.Vertical,
		pq.Array(&policy.AllowedTopics),
		pq.Array(&policy.BlockedTopics),
		&policy.EscalationThreshold,
		&policy.AutoResolveThreshold,
		&policy.MaxTurnsBeforeEscalation,
		&policy.EscalationWebhookURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Policy{}, ErrTenantNotFound
	}
	if err != nil {
		return Policy{}, fmt.Errorf("load tenant policy: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("tenant %s has invalid policy: %w", tenantID, err)
	}
	return policy, nil
}
