package tenant

import "fmt"

const (
	DefaultEscalationThreshold  = 0.55
	DefaultAutoResolveThreshold = 0.80
	DefaultMaxTurns             = 10
)

// Policy is a tenant's per-turn decision configuration. It is read fresh
// on every turn so configuration updates take effect on the next turn,
// never retroactively.
type Policy struct {
	TenantID           string
	PersonaName        string
	PersonaDescription string
	Vertical           string
	AllowedTopics      []string
	BlockedTopics      []string

	EscalationThreshold      float64
	AutoResolveThreshold     float64
	MaxTurnsBeforeEscalation int

	EscalationWebhookURL string
}

// DefaultPolicy returns a policy with the stock thresholds applied.
func DefaultPolicy(tenantID string) Policy {
	return Policy{
		TenantID:                 tenantID,
		EscalationThreshold:      DefaultEscalationThreshold,
		AutoResolveThreshold:     DefaultAutoResolveThreshold,
		MaxTurnsBeforeEscalation: DefaultMaxTurns,
	}
}

// Validate checks the threshold invariants. Both thresholds must lie in
// [0,1], auto-resolve must not sit below the escalation floor, and the
// turn limit must allow at least one turn.
func (p Policy) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if p.EscalationThreshold < 0 || p.EscalationThreshold > 1 {
		return fmt.Errorf("escalation_threshold %.3f out of range [0,1]", p.EscalationThreshold)
	}
	if p.AutoResolveThreshold < 0 || p.AutoResolveThreshold > 1 {
		return fmt.Errorf("auto_resolve_threshold %.3f out of range [0,1]", p.AutoResolveThreshold)
	}
	if p.AutoResolveThreshold < p.EscalationThreshold {
		return fmt.Errorf("auto_resolve_threshold %.3f is below escalation_threshold %.3f",
			p.AutoResolveThreshold, p.EscalationThreshold)
	}
	if p.MaxTurnsBeforeEscalation < 1 {
		return fmt.Errorf("max_turns_before_escalation must be at least 1, got %d", p.MaxTurnsBeforeEscalation)
	}
	return nil
}
