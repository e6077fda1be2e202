package policy

import "github.com/abhilash2429/Artrix-AI/internal/tenant"

// Reason enumerates why a session is handed to a human.
type Reason string

const (
	ReasonLowRetrievalConfidence Reason = "low_retrieval_confidence"
	ReasonMaxTurnsExceeded       Reason = "max_turns_exceeded"
	ReasonExplicitUserRequest    Reason = "explicit_user_request"
	ReasonRetrievalUnavailable   Reason = "retrieval_unavailable"
)

// Decision is the outcome of the escalation policy for one domain query
// turn.
type Decision struct {
	Escalate bool
	Reason   Reason
	// LowConfidence marks an answered turn for human review without
	// escalating it.
	LowConfidence bool
}

// Decide applies the tenant's escalation policy to a domain query turn.
// First match wins: below the escalation floor no answer is attempted at
// all; the turn limit overrides otherwise-answerable confidence; anything
// else is answered, flagged when it falls short of auto-resolve.
//
// Explicit user requests and retrieval outages escalate through the
// orchestrator directly, not through this function.
func Decide(confidence float64, turnCount int, p tenant.Policy) Decision {
	if confidence < p.EscalationThreshold {
		return Decision{Escalate: true, Reason: ReasonLowRetrievalConfidence}
	}
	if turnCount >= p.MaxTurnsBeforeEscalation {
		return Decision{Escalate: true, Reason: ReasonMaxTurnsExceeded}
	}
	return Decision{LowConfidence: confidence < p.AutoResolveThreshold}
}
