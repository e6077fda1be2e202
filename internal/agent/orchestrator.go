package agent

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/abhilash2429/Artrix-AI/internal/billing"
	"github.com/abhilash2429/Artrix-AI/internal/escalation"
	"github.com/abhilash2429/Artrix-AI/internal/intent"
	"github.com/abhilash2429/Artrix-AI/internal/knowledge"
	"github.com/abhilash2429/Artrix-AI/internal/policy"
	"github.com/abhilash2429/Artrix-AI/internal/session"
	"github.com/abhilash2429/Artrix-AI/internal/tenant"
	"github.com/abhilash2429/Artrix-AI/pkg/llm"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// PolicyStore loads the tenant policy, fresh every turn.
type PolicyStore interface {
	GetPolicy(ctx context.Context, tenantID string) (tenant.Policy, error)
}

// Classifier assigns an intent label to a user message.
type Classifier interface {
	Classify(ctx context.Context, message, vertical string, allowedTopics []string) intent.Type
}

// Retriever returns fused candidates for a domain query.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID, query string) ([]knowledge.Candidate, error)
}

// Ranker rescores candidates and derives confidence.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates []knowledge.Candidate) knowledge.RankedResult
}

// SessionStore is the session and turn persistence used per turn.
type SessionStore interface {
	GetOrCreate(ctx context.Context, tenantID, sessionID string) (session.Session, error)
	IncrementTurn(ctx context.Context, sessionID string) (int, error)
	RecordTurn(ctx context.Context, turn session.TurnRecord) error
	Transcript(ctx context.Context, sessionID string, limit int) ([]session.TranscriptEntry, error)
}

// MemoryStore is the bounded conversation buffer.
type MemoryStore interface {
	History(ctx context.Context, sessionID string) ([]session.Exchange, error)
	Append(ctx context.Context, sessionID string, exchange session.Exchange) error
	Clear(ctx context.Context, sessionID string) error
}

// Ledger accumulates usage and closes sessions for billing.
type Ledger interface {
	RecordTurn(ctx context.Context, sessionID string, tokensIn, tokensOut int) error
	CloseSession(ctx context.Context, tenantID, sessionID string, eventType billing.EventType, escalationReason *string) error
}

// Sink receives escalation events, fire-and-forget.
type Sink interface {
	Emit(event escalation.Event)
}

// TurnResult is the structured outcome returned to the transport layer.
type TurnResult struct {
	SessionID          string
	ResponseText       string
	IntentType         string
	Confidence         *float64
	SourceChunks       []knowledge.SourceRef
	EscalationRequired bool
	EscalationReason   *string
	LowConfidence      bool
	TokensIn           int
	TokensOut          int
	LatencyMs          int64
}

// Orchestrator runs the per-turn state machine:
// Classifying -> {Conversational, DomainQuery, OutOfScope} -> Responding -> Recording.
type Orchestrator struct {
	policies   PolicyStore
	classifier Classifier
	retriever  Retriever
	ranker     Ranker
	sessions   SessionStore
	memory     MemoryStore
	ledger     Ledger
	sink       Sink
	provider   llm.Provider
	rewriter   *QueryRewriter
	locks      *session.Locks
	maxTokens  int
	logger     logging.Logger
}

// OrchestratorConfig wires the orchestrator's collaborators.
type OrchestratorConfig struct {
	Policies   PolicyStore
	Classifier Classifier
	Retriever  Retriever
	Ranker     Ranker
	Sessions   SessionStore
	Memory     MemoryStore
	Ledger     Ledger
	Sink       Sink
	Provider   llm.Provider
	Rewriter   *QueryRewriter
	MaxTokens  int
	Logger     logging.Logger
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Orchestrator{
		policies:   cfg.Policies,
		classifier: cfg.Classifier,
		retriever:  cfg.Retriever,
		ranker:     cfg.Ranker,
		sessions:   cfg.Sessions,
		memory:     cfg.Memory,
		ledger:     cfg.Ledger,
		sink:       cfg.Sink,
		provider:   cfg.Provider,
		rewriter:   cfg.Rewriter,
		locks:      session.NewLocks(),
		maxTokens:  maxTokens,
		logger:     cfg.Logger,
	}
}

// HandleTurn processes one user message end to end. Turns within a
// session are serialized; sessions run concurrently.
func (o *Orchestrator) HandleTurn(ctx context.Context, tenantID, sessionID, message string) (TurnResult, error) {
	start := time.Now()

	pol, err := o.policies.GetPolicy(ctx, tenantID)
	if err != nil {
		return TurnResult{}, err
	}

	// Acquire the per-session lock before reading session state: a turn
	// queued behind an escalating turn must observe the escalated status,
	// not a snapshot taken while the previous turn was still running.
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	release := o.locks.Acquire(sessionID)
	defer release()

	sess, err := o.sessions.GetOrCreate(ctx, tenantID, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	// Escalation is sticky: a handed-off session never gets another
	// autonomous answer.
	if sess.Status == session.StatusEscalated {
		reason := string(policy.ReasonExplicitUserRequest)
		if sess.EscalationReason != nil {
			reason = *sess.EscalationReason
		}
		turnsTotal.WithLabelValues("conversational", "sticky_escalated").Inc()
		return TurnResult{
			SessionID:          sess.ID,
			ResponseText:       handoffAcknowledgement,
			IntentType:         string(intent.Conversational),
			EscalationRequired: true,
			EscalationReason:   &reason,
			LatencyMs:          time.Since(start).Milliseconds(),
		}, nil
	}
	if sess.Status == session.StatusResolved {
		return TurnResult{
			SessionID:    sess.ID,
			ResponseText: closedSessionMessage,
			IntentType:   string(intent.Conversational),
			LatencyMs:    time.Since(start).Milliseconds(),
		}, nil
	}

	turnCount, err := o.sessions.IncrementTurn(ctx, sess.ID)
	if err != nil {
		return TurnResult{}, err
	}

	turnIntent := o.classifier.Classify(ctx, message, pol.Vertical, pol.AllowedTopics)

	st := &turnState{
		policy:    pol,
		sess:      sess,
		message:   message,
		turnCount: turnCount,
		intent:    turnIntent,
		start:     start,
	}

	// Explicit handoff requests short-circuit every branch, skipping
	// retrieval entirely.
	if isHumanRequest(message) {
		return o.escalate(ctx, st, policy.ReasonExplicitUserRequest, nil)
	}

	var result TurnResult
	switch turnIntent {
	case intent.Conversational:
		result, err = o.conversationalTurn(ctx, st)
	case intent.OutOfScope:
		result, err = o.outOfScopeTurn(ctx, st)
	default:
		result, err = o.domainQueryTurn(ctx, st)
	}
	if err == nil {
		turnDuration.Observe(time.Since(start).Seconds())
	}
	return result, err
}

// turnState carries the per-turn context through the branch handlers.
type turnState struct {
	policy    tenant.Policy
	sess      session.Session
	message   string
	turnCount int
	intent    intent.Type
	start     time.Time
}

func (o *Orchestrator) conversationalTurn(ctx context.Context, st *turnState) (TurnResult, error) {
	history, err := o.memory.History(ctx, st.sess.ID)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to load conversation memory")
	}

	gen, err := o.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:       conversationalPrompt(history, st.message),
		SystemPrompt: personaPrompt(st.policy),
		MaxTokens:    o.maxTokens,
	})
	if err != nil {
		return o.failTurn(st, err), nil
	}

	turnsTotal.WithLabelValues(string(st.intent), "answered").Inc()
	return o.finishAnswer(ctx, st, gen.Text, nil, nil, false, gen.InputTokens, gen.OutputTokens)
}

func (o *Orchestrator) outOfScopeTurn(ctx context.Context, st *turnState) (TurnResult, error) {
	turnsTotal.WithLabelValues(string(st.intent), "redirected").Inc()
	return o.finishAnswer(ctx, st, outOfScopeResponse(st.policy), nil, nil, false, 0, 0)
}

func (o *Orchestrator) domainQueryTurn(ctx context.Context, st *turnState) (TurnResult, error) {
	query := o.rewriter.Rewrite(ctx, st.message)

	candidates, err := o.retriever.Retrieve(ctx, st.sess.TenantID, query)
	if err != nil {
		if errors.Is(err, knowledge.ErrRetrievalUnavailable) {
			o.logger.WithError(err).WithFields(logging.Fields{"tenant_id": st.sess.TenantID}).
				Error("Retrieval unavailable, escalating")
			return o.escalate(ctx, st, policy.ReasonRetrievalUnavailable, nil)
		}
		return o.failTurn(st, err), nil
	}

	ranked := o.ranker.Rank(ctx, query, candidates)
	confidenceObserved.Observe(ranked.Confidence)

	decision := policy.Decide(ranked.Confidence, st.turnCount, st.policy)
	if decision.Escalate {
		return o.escalate(ctx, st, decision.Reason, &ranked.Confidence)
	}

	gen, err := o.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:       answerPrompt(st.message, ranked.Candidates),
		SystemPrompt: personaPrompt(st.policy),
		MaxTokens:    o.maxTokens,
	})
	if err != nil {
		return o.failTurn(st, err), nil
	}

	sources := make([]knowledge.SourceRef, len(ranked.Candidates))
	for i, c := range ranked.Candidates {
		sources[i] = knowledge.SourceRef{
			ChunkID:        c.Chunk.ID,
			DocumentID:     c.Chunk.DocumentID,
			SectionHeading: c.Chunk.SectionHeading,
			Relevance:      c.Relevance,
		}
	}

	turnsTotal.WithLabelValues(string(st.intent), "answered").Inc()
	return o.finishAnswer(ctx, st, gen.Text, &ranked.Confidence, sources, decision.LowConfidence, gen.InputTokens, gen.OutputTokens)
}

// finishAnswer records the turn, bills it, updates memory, and builds the
// result for answered (non-escalated) turns.
func (o *Orchestrator) finishAnswer(ctx context.Context, st *turnState, text string, confidence *float64, sources []knowledge.SourceRef, lowConfidence bool, tokensIn, tokensOut int) (TurnResult, error) {
	sourcesJSON, err := session.MarshalSources(sourceRefsOrNil(sources))
	if err != nil {
		return TurnResult{}, err
	}

	if err := o.sessions.RecordTurn(ctx, session.TurnRecord{
		SessionID:     st.sess.ID,
		TurnNumber:    st.turnCount,
		UserMessage:   st.message,
		ResponseText:  text,
		IntentType:    string(st.intent),
		Confidence:    confidence,
		Sources:       sourcesJSON,
		LowConfidence: lowConfidence,
		TokensIn:      tokensIn,
		TokensOut:     tokensOut,
		LatencyMs:     time.Since(st.start).Milliseconds(),
	}); err != nil {
		return TurnResult{}, err
	}

	if err := o.ledger.RecordTurn(ctx, st.sess.ID, tokensIn, tokensOut); err != nil {
		o.logger.WithError(err).WithFields(logging.Fields{"session_id": st.sess.ID}).
			Warn("Failed to record turn usage")
	}

	if err := o.memory.Append(ctx, st.sess.ID, session.Exchange{
		UserMessage:      st.message,
		AssistantMessage: text,
	}); err != nil {
		o.logger.WithError(err).Warn("Failed to append conversation memory")
	}

	return TurnResult{
		SessionID:     st.sess.ID,
		ResponseText:  text,
		IntentType:    string(st.intent),
		Confidence:    confidence,
		SourceChunks:  sources,
		LowConfidence: lowConfidence,
		TokensIn:      tokensIn,
		TokensOut:     tokensOut,
		LatencyMs:     time.Since(st.start).Milliseconds(),
	}, nil
}

// escalate records the turn, closes the session as escalated, emits the
// event with a transcript snapshot, and returns the acknowledgement.
func (o *Orchestrator) escalate(ctx context.Context, st *turnState, reason policy.Reason, confidence *float64) (TurnResult, error) {
	reasonStr := string(reason)

	if err := o.sessions.RecordTurn(ctx, session.TurnRecord{
		SessionID:      st.sess.ID,
		TurnNumber:     st.turnCount,
		UserMessage:    st.message,
		ResponseText:   escalationAcknowledgement,
		IntentType:     string(st.intent),
		Confidence:     confidence,
		EscalationFlag: true,
		LatencyMs:      time.Since(st.start).Milliseconds(),
	}); err != nil {
		return TurnResult{}, err
	}

	if err := o.ledger.RecordTurn(ctx, st.sess.ID, 0, 0); err != nil {
		o.logger.WithError(err).Warn("Failed to record turn usage")
	}
	if err := o.ledger.CloseSession(ctx, st.sess.TenantID, st.sess.ID, billing.EventEscalated, &reasonStr); err != nil {
		o.logger.WithError(err).WithFields(logging.Fields{"session_id": st.sess.ID}).
			Error("Failed to close escalated session")
	}

	transcript, err := o.sessions.Transcript(ctx, st.sess.ID, 20)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to load transcript for escalation event")
	}
	o.sink.Emit(escalation.Event{
		SessionID:  st.sess.ID,
		TenantID:   st.sess.TenantID,
		Reason:     reasonStr,
		OccurredAt: time.Now().UTC(),
		Transcript: transcript,
		WebhookURL: st.policy.EscalationWebhookURL,
	})

	if err := o.memory.Clear(ctx, st.sess.ID); err != nil {
		o.logger.WithError(err).Warn("Failed to clear memory on escalation")
	}

	turnsTotal.WithLabelValues(string(st.intent), "escalated").Inc()
	escalationsTotal.WithLabelValues(reasonStr).Inc()

	return TurnResult{
		SessionID:          st.sess.ID,
		ResponseText:       escalationAcknowledgement,
		IntentType:         string(st.intent),
		Confidence:         confidence,
		EscalationRequired: true,
		EscalationReason:   &reasonStr,
		LatencyMs:          time.Since(st.start).Milliseconds(),
	}, nil
}

// failTurn degrades a component failure to the generic retry response.
// Nothing is recorded: no partial or garbled answer enters the turn log.
func (o *Orchestrator) failTurn(st *turnState, err error) TurnResult {
	o.logger.WithError(err).WithFields(logging.Fields{
		"session_id": st.sess.ID,
		"intent":     string(st.intent),
	}).Error("Turn failed")
	turnsTotal.WithLabelValues(string(st.intent), "failed").Inc()
	return TurnResult{
		SessionID:    st.sess.ID,
		ResponseText: genericFailureMessage,
		IntentType:   string(st.intent),
		LatencyMs:    time.Since(st.start).Milliseconds(),
	}
}

func sourceRefsOrNil(sources []knowledge.SourceRef) any {
	if len(sources) == 0 {
		return nil
	}
	return sources
}
