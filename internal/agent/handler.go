package agent

import (
	"errors"
	"net/http"
	"strings"

	"github.com/abhilash2429/Artrix-AI/internal/billing"
	"github.com/abhilash2429/Artrix-AI/internal/knowledge"
	"github.com/abhilash2429/Artrix-AI/internal/language"
	"github.com/abhilash2429/Artrix-AI/internal/tenant"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"

	"github.com/gin-gonic/gin"
)

const maxMessageRunes = 10000

// Handler exposes the turn engine over HTTP.
type Handler struct {
	Orchestrator *Orchestrator
	Ledger       Ledger
	Translator   language.Translator
	Logger       logging.Logger
}

func NewHandler(orchestrator *Orchestrator, ledger Ledger, translator language.Translator, logger logging.Logger) *Handler {
	if translator == nil {
		translator = language.Passthrough{}
	}
	return &Handler{
		Orchestrator: orchestrator,
		Ledger:       ledger,
		Translator:   translator,
		Logger:       logger,
	}
}

// RegisterRoutes mounts the turn API.
func RegisterRoutes(router gin.IRoutes, handler *Handler) {
	router.POST("/turns", handler.HandleTurn)
	router.POST("/sessions/:id/close", handler.HandleCloseSession)
}

// TurnRequest is the per-turn API payload.
type TurnRequest struct {
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// TurnResponse mirrors TurnResult for the wire.
type TurnResponse struct {
	SessionID          string                `json:"session_id"`
	ResponseText       string                `json:"response_text"`
	IntentType         string                `json:"intent_type"`
	Confidence         *float64              `json:"confidence,omitempty"`
	SourceChunks       []knowledge.SourceRef `json:"source_chunks,omitempty"`
	EscalationRequired bool                  `json:"escalation_required"`
	EscalationReason   *string               `json:"escalation_reason,omitempty"`
	LowConfidence      bool                  `json:"low_confidence,omitempty"`
	LatencyMs          int64                 `json:"latency_ms"`
}

func (h *Handler) HandleTurn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	message, err := h.Translator.ToWorking(c.Request.Context(), req.Message)
	if err != nil {
		h.Logger.WithError(err).Warn("Inbound translation failed, using original text")
		message = req.Message
	}

	result, err := h.Orchestrator.HandleTurn(c.Request.Context(), req.TenantID, strings.TrimSpace(req.SessionID), message)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tenant"})
			return
		}
		h.Logger.WithError(err).WithFields(logging.Fields{
			"tenant_id": req.TenantID,
		}).Error("Turn processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "turn processing failed"})
		return
	}

	responseText, err := h.Translator.FromWorking(c.Request.Context(), result.ResponseText)
	if err != nil {
		h.Logger.WithError(err).Warn("Outbound translation failed, using original text")
		responseText = result.ResponseText
	}

	c.JSON(http.StatusOK, TurnResponse{
		SessionID:          result.SessionID,
		ResponseText:       responseText,
		IntentType:         result.IntentType,
		Confidence:         result.Confidence,
		SourceChunks:       result.SourceChunks,
		EscalationRequired: result.EscalationRequired,
		EscalationReason:   result.EscalationReason,
		LowConfidence:      result.LowConfidence,
		LatencyMs:          result.LatencyMs,
	})
}

// CloseRequest marks a session resolved from the caller's side.
type CloseRequest struct {
	TenantID string `json:"tenant_id"`
}

func (h *Handler) HandleCloseSession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	if err := h.Ledger.CloseSession(c.Request.Context(), req.TenantID, sessionID, billing.EventResolved, nil); err != nil {
		h.Logger.WithError(err).WithFields(logging.Fields{
			"session_id": sessionID,
		}).Error("Session close failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session close failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "status": "resolved"})
}
