package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abhilash2429/Artrix-AI/internal/billing"
	"github.com/abhilash2429/Artrix-AI/internal/intent"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"

	"github.com/gin-gonic/gin"
)

func newTestRouter(f *fixture) (*gin.Engine, *fakeLedger) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(f.orch, f.ledger, nil, logging.NewLogger())
	group := router.Group("/v1")
	RegisterRoutes(group, handler)
	return router, f.ledger
}

func TestHandleTurn(t *testing.T) {
	f := newFixture(intent.Conversational)
	router, _ := newTestRouter(f)

	body := `{"tenant_id":"tenant-a","session_id":"sess-1","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp TurnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "sess-1" || resp.IntentType != "conversational" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ResponseText == "" {
		t.Fatal("expected a response text")
	}
}

func TestHandleTurnValidation(t *testing.T) {
	f := newFixture(intent.Conversational)
	router, _ := newTestRouter(f)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"tenant_id":`},
		{"missing tenant", `{"message":"hello"}`},
		{"missing message", `{"tenant_id":"tenant-a"}`},
		{"blank message", `{"tenant_id":"tenant-a","message":"   "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleCloseSession(t *testing.T) {
	f := newFixture(intent.Conversational)
	router, ledger := newTestRouter(f)

	body := `{"tenant_id":"tenant-a"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/sess-9/close", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if len(ledger.closes) != 1 || ledger.closes[0] != billing.EventResolved {
		t.Fatalf("expected resolved close, got %v", ledger.closes)
	}
}
