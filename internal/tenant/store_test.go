package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

func TestGetPolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"persona_name", "persona_description", "vertical",
		"allowed_topics", "blocked_topics",
		"escalation_threshold", "auto_resolve_threshold",
		"max_turns_before_escalation", "escalation_webhook_url",
	}).AddRow(
		"Ava", "Friendly support agent", "saas",
		pq.Array([]string{"billing", "account"}), pq.Array([]string{"legal"}),
		0.6, 0.85, 12, "https://hooks.example.com/escalate",
	)
	mock.ExpectQuery("FROM artrix.tenant_policies").WithArgs("tenant-a").WillReturnRows(rows)

	store := NewStore(db, logging.NewLogger())
	policy, err := store.GetPolicy(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if policy.PersonaName != "Ava" || policy.Vertical != "saas" {
		t.Fatalf("unexpected policy: %+v", policy)
	}
	if policy.EscalationThreshold != 0.6 || policy.MaxTurnsBeforeEscalation != 12 {
		t.Fatalf("unexpected thresholds: %+v", policy)
	}
	if len(policy.AllowedTopics) != 2 {
		t.Fatalf("unexpected topics: %v", policy.AllowedTopics)
	}
}

func TestGetPolicyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM artrix.tenant_policies").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"persona_name"}))

	store := NewStore(db, logging.NewLogger())
	_, err = store.GetPolicy(context.Background(), "missing")
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestGetPolicyRejectsInvalidRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"persona_name", "persona_description", "vertical",
		"allowed_topics", "blocked_topics",
		"escalation_threshold", "auto_resolve_threshold",
		"max_turns_before_escalation", "escalation_webhook_url",
	}).AddRow("Ava", "", "saas", pq.Array([]string{}), pq.Array([]string{}), 0.9, 0.5, 10, "")
	mock.ExpectQuery("FROM artrix.tenant_policies").WithArgs("tenant-a").WillReturnRows(rows)

	store := NewStore(db, logging.NewLogger())
	if _, err := store.GetPolicy(context.Background(), "tenant-a"); err == nil {
		t.Fatal("expected validation error for auto_resolve < escalation")
	}
}
