package policy

import (
	"testing"

	"github.com/abhilash2429/Artrix-AI/internal/tenant"
)

func testPolicy() tenant.Policy {
	return tenant.DefaultPolicy("tenant-a")
}

func TestDecideAtThresholdDoesNotEscalate(t *testing.T) {
	d := Decide(0.55, 1, testPolicy())
	if d.Escalate {
		t.Fatal("confidence equal to the threshold must not escalate")
	}
	if !d.LowConfidence {
		t.Fatal("0.55 is below auto-resolve, expected low-confidence flag")
	}
}

func TestDecideBelowThresholdEscalates(t *testing.T) {
	d := Decide(0.54, 1, testPolicy())
	if !d.Escalate || d.Reason != ReasonLowRetrievalConfidence {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDecideZeroConfidenceEscalates(t *testing.T) {
	d := Decide(0.0, 1, testPolicy())
	if !d.Escalate || d.Reason != ReasonLowRetrievalConfidence {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestDecideTurnLimitOverridesHighConfidence(t *testing.T) {
	d := Decide(0.9, 10, testPolicy())
	if !d.Escalate || d.Reason != ReasonMaxTurnsExceeded {
		t.Fatalf("turn limit must win over answerable confidence: %+v", d)
	}
}

func TestDecideLowConfidenceRuleLosesToTurnLimitOrder(t *testing.T) {
	// Below the escalation floor AND at the turn limit: the confidence
	// rule comes first in the decision order.
	d := Decide(0.1, 10, testPolicy())
	if d.Reason != ReasonLowRetrievalConfidence {
		t.Fatalf("expected low_retrieval_confidence to match first, got %s", d.Reason)
	}
}

func TestDecideHighConfidenceCleanAnswer(t *testing.T) {
	d := Decide(0.9, 3, testPolicy())
	if d.Escalate || d.LowConfidence {
		t.Fatalf("expected clean answer, got %+v", d)
	}
}

func TestDecideMidBandFlagsLowConfidence(t *testing.T) {
	d := Decide(0.795, 3, testPolicy())
	if d.Escalate {
		t.Fatalf("0.795 must answer, not escalate: %+v", d)
	}
	if !d.LowConfidence {
		t.Fatal("0.795 < 0.80 must carry the low-confidence flag")
	}
}

func TestDecideAtAutoResolveNotFlagged(t *testing.T) {
	d := Decide(0.80, 3, testPolicy())
	if d.Escalate || d.LowConfidence {
		t.Fatalf("0.80 meets auto-resolve, got %+v", d)
	}
}
