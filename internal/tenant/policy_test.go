package tenant

import "testing"

func TestDefaultPolicyValid(t *testing.T) {
	p := DefaultPolicy("tenant-a")
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy should be valid: %v", err)
	}
	if p.EscalationThreshold != 0.55 || p.AutoResolveThreshold != 0.80 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.MaxTurnsBeforeEscalation != 10 {
		t.Fatalf("unexpected turn limit: %d", p.MaxTurnsBeforeEscalation)
	}
}

func TestValidateRejectsAutoResolveBelowEscalation(t *testing.T) {
	p := DefaultPolicy("tenant-a")
	p.EscalationThreshold = 0.7
	p.AutoResolveThreshold = 0.6
	if err := p.Validate(); err == nil {
		t.Fatal("expected error when auto_resolve < escalation threshold")
	}
}

func TestValidateRejectsOutOfRangeThresholds(t *testing.T) {
	for _, tc := range []struct {
		name string
		mut  func(*Policy)
	}{
		{"escalation negative", func(p *Policy) { p.EscalationThreshold = -0.1 }},
		{"escalation above one", func(p *Policy) { p.EscalationThreshold = 1.1; p.AutoResolveThreshold = 1.2 }},
		{"auto_resolve above one", func(p *Policy) { p.AutoResolveThreshold = 1.5 }},
		{"zero max turns", func(p *Policy) { p.MaxTurnsBeforeEscalation = 0 }},
		{"missing tenant", func(p *Policy) { p.TenantID = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPolicy("tenant-a")
			tc.mut(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateAllowsEqualThresholds(t *testing.T) {
	p := DefaultPolicy("tenant-a")
	p.EscalationThreshold = 0.6
	p.AutoResolveThreshold = 0.6
	if err := p.Validate(); err != nil {
		t.Fatalf("equal thresholds should be valid: %v", err)
	}
}
