package integration

import (
	"math"
	"testing"
)

func TestSeverityOrdering(t *testing.T) {
	order := []Severity{SeverityAwareness, SeverityConcern, SeverityIntervention, SeverityProfessionalReferral}
	for i := 1; i < len(order); i++ {
		if !order[i].AtLeast(order[i-1]) || order[i-1].AtLeast(order[i]) {
			t.Fatalf("expected %s > %s", order[i], order[i-1])
		}
	}
	if got := MaxSeverity(SeverityIntervention, SeverityConcern); got != SeverityIntervention {
		t.Fatalf("MaxSeverity=%s", got)
	}
	if got := NextSeverity(SeverityProfessionalReferral); got != SeverityProfessionalReferral {
		t.Fatalf("NextSeverity should saturate, got %s", got)
	}
}

func TestBehaviorMetricsWellFormed(t *testing.T) {
	var nilMetrics *BehaviorMetrics
	if nilMetrics.WellFormed() {
		t.Fatalf("nil metrics must not be well formed")
	}
	cases := []struct {
		name string
		m    BehaviorMetrics
		want bool
	}{
		{"zero", BehaviorMetrics{}, true},
		{"negative count", BehaviorMetrics{DailyContentRequests: -1}, false},
		{"nan ratio", BehaviorMetrics{InsightToApplicationRatio: math.NaN()}, false},
		{"inf days", BehaviorMetrics{AverageIntegrationDays: Days(math.Inf(1))}, false},
		{"pct over 100", BehaviorMetrics{OrdinaryContentAvoidancePct: 101}, false},
		{"pct at 100", BehaviorMetrics{EmotionalContentSkipPct: 100}, true},
	}
	for _, tc := range cases {
		m := tc.m
		if got := m.WellFormed(); got != tc.want {
			t.Fatalf("%s: WellFormed=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestLockedGateForSkipsUnlocked(t *testing.T) {
	a := &IntegrationArchitecture{IntegrationGates: []IntegrationGate{
		{ContentID: "c1", Unlocked: true},
		{ContentID: "c1"},
	}}
	g := a.LockedGateFor("c1")
	if g == nil || g.Unlocked {
		t.Fatalf("expected the locked gate")
	}
	g.Unlocked = true
	if a.LockedGateFor("c1") != nil {
		t.Fatalf("pointer should alias the stored gate")
	}
}

func TestContentCategoryFallback(t *testing.T) {
	if got := (ContentMetadata{Type: "unknown"}).Category(); got != CategoryInsight {
		t.Fatalf("Category=%s want insight", got)
	}
	if !CategoryMajorRealization.HighIntensity() || CategoryPractice.HighIntensity() {
		t.Fatalf("HighIntensity classification wrong")
	}
}
