package spiral

import (
	"errors"
	"testing"
	"time"

	"github.com/yungbote/integration-engine/internal/domain/integration"
)

var day0 = time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)

func TestRecordVisitBoundariesScenario(t *testing.T) {
	tr := NewTracker()
	p, err := tr.RecordVisit(nil, VisitInput{
		Theme:   "boundaries_and_authenticity",
		Insight: "I'm still learning how to say no without apologizing.",
		Applications: []string{
			"Told my boss I could not take the extra project",
			"Left a family dinner when it got heated",
			"Asked a friend to call before visiting",
		},
	}, day0)
	if err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}
	if p.Depth != 2.0 {
		t.Fatalf("depth=%v want 2.0", p.Depth)
	}
	if p.Phase != integration.PhaseExploration {
		t.Fatalf("phase=%s want exploration", p.Phase)
	}
	if len(p.PreviousVisits) != 0 || !p.VisitDate.Equal(day0) {
		t.Fatalf("unexpected visit bookkeeping: %+v", p)
	}
}

func TestRecordVisitUnknownTheme(t *testing.T) {
	_, err := NewTracker().RecordVisit(nil, VisitInput{Theme: "astral_travel"}, day0)
	if !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("err=%v want ErrUnknownTheme", err)
	}
}

func TestDepthNonDecreasingPerTheme(t *testing.T) {
	tr := NewTracker()
	inputs := []VisitInput{
		{Theme: "self_worth", Insight: "Over time I see I am still learning and gradually softening.", Applications: []string{"a", "b", "c"}},
		{Theme: "self_worth", Insight: "nothing special"},
		{Theme: "power_and_agency", Insight: "first time here"},
		{Theme: "self_worth", Insight: "meh"},
		{Theme: "self_worth", Insight: "meh again"},
	}
	var history []integration.SpiralProgressPoint
	last := map[string]float64{}
	for i, in := range inputs {
		p, err := tr.RecordVisit(history, in, day0.Add(time.Duration(i)*24*time.Hour))
		if err != nil {
			t.Fatalf("visit %d: %v", i, err)
		}
		if p.Depth < last[p.Theme] {
			t.Fatalf("visit %d: depth %v dropped below %v", i, p.Depth, last[p.Theme])
		}
		last[p.Theme] = p.Depth
		history = append(history, p)
	}
	// first visit earned 2.5, second plain visit would be 2 and must carry 2.5 forward.
	if history[1].Depth != 2.5 {
		t.Fatalf("second self_worth depth=%v want 2.5", history[1].Depth)
	}
	if history[2].Depth != 1 || history[2].Phase != integration.PhaseFoundation {
		t.Fatalf("other themes are independent: %+v", history[2])
	}
	if len(history[4].PreviousVisits) != 3 {
		t.Fatalf("previous visits=%d want 3", len(history[4].PreviousVisits))
	}
}

func TestDepthCappedAtTen(t *testing.T) {
	tr := NewTracker()
	var history []integration.SpiralProgressPoint
	for i := 0; i < 12; i++ {
		p, err := tr.RecordVisit(history, VisitInput{
			Theme:        "shadow_integration",
			Insight:      "Over the years I'm still learning.",
			Applications: []string{"a", "b", "c"},
		}, day0.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("visit %d: %v", i, err)
		}
		if p.Depth > 10 {
			t.Fatalf("depth %v exceeds cap", p.Depth)
		}
		history = append(history, p)
	}
	if got := history[len(history)-1]; got.Depth != 10 || got.Phase != integration.PhaseMaintenance {
		t.Fatalf("final point=%+v", got)
	}
}

func TestPhaseForDepth(t *testing.T) {
	cases := map[float64]integration.Phase{
		1: integration.PhaseFoundation, 1.5: integration.PhaseFoundation,
		2: integration.PhaseExploration, 3.5: integration.PhaseExploration,
		4: integration.PhaseIntegration, 5.5: integration.PhaseIntegration,
		6: integration.PhaseDeepening, 7.5: integration.PhaseDeepening,
		8: integration.PhaseService, 8.5: integration.PhaseService,
		9: integration.PhaseMaintenance, 10: integration.PhaseMaintenance,
	}
	for depth, want := range cases {
		if got := PhaseForDepth(depth); got != want {
			t.Fatalf("PhaseForDepth(%v)=%s want %s", depth, got, want)
		}
	}
}

func TestIntegrationQualityBounds(t *testing.T) {
	if got := IntegrationQuality(nil, nil); got != 0 {
		t.Fatalf("empty quality=%v want 0", got)
	}
	apps := []string{
		"Practicing honest answers with my colleague in the weekly meeting",
		"Setting a phone boundary with my sister during family dinners",
		"Walking every morning before work to settle my breath",
		"Journal each evening about where I held back with my partner",
		"Speaking up in my volunteer group when plans change without notice",
	}
	struggles := []string{
		"I still freeze when my colleague raises their voice in the meeting",
		"My sister gets hurt and I feel guilty for days afterwards",
		"Some mornings I skip the walk and tell myself it does not matter",
	}
	got := IntegrationQuality(apps, struggles)
	if got < 8 || got > 10 {
		t.Fatalf("rich submission quality=%v want within [8,10]", got)
	}
	thin := IntegrationQuality([]string{"ok"}, nil)
	if thin >= got {
		t.Fatalf("thin submission %v should score below rich %v", thin, got)
	}
}

func point(theme string, depth float64, at time.Time) integration.SpiralProgressPoint {
	return integration.SpiralProgressPoint{Theme: theme, Depth: depth, VisitDate: at}
}

func TestValidateProgressHealthy(t *testing.T) {
	tr := NewTracker()
	now := day0.Add(40 * 24 * time.Hour)
	history := []integration.SpiralProgressPoint{
		point("self_worth", 1, now.Add(-20*24*time.Hour)),
		point("self_worth", 2, now.Add(-15*24*time.Hour)),
		point("self_worth", 3, now.Add(-10*24*time.Hour)),
	}
	v := tr.ValidateProgress(history, now)
	if !v.IsHealthy || len(v.Insights) != 2 || len(v.Concerns) != 0 {
		t.Fatalf("unexpected validation: %+v", v)
	}
}

func TestValidateProgressTooIntenseAndShallowing(t *testing.T) {
	tr := NewTracker()
	now := day0
	var history []integration.SpiralProgressPoint
	themes := []string{"self_worth", "power_and_agency", "emotional_regulation"}
	depths := []float64{5, 5, 5, 5, 5, 5, 1, 1, 1}
	for i, d := range depths {
		history = append(history, point(themes[i%3], d, now.Add(-time.Duration(9-i)*24*time.Hour)))
	}
	v := tr.ValidateProgress(history, now)
	// three revisited themes give three insights; shallowing and intensity give two concerns.
	if len(v.Concerns) != 2 {
		t.Fatalf("concerns=%v want 2", v.Concerns)
	}
	if !v.IsHealthy {
		t.Fatalf("2 concerns against 3 insights should still be healthy")
	}
}

func TestValidateProgressStagnant(t *testing.T) {
	tr := NewTracker()
	now := day0.Add(90 * 24 * time.Hour)
	history := []integration.SpiralProgressPoint{point("self_worth", 1, day0)}
	v := tr.ValidateProgress(history, now)
	if v.IsHealthy || len(v.Concerns) != 1 || len(v.Insights) != 0 {
		t.Fatalf("single old visit should be stagnant and unhealthy: %+v", v)
	}
}

func TestValidateProgressEmptyHistory(t *testing.T) {
	v := NewTracker().ValidateProgress(nil, day0)
	if !v.IsHealthy || len(v.Concerns) != 0 {
		t.Fatalf("empty history should be healthy: %+v", v)
	}
}
