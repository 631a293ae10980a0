// Package bypass detects behavioral patterns that suggest a user is skipping integration work.
package bypass

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/catalog"
)

const (
	// DefaultReferralBypassThreshold is the bypass-attempt count at which an intervention-level
	// detection escalates to a professional referral.
	DefaultReferralBypassThreshold = 4
	referralRejectionThreshold     = 2
	recurrenceThreshold            = 3

	referralIntervention = "Please consider talking with a licensed therapist or counselor about what keeps coming up."
)

// verdict is what one pattern evaluator concluded about a metrics sample.
type verdict struct {
	triggered bool
	severity  integration.Severity
	triggers  []string
}

type evalInput struct {
	m       *integration.BehaviorMetrics
	content integration.ContentContext
	flagged []catalog.PhraseMatch
}

// evaluator pairs a pattern with its predicate. Adding a pattern means adding a row.
type evaluator struct {
	pattern  integration.Pattern
	evaluate func(in evalInput) verdict
}

var evaluators = []evaluator{
	{integration.PatternInsightAddiction, evalInsightAddiction},
	{integration.PatternEmotionalAvoidance, evalEmotionalAvoidance},
	{integration.PatternSpiritualSuperiority, evalSpiritualSuperiority},
	{integration.PatternTranscendenceSeeking, evalTranscendenceSeeking},
	{integration.PatternResponsibilityAvoidance, evalResponsibilityAvoidance},
	{integration.PatternOrdinaryRejection, evalOrdinaryRejection},
}

func evalInsightAddiction(in evalInput) verdict {
	m := in.m
	if m.DailyContentRequests <= 5 {
		return verdict{}
	}
	shallow := m.AverageIntegrationDays != nil && *m.AverageIntegrationDays < 2
	if !shallow && m.ReflectionGapBypassAttempts < 1 {
		return verdict{}
	}
	v := verdict{triggered: true, severity: integration.SeverityAwareness}
	v.triggers = append(v.triggers, fmt.Sprintf("%d content requests today", m.DailyContentRequests))
	if shallow {
		v.triggers = append(v.triggers, fmt.Sprintf("average integration time %.1f days", *m.AverageIntegrationDays))
	}
	if m.ReflectionGapBypassAttempts >= 1 {
		v.triggers = append(v.triggers, fmt.Sprintf("%d reflection gap bypass attempts", m.ReflectionGapBypassAttempts))
	}
	switch {
	case m.ReflectionGapBypassAttempts > 3:
		v.severity = integration.SeverityIntervention
	case m.DailyContentRequests > 10:
		v.severity = integration.SeverityConcern
	}
	return v
}

func evalEmotionalAvoidance(in evalInput) verdict {
	m := in.m
	if m.ShadowWorkAvoidanceCount < 3 && m.EmotionalContentSkipPct < 60 {
		return verdict{}
	}
	v := verdict{triggered: true, severity: integration.SeverityAwareness}
	if m.ShadowWorkAvoidanceCount >= 3 {
		v.triggers = append(v.triggers, fmt.Sprintf("shadow work avoided %d times", m.ShadowWorkAvoidanceCount))
	}
	if m.EmotionalContentSkipPct >= 60 {
		v.triggers = append(v.triggers, fmt.Sprintf("%.0f%% of emotional content skipped", m.EmotionalContentSkipPct))
	}
	if m.ShadowWorkAvoidanceCount >= 6 {
		v.severity = integration.SeverityConcern
	}
	return v
}

func evalSpiritualSuperiority(in evalInput) verdict {
	m := in.m
	phrases := len(in.flagged)
	if m.SuperiorityStatements < 2 && phrases < 2 {
		return verdict{}
	}
	v := verdict{triggered: true, severity: integration.SeverityAwareness}
	if m.SuperiorityStatements > 0 {
		v.triggers = append(v.triggers, fmt.Sprintf("%d superiority statements", m.SuperiorityStatements))
	}
	for _, p := range in.flagged {
		v.triggers = append(v.triggers, fmt.Sprintf("flagged phrase %q in reflection", p.Phrase))
	}
	if m.SuperiorityStatements+phrases >= 4 {
		v.severity = integration.SeverityConcern
	}
	return v
}

func evalTranscendenceSeeking(in evalInput) verdict {
	m := in.m
	if m.BreakthroughSeekingCount < 4 {
		return verdict{}
	}
	v := verdict{
		triggered: true,
		severity:  integration.SeverityAwareness,
		triggers:  []string{fmt.Sprintf("%d breakthrough-seeking requests", m.BreakthroughSeekingCount)},
	}
	if m.BreakthroughSeekingCount >= 8 {
		v.severity = integration.SeverityConcern
	}
	return v
}

func evalResponsibilityAvoidance(in evalInput) verdict {
	m := in.m
	stalled := m.InsightToApplicationRatio >= 5 && m.DaysSinceLastApplication >= 14
	if m.ResponsibilityDeflections < 3 && !stalled {
		return verdict{}
	}
	v := verdict{triggered: true, severity: integration.SeverityAwareness}
	if m.ResponsibilityDeflections >= 3 {
		v.triggers = append(v.triggers, fmt.Sprintf("%d responsibility deflections", m.ResponsibilityDeflections))
	}
	if stalled {
		v.triggers = append(v.triggers, fmt.Sprintf("insight to application ratio %.1f with %d days since last application",
			m.InsightToApplicationRatio, m.DaysSinceLastApplication))
	}
	if m.InsightToApplicationRatio >= 10 {
		v.severity = integration.SeverityConcern
	}
	return v
}

func evalOrdinaryRejection(in evalInput) verdict {
	m := in.m
	if m.OrdinaryContentAvoidancePct < 70 {
		return verdict{}
	}
	v := verdict{
		triggered: true,
		severity:  integration.SeverityAwareness,
		triggers:  []string{fmt.Sprintf("%.0f%% of ordinary content avoided", m.OrdinaryContentAvoidancePct)},
	}
	if m.OrdinaryContentAvoidancePct >= 90 {
		v.severity = integration.SeverityConcern
	}
	return v
}

type Detector struct {
	cat               *catalog.Catalog
	referralThreshold int
	newID             func() uuid.UUID
}

type Option func(*Detector)

func WithReferralThreshold(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.referralThreshold = n
		}
	}
}

func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(d *Detector) {
		if fn != nil {
			d.newID = fn
		}
	}
}

func NewDetector(cat *catalog.Catalog, opts ...Option) *Detector {
	d := &Detector{cat: cat, referralThreshold: DefaultReferralBypassThreshold, newID: uuid.New}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect evaluates every pattern independently against one metrics sample. Missing or
// malformed telemetry yields no detections.
func (d *Detector) Detect(
	userID uuid.UUID,
	metrics *integration.BehaviorMetrics,
	content integration.ContentContext,
	history []integration.BypassingDetection,
	now time.Time,
) []integration.BypassingDetection {
	if !metrics.WellFormed() {
		return []integration.BypassingDetection{}
	}

	in := evalInput{m: metrics, content: content}
	seenPhrase := map[string]bool{}
	for _, text := range content.RecentReflections {
		for _, p := range d.cat.FlaggedPhrases(text) {
			if !seenPhrase[p.Phrase] {
				seenPhrase[p.Phrase] = true
				in.flagged = append(in.flagged, p)
			}
		}
	}

	out := []integration.BypassingDetection{}
	for _, ev := range evaluators {
		v := ev.evaluate(in)
		if !v.triggered {
			continue
		}
		triggers := v.triggers
		if prior := countUnaddressed(history, ev.pattern); prior > 0 {
			triggers = append(triggers, fmt.Sprintf("pattern already observed %d time(s) without being addressed", prior))
		}
		out = append(out, integration.BypassingDetection{
			ID:                      d.newID(),
			Pattern:                 ev.pattern,
			Severity:                v.severity,
			DetectedAt:              now,
			TriggerEvents:           triggers,
			RecommendedIntervention: d.interventionFor(ev.pattern, v.severity),
			Occurrences:             1,
		})
	}
	return out
}

// Escalate re-evaluates a persisted detection against fresh metrics. Severity never drops.
func (d *Detector) Escalate(
	prior integration.BypassingDetection,
	metrics *integration.BehaviorMetrics,
	history []integration.BypassingDetection,
	now time.Time,
) integration.BypassingDetection {
	out := prior
	out.TriggerEvents = append([]string(nil), prior.TriggerEvents...)
	stamp := now.UTC().Format(time.RFC3339)

	// Recurrence only counts observations made since the last recurrence escalation.
	if n := countUnaddressed(history, prior.Pattern); n-prior.EscalatedAtOccurrences >= recurrenceThreshold &&
		out.Severity.Rank() < integration.SeverityIntervention.Rank() {
		out.Severity = integration.NextSeverity(out.Severity)
		out.EscalatedAtOccurrences = n
		out.TriggerEvents = append(out.TriggerEvents, fmt.Sprintf("%s: %d unaddressed detections of this pattern", stamp, n))
	}

	if metrics.WellFormed() {
		if metrics.TherapyReferralRejections >= referralRejectionThreshold {
			out.Severity = integration.SeverityProfessionalReferral
			out.TriggerEvents = append(out.TriggerEvents,
				fmt.Sprintf("%s: %d therapy referrals declined", stamp, metrics.TherapyReferralRejections))
		}
		if prior.Severity.AtLeast(integration.SeverityIntervention) &&
			metrics.ReflectionGapBypassAttempts >= d.referralThreshold {
			out.Severity = integration.SeverityProfessionalReferral
			out.TriggerEvents = append(out.TriggerEvents,
				fmt.Sprintf("%s: %d bypass attempts at intervention level", stamp, metrics.ReflectionGapBypassAttempts))
		}
	}

	out.Severity = integration.MaxSeverity(prior.Severity, out.Severity)
	if out.Severity == integration.SeverityProfessionalReferral {
		out.ProfessionalReferralSuggested = true
	}
	if out.Severity != prior.Severity {
		out.RecommendedIntervention = d.interventionFor(out.Pattern, out.Severity)
	}
	return out
}

func (d *Detector) interventionFor(p integration.Pattern, sev integration.Severity) string {
	if sev == integration.SeverityProfessionalReferral {
		return referralIntervention
	}
	def, ok := d.cat.Pattern(p)
	if !ok || len(def.Interventions) == 0 {
		return ""
	}
	idx := sev.Rank()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(def.Interventions) {
		idx = len(def.Interventions) - 1
	}
	return def.Interventions[idx]
}

// countUnaddressed sums open observations of p, whether stored as separate rows or merged.
func countUnaddressed(history []integration.BypassingDetection, p integration.Pattern) int {
	n := 0
	for _, h := range history {
		if h.Pattern == p && !h.Addressed {
			n += h.Weight()
		}
	}
	return n
}
