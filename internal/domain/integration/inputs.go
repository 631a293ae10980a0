package integration

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// ContentMetadata is supplied by the content-library collaborator.
type ContentMetadata struct {
	ID        string          `json:"id"`
	Type      ContentCategory `json:"type"`
	Intensity Intensity       `json:"intensity,omitempty"`
	Element   string          `json:"element,omitempty"`
	Summary   string          `json:"summary,omitempty"`
	// Unlocks lists follow-up content sequenced after this piece.
	Unlocks []string `json:"unlocks,omitempty"`
	// Theme and RequiredDepth describe a spiral-depth prerequisite.
	Theme         string  `json:"theme,omitempty"`
	RequiredDepth float64 `json:"required_depth,omitempty"`
}

// Category falls back to insight when the library did not classify the content.
func (c ContentMetadata) Category() ContentCategory {
	if c.Type.Valid() {
		return c.Type
	}
	return CategoryInsight
}

// BehaviorMetrics is the caller-supplied telemetry sample for one request. Counters read as zero
// when omitted, which never satisfies a predicate. AverageIntegrationDays flags low values, so it
// is a pointer and an omitted value means unknown.
type BehaviorMetrics struct {
	DailyContentRequests        int      `json:"daily_content_requests"`
	AverageIntegrationDays      *float64 `json:"average_integration_days,omitempty"`
	ReflectionGapBypassAttempts int     `json:"reflection_gap_bypass_attempts"`
	InsightToApplicationRatio   float64 `json:"insight_to_application_ratio"`
	DaysSinceLastApplication    int     `json:"days_since_last_application"`
	BreakthroughSeekingCount    int     `json:"breakthrough_seeking_count"`
	OrdinaryContentAvoidancePct float64 `json:"ordinary_content_avoidance_pct"`
	EmotionalContentSkipPct     float64 `json:"emotional_content_skip_pct"`
	ShadowWorkAvoidanceCount    int     `json:"shadow_work_avoidance_count"`
	SuperiorityStatements       int     `json:"superiority_statements"`
	ResponsibilityDeflections   int     `json:"responsibility_deflections"`
	TherapyReferralRejections   int     `json:"therapy_referral_rejections"`
}

// WellFormed rejects negative counters, non-finite numbers and out-of-range percentages.
func (m *BehaviorMetrics) WellFormed() bool {
	if m == nil {
		return false
	}
	for _, n := range []int{
		m.DailyContentRequests, m.ReflectionGapBypassAttempts, m.DaysSinceLastApplication,
		m.BreakthroughSeekingCount, m.ShadowWorkAvoidanceCount, m.SuperiorityStatements,
		m.ResponsibilityDeflections, m.TherapyReferralRejections,
	} {
		if n < 0 {
			return false
		}
	}
	floats := []float64{m.InsightToApplicationRatio}
	if m.AverageIntegrationDays != nil {
		floats = append(floats, *m.AverageIntegrationDays)
	}
	for _, f := range floats {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return false
		}
	}
	for _, p := range []float64{m.OrdinaryContentAvoidancePct, m.EmotionalContentSkipPct} {
		if math.IsNaN(p) || p < 0 || p > 100 {
			return false
		}
	}
	return true
}

// Days wraps a day count for the optional metrics fields.
func Days(v float64) *float64 { return &v }

// ContentContext carries what the detector may inspect about the current request.
type ContentContext struct {
	ContentID         string          `json:"content_id"`
	Category          ContentCategory `json:"category"`
	RecentReflections []string        `json:"recent_reflections,omitempty"`
}

type LivedExperienceSubmission struct {
	Insight   string `json:"insight"`
	Situation string `json:"situation"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome"`
}

type BodyIntegrationSubmission struct {
	SomaticAwareness string `json:"somatic_awareness"`
	DailyApplication string `json:"daily_application"`
	Evidence         string `json:"evidence"`
}

type StruggleWisdomSubmission struct {
	Struggle     string `json:"struggle"`
	WhatHappened string `json:"what_happened"`
	WhatLearned  string `json:"what_learned"`
}

type OrdinaryMomentSubmission struct {
	Moment    string `json:"moment"`
	Awareness string `json:"awareness"`
}

type SpiralVisitSubmission struct {
	Theme        string   `json:"theme"`
	Insight      string   `json:"insight"`
	Applications []string `json:"applications"`
	Struggles    []string `json:"struggles"`
}

type EvidenceSubmission struct {
	ReflectionGapID  uuid.UUID        `json:"reflection_gap_id"`
	Category         EvidenceCategory `json:"category"`
	Description      string           `json:"description"`
	Date             *time.Time       `json:"date,omitempty"`
	Validated        bool             `json:"validated"`
	ValidatedBy      Validator        `json:"validated_by"`
	RealWorldContext string           `json:"real_world_context"`
}

type RequirementCompletionSubmission struct {
	GateID        uuid.UUID   `json:"gate_id"`
	RequirementID uuid.UUID   `json:"requirement_id"`
	EvidenceIDs   []uuid.UUID `json:"evidence_ids"`
}

// Submission is a tagged union; exactly the field matching Kind is read.
type Submission struct {
	LivedExperience       *LivedExperienceSubmission       `json:"lived_experience,omitempty"`
	BodyIntegration       *BodyIntegrationSubmission       `json:"body_integration,omitempty"`
	StruggleWisdom        *StruggleWisdomSubmission        `json:"struggle_wisdom,omitempty"`
	OrdinaryMoment        *OrdinaryMomentSubmission        `json:"ordinary_moment,omitempty"`
	SpiralVisit           *SpiralVisitSubmission           `json:"spiral_visit,omitempty"`
	Evidence              *EvidenceSubmission              `json:"evidence,omitempty"`
	RequirementCompletion *RequirementCompletionSubmission `json:"requirement_completion,omitempty"`
}
