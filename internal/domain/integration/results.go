package integration

import (
	"time"

	"github.com/google/uuid"
)

type ContentOutcome string

const (
	OutcomeGranted ContentOutcome = "granted"
	OutcomePaced   ContentOutcome = "paced"
	OutcomeGated   ContentOutcome = "gated"
)

// AnnotatedContent is granted content plus the reflection work attached to it.
type AnnotatedContent struct {
	Content               ContentMetadata `json:"content"`
	GroundedSummary       string          `json:"grounded_summary,omitempty"`
	ReflectionPrompts     []string        `json:"reflection_prompts"`
	ReflectionGapID       uuid.UUID       `json:"reflection_gap_id"`
	MinimumReflectionDays int             `json:"minimum_reflection_days"`
}

type ContentResult struct {
	Outcome               ContentOutcome           `json:"outcome"`
	Allowed               bool                     `json:"allowed"`
	Content               *AnnotatedContent        `json:"content,omitempty"`
	WaitHoursRemaining    int                      `json:"wait_hours_remaining,omitempty"`
	AlternativeActivities []string                 `json:"alternative_activities,omitempty"`
	GateID                *uuid.UUID               `json:"gate_id,omitempty"`
	OpenRequirements      []IntegrationRequirement `json:"open_requirements,omitempty"`
	BypassAttempt         int                      `json:"bypass_attempt,omitempty"`
	Message               string                   `json:"message,omitempty"`
	Detections            []BypassingDetection     `json:"detections,omitempty"`
	Reviews               []ReviewRequest          `json:"-"`
}

type SubmissionResult struct {
	Kind        SubmissionKind `json:"kind"`
	Accepted    bool           `json:"accepted"`
	Strengths   []string       `json:"strengths,omitempty"`
	GrowthEdges []string       `json:"growth_edges,omitempty"`
	Feedback    string         `json:"feedback"`

	SpiralPoint  *SpiralProgressPoint    `json:"spiral_point,omitempty"`
	Evidence     *IntegrationEvidence    `json:"evidence,omitempty"`
	Requirement  *IntegrationRequirement `json:"requirement,omitempty"`
	QualityScore *float64                `json:"quality_score,omitempty"`
	GapStatus    GapStatus               `json:"gap_status,omitempty"`
}

type Dashboard struct {
	CurrentStage                   Stage                `json:"current_stage"`
	GatesTotal                     int                  `json:"gates_total"`
	GatesUnlocked                  int                  `json:"gates_unlocked"`
	GateUnlockRatio                float64              `json:"gate_unlock_ratio"`
	UnaddressedDetections          []BypassingDetection `json:"unaddressed_detections"`
	SpiralHealthy                  bool                 `json:"spiral_healthy"`
	SpiralInsights                 []string             `json:"spiral_insights"`
	SpiralConcerns                 []string             `json:"spiral_concerns"`
	Celebrations                   []string             `json:"celebrations"`
	NextActions                    []string             `json:"next_actions"`
	NextMandatoryIntegration       time.Time            `json:"next_mandatory_integration"`
	ProfessionalSupportRecommended bool                 `json:"professional_support_recommended"`
}

type ReviewResult struct {
	Escalated                      []BypassingDetection `json:"escalated"`
	ProfessionalSupportRecommended bool                 `json:"professional_support_recommended"`
	Reviews                        []ReviewRequest      `json:"-"`
}
