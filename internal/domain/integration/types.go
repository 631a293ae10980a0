package integration

import (
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageInitialInsight     Stage = "initial_insight"
	StageReflectionGap      Stage = "reflection_gap"
	StageRealityApplication Stage = "reality_application"
	StageDailyIntegration   Stage = "daily_integration"
	StageEmbodiedWisdom     Stage = "embodied_wisdom"
	StageSpiralRevisit      Stage = "spiral_revisit"
)

// StageOrder is the forward sequence; spiral_revisit may loop back to reflection_gap.
var StageOrder = []Stage{
	StageInitialInsight,
	StageReflectionGap,
	StageRealityApplication,
	StageDailyIntegration,
	StageEmbodiedWisdom,
	StageSpiralRevisit,
}

func (s Stage) Valid() bool {
	for _, st := range StageOrder {
		if st == s {
			return true
		}
	}
	return false
}

type ContentCategory string

const (
	CategoryInsight          ContentCategory = "insight"
	CategoryPractice         ContentCategory = "practice"
	CategoryBreakthrough     ContentCategory = "breakthrough"
	CategoryMajorRealization ContentCategory = "major_realization"
)

func (c ContentCategory) Valid() bool {
	switch c {
	case CategoryInsight, CategoryPractice, CategoryBreakthrough, CategoryMajorRealization:
		return true
	}
	return false
}

// HighIntensity reports whether the category demands the longer integration windows.
func (c ContentCategory) HighIntensity() bool {
	return c == CategoryBreakthrough || c == CategoryMajorRealization
}

type RequirementType string

const (
	RequirementReflection          RequirementType = "reflection"
	RequirementRealityCheck        RequirementType = "reality_check"
	RequirementApplication         RequirementType = "application"
	RequirementEmbodiment          RequirementType = "embodiment"
	RequirementCommunityValidation RequirementType = "community_validation"
)

type IntegrationRequirement struct {
	ID                 uuid.UUID       `json:"id"`
	Type               RequirementType `json:"type"`
	Description        string          `json:"description"`
	MinimumDays        int             `json:"minimum_days"`
	ValidationCriteria []string        `json:"validation_criteria"`
	CompletionPrompts  []string        `json:"completion_prompts"`
	Completed          bool            `json:"completed"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	EvidenceIDs        []uuid.UUID     `json:"evidence_ids,omitempty"`
}

type GapStatus string

const (
	GapOpen       GapStatus = "open"
	GapProcessing GapStatus = "processing"
	GapCompleted  GapStatus = "completed"
)

type ReflectionGap struct {
	ID                  uuid.UUID             `json:"id"`
	ContentID           string                `json:"content_id"`
	Category            ContentCategory       `json:"category"`
	StartedAt           time.Time             `json:"started_at"`
	MinimumDurationDays int                   `json:"minimum_duration_days"`
	Prompts             []string              `json:"prompts"`
	Evidence            []IntegrationEvidence `json:"evidence"`
	Status              GapStatus             `json:"status"`
	BypassAttempts      int                   `json:"bypass_attempts"`
}

type EvidenceCategory string

const (
	EvidenceDailyPractice      EvidenceCategory = "daily_practice"
	EvidenceRelationshipChange EvidenceCategory = "relationship_change"
	EvidenceBehaviorShift      EvidenceCategory = "behavior_shift"
	EvidenceOrdinaryMoment     EvidenceCategory = "ordinary_moment"
	EvidenceStruggleNavigation EvidenceCategory = "struggle_navigation"
)

func (c EvidenceCategory) Valid() bool {
	switch c {
	case EvidenceDailyPractice, EvidenceRelationshipChange, EvidenceBehaviorShift,
		EvidenceOrdinaryMoment, EvidenceStruggleNavigation:
		return true
	}
	return false
}

type Validator string

const (
	ValidatorSelf   Validator = "self"
	ValidatorPeer   Validator = "peer"
	ValidatorMentor Validator = "mentor"
)

// External reports whether someone other than the user vouched for the evidence.
func (v Validator) External() bool {
	return v == ValidatorPeer || v == ValidatorMentor
}

type IntegrationEvidence struct {
	ID               uuid.UUID        `json:"id"`
	Category         EvidenceCategory `json:"category"`
	Description      string           `json:"description"`
	Date             time.Time        `json:"date"`
	Validated        bool             `json:"validated"`
	ValidatedBy      Validator        `json:"validated_by"`
	RealWorldContext string           `json:"real_world_context"`
}

type Phase string

const (
	PhaseFoundation  Phase = "foundation"
	PhaseExploration Phase = "exploration"
	PhaseIntegration Phase = "integration"
	PhaseDeepening   Phase = "deepening"
	PhaseService     Phase = "service"
	PhaseMaintenance Phase = "maintenance"
)

type SpiralProgressPoint struct {
	ID                   uuid.UUID   `json:"id"`
	Theme                string      `json:"theme"`
	Depth                float64     `json:"depth"`
	Phase                Phase       `json:"phase"`
	VisitDate            time.Time   `json:"visit_date"`
	PreviousVisits       []time.Time `json:"previous_visits"`
	IntegrationQuality   float64     `json:"integration_quality"`
	RealWorldApplication []string    `json:"real_world_application"`
	Struggles            []string    `json:"struggles"`
}

type Pattern string

const (
	PatternInsightAddiction        Pattern = "insight_addiction"
	PatternEmotionalAvoidance      Pattern = "emotional_avoidance"
	PatternSpiritualSuperiority    Pattern = "spiritual_superiority"
	PatternTranscendenceSeeking    Pattern = "transcendence_seeking"
	PatternResponsibilityAvoidance Pattern = "responsibility_avoidance"
	PatternOrdinaryRejection       Pattern = "ordinary_rejection"
)

var AllPatterns = []Pattern{
	PatternInsightAddiction,
	PatternEmotionalAvoidance,
	PatternSpiritualSuperiority,
	PatternTranscendenceSeeking,
	PatternResponsibilityAvoidance,
	PatternOrdinaryRejection,
}

// Severity is ordered: awareness < concern < intervention < professional_referral.
type Severity string

const (
	SeverityAwareness            Severity = "awareness"
	SeverityConcern              Severity = "concern"
	SeverityIntervention         Severity = "intervention"
	SeverityProfessionalReferral Severity = "professional_referral"
)

var severityRank = map[Severity]int{
	SeverityAwareness:            0,
	SeverityConcern:              1,
	SeverityIntervention:         2,
	SeverityProfessionalReferral: 3,
}

func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

func (s Severity) AtLeast(other Severity) bool { return s.Rank() >= other.Rank() }

// MaxSeverity returns the higher of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// NextSeverity returns the level above s, saturating at professional_referral.
func NextSeverity(s Severity) Severity {
	switch s {
	case SeverityAwareness:
		return SeverityConcern
	case SeverityConcern:
		return SeverityIntervention
	default:
		return SeverityProfessionalReferral
	}
}

type BypassingDetection struct {
	ID                            uuid.UUID `json:"id"`
	Pattern                       Pattern   `json:"pattern"`
	Severity                      Severity  `json:"severity"`
	DetectedAt                    time.Time `json:"detected_at"`
	TriggerEvents                 []string  `json:"trigger_events"`
	RecommendedIntervention       string    `json:"recommended_intervention"`
	ProfessionalReferralSuggested bool      `json:"professional_referral_suggested"`
	Addressed                     bool      `json:"addressed"`
	// Occurrences counts how many evaluations observed this pattern while it stayed open.
	Occurrences int `json:"occurrences"`
	// EscalatedAtOccurrences is the observation count the recurrence rule last escalated on.
	EscalatedAtOccurrences int `json:"escalated_at_occurrences,omitempty"`
}

// Weight is the number of observations a detection stands for; legacy rows count once.
func (d BypassingDetection) Weight() int {
	if d.Occurrences < 1 {
		return 1
	}
	return d.Occurrences
}

type GateType string

const (
	GateSequential  GateType = "sequential"
	GateCumulative  GateType = "cumulative"
	GateSpiralDepth GateType = "spiral_depth"
)

type IntegrationGate struct {
	ID                           uuid.UUID                `json:"id"`
	ContentID                    string                   `json:"content_id"`
	ReflectionGapID              uuid.UUID                `json:"reflection_gap_id,omitempty"`
	Requirements                 []IntegrationRequirement `json:"requirements"`
	Type                         GateType                 `json:"type"`
	MinimumIntegrationDays       int                      `json:"minimum_integration_days"`
	RequiresRealWorldApplication bool                     `json:"requires_real_world_application"`
	RequiresCommunityValidation  bool                     `json:"requires_community_validation"`
	Theme                        string                   `json:"theme,omitempty"`
	RequiredDepth                float64                  `json:"required_depth,omitempty"`
	Unlocked                     bool                     `json:"unlocked"`
	UnlockedAt                   *time.Time               `json:"unlocked_at,omitempty"`
	CreatedAt                    time.Time                `json:"created_at"`
}

// OpenRequirements lists requirements not yet completed.
func (g IntegrationGate) OpenRequirements() []IntegrationRequirement {
	out := make([]IntegrationRequirement, 0, len(g.Requirements))
	for _, r := range g.Requirements {
		if !r.Completed {
			out = append(out, r)
		}
	}
	return out
}

type SubmissionKind string

const (
	KindLivedExperience       SubmissionKind = "lived_experience"
	KindBodyIntegration       SubmissionKind = "body_integration"
	KindStruggleWisdom        SubmissionKind = "struggle_wisdom"
	KindOrdinaryMoment        SubmissionKind = "ordinary_moment"
	KindSpiralVisit           SubmissionKind = "spiral_visit"
	KindIntegrationEvidence   SubmissionKind = "integration_evidence"
	KindRequirementCompletion SubmissionKind = "requirement_completion"
)

type EmbodiedSubmission struct {
	ID          uuid.UUID      `json:"id"`
	Kind        SubmissionKind `json:"kind"`
	Summary     string         `json:"summary"`
	Strengths   []string       `json:"strengths"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

type EmbodiedWisdomTracking struct {
	Submissions        []EmbodiedSubmission `json:"submissions"`
	PendingGrowthEdges []string             `json:"pending_growth_edges"`
	PracticeDays       []time.Time          `json:"practice_days"`
}

// Safeguards are per-user policy knobs created with the architecture.
type Safeguards struct {
	MaxDailyContent               int `json:"max_daily_content"`
	MandatoryReflectionHours      int `json:"mandatory_reflection_hours"`
	ProfessionalReferralThreshold int `json:"professional_referral_threshold"`
}

func DefaultSafeguards() Safeguards {
	return Safeguards{
		MaxDailyContent:               3,
		MandatoryReflectionHours:      24,
		ProfessionalReferralThreshold: 4,
	}
}

// IntegrationArchitecture is the per-user aggregate root.
type IntegrationArchitecture struct {
	UserID                         uuid.UUID              `json:"user_id"`
	CurrentStage                   Stage                  `json:"current_stage"`
	SpiralProgress                 []SpiralProgressPoint  `json:"spiral_progress"`
	IntegrationGates               []IntegrationGate      `json:"integration_gates"`
	BypassingHistory               []BypassingDetection   `json:"bypassing_history"`
	ReflectionGaps                 []ReflectionGap        `json:"reflection_gaps"`
	EmbodiedWisdom                 EmbodiedWisdomTracking `json:"embodied_wisdom"`
	Safeguards                     Safeguards             `json:"safeguards"`
	LastIntegrationCheck           time.Time              `json:"last_integration_check"`
	NextMandatoryIntegration       time.Time              `json:"next_mandatory_integration"`
	ProfessionalSupportRecommended bool                   `json:"professional_support_recommended"`
	CreatedAt                      time.Time              `json:"created_at"`
	Version                        int                    `json:"version"`
}

// UnaddressedDetections returns detections still awaiting attention, oldest first.
func (a *IntegrationArchitecture) UnaddressedDetections() []BypassingDetection {
	out := []BypassingDetection{}
	for _, d := range a.BypassingHistory {
		if !d.Addressed {
			out = append(out, d)
		}
	}
	return out
}

func (a *IntegrationArchitecture) HasUnaddressed(p Pattern) bool {
	for _, d := range a.BypassingHistory {
		if d.Pattern == p && !d.Addressed {
			return true
		}
	}
	return false
}

func (a *IntegrationArchitecture) GapByID(id uuid.UUID) *ReflectionGap {
	for i := range a.ReflectionGaps {
		if a.ReflectionGaps[i].ID == id {
			return &a.ReflectionGaps[i]
		}
	}
	return nil
}

func (a *IntegrationArchitecture) GateByID(id uuid.UUID) *IntegrationGate {
	for i := range a.IntegrationGates {
		if a.IntegrationGates[i].ID == id {
			return &a.IntegrationGates[i]
		}
	}
	return nil
}

// LockedGateFor returns the first locked gate guarding contentID.
func (a *IntegrationArchitecture) LockedGateFor(contentID string) *IntegrationGate {
	for i := range a.IntegrationGates {
		g := &a.IntegrationGates[i]
		if g.ContentID == contentID && !g.Unlocked {
			return g
		}
	}
	return nil
}
