// Package gates builds integration gates and decides when their requirements are met.
package gates

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/catalog"
)

var (
	ErrRequirementNotFound = errors.New("requirement not found")
	ErrMissingEvidence     = errors.New("requirement completion needs at least one evidence reference")
)

const (
	minValidatedEvidence = 3
	completionThreshold  = 0.8
	// ReviewAttemptThreshold is the bypass attempt at which a professional review is requested.
	ReviewAttemptThreshold = 4

	detailMinChars = 50
	recentWindow   = 7 * 24 * time.Hour
	day            = 24 * time.Hour
)

var minimumReflectionDays = map[integration.ContentCategory]int{
	integration.CategoryInsight:          1,
	integration.CategoryPractice:         3,
	integration.CategoryBreakthrough:     7,
	integration.CategoryMajorRealization: 21,
}

func MinimumReflectionDays(cat integration.ContentCategory) int {
	if d, ok := minimumReflectionDays[cat]; ok {
		return d
	}
	return minimumReflectionDays[integration.CategoryInsight]
}

type Service struct {
	cat   *catalog.Catalog
	newID func() uuid.UUID
}

func NewService(cat *catalog.Catalog) *Service {
	return &Service{cat: cat, newID: uuid.New}
}

// CreateRequirements returns the fixed requirement set for a content category.
func (s *Service) CreateRequirements(cat integration.ContentCategory) []integration.IntegrationRequirement {
	types := []integration.RequirementType{
		integration.RequirementReflection,
		integration.RequirementApplication,
		integration.RequirementRealityCheck,
	}
	if cat.HighIntensity() {
		types = append(types, integration.RequirementCommunityValidation)
	}
	minDays := MinimumReflectionDays(cat)
	out := make([]integration.IntegrationRequirement, 0, len(types))
	for _, typ := range types {
		tmpl, _ := s.cat.Requirement(typ)
		out = append(out, integration.IntegrationRequirement{
			ID:                 s.newID(),
			Type:               typ,
			Description:        tmpl.Description,
			MinimumDays:        minDays,
			ValidationCriteria: tmpl.ValidationCriteria,
			CompletionPrompts:  tmpl.CompletionPrompts,
		})
	}
	return out
}

// NewGate builds a locked gate guarding contentID behind the category's requirements.
func (s *Service) NewGate(contentID string, gapID uuid.UUID, cat integration.ContentCategory, typ integration.GateType, now time.Time) integration.IntegrationGate {
	return integration.IntegrationGate{
		ID:                           s.newID(),
		ContentID:                    contentID,
		ReflectionGapID:              gapID,
		Requirements:                 s.CreateRequirements(cat),
		Type:                         typ,
		MinimumIntegrationDays:       MinimumReflectionDays(cat),
		RequiresRealWorldApplication: true,
		RequiresCommunityValidation:  cat.HighIntensity(),
		CreatedAt:                    now,
	}
}

// NewDepthGate builds a gate that opens once the theme has been explored deeply enough.
func (s *Service) NewDepthGate(contentID, theme string, depth float64, now time.Time) integration.IntegrationGate {
	return integration.IntegrationGate{
		ID:            s.newID(),
		ContentID:     contentID,
		Type:          integration.GateSpiralDepth,
		Theme:         theme,
		RequiredDepth: depth,
		CreatedAt:     now,
	}
}

type Readiness struct {
	Ready             bool    `json:"ready"`
	DaysElapsed       int     `json:"days_elapsed"`
	DaysRequired      int     `json:"days_required"`
	ValidatedEvidence int     `json:"validated_evidence"`
	CompletionRatio   float64 `json:"completion_ratio"`
}

// CheckReadiness applies the three independent readiness conditions. A nil gap means the
// gate has no reflection period attached and can never satisfy the evidence condition.
func (s *Service) CheckReadiness(gate integration.IntegrationGate, gap *integration.ReflectionGap, now time.Time) Readiness {
	r := Readiness{CompletionRatio: CompletionRatio(gate.Requirements)}
	if gap == nil {
		return r
	}
	r.DaysRequired = gap.MinimumDurationDays
	if now.After(gap.StartedAt) {
		r.DaysElapsed = int(now.Sub(gap.StartedAt) / day)
	}
	r.ValidatedEvidence = countValidated(gap.Evidence)
	r.Ready = r.DaysElapsed >= r.DaysRequired &&
		r.ValidatedEvidence >= minValidatedEvidence &&
		r.CompletionRatio >= completionThreshold
	return r
}

// CheckDepthReadiness opens spiral-depth gates on the deepest recorded visit to the theme.
func (s *Service) CheckDepthReadiness(gate integration.IntegrationGate, history []integration.SpiralProgressPoint) bool {
	deepest := 0.0
	for _, p := range history {
		if p.Theme == gate.Theme && p.Depth > deepest {
			deepest = p.Depth
		}
	}
	return deepest >= gate.RequiredDepth
}

func CompletionRatio(reqs []integration.IntegrationRequirement) float64 {
	if len(reqs) == 0 {
		return 0
	}
	done := 0
	for _, r := range reqs {
		if r.Completed {
			done++
		}
	}
	return float64(done) / float64(len(reqs))
}

func countValidated(ev []integration.IntegrationEvidence) int {
	n := 0
	for _, e := range ev {
		if e.Validated {
			n++
		}
	}
	return n
}

// CalculateQuality scores evidence on 0-100: 40% evidence quality, 30% requirement completion,
// 30% temporal spread.
func (s *Service) CalculateQuality(evidence []integration.IntegrationEvidence, reqs []integration.IntegrationRequirement, now time.Time) float64 {
	score := 0.4*evidenceQuality(evidence, now) +
		0.3*CompletionRatio(reqs)*100 +
		0.3*temporalSpread(evidence)
	return math.Min(100, score)
}

func evidenceQuality(evidence []integration.IntegrationEvidence, now time.Time) float64 {
	if len(evidence) == 0 {
		return 0
	}
	categories := map[integration.EvidenceCategory]bool{}
	detailed, external, recent := 0, 0, 0
	for _, e := range evidence {
		categories[e.Category] = true
		if len([]rune(strings.TrimSpace(e.Description))) >= detailMinChars {
			detailed++
		}
		if e.Validated && e.ValidatedBy.External() {
			external++
		}
		if age := now.Sub(e.Date); age >= 0 && age <= recentWindow {
			recent++
		}
	}
	diversity := float64(len(categories)) / 5 * 25
	detail := float64(minInt(detailed, 4)) * 25 / 4
	validation := float64(minInt(external, 3)) * 25 / 3
	recency := float64(minInt(recent, 3)) * 25 / 3
	return math.Min(100, diversity+detail+validation+recency)
}

func temporalSpread(evidence []integration.IntegrationEvidence) float64 {
	if len(evidence) < 3 {
		return 0
	}
	first, last := evidence[0].Date, evidence[0].Date
	for _, e := range evidence[1:] {
		if e.Date.Before(first) {
			first = e.Date
		}
		if e.Date.After(last) {
			last = e.Date
		}
	}
	switch spread := last.Sub(first); {
	case spread >= 7*day:
		return 100
	case spread >= 3*day:
		return 70
	default:
		return 40
	}
}

type BypassResponse struct {
	Attempt        int    `json:"attempt"`
	Message        string `json:"message"`
	ReviewRequired bool   `json:"review_required"`
}

// RecordBypassAttempt increments the gap's counter and returns the tiered response.
// It never unlocks anything.
func (s *Service) RecordBypassAttempt(gap *integration.ReflectionGap) BypassResponse {
	gap.BypassAttempts++
	n := gap.BypassAttempts
	return BypassResponse{
		Attempt:        n,
		Message:        s.cat.BypassMessage(n),
		ReviewRequired: n >= ReviewAttemptThreshold,
	}
}

// CompleteRequirement marks a requirement complete with its evidence. Completing an already
// completed requirement is a no-op.
func (s *Service) CompleteRequirement(gate *integration.IntegrationGate, requirementID uuid.UUID, evidenceIDs []uuid.UUID, now time.Time) (*integration.IntegrationRequirement, error) {
	for i := range gate.Requirements {
		req := &gate.Requirements[i]
		if req.ID != requirementID {
			continue
		}
		if req.Completed {
			return req, nil
		}
		refs := dedupeIDs(evidenceIDs)
		if len(refs) == 0 {
			return nil, ErrMissingEvidence
		}
		at := now
		req.Completed = true
		req.CompletedAt = &at
		req.EvidenceIDs = refs
		return req, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRequirementNotFound, requirementID)
}

// Unlock opens the gate once; it reports whether this call changed anything.
func (s *Service) Unlock(gate *integration.IntegrationGate, now time.Time) bool {
	if gate.Unlocked {
		return false
	}
	at := now
	gate.Unlocked = true
	gate.UnlockedAt = &at
	return true
}

func dedupeIDs(in []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	out := make([]uuid.UUID, 0, len(in))
	for _, id := range in {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
