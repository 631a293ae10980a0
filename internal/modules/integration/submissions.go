package integration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/embodied"
	"github.com/yungbote/integration-engine/internal/modules/integration/gates"
	"github.com/yungbote/integration-engine/internal/modules/integration/spiral"
)

const summaryMaxRunes = 140

// ProcessIntegrationSubmission routes a submission to its validator or tracker. Rejected
// embodied submissions are returned with growth edges and kept as pending feedback.
func (e *Engine) ProcessIntegrationSubmission(arch *types.IntegrationArchitecture, kind types.SubmissionKind, sub types.Submission, now time.Time) (types.SubmissionResult, error) {
	if arch == nil {
		return types.SubmissionResult{}, validationf("architecture is required")
	}
	switch kind {
	case types.KindLivedExperience:
		if sub.LivedExperience == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		s := sub.LivedExperience
		return e.applyEmbodied(arch, kind, embodied.ValidateLivedExperience(*s), s.Insight+" "+s.Action, now), nil
	case types.KindBodyIntegration:
		if sub.BodyIntegration == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		s := sub.BodyIntegration
		return e.applyEmbodied(arch, kind, embodied.ValidateBodyIntegration(*s), s.DailyApplication, now), nil
	case types.KindStruggleWisdom:
		if sub.StruggleWisdom == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		s := sub.StruggleWisdom
		return e.applyEmbodied(arch, kind, embodied.ValidateStruggleWisdom(*s), s.WhatLearned, now), nil
	case types.KindOrdinaryMoment:
		if sub.OrdinaryMoment == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		s := sub.OrdinaryMoment
		return e.applyEmbodied(arch, kind, embodied.ValidateOrdinaryMoment(*s), s.Moment, now), nil
	case types.KindSpiralVisit:
		if sub.SpiralVisit == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		return e.recordSpiralVisit(arch, *sub.SpiralVisit, now)
	case types.KindIntegrationEvidence:
		if sub.Evidence == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		return e.addEvidence(arch, *sub.Evidence, now)
	case types.KindRequirementCompletion:
		if sub.RequirementCompletion == nil {
			return types.SubmissionResult{}, missingPayload(kind)
		}
		return e.completeRequirement(arch, *sub.RequirementCompletion, now)
	default:
		return types.SubmissionResult{}, validationf("unknown submission kind %q", kind)
	}
}

func missingPayload(kind types.SubmissionKind) error {
	return validationf("%s payload is required", kind)
}

func (e *Engine) applyEmbodied(arch *types.IntegrationArchitecture, kind types.SubmissionKind, r embodied.Result, summary string, now time.Time) types.SubmissionResult {
	res := types.SubmissionResult{
		Kind:        kind,
		Accepted:    r.Accepted,
		Strengths:   r.Strengths,
		GrowthEdges: r.GrowthEdges,
	}
	w := &arch.EmbodiedWisdom
	if !r.Accepted {
		w.PendingGrowthEdges = append([]string(nil), r.GrowthEdges...)
		res.Feedback = "Thank you for sharing this. Take another pass with the growth edges below and resubmit when you are ready."
		return res
	}

	w.Submissions = append(w.Submissions, types.EmbodiedSubmission{
		ID:          e.newID(),
		Kind:        kind,
		Summary:     truncate(e.cat.Ground(strings.TrimSpace(summary)), summaryMaxRunes),
		Strengths:   r.Strengths,
		SubmittedAt: now,
	})
	w.PendingGrowthEdges = []string{}
	day := now.UTC().Truncate(24 * time.Hour)
	if n := len(w.PracticeDays); n == 0 || !w.PracticeDays[n-1].Equal(day) {
		w.PracticeDays = append(w.PracticeDays, day)
	}
	res.Feedback = fmt.Sprintf("Beautiful work. This is integration in action: %s", firstOr(r.Strengths, "you showed up for the practice."))
	return res
}

func (e *Engine) recordSpiralVisit(arch *types.IntegrationArchitecture, in types.SpiralVisitSubmission, now time.Time) (types.SubmissionResult, error) {
	p, err := e.spiral.RecordVisit(arch.SpiralProgress, spiral.VisitInput{
		Theme:        in.Theme,
		Insight:      in.Insight,
		Applications: in.Applications,
		Struggles:    in.Struggles,
	}, now)
	if err != nil {
		if errors.Is(err, spiral.ErrUnknownTheme) {
			return types.SubmissionResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return types.SubmissionResult{}, err
	}
	arch.SpiralProgress = append(arch.SpiralProgress, p)

	feedback := fmt.Sprintf("Visit to %s recorded at depth %.1f (%s).", strings.ReplaceAll(p.Theme, "_", " "), p.Depth, p.Phase)
	if len(p.PreviousVisits) > 0 {
		feedback += fmt.Sprintf(" This is visit %d; returning is how the spiral deepens.", len(p.PreviousVisits)+1)
	}
	return types.SubmissionResult{
		Kind:        types.KindSpiralVisit,
		Accepted:    true,
		Feedback:    feedback,
		SpiralPoint: &p,
	}, nil
}

func (e *Engine) addEvidence(arch *types.IntegrationArchitecture, in types.EvidenceSubmission, now time.Time) (types.SubmissionResult, error) {
	gap := arch.GapByID(in.ReflectionGapID)
	if gap == nil {
		return types.SubmissionResult{}, notFoundf("reflection gap %s", in.ReflectionGapID)
	}
	if !in.Category.Valid() {
		return types.SubmissionResult{}, validationf("unknown evidence category %q", in.Category)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return types.SubmissionResult{}, validationf("evidence description is required")
	}
	by := in.ValidatedBy
	if by == "" {
		by = types.ValidatorSelf
	}
	if by != types.ValidatorSelf && !by.External() {
		return types.SubmissionResult{}, validationf("unknown validator %q", in.ValidatedBy)
	}
	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
		if date.Before(gap.StartedAt) || date.After(now) {
			return types.SubmissionResult{}, validationf("evidence date %s outside reflection period %s to %s",
				date.Format(time.RFC3339), gap.StartedAt.Format(time.RFC3339), now.Format(time.RFC3339))
		}
	}

	ev := types.IntegrationEvidence{
		ID:               e.newID(),
		Category:         in.Category,
		Description:      desc,
		Date:             date,
		Validated:        in.Validated,
		ValidatedBy:      by,
		RealWorldContext: strings.TrimSpace(in.RealWorldContext),
	}
	gap.Evidence = append(gap.Evidence, ev)
	if gap.Status == types.GapOpen {
		gap.Status = types.GapProcessing
	}
	e.refreshGapStatus(arch, gap, now)

	score := e.gates.CalculateQuality(gap.Evidence, e.requirementsForGap(arch, gap.ID), now)
	return types.SubmissionResult{
		Kind:         types.KindIntegrationEvidence,
		Accepted:     true,
		Feedback:     fmt.Sprintf("Evidence recorded. %d entries so far for this reflection period.", len(gap.Evidence)),
		Evidence:     &ev,
		QualityScore: &score,
		GapStatus:    gap.Status,
	}, nil
}

func (e *Engine) completeRequirement(arch *types.IntegrationArchitecture, in types.RequirementCompletionSubmission, now time.Time) (types.SubmissionResult, error) {
	gate := arch.GateByID(in.GateID)
	if gate == nil {
		return types.SubmissionResult{}, notFoundf("gate %s", in.GateID)
	}
	known := e.evidenceIndex(arch)
	for _, id := range in.EvidenceIDs {
		if !known[id] {
			return types.SubmissionResult{}, notFoundf("evidence %s", id)
		}
	}
	req, err := e.gates.CompleteRequirement(gate, in.RequirementID, in.EvidenceIDs, now)
	switch {
	case errors.Is(err, gates.ErrRequirementNotFound):
		return types.SubmissionResult{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gates.ErrMissingEvidence):
		return types.SubmissionResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	case err != nil:
		return types.SubmissionResult{}, err
	}

	res := types.SubmissionResult{
		Kind:        types.KindRequirementCompletion,
		Accepted:    true,
		Requirement: req,
		Feedback:    fmt.Sprintf("Requirement complete. %d of %d done for this gate.", len(gate.Requirements)-len(gate.OpenRequirements()), len(gate.Requirements)),
	}
	if gap := arch.GapByID(gate.ReflectionGapID); gap != nil {
		e.refreshGapStatus(arch, gap, now)
		res.GapStatus = gap.Status
	}
	return res, nil
}

// refreshGapStatus completes a gap once its minimum duration has passed, enough evidence is
// validated and every gate it feeds is ready.
func (e *Engine) refreshGapStatus(arch *types.IntegrationArchitecture, gap *types.ReflectionGap, now time.Time) {
	if gap.Status == types.GapCompleted {
		return
	}
	readiness := types.IntegrationGate{Requirements: []types.IntegrationRequirement{{Completed: true}}}
	if !e.gates.CheckReadiness(readiness, gap, now).Ready {
		return
	}
	for _, g := range arch.IntegrationGates {
		if g.ReflectionGapID == gap.ID && !g.Unlocked && !e.gates.CheckReadiness(g, gap, now).Ready {
			return
		}
	}
	gap.Status = types.GapCompleted
}

func (e *Engine) requirementsForGap(arch *types.IntegrationArchitecture, gapID uuid.UUID) []types.IntegrationRequirement {
	var out []types.IntegrationRequirement
	for _, g := range arch.IntegrationGates {
		if g.ReflectionGapID == gapID {
			out = append(out, g.Requirements...)
		}
	}
	return out
}

func (e *Engine) evidenceIndex(arch *types.IntegrationArchitecture) map[uuid.UUID]bool {
	out := map[uuid.UUID]bool{}
	for _, gap := range arch.ReflectionGaps {
		for _, ev := range gap.Evidence {
			out[ev.ID] = true
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func firstOr(list []string, def string) string {
	if len(list) > 0 {
		return list[0]
	}
	return def
}
