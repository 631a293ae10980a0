package integration

import (
	"fmt"
	"strings"
	"time"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/gates"
	"github.com/yungbote/integration-engine/internal/modules/integration/pacing"
	"github.com/yungbote/integration-engine/internal/modules/integration/spiral"
)

type ContentRequest struct {
	Content           types.ContentMetadata
	Metrics           *types.BehaviorMetrics
	RecentReflections []string
}

// ProcessContentRequest runs detection, pacing and gating, and grants the content when all
// three allow it. Denials are results, not errors.
func (e *Engine) ProcessContentRequest(arch *types.IntegrationArchitecture, req ContentRequest, now time.Time) (types.ContentResult, error) {
	if arch == nil {
		return types.ContentResult{}, validationf("architecture is required")
	}
	content := req.Content
	content.ID = strings.TrimSpace(content.ID)
	if content.ID == "" {
		return types.ContentResult{}, validationf("content id is required")
	}
	if content.RequiredDepth > 0 && !spiral.KnownTheme(content.Theme) {
		return types.ContentResult{}, validationf("unknown theme %q for depth requirement", content.Theme)
	}
	cat := content.Category()

	fresh := e.detectorFor(arch).Detect(arch.UserID, req.Metrics, types.ContentContext{
		ContentID:         content.ID,
		Category:          cat,
		RecentReflections: req.RecentReflections,
	}, arch.BypassingHistory, now)
	detections := e.mergeDetections(arch, fresh)

	adm := e.pacing.CheckAdmission(arch, content, now)
	if !adm.Allowed {
		return types.ContentResult{
			Outcome:               types.OutcomePaced,
			WaitHoursRemaining:    adm.WaitHoursRemaining,
			AlternativeActivities: adm.AlternativeActivities,
			Message:               adm.Reason,
			Detections:            detections,
		}, nil
	}

	if blocked, ok := e.checkGates(arch, content, now); ok {
		blocked.Detections = detections
		return blocked, nil
	}

	gap := types.ReflectionGap{
		ID:                  e.newID(),
		ContentID:           content.ID,
		Category:            cat,
		StartedAt:           now,
		MinimumDurationDays: gates.MinimumReflectionDays(cat),
		Prompts:             e.cat.ReflectionPrompts(cat),
		Evidence:            []types.IntegrationEvidence{},
		Status:              types.GapOpen,
	}
	arch.ReflectionGaps = append(arch.ReflectionGaps, gap)

	gateType := types.GateSequential
	if cat.HighIntensity() {
		gateType = types.GateCumulative
	}
	for _, next := range dedupe(content.Unlocks) {
		if next == content.ID || arch.LockedGateFor(next) != nil {
			continue
		}
		arch.IntegrationGates = append(arch.IntegrationGates, e.gates.NewGate(next, gap.ID, cat, gateType, now))
	}

	arch.LastIntegrationCheck = now
	arch.NextMandatoryIntegration = now.Add(time.Duration(pacing.PolicyHours(cat)) * time.Hour)

	return types.ContentResult{
		Outcome: types.OutcomeGranted,
		Allowed: true,
		Content: &types.AnnotatedContent{
			Content:               content,
			GroundedSummary:       e.cat.Ground(content.Summary),
			ReflectionPrompts:     gap.Prompts,
			ReflectionGapID:       gap.ID,
			MinimumReflectionDays: gap.MinimumDurationDays,
		},
		Detections: detections,
	}, nil
}

// mergeDetections folds fresh detections into history. An open detection of the same pattern
// absorbs the new one, keeping the higher severity, so severity never drops for a trigger.
func (e *Engine) mergeDetections(arch *types.IntegrationArchitecture, fresh []types.BypassingDetection) []types.BypassingDetection {
	out := make([]types.BypassingDetection, 0, len(fresh))
	for _, d := range fresh {
		idx := -1
		for i := len(arch.BypassingHistory) - 1; i >= 0; i-- {
			h := arch.BypassingHistory[i]
			if h.Pattern == d.Pattern && !h.Addressed {
				idx = i
				break
			}
		}
		if idx < 0 {
			arch.BypassingHistory = append(arch.BypassingHistory, d)
			out = append(out, d)
			continue
		}
		h := &arch.BypassingHistory[idx]
		if d.Severity.Rank() > h.Severity.Rank() {
			h.Severity = d.Severity
			h.RecommendedIntervention = d.RecommendedIntervention
		}
		h.TriggerEvents = append(h.TriggerEvents, d.TriggerEvents...)
		h.Occurrences = h.Weight() + 1
		out = append(out, *h)
	}
	return out
}

// checkGates unlocks every ready gate guarding content and reports the first one still
// locked, recording a bypass attempt against it.
func (e *Engine) checkGates(arch *types.IntegrationArchitecture, content types.ContentMetadata, now time.Time) (types.ContentResult, bool) {
	e.ensureDepthGate(arch, content, now)

	var blocker *types.IntegrationGate
	for i := range arch.IntegrationGates {
		g := &arch.IntegrationGates[i]
		if g.ContentID != content.ID || g.Unlocked {
			continue
		}
		if e.gateReady(arch, g, now) {
			e.gates.Unlock(g, now)
			continue
		}
		if blocker == nil {
			blocker = g
		}
	}
	if blocker == nil {
		return types.ContentResult{}, false
	}

	gateID := blocker.ID
	res := types.ContentResult{
		Outcome:          types.OutcomeGated,
		GateID:           &gateID,
		OpenRequirements: blocker.OpenRequirements(),
	}
	if blocker.Type == types.GateSpiralDepth {
		deepest := spiral.DeepestByTheme(arch.SpiralProgress)[blocker.Theme]
		res.Message = fmt.Sprintf("Return to %s before this content: depth %.1f of %.1f reached.",
			strings.ReplaceAll(blocker.Theme, "_", " "), deepest, blocker.RequiredDepth)
		return res, true
	}

	gap := arch.GapByID(blocker.ReflectionGapID)
	if gap == nil {
		res.Message = "This content is waiting on integration work."
		return res, true
	}
	resp := e.gates.RecordBypassAttempt(gap)
	res.BypassAttempt = resp.Attempt
	res.Message = resp.Message
	if resp.Attempt >= referralThreshold(arch) {
		arch.ProfessionalSupportRecommended = true
		gapID := gap.ID
		res.Reviews = append(res.Reviews, types.ReviewRequest{
			UserID:          arch.UserID,
			ReflectionGapID: &gapID,
			BypassAttempts:  resp.Attempt,
			Reason:          types.ReviewReasonRepeatedBypass,
			RequestedAt:     now,
		})
		e.log.Warn("professional support review requested",
			"user_id", arch.UserID,
			"reflection_gap_id", gap.ID,
			"bypass_attempts", resp.Attempt,
		)
	}
	return res, true
}

func (e *Engine) ensureDepthGate(arch *types.IntegrationArchitecture, content types.ContentMetadata, now time.Time) {
	if content.RequiredDepth <= 0 {
		return
	}
	for _, g := range arch.IntegrationGates {
		if g.ContentID == content.ID && g.Type == types.GateSpiralDepth {
			return
		}
	}
	arch.IntegrationGates = append(arch.IntegrationGates, e.gates.NewDepthGate(content.ID, content.Theme, content.RequiredDepth, now))
}

func (e *Engine) gateReady(arch *types.IntegrationArchitecture, g *types.IntegrationGate, now time.Time) bool {
	if g.Type == types.GateSpiralDepth {
		return e.gates.CheckDepthReadiness(*g, arch.SpiralProgress)
	}
	return e.gates.CheckReadiness(*g, arch.GapByID(g.ReflectionGapID), now).Ready
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
