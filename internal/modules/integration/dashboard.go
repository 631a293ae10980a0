package integration

import (
	"fmt"
	"sort"
	"strings"
	"time"

	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/spiral"
)

const (
	maxNextActions     = 3
	consistencyWindow  = 7
	consistencyMinDays = 3
	celebratedDepth    = 4.0
)

// GenerateDashboard is read-only over the architecture.
func (e *Engine) GenerateDashboard(arch *types.IntegrationArchitecture, now time.Time) (types.Dashboard, error) {
	if arch == nil {
		return types.Dashboard{}, validationf("architecture is required")
	}
	d := types.Dashboard{
		CurrentStage:                   arch.CurrentStage,
		GatesTotal:                     len(arch.IntegrationGates),
		UnaddressedDetections:          arch.UnaddressedDetections(),
		Celebrations:                   []string{},
		NextMandatoryIntegration:       arch.NextMandatoryIntegration,
		ProfessionalSupportRecommended: arch.ProfessionalSupportRecommended,
	}
	for _, g := range arch.IntegrationGates {
		if g.Unlocked {
			d.GatesUnlocked++
		}
	}
	if d.GatesTotal > 0 {
		d.GateUnlockRatio = float64(d.GatesUnlocked) / float64(d.GatesTotal)
	}

	v := e.spiral.ValidateProgress(arch.SpiralProgress, now)
	d.SpiralHealthy = v.IsHealthy
	d.SpiralInsights = v.Insights
	d.SpiralConcerns = v.Concerns

	d.Celebrations = celebrations(arch, now)
	d.NextActions = e.nextActions(arch, now)
	return d, nil
}

func celebrations(arch *types.IntegrationArchitecture, now time.Time) []string {
	out := []string{}
	today := now.UTC().Truncate(24 * time.Hour)
	recent := 0
	for _, day := range arch.EmbodiedWisdom.PracticeDays {
		if age := today.Sub(day); age >= 0 && age < consistencyWindow*24*time.Hour {
			recent++
		}
	}
	if recent >= consistencyMinDays {
		out = append(out, fmt.Sprintf("You practiced on %d of the last %d days.", recent, consistencyWindow))
	}
	if n := len(arch.EmbodiedWisdom.Submissions); n > 0 {
		out = append(out, fmt.Sprintf("%d embodied reflections accepted so far.", n))
	}
	unlocked := 0
	for _, g := range arch.IntegrationGates {
		if g.Unlocked {
			unlocked++
		}
	}
	if unlocked > 0 {
		out = append(out, fmt.Sprintf("You opened %d gate(s) through integration work.", unlocked))
	}
	deepest := spiral.DeepestByTheme(arch.SpiralProgress)
	themes := make([]string, 0, len(deepest))
	for theme, depth := range deepest {
		if depth >= celebratedDepth {
			themes = append(themes, theme)
		}
	}
	sort.Strings(themes)
	for _, theme := range themes {
		out = append(out, fmt.Sprintf("You have reached depth %.1f with %s.", deepest[theme], humanize(theme)))
	}
	return out
}

// nextActions lists growth edges, then active detections, then integration opportunities,
// capped at three. Two default prompts are used when nothing applies.
func (e *Engine) nextActions(arch *types.IntegrationArchitecture, now time.Time) []string {
	out := []string{}
	add := func(s string) bool {
		if len(out) >= maxNextActions {
			return false
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		return len(out) < maxNextActions
	}

	for _, edge := range arch.EmbodiedWisdom.PendingGrowthEdges {
		if !add(edge) {
			return out
		}
	}
	for _, det := range arch.UnaddressedDetections() {
		if !add(det.RecommendedIntervention) {
			return out
		}
	}
	for _, op := range e.opportunities(arch, now) {
		if !add(op) {
			return out
		}
	}
	if len(out) == 0 {
		defaults := e.cat.DefaultNextActions()
		if len(defaults) > 2 {
			defaults = defaults[:2]
		}
		return defaults
	}
	return out
}

func (e *Engine) opportunities(arch *types.IntegrationArchitecture, now time.Time) []string {
	out := []string{}
	for i := len(arch.ReflectionGaps) - 1; i >= 0; i-- {
		gap := arch.ReflectionGaps[i]
		if gap.Status == types.GapCompleted {
			continue
		}
		validated := 0
		for _, ev := range gap.Evidence {
			if ev.Validated {
				validated++
			}
		}
		if validated < 3 {
			out = append(out, fmt.Sprintf("Add real-world evidence for %s (%d of 3 validated).", gap.ContentID, validated))
		}
	}
	for _, g := range arch.IntegrationGates {
		if g.Unlocked || g.Type == types.GateSpiralDepth {
			continue
		}
		if open := g.OpenRequirements(); len(open) > 0 {
			out = append(out, fmt.Sprintf("%s (unlocks %s)", open[0].Description, g.ContentID))
		}
	}
	if !arch.NextMandatoryIntegration.IsZero() && !now.Before(arch.NextMandatoryIntegration) {
		out = append(out, "Your scheduled integration check is due. Revisit a theme on your spiral.")
	}
	return out
}

func humanize(theme string) string {
	return strings.ReplaceAll(theme, "_", " ")
}
