// Package pacing decides whether enough time has passed since the last granted content.
package pacing

import (
	"fmt"
	"math"
	"time"

	"github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/modules/integration/catalog"
)

// policyHours is the minimum integration window per content category.
var policyHours = map[integration.ContentCategory]int{
	integration.CategoryInsight:          24,
	integration.CategoryPractice:         72,
	integration.CategoryBreakthrough:     168,
	integration.CategoryMajorRealization: 504,
}

// PolicyHours returns the integration window for a category, defaulting to insight.
func PolicyHours(cat integration.ContentCategory) int {
	if h, ok := policyHours[cat]; ok {
		return h
	}
	return policyHours[integration.CategoryInsight]
}

type Admission struct {
	Allowed               bool     `json:"allowed"`
	RequiredHours         int      `json:"required_hours"`
	ElapsedHours          float64  `json:"elapsed_hours"`
	WaitHoursRemaining    int      `json:"wait_hours_remaining,omitempty"`
	AlternativeActivities []string `json:"alternative_activities,omitempty"`
	Reason                string   `json:"reason,omitempty"`
}

type Gate struct {
	cat *catalog.Catalog
}

func NewGate(cat *catalog.Catalog) *Gate {
	return &Gate{cat: cat}
}

// RequiredHours is the wait that applies to content given the architecture's open detections.
func RequiredHours(arch *integration.IntegrationArchitecture, content integration.ContentMetadata) (int, string) {
	required, reason := 0, ""
	if arch != nil && arch.HasUnaddressed(integration.PatternInsightAddiction) {
		required, reason = PolicyHours(integration.CategoryInsight), "open insight_addiction detection"
	}
	cat := content.Category()
	if cat == integration.CategoryBreakthrough || content.Intensity == integration.IntensityHigh {
		if h := PolicyHours(integration.CategoryBreakthrough); h > required {
			required, reason = h, "high intensity content"
		}
	}
	if cat == integration.CategoryMajorRealization {
		if h := PolicyHours(integration.CategoryMajorRealization); h > required {
			required, reason = h, "major realization content"
		}
	}
	return required, reason
}

// CheckAdmission has no side effects; identical inputs give identical results.
func (g *Gate) CheckAdmission(arch *integration.IntegrationArchitecture, content integration.ContentMetadata, now time.Time) Admission {
	required, reason := RequiredHours(arch, content)
	if arch == nil || arch.LastIntegrationCheck.IsZero() || required == 0 {
		return Admission{Allowed: true, RequiredHours: required}
	}

	elapsed := now.Sub(arch.LastIntegrationCheck).Hours()
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= float64(required) {
		return Admission{Allowed: true, RequiredHours: required, ElapsedHours: elapsed}
	}

	remaining := int(math.Ceil(float64(required) - elapsed))
	return Admission{
		Allowed:               false,
		RequiredHours:         required,
		ElapsedHours:          elapsed,
		WaitHoursRemaining:    remaining,
		AlternativeActivities: g.cat.AlternativeActivities(),
		Reason:                fmt.Sprintf("%s requires %dh of integration", reason, required),
	}
}
