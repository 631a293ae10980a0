// Package spiral tracks repeated visits to developmental themes and how deep each visit goes.
package spiral

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/yungbote/integration-engine/internal/domain/integration"
)

var ErrUnknownTheme = errors.New("unknown spiral theme")

const (
	maxDepth          = 10.0
	bonusStep         = 0.5
	applicationsBonus = 3

	intenseVisits = 8
	pacingWindow  = 30 * 24 * time.Hour
)

// Themes is the fixed theme vocabulary.
var Themes = []string{
	"boundaries_and_authenticity",
	"self_worth",
	"emotional_regulation",
	"relationships_and_intimacy",
	"purpose_and_calling",
	"shadow_integration",
	"body_and_embodiment",
	"power_and_agency",
}

var longTermPhrases = []string{
	"over time", "long term", "long-term", "years", "slowly", "gradually", "patience", "lifelong", "season",
}

var humilityPhrases = []string{
	"still learning", "i don't know", "not sure", "still working", "ongoing", "humbl", "beginner", "practice",
}

var processPhrases = []string{
	"learning", "noticing", "practicing", "working on", "becoming", "process", "growing", "trying",
}

// lifeAreas maps a life area to the words that place an application in it.
var lifeAreas = map[string][]string{
	"work":          {"work", "job", "boss", "colleague", "coworker", "meeting", "career", "office"},
	"family":        {"mother", "father", "mom", "dad", "sister", "brother", "family", "parent", "child", "kids"},
	"relationships": {"partner", "friend", "relationship", "date", "spouse", "wife", "husband"},
	"body":          {"body", "exercise", "sleep", "breath", "walk", "eat", "yoga", "health"},
	"self":          {"journal", "alone", "myself", "meditat", "morning", "evening", "routine"},
	"community":     {"community", "neighbor", "volunteer", "group", "team", "class"},
}

func KnownTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

type Tracker struct {
	newID func() uuid.UUID
}

func NewTracker() *Tracker {
	return &Tracker{newID: uuid.New}
}

type VisitInput struct {
	Theme        string
	Insight      string
	Applications []string
	Struggles    []string
}

// RecordVisit computes the next point for a theme. The caller appends it to history; history
// itself is never rewritten.
func (t *Tracker) RecordVisit(history []integration.SpiralProgressPoint, in VisitInput, now time.Time) (integration.SpiralProgressPoint, error) {
	theme := strings.TrimSpace(in.Theme)
	if !KnownTheme(theme) {
		return integration.SpiralProgressPoint{}, fmt.Errorf("%w: %q", ErrUnknownTheme, in.Theme)
	}

	var prior []time.Time
	previousDepth := 0.0
	for _, p := range history {
		if p.Theme != theme {
			continue
		}
		prior = append(prior, p.VisitDate)
		if p.Depth > previousDepth {
			previousDepth = p.Depth
		}
	}

	apps := cleanList(in.Applications)
	struggles := cleanList(in.Struggles)
	depth := math.Max(previousDepth, visitDepth(len(prior), in.Insight, apps))

	return integration.SpiralProgressPoint{
		ID:                   t.newID(),
		Theme:                theme,
		Depth:                depth,
		Phase:                PhaseForDepth(depth),
		VisitDate:            now,
		PreviousVisits:       prior,
		IntegrationQuality:   IntegrationQuality(apps, struggles),
		RealWorldApplication: apps,
		Struggles:            struggles,
	}, nil
}

func visitDepth(priorVisits int, insight string, apps []string) float64 {
	depth := float64(priorVisits + 1)
	if len(apps) >= applicationsBonus {
		depth += bonusStep
	}
	text := strings.ToLower(insight)
	if containsAny(text, longTermPhrases) {
		depth += bonusStep
	}
	if containsAny(text, humilityPhrases) {
		depth += bonusStep
	}
	return math.Min(maxDepth, depth)
}

// PhaseForDepth maps the integer part of depth onto a phase.
func PhaseForDepth(depth float64) integration.Phase {
	switch d := int(math.Floor(depth)); {
	case d <= 1:
		return integration.PhaseFoundation
	case d <= 3:
		return integration.PhaseExploration
	case d <= 5:
		return integration.PhaseIntegration
	case d <= 7:
		return integration.PhaseDeepening
	case d == 8:
		return integration.PhaseService
	default:
		return integration.PhaseMaintenance
	}
}

// IntegrationQuality blends application quality, struggle honesty and cross-reference depth
// into a 0-10 score.
func IntegrationQuality(apps, struggles []string) float64 {
	q := 0.4*applicationQuality(apps) + 0.3*struggleHonesty(struggles) + 0.3*crossReference(apps, struggles)
	return math.Round(math.Min(10, q)*100) / 100
}

func applicationQuality(apps []string) float64 {
	if len(apps) == 0 {
		return 0
	}
	quantity := math.Min(float64(len(apps)), 5) / 5 * 4

	specific := 0
	for _, a := range apps {
		if len([]rune(a)) >= 40 {
			specific++
		}
	}
	specificity := float64(specific) / float64(len(apps)) * 3

	areas := map[string]bool{}
	for _, a := range apps {
		text := strings.ToLower(a)
		for area, words := range lifeAreas {
			if containsAny(text, words) {
				areas[area] = true
			}
		}
	}
	diversity := math.Min(float64(len(areas)), 3)

	return quantity + specificity + diversity
}

func struggleHonesty(struggles []string) float64 {
	if len(struggles) == 0 {
		return 0
	}
	count := math.Min(float64(len(struggles)), 3) / 3 * 5
	total := 0
	for _, s := range struggles {
		total += len([]rune(s))
	}
	avg := float64(total) / float64(len(struggles))
	depth := math.Min(avg/60, 1) * 5
	return count + depth
}

func crossReference(apps, struggles []string) float64 {
	score := 0.0
	appWords := significantWords(apps)
	shared := 0
	for w := range significantWords(struggles) {
		if appWords[w] {
			shared++
		}
	}
	score += math.Min(float64(shared), 3) / 3 * 6

	all := strings.ToLower(strings.Join(append(append([]string{}, apps...), struggles...), " "))
	if containsAny(all, processPhrases) {
		score += 4
	}
	return score
}

func significantWords(texts []string) map[string]bool {
	out := map[string]bool{}
	for _, t := range texts {
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r)
		}) {
			if len([]rune(w)) >= 5 {
				out[w] = true
			}
		}
	}
	return out
}

type Validation struct {
	IsHealthy bool     `json:"is_healthy"`
	Insights  []string `json:"insights"`
	Concerns  []string `json:"concerns"`
}

// ValidateProgress checks revisiting, depth progression and pacing across the whole history.
func (t *Tracker) ValidateProgress(history []integration.SpiralProgressPoint, now time.Time) Validation {
	v := Validation{Insights: []string{}, Concerns: []string{}}
	if len(history) == 0 {
		v.IsHealthy = true
		return v
	}

	visits := map[string]int{}
	for _, p := range history {
		visits[p.Theme]++
	}
	revisited := []string{}
	for theme, n := range visits {
		if n >= 3 {
			revisited = append(revisited, theme)
		}
	}
	sort.Strings(revisited)
	for _, theme := range revisited {
		v.Insights = append(v.Insights, fmt.Sprintf("You keep returning to %s; revisiting is how depth grows.", humanTheme(theme)))
	}

	ordered := append([]integration.SpiralProgressPoint(nil), history...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].VisitDate.Before(ordered[j].VisitDate) })
	if n := len(ordered); n >= 6 {
		recent := averageDepth(ordered[n-3:])
		before := averageDepth(ordered[n-6 : n-3])
		if recent >= before {
			v.Insights = append(v.Insights, "Your recent visits are going at least as deep as the ones before.")
		} else {
			v.Concerns = append(v.Concerns, "Your recent visits are shallower than earlier ones; consider slowing down.")
		}
	}

	inWindow := 0
	for _, p := range history {
		if age := now.Sub(p.VisitDate); age >= 0 && age <= pacingWindow {
			inWindow++
		}
	}
	switch {
	case inWindow > intenseVisits:
		v.Concerns = append(v.Concerns, fmt.Sprintf("%d visits in the last 30 days is intense; leave room for integration.", inWindow))
	case inWindow == 0:
		v.Concerns = append(v.Concerns, "No visits in the last 30 days; a gentle return could help.")
	default:
		v.Insights = append(v.Insights, "Your pacing over the last 30 days is balanced.")
	}

	v.IsHealthy = len(v.Concerns) <= len(v.Insights)
	return v
}

func averageDepth(points []integration.SpiralProgressPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Depth
	}
	return sum / float64(len(points))
}

// DeepestByTheme returns the maximum depth recorded for each theme.
func DeepestByTheme(history []integration.SpiralProgressPoint) map[string]float64 {
	out := map[string]float64{}
	for _, p := range history {
		if p.Depth > out[p.Theme] {
			out[p.Theme] = p.Depth
		}
	}
	return out
}

func humanTheme(theme string) string {
	return strings.ReplaceAll(theme, "_", " ")
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
