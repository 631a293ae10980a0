// Package embodied scores free-text integration submissions with keyword and length heuristics.
package embodied

import (
	"strings"

	"github.com/yungbote/integration-engine/internal/domain/integration"
)

type Result struct {
	Accepted    bool     `json:"accepted"`
	Strengths   []string `json:"strengths"`
	GrowthEdges []string `json:"growth_edges"`
}

// check is one heuristic: when ok holds the strength is reported, otherwise the growth edge.
type check struct {
	ok         bool
	strength   string
	growthEdge string
}

// judge accepts when satisfied checks meet or exceed unsatisfied ones.
func judge(checks []check) Result {
	r := Result{Strengths: []string{}, GrowthEdges: []string{}}
	for _, c := range checks {
		if c.ok {
			r.Strengths = append(r.Strengths, c.strength)
		} else {
			r.GrowthEdges = append(r.GrowthEdges, c.growthEdge)
		}
	}
	r.Accepted = len(r.Strengths) >= len(r.GrowthEdges)
	return r
}

var (
	actionWords      = []string{"i did", "i said", "i chose", "i tried", "i asked", "i stopped", "i started", "i told", "i decided", "i let"}
	specificWords    = []string{"yesterday", "today", "this morning", "last night", "last week", "on monday", "at work", "at home", "when my", "with my"}
	dailyWords       = []string{"daily", "routine", "consistent", "every", "each day", "habit"}
	observationVerbs = []string{"noticed", "felt", "observed", "sensed", "saw", "heard"}
	difficultyWords  = []string{"hard", "difficult", "struggle", "pain", "afraid", "scared", "angry", "fail", "mess", "stuck", "lost"}
	learningWords    = []string{"learned", "realized", "understand", "taught me", "now i", "next time", "discovered"}
	abstractWords    = []string{"universe", "cosmic", "transcend", "enlighten", "vibration", "divine", "oneness", "awaken"}
	presenceWords    = []string{"noticed", "present", "attention", "aware", "breath", "paused", "slowed", "listened"}
	ordinaryWords    = []string{"dishes", "laundry", "cooking", "walking", "commute", "coffee", "shower", "cleaning", "grocer", "waiting", "driving", "tea"}
)

func hasAny(text string, words []string) bool {
	t := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

func longer(text string, n int) bool {
	return len([]rune(strings.TrimSpace(text))) > n
}

func atLeast(text string, n int) bool {
	return len([]rune(strings.TrimSpace(text))) >= n
}

func ValidateLivedExperience(s integration.LivedExperienceSubmission) Result {
	return judge([]check{
		{
			ok:         longer(s.Situation, 40) && hasAny(s.Situation, specificWords),
			strength:   "You described a specific real situation.",
			growthEdge: "Describe a specific situation: when it happened and who was there.",
		},
		{
			ok:         longer(s.Action, 20) && hasAny(s.Action, actionWords),
			strength:   "You named a concrete action you took.",
			growthEdge: "Say what you actually did, in first person.",
		},
		{
			ok:         longer(s.Outcome, 20),
			strength:   "You reflected on what happened as a result.",
			growthEdge: "Describe what happened after you acted, including anything unexpected.",
		},
		{
			ok:         strings.TrimSpace(s.Insight) != "" && !hasAny(s.Insight+" "+s.Action, abstractWords),
			strength:   "Your insight stays grounded in everyday language.",
			growthEdge: "Translate the insight into plain language about your day rather than abstract ideas.",
		},
	})
}

func ValidateBodyIntegration(s integration.BodyIntegrationSubmission) Result {
	return judge([]check{
		{
			ok:         longer(s.SomaticAwareness, 50),
			strength:   "You described what is happening in your body in detail.",
			growthEdge: "Spend more time describing physical sensations: where, how strong, how they change.",
		},
		{
			ok:         hasAny(s.DailyApplication, dailyWords),
			strength:   "You connected this to a daily routine.",
			growthEdge: "Link the practice to something you do every day.",
		},
		{
			ok:         hasAny(s.Evidence, observationVerbs),
			strength:   "You grounded your evidence in direct observation.",
			growthEdge: "Share what you noticed or felt, not just what you think.",
		},
		{
			ok:         atLeast(s.DailyApplication, 30),
			strength:   "You gave a clear picture of how you apply this.",
			growthEdge: "Describe your daily application in a little more detail.",
		},
	})
}

func ValidateStruggleWisdom(s integration.StruggleWisdomSubmission) Result {
	return judge([]check{
		{
			ok:         longer(s.Struggle, 30),
			strength:   "You named the struggle honestly.",
			growthEdge: "Name the struggle more fully; it is welcome here.",
		},
		{
			ok:         hasAny(s.Struggle+" "+s.WhatHappened, difficultyWords),
			strength:   "You let the difficulty be real instead of smoothing it over.",
			growthEdge: "Let yourself say what was hard about it.",
		},
		{
			ok:         longer(s.WhatHappened, 40),
			strength:   "You described how the struggle actually unfolded.",
			growthEdge: "Walk through what happened, step by step.",
		},
		{
			ok:         longer(s.WhatLearned, 20) && hasAny(s.WhatLearned, learningWords),
			strength:   "You drew a lesson from the experience.",
			growthEdge: "Describe what you learned or would try next time.",
		},
	})
}

func ValidateOrdinaryMoment(s integration.OrdinaryMomentSubmission) Result {
	return judge([]check{
		{
			ok:         longer(s.Moment, 30),
			strength:   "You described the moment clearly.",
			growthEdge: "Describe the moment in a bit more detail.",
		},
		{
			ok:         hasAny(s.Moment, ordinaryWords),
			strength:   "You found meaning in an everyday activity.",
			growthEdge: "Choose a truly ordinary activity such as washing dishes or a commute.",
		},
		{
			ok:         hasAny(s.Awareness, presenceWords),
			strength:   "You brought real presence to it.",
			growthEdge: "Describe what you noticed while paying attention.",
		},
		{
			ok:         !hasAny(s.Moment+" "+s.Awareness, abstractWords),
			strength:   "You let the ordinary stay ordinary.",
			growthEdge: "Stay with the ordinary details rather than reaching for the cosmic.",
		},
	})
}
