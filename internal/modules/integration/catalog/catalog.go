// Package catalog holds the static pattern and content-safety registry used by the
// integration engine. The data ships embedded and may be overridden by a YAML file.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

const catalogEnv = "INTEGRATION_CATALOG_YAML"

//go:embed catalog.yaml
var catalogFS embed.FS

type yamlCatalog struct {
	Catalog               string                         `yaml:"catalog"`
	Version               int                            `yaml:"version"`
	Patterns              map[string]yamlPattern         `yaml:"patterns"`
	FlaggedPhrases        []yamlPhrase                   `yaml:"flagged_phrases"`
	AlternativeActivities []string                       `yaml:"alternative_activities"`
	ReflectionPrompts     map[string][]string            `yaml:"reflection_prompts"`
	Requirements          map[string]yamlRequirementSpec `yaml:"requirements"`
	BypassMessages        []string                       `yaml:"bypass_messages"`
	DefaultNextActions    []string                       `yaml:"default_next_actions"`
}

type yamlPattern struct {
	Name          string   `yaml:"name"`
	Indicators    []string `yaml:"indicators"`
	Interventions []string `yaml:"interventions"`
}

type yamlPhrase struct {
	Phrase      string `yaml:"phrase"`
	Replacement string `yaml:"replacement"`
}

type yamlRequirementSpec struct {
	Description        string   `yaml:"description"`
	ValidationCriteria []string `yaml:"validation_criteria"`
	CompletionPrompts  []string `yaml:"completion_prompts"`
}

type PatternDefinition struct {
	Key           integration.Pattern
	Name          string
	Indicators    []string
	Interventions []string
}

type RequirementTemplate struct {
	Description        string
	ValidationCriteria []string
	CompletionPrompts  []string
}

type PhraseMatch struct {
	Phrase      string
	Replacement string
}

type phraseRule struct {
	PhraseMatch
	re *regexp.Regexp
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	version        int
	patterns       map[integration.Pattern]PatternDefinition
	phrases        []phraseRule
	alternatives   []string
	prompts        map[integration.ContentCategory][]string
	requirements   map[integration.RequirementType]RequirementTemplate
	bypassMessages []string
	defaultActions []string
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the process-wide catalog. An override that fails to load or validate is
// logged and the embedded data is used instead.
func Default(log *logger.Logger) *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			if log != nil {
				log.Warn("integration catalog: override load failed; using embedded", "error", err)
			}
			c = MustEmbedded()
		}
		defaultCat = c
	})
	return defaultCat
}

// Load reads the override named by INTEGRATION_CATALOG_YAML, or the embedded catalog.
func Load() (*Catalog, error) {
	data, err := readCatalog()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func MustEmbedded() *Catalog {
	data, err := catalogFS.ReadFile("catalog.yaml")
	if err != nil {
		panic(err)
	}
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

func readCatalog() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(catalogEnv)); path != "" {
		return os.ReadFile(path)
	}
	return catalogFS.ReadFile("catalog.yaml")
}

func Parse(data []byte) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := validateCatalog(&doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		version:        doc.Version,
		patterns:       make(map[integration.Pattern]PatternDefinition, len(doc.Patterns)),
		alternatives:   cleanStrings(doc.AlternativeActivities),
		prompts:        map[integration.ContentCategory][]string{},
		requirements:   map[integration.RequirementType]RequirementTemplate{},
		bypassMessages: cleanStrings(doc.BypassMessages),
		defaultActions: cleanStrings(doc.DefaultNextActions),
	}
	for key, p := range doc.Patterns {
		k := integration.Pattern(strings.TrimSpace(key))
		c.patterns[k] = PatternDefinition{
			Key:           k,
			Name:          strings.TrimSpace(p.Name),
			Indicators:    cleanStrings(p.Indicators),
			Interventions: cleanStrings(p.Interventions),
		}
	}
	for _, ph := range doc.FlaggedPhrases {
		phrase := strings.ToLower(strings.TrimSpace(ph.Phrase))
		c.phrases = append(c.phrases, phraseRule{
			PhraseMatch: PhraseMatch{Phrase: phrase, Replacement: strings.TrimSpace(ph.Replacement)},
			re:          regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase)),
		})
	}
	// Longest first so overlapping phrases ground the most specific wording.
	sort.SliceStable(c.phrases, func(i, j int) bool {
		return len(c.phrases[i].Phrase) > len(c.phrases[j].Phrase)
	})
	for cat, prompts := range doc.ReflectionPrompts {
		c.prompts[integration.ContentCategory(strings.TrimSpace(cat))] = cleanStrings(prompts)
	}
	for typ, r := range doc.Requirements {
		c.requirements[integration.RequirementType(strings.TrimSpace(typ))] = RequirementTemplate{
			Description:        strings.TrimSpace(r.Description),
			ValidationCriteria: cleanStrings(r.ValidationCriteria),
			CompletionPrompts:  cleanStrings(r.CompletionPrompts),
		}
	}
	return c, nil
}

func validateCatalog(doc *yamlCatalog) error {
	if doc == nil {
		return errors.New("missing catalog")
	}
	if strings.TrimSpace(doc.Catalog) != "integration" {
		return fmt.Errorf("unexpected catalog: %s", doc.Catalog)
	}
	for _, p := range integration.AllPatterns {
		def, ok := doc.Patterns[string(p)]
		if !ok {
			return fmt.Errorf("pattern %s: missing", p)
		}
		if len(cleanStrings(def.Interventions)) == 0 {
			return fmt.Errorf("pattern %s: at least one intervention is required", p)
		}
	}
	for key := range doc.Patterns {
		if !knownPattern(integration.Pattern(key)) {
			return fmt.Errorf("unknown pattern: %s", key)
		}
	}
	seen := map[string]bool{}
	for _, ph := range doc.FlaggedPhrases {
		phrase := strings.ToLower(strings.TrimSpace(ph.Phrase))
		if phrase == "" || strings.TrimSpace(ph.Replacement) == "" {
			return errors.New("flagged phrase and replacement are required")
		}
		if seen[phrase] {
			return fmt.Errorf("duplicate flagged phrase: %s", phrase)
		}
		seen[phrase] = true
	}
	for _, cat := range []integration.ContentCategory{
		integration.CategoryInsight, integration.CategoryPractice,
		integration.CategoryBreakthrough, integration.CategoryMajorRealization,
	} {
		if len(cleanStrings(doc.ReflectionPrompts[string(cat)])) == 0 {
			return fmt.Errorf("reflection prompts for %s: missing", cat)
		}
	}
	for _, typ := range []integration.RequirementType{
		integration.RequirementReflection, integration.RequirementApplication,
		integration.RequirementRealityCheck, integration.RequirementCommunityValidation,
	} {
		if strings.TrimSpace(doc.Requirements[string(typ)].Description) == "" {
			return fmt.Errorf("requirement %s: description missing", typ)
		}
	}
	if len(cleanStrings(doc.BypassMessages)) != 4 {
		return fmt.Errorf("bypass_messages: want 4 tiers, got %d", len(cleanStrings(doc.BypassMessages)))
	}
	if len(cleanStrings(doc.AlternativeActivities)) == 0 {
		return errors.New("alternative_activities: at least one is required")
	}
	if len(cleanStrings(doc.DefaultNextActions)) < 2 {
		return errors.New("default_next_actions: at least two are required")
	}
	return nil
}

func knownPattern(p integration.Pattern) bool {
	for _, k := range integration.AllPatterns {
		if k == p {
			return true
		}
	}
	return false
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Version() int { return c.version }

func (c *Catalog) Pattern(key integration.Pattern) (PatternDefinition, bool) {
	def, ok := c.patterns[key]
	return def, ok
}

// DefaultIntervention is the first listed intervention for the pattern.
func (c *Catalog) DefaultIntervention(key integration.Pattern) string {
	def, ok := c.patterns[key]
	if !ok || len(def.Interventions) == 0 {
		return ""
	}
	return def.Interventions[0]
}

// FlaggedPhrases returns each catalog phrase contained in text, case-insensitively.
func (c *Catalog) FlaggedPhrases(text string) []PhraseMatch {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []PhraseMatch
	for _, r := range c.phrases {
		if r.re.MatchString(text) {
			out = append(out, r.PhraseMatch)
		}
	}
	return out
}

// Ground rewrites every flagged phrase in text with its grounded replacement.
func (c *Catalog) Ground(text string) string {
	for _, r := range c.phrases {
		text = r.re.ReplaceAllLiteralString(text, r.Replacement)
	}
	return text
}

func (c *Catalog) AlternativeActivities() []string {
	return append([]string(nil), c.alternatives...)
}

func (c *Catalog) ReflectionPrompts(cat integration.ContentCategory) []string {
	if p, ok := c.prompts[cat]; ok {
		return append([]string(nil), p...)
	}
	return append([]string(nil), c.prompts[integration.CategoryInsight]...)
}

func (c *Catalog) Requirement(typ integration.RequirementType) (RequirementTemplate, bool) {
	r, ok := c.requirements[typ]
	return r, ok
}

// BypassMessage returns the canned message for the given 1-based attempt; attempts past the
// last tier reuse it.
func (c *Catalog) BypassMessage(attempt int) string {
	if len(c.bypassMessages) == 0 {
		return ""
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(c.bypassMessages) {
		attempt = len(c.bypassMessages)
	}
	return c.bypassMessages[attempt-1]
}

func (c *Catalog) DefaultNextActions() []string {
	return append([]string(nil), c.defaultActions...)
}
