package matcher

import (
	"fmt"
	"regexp"

	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/textutil"
)

// SynonymRule maps condition phrases in a query to a treatment category.
// Both patterns run against normalized text.
type SynonymRule struct {
	Name     string
	Query    *regexp.Regexp
	Category *regexp.Regexp
}

// SynonymSpec is the configuration form of a SynonymRule.
type SynonymSpec struct {
	Name     string `mapstructure:"name"`
	Query    string `mapstructure:"query"`
	Category string `mapstructure:"category"`
}

// CompileSynonyms turns configured specs into rules, keeping their order.
func CompileSynonyms(specs []SynonymSpec) ([]SynonymRule, error) {
	rules := make([]SynonymRule, 0, len(specs))
	for i, spec := range specs {
		if spec.Query == "" || spec.Category == "" {
			return nil, fmt.Errorf("synonym %d (%s): query and category are required", i, spec.Name)
		}
		query, err := regexp.Compile(spec.Query)
		if err != nil {
			return nil, fmt.Errorf("synonym %d (%s) query: %w", i, spec.Name, err)
		}
		category, err := regexp.Compile(spec.Category)
		if err != nil {
			return nil, fmt.Errorf("synonym %d (%s) category: %w", i, spec.Name, err)
		}
		rules = append(rules, SynonymRule{Name: spec.Name, Query: query, Category: category})
	}
	return rules, nil
}

// DefaultSynonyms returns the built-in rules in priority order.
func DefaultSynonyms() []SynonymRule {
	return []SynonymRule{
		{
			Name:     "hair_removal",
			Query:    regexp.MustCompile(`haar|enthaar|epilier|rasier|\bwachs|\bwaxing|\bhair`),
			Category: regexp.MustCompile(`laser`),
		},
		{
			Name:     "blemishes",
			Query:    regexp.MustCompile(`akne|pickel|unreine|mitesser|pusteln|aknenarben|narben|poren|breakout|acne|blemish`),
			Category: regexp.MustCompile(`akne|acne|peel|needling|resurfacing`),
		},
		{
			Name:     "wrinkles",
			Query:    regexp.MustCompile(`falte|krahenfuss|zornesfalte|stirnfalte|wrinkle`),
			Category: regexp.MustCompile(`botox|botulinum|falten|filler|hyaluron`),
		},
		{
			Name:     "lips",
			Query:    regexp.MustCompile(`\blippen?\b|\blips?\b`),
			Category: regexp.MustCompile(`lippe|lip|hyaluron|filler`),
		},
		{
			Name:     "dry_skin",
			Query:    regexp.MustCompile(`trockene haut|feuchtigkeit|fahle haut|dry skin`),
			Category: regexp.MustCompile(`hydra|facial`),
		},
	}
}

// ResolveSynonym returns the first catalog entry whose name matches the
// category of the first applicable rule.
func (m *Matcher) ResolveSynonym(query string, entries []catalog.Entry) (*catalog.Entry, bool) {
	nq := textutil.Normalize(query)
	if nq == "" {
		return nil, false
	}

	for _, rule := range m.config.Synonyms {
		if rule.Query == nil || rule.Category == nil || !rule.Query.MatchString(nq) {
			continue
		}
		for i := range entries {
			if rule.Category.MatchString(textutil.Normalize(entries[i].Name)) {
				return &entries[i], true
			}
		}
	}

	return nil, false
}
