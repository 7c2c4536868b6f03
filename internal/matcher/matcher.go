// Package matcher finds the catalog treatment a customer query refers to.
package matcher

import (
	"sort"
	"strings"

	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/textutil"
	"go.uber.org/zap"
)

// Candidate is a scored catalog entry for one query.
type Candidate struct {
	Entry *catalog.Entry
	Score int
}

type Matcher struct {
	config Config
	logger *zap.Logger
}

// New creates a Matcher. Zero config values fall back to DefaultConfig.
func New(config Config, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{config: config.withDefaults(), logger: logger}
}

func (m *Matcher) Config() Config {
	return m.config
}

// Score rates how well entry's name matches query.
func (m *Matcher) Score(query string, entry *catalog.Entry) int {
	if entry == nil {
		return 0
	}
	return m.score(textutil.Normalize(query), textutil.Normalize(entry.Name))
}

func (m *Matcher) score(nq, name string) int {
	if nq == "" || name == "" {
		return 0
	}

	score := 0
	if strings.Contains(nq, name) || strings.Contains(name, nq) {
		score += m.config.ContainmentBonus
	}

	for _, token := range textutil.Tokenize(nq, m.config.MinTokenLength) {
		if strings.Contains(name, token) {
			score += m.config.TokenBonus
		}
	}

	if textutil.Distance(nq, name) <= m.config.MaxDistance {
		score += m.config.DistanceBonus
	}

	return score
}

// Rank scores every entry and returns them best first. Equal scores keep catalog order.
func (m *Matcher) Rank(query string, entries []catalog.Entry) []Candidate {
	nq := textutil.Normalize(query)
	candidates := make([]Candidate, 0, len(entries))
	for i := range entries {
		candidates = append(candidates, Candidate{
			Entry: &entries[i],
			Score: m.score(nq, textutil.Normalize(entries[i].Name)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// FindTreatment returns the treatment query refers to. Synonym matches are
// trusted as is; fuzzy matches must reach the configured threshold.
func (m *Matcher) FindTreatment(query string, entries []catalog.Entry) (*catalog.Entry, bool) {
	if textutil.Normalize(query) == "" || len(entries) == 0 {
		return nil, false
	}

	if entry, ok := m.ResolveSynonym(query, entries); ok {
		m.logger.Debug("treatment matched by synonym", zap.String("treatment", entry.Name))
		return entry, true
	}

	candidates := m.Rank(query, entries)
	top := candidates[0]
	if top.Score < m.config.Threshold {
		m.logger.Debug("no confident treatment match",
			zap.String("best", top.Entry.Name),
			zap.Int("score", top.Score),
			zap.Int("threshold", m.config.Threshold),
		)
		return nil, false
	}

	m.logger.Debug("treatment matched by score",
		zap.String("treatment", top.Entry.Name),
		zap.Int("score", top.Score),
	)
	return top.Entry, true
}
