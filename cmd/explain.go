package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/intent"
	"github.com/spigell/wisy/internal/matcher"
)

const explainTop = 5

// writeExplanation prints how the matcher sees question.
func writeExplanation(w io.Writer, question string, in intent.Intent, m *matcher.Matcher, entries []catalog.Entry) {
	flags := in.Flags()
	if len(flags) == 0 {
		flags = []string{"none"}
	}
	fmt.Fprintf(w, "intent: %s\n", strings.Join(flags, ", "))

	if entry, ok := m.ResolveSynonym(question, entries); ok {
		fmt.Fprintf(w, "synonym: %s\n", entry.Name)
	}

	candidates := m.Rank(question, entries)
	if len(candidates) > explainTop {
		candidates = candidates[:explainTop]
	}
	threshold := m.Config().Threshold
	for _, c := range candidates {
		marker := " "
		if c.Score >= threshold {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %3d  %s\n", marker, c.Score, c.Entry.Name)
	}
	fmt.Fprintln(w)
}
