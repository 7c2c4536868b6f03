// Package link keeps the clinic's contact link in one fixed markdown form in
// outgoing replies, however the text generator wrote it.
package link

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultLabel        = "Kontaktformular"
	DefaultDetailsLabel = "Mehr Infos"
)

// Config describes the canonical reference link.
type Config struct {
	URL          string `mapstructure:"url"`
	Label        string `mapstructure:"label"`
	DetailsLabel string `mapstructure:"details-label"`
}

// Normalizer rewrites text so the canonical link appears at most once, as
// "[Label](URL)". It is immutable and safe for concurrent use.
type Normalizer struct {
	url          string
	label        string
	detailsLabel string
	canonical    string

	nested      *regexp.Regexp
	markdown    *regexp.Regexp
	anchor      *regexp.Regexp
	parenthesed *regexp.Regexp
	labelled    *regexp.Regexp
}

var (
	bareURLPattern = regexp.MustCompile(`https?://[^\s<>()\[\]"'` + "`" + `]+`)
	trailingPunct  = ".,;:!?"
)

func New(cfg Config) (*Normalizer, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, fmt.Errorf("canonical link url is required")
	}
	if !bareURLPattern.MatchString(url) || bareURLPattern.FindString(url) != url {
		return nil, fmt.Errorf("canonical link url %q is not an absolute http(s) url", cfg.URL)
	}

	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		label = DefaultLabel
	}
	if strings.ContainsAny(label, "[]()") {
		return nil, fmt.Errorf("link label %q must not contain brackets", label)
	}

	details := strings.TrimSpace(cfg.DetailsLabel)
	if details == "" {
		details = DefaultDetailsLabel
	}

	// u matches the url with an optional trailing slash.
	u := regexp.QuoteMeta(url) + `/?`
	l := regexp.QuoteMeta(label)
	canonical := "[" + label + "](" + url + ")"
	c := `\[` + l + `\]\(\s*` + u + `\s*\)`

	return &Normalizer{
		url:          url,
		label:        label,
		detailsLabel: details,
		canonical:    canonical,

		// [[Label](URL)](URL), [URL](URL) and [anything]([Label](URL))
		nested: regexp.MustCompile(
			`\[\s*` + c + `\s*\]\(\s*` + u + `\s*\)` +
				`|\[\s*` + u + `\s*\]\(\s*` + u + `\s*\)` +
				`|\[[^\[\]]*\]\(\s*` + c + `\s*\)`,
		),
		markdown:    regexp.MustCompile(`\[[^\[\]]*\]\(\s*` + u + `\s*\)`),
		anchor:      regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']?` + u + `(?:["'\s][^>]*)?>.*?</a>`),
		parenthesed: regexp.MustCompile(`\(\s*` + c + `\s*\)`),
		labelled:    regexp.MustCompile(`(?i)(?:\b|\[)` + l + `\]?\s*[:\-–]?\s*` + c),
	}, nil
}

// URL returns the canonical url.
func (n *Normalizer) URL() string {
	return n.url
}

// Canonical returns the canonical display form "[Label](URL)".
func (n *Normalizer) Canonical() string {
	return n.canonical
}

// Render returns the display form for target: the canonical form for the
// canonical url, a details link for any other url.
func (n *Normalizer) Render(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || n.isCanonical(target) {
		return n.canonical
	}
	return "[" + n.detailsLabel + "](" + target + ")"
}

// Normalize rewrites every form of the canonical link in text to the
// canonical form and keeps only its first occurrence. Text that does not
// mention the canonical url is returned unchanged.
//
// The rewrite passes run until the text stops changing, since a later pass
// can expose a match for an earlier one.
func (n *Normalizer) Normalize(text string) string {
	if text == "" || !strings.Contains(text, n.url) {
		return text
	}
	for {
		next := n.rewrite(text)
		if next == text {
			return text
		}
		text = next
	}
}

func (n *Normalizer) rewrite(text string) string {
	text = n.collapse(n.nested, text)
	text = n.anchor.ReplaceAllLiteralString(text, n.canonical)
	text = n.markdown.ReplaceAllLiteralString(text, n.canonical)
	text = n.wrapBare(text)
	text = n.collapse(n.parenthesed, text)
	text = n.collapse(n.labelled, text)

	return n.dedupe(text)
}

// collapse replaces matches of re with the canonical form until nothing
// changes, so replacements that create a new match are handled too. Every
// pattern passed here matches text longer than the canonical form.
func (n *Normalizer) collapse(re *regexp.Regexp, text string) string {
	for {
		next := re.ReplaceAllLiteralString(text, n.canonical)
		if next == text {
			return text
		}
		text = next
	}
}

// wrapBare wraps bare canonical urls outside of canonical links, leaving
// trailing punctuation after the link.
func (n *Normalizer) wrapBare(text string) string {
	segments := strings.Split(text, n.canonical)
	for i, segment := range segments {
		segments[i] = bareURLPattern.ReplaceAllStringFunc(segment, func(match string) string {
			trimmed := strings.TrimRight(match, trailingPunct)
			if !n.isCanonical(trimmed) {
				return match
			}
			return n.canonical + match[len(trimmed):]
		})
	}
	return strings.Join(segments, n.canonical)
}

// dedupe replaces every canonical link after the first with its plain label.
func (n *Normalizer) dedupe(text string) string {
	first := strings.Index(text, n.canonical)
	if first < 0 {
		return text
	}
	head := text[:first+len(n.canonical)]
	tail := strings.ReplaceAll(text[first+len(n.canonical):], n.canonical, n.label)
	return head + tail
}

func (n *Normalizer) isCanonical(target string) bool {
	return strings.TrimRight(target, "/") == n.url
}
