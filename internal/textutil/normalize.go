// Package textutil holds the text primitives used for catalog matching:
// normalization, tokenization and edit distance.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinTokenLength is the shortest token kept by Tokens.
const DefaultMinTokenLength = 2

var dashReplacer = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
)

// stripMarks returns a fresh transformer; chained transformers keep state and
// must not be shared between goroutines.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize lowercases s, strips accents, unifies dashes and reduces the
// result to the alphabet [a-z0-9-+ ] with single spaces between words.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ß", "ss")

	stripped, _, err := transform.String(stripMarks(), s)
	if err == nil {
		s = stripped
	}

	s = dashReplacer.Replace(s)

	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '+':
			return r
		default:
			return ' '
		}
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Tokenize normalizes s and splits it into words of at least minLen runes.
func Tokenize(s string, minLen int) []string {
	normalized := Normalize(s)
	if normalized == "" {
		return []string{}
	}

	parts := strings.Split(normalized, " ")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if len([]rune(part)) < minLen {
			continue
		}
		tokens = append(tokens, part)
	}

	return tokens
}

// Tokens tokenizes s with DefaultMinTokenLength.
func Tokens(s string) []string {
	return Tokenize(s, DefaultMinTokenLength)
}
