// Package reply renders catalog matches as short customer-facing answers.
package reply

import (
	"strings"
	"unicode/utf8"

	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/intent"
	"github.com/spigell/wisy/internal/link"
)

const (
	DefaultMaxDescriptionLength = 240
	ellipsis                    = "…"
	priceOnRequest              = "auf Anfrage"
	bookingHint                 = "Einen Termin können Sie direkt über den Link anfragen."
)

// Config controls the reply shape.
type Config struct {
	MaxDescriptionLength int `mapstructure:"max-description-length"`
}

// Composer builds replies for matched treatments.
type Composer struct {
	maxDescription int
	links          *link.Normalizer
}

func NewComposer(cfg Config, links *link.Normalizer) *Composer {
	if cfg.MaxDescriptionLength <= 0 {
		cfg.MaxDescriptionLength = DefaultMaxDescriptionLength
	}
	return &Composer{maxDescription: cfg.MaxDescriptionLength, links: links}
}

// Compose renders entry for the detected intent, e.g.
// "Hydrafacial: Tiefenreinigung. Preis: 90 €. Mehr Infos hier: [Kontaktformular](…)".
func (c *Composer) Compose(entry *catalog.Entry, in intent.Intent) string {
	if entry == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(entry.Name))
	b.WriteString(":")

	priceOnly := in.Price && !in.Explain
	if !priceOnly {
		if excerpt := Excerpt(entry.Description, c.maxDescription); excerpt != "" {
			b.WriteString(" ")
			b.WriteString(excerpt)
		}
	}

	price := strings.TrimSpace(entry.Price)
	if price == "" && in.Price {
		price = priceOnRequest
	}
	if price != "" {
		b.WriteString(" Preis: ")
		b.WriteString(strings.TrimRight(price, "."))
		b.WriteString(".")
	}

	if in.Booking {
		b.WriteString(" ")
		b.WriteString(bookingHint)
	}

	if c.links != nil {
		target := entry.LinkOr(c.links.URL())
		if rendered := c.links.Render(target); rendered == c.links.Canonical() {
			b.WriteString(" Mehr Infos hier: ")
			b.WriteString(rendered)
		} else {
			b.WriteString(" ")
			b.WriteString(rendered)
		}
	}

	return b.String()
}

// Excerpt returns the first sentence of description, or at most limit runes
// followed by an ellipsis. The result always ends with punctuation.
func Excerpt(description string, limit int) string {
	text := strings.Join(strings.Fields(description), " ")
	if text == "" {
		return ""
	}

	if end := sentenceEnd(text); end > 0 && utf8.RuneCountInString(text[:end]) <= limit {
		return text[:end]
	}

	if utf8.RuneCountInString(text) <= limit {
		return terminate(text)
	}

	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:limit]), " ,;:-")
	if space := strings.LastIndex(cut, " "); space > len(cut)/2 {
		cut = strings.TrimRight(cut[:space], " ,;:-")
	}
	return cut + ellipsis
}

// sentenceEnd returns the byte offset just past the first sentence
// terminator that is followed by a space or the end of text.
func sentenceEnd(text string) int {
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next == len(text) || text[next] == ' ' {
			return next
		}
	}
	return -1
}

func terminate(text string) string {
	switch text[len(text)-1] {
	case '.', '!', '?':
		return text
	}
	if strings.HasSuffix(text, ellipsis) {
		return text
	}
	return text + "."
}
