// Package intent detects what a customer wants to know from keyword patterns.
package intent

import (
	"regexp"

	"github.com/spigell/wisy/internal/textutil"
)

// Flag names one intent.
type Flag string

const (
	FlagPrice   Flag = "price"
	FlagExplain Flag = "explain"
	FlagGreet   Flag = "greet"
	FlagBooking Flag = "booking"
	FlagHours   Flag = "hours"
)

// Intent is a set of independent flags; a query may set several of them.
type Intent struct {
	Price   bool `json:"price"`
	Explain bool `json:"explain"`
	Greet   bool `json:"greet"`
	Booking bool `json:"booking"`
	Hours   bool `json:"hours"`
}

// Rule sets Flag when Pattern matches the normalized query.
type Rule struct {
	Flag    Flag
	Pattern *regexp.Regexp
}

var defaultRules = []Rule{
	{
		Flag:    FlagPrice,
		Pattern: regexp.MustCompile(`\b(preis\w*|kosten|kostet|koste|teuer|gunstig|euro|eur|angebot\w*|price\w*|cost\w*|how much)\b|\bwie ?viel\b`),
	},
	{
		Flag:    FlagExplain,
		Pattern: regexp.MustCompile(`\b(was ist|was sind|was macht|was bringt|wie funktioniert|wie lauft|wie wirkt|erklar\w*|ablauf|wirkung|info\w*|details?|what is|how does|explain)\b`),
	},
	{
		Flag:    FlagGreet,
		Pattern: regexp.MustCompile(`^(hallo|hallochen|hi|hey|moin|servus|gruss gott|gruezi|guten (morgen|tag|abend)|hello|good (morning|afternoon|evening))\b`),
	},
	{
		Flag:    FlagBooking,
		Pattern: regexp.MustCompile(`\b(termin\w*|buchen|buchung|gebucht|reservier\w*|vereinbar\w*|book\w*|appointment)\b`),
	},
	{
		Flag:    FlagHours,
		Pattern: regexp.MustCompile(`\b(offnungszeit\w*|geoffnet|offen|oeffnungszeit\w*|uhrzeit|wann (habt|haben|seid|sind) (ihr|sie)|opening hours|open)\b`),
	},
}

// DefaultRules returns a copy of the built-in rule table.
func DefaultRules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// Classify evaluates every default rule against query.
func Classify(query string) Intent {
	return ClassifyWith(query, defaultRules)
}

// ClassifyWith evaluates every rule against query. Rules never short-circuit each other.
func ClassifyWith(query string, rules []Rule) Intent {
	var result Intent

	nq := textutil.Normalize(query)
	if nq == "" {
		return result
	}

	for _, rule := range rules {
		if rule.Pattern == nil || !rule.Pattern.MatchString(nq) {
			continue
		}
		result.set(rule.Flag)
	}

	return result
}

func (i *Intent) set(flag Flag) {
	switch flag {
	case FlagPrice:
		i.Price = true
	case FlagExplain:
		i.Explain = true
	case FlagGreet:
		i.Greet = true
	case FlagBooking:
		i.Booking = true
	case FlagHours:
		i.Hours = true
	}
}

// Any reports whether at least one flag is set.
func (i Intent) Any() bool {
	return i.Price || i.Explain || i.Greet || i.Booking || i.Hours
}

// GreetingOnly reports a pure greeting without any question attached.
func (i Intent) GreetingOnly() bool {
	return i.Greet && !i.Price && !i.Explain && !i.Booking && !i.Hours
}

// Flags lists the set flags in a fixed order.
func (i Intent) Flags() []string {
	flags := make([]string, 0, 5)
	for _, f := range []struct {
		set  bool
		flag Flag
	}{
		{i.Price, FlagPrice},
		{i.Explain, FlagExplain},
		{i.Greet, FlagGreet},
		{i.Booking, FlagBooking},
		{i.Hours, FlagHours},
	} {
		if f.set {
			flags = append(flags, string(f.flag))
		}
	}
	return flags
}
