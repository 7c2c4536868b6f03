// Package catalog loads the clinic's treatment catalog.
package catalog

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Entry is one sellable treatment.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Price is a display string. Empty means the price is given on request.
	Price    string `json:"price,omitempty"`
	Link     string `json:"link,omitempty"`
	Areas    []Area `json:"areas,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Area is a priced variant of a treatment, e.g. a body area for laser hair removal.
type Area struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// LinkOr returns the entry link or fallback when the entry has none.
func (e *Entry) LinkOr(fallback string) string {
	if e == nil || strings.TrimSpace(e.Link) == "" {
		return fallback
	}
	return strings.TrimSpace(e.Link)
}

// Source provides the current catalog.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Loader wraps a Source and never fails: load errors degrade to an empty catalog.
type Loader struct {
	source Source
	logger *zap.Logger
}

func NewLoader(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, logger: logger}
}

// LoadOrEmpty returns the catalog, or an empty catalog if it cannot be loaded.
func (l *Loader) LoadOrEmpty(ctx context.Context) []Entry {
	if l == nil || l.source == nil {
		return []Entry{}
	}

	entries, err := l.source.Load(ctx)
	if errors.Is(err, ErrSkippedRecords) {
		l.logger.Warn("catalog loaded with skipped records", zap.Int("entries", len(entries)), zap.Error(err))
		return entries
	}
	if err != nil {
		l.logger.Warn("loading catalog failed, continuing with empty catalog", zap.Error(err))
		return []Entry{}
	}

	l.logger.Debug("catalog loaded", zap.Int("entries", len(entries)))
	return entries
}

// Names returns the treatment names in catalog order.
func Names(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

// FormatPrice renders an amount in euro the way the clinic writes prices, e.g. "90 €" or "89,50 €".
func FormatPrice(amount float64) string {
	if amount == math.Trunc(amount) {
		return strconv.FormatFloat(amount, 'f', 0, 64) + " €"
	}
	return strings.Replace(strconv.FormatFloat(amount, 'f', 2, 64), ".", ",", 1) + " €"
}

func priceFromAreas(areas []Area) string {
	lowest := math.Inf(1)
	for _, a := range areas {
		if a.Price > 0 && a.Price < lowest {
			lowest = a.Price
		}
	}
	if math.IsInf(lowest, 1) {
		return ""
	}
	if len(areas) == 1 {
		return FormatPrice(lowest)
	}
	return "ab " + FormatPrice(lowest)
}
