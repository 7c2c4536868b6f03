package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrSkippedRecords is reported by Parse next to the entries it could decode.
var ErrSkippedRecords = errors.New("catalog records skipped")

// plainAmount is a bare number such as "90" or "89,50". Anything else, e.g.
// "1.200" or "ab 250 €", is already a display string.
var plainAmount = regexp.MustCompile(`^\d+([.,]\d{1,2})?$`)

// FileSource reads the catalog from a JSON file on every Load.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// record accepts both field spellings found in exported catalogs.
type record struct {
	Treatment    string `mapstructure:"treatment"`
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	Beschreibung string `mapstructure:"beschreibung"`
	Price        any    `mapstructure:"price"`
	Preis        any    `mapstructure:"preis"`
	URL          string `mapstructure:"url"`
	Link         string `mapstructure:"link"`
	Duration     string `mapstructure:"duration"`
	Dauer        string `mapstructure:"dauer"`
	Areas        []Area `mapstructure:"areas"`
}

func (s *FileSource) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, fmt.Errorf("catalog file is not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a JSON array of catalog records. Missing fields degrade to
// empty values; records without a name are skipped. Records that cannot be
// decoded are left out and reported in an error wrapping ErrSkippedRecords,
// returned together with the remaining entries.
func Parse(data []byte) ([]Entry, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	var skipped []error
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}

		entry, ok := rec.entry()
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	if len(skipped) > 0 {
		return entries, fmt.Errorf("%w: %w", ErrSkippedRecords, errors.Join(skipped...))
	}
	return entries, nil
}

func decodeRecord(item map[string]any) (record, error) {
	var rec record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return record{}, err
	}
	if err := decoder.Decode(lowerKeys(item)); err != nil {
		return record{}, err
	}
	return rec, nil
}

func (r record) entry() (Entry, bool) {
	name := firstNonEmpty(r.Treatment, r.Name)
	if name == "" {
		return Entry{}, false
	}

	price := firstNonEmpty(displayPrice(r.Price), displayPrice(r.Preis))
	if price == "" {
		price = priceFromAreas(r.Areas)
	}

	return Entry{
		Name:        name,
		Description: firstNonEmpty(r.Description, r.Beschreibung),
		Price:       price,
		Link:        firstNonEmpty(r.URL, r.Link),
		Areas:       r.Areas,
		Duration:    firstNonEmpty(r.Duration, r.Dauer),
	}, true
}

// displayPrice formats numbers and bare amounts in euro and passes any other
// price text through unchanged.
func displayPrice(v any) string {
	switch p := v.(type) {
	case nil:
		return ""
	case float64:
		return FormatPrice(p)
	case string:
		p = strings.TrimSpace(p)
		if !plainAmount.MatchString(p) {
			return p
		}
		amount, err := strconv.ParseFloat(strings.Replace(p, ",", ".", 1), 64)
		if err != nil {
			return p
		}
		return FormatPrice(amount)
	default:
		return strings.TrimSpace(fmt.Sprint(p))
	}
}

func lowerKeys(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		if v == nil {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
