package shopify

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/wisy/internal/catalog"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

type Product struct {
	ID       int64     `mapstructure:"id"`
	Title    string    `mapstructure:"title"`
	BodyHTML string    `mapstructure:"body_html"`
	Handle   string    `mapstructure:"handle"`
	Status   string    `mapstructure:"status"`
	Variants []Variant `mapstructure:"variants"`
}

type Variant struct {
	Title string `mapstructure:"title"`
	// Shopify sends prices as strings.
	Price float64 `mapstructure:"price"`
}

// Record is one treatment in the catalog file format.
type Record struct {
	Treatment   string         `json:"treatment"`
	Description string         `json:"description,omitempty"`
	Areas       []catalog.Area `json:"areas,omitempty"`
}

func decodeProducts(items []any) ([]Product, error) {
	products := make([]Product, 0, len(items))
	for i, item := range items {
		var p Product
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &p,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(item); err != nil {
			return nil, fmt.Errorf("decode product %d: %w", i, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// ToRecords maps products to catalog records, skipping untitled and archived ones.
func ToRecords(products []Product) []Record {
	records := make([]Record, 0, len(products))
	for _, p := range products {
		title := strings.TrimSpace(p.Title)
		if title == "" || strings.EqualFold(p.Status, "archived") {
			continue
		}

		record := Record{
			Treatment:   title,
			Description: StripHTML(p.BodyHTML),
		}
		for _, v := range p.Variants {
			record.Areas = append(record.Areas, catalog.Area{
				Name:  strings.TrimSpace(v.Title),
				Price: v.Price,
			})
		}
		records = append(records, record)
	}
	return records
}

// StripHTML turns a product description into plain text.
func StripHTML(s string) string {
	text := tagPattern.ReplaceAllString(s, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// Encode writes records as indented JSON.
func Encode(w io.Writer, records []Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(records)
}

// WriteFile replaces path atomically with the encoded records.
func WriteFile(path string, records []Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".treatments-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}

	if err := Encode(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("encode records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
