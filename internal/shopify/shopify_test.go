package shopify

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/catalog"
)

const firstPage = `{"products":[
  {"id": 1, "title": "Laser Haarentfernung", "body_html": "<p>Dauerhaft <strong>glatte</strong> Haut &amp; mehr.</p>", "status": "active",
   "variants": [{"title": "Achseln", "price": "89.00"}, {"title": "Rücken", "price": "149.50"}]},
  {"id": 2, "title": "  ", "variants": []}
]}`

const secondPage = `{"products":[
  {"id": 3, "title": "Hydrafacial", "body_html": null, "variants": [{"title": "Default Title", "price": "90.00"}]},
  {"id": 4, "title": "Alt", "status": "archived", "variants": []}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := New("wisy-test", "", "shpat_test", zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.APIURL = ts.URL
	return client
}

func TestProductsFollowsPagination(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	var client *Client
	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()

		if got := r.Header.Get(tokenHeader); got != "shpat_test" {
			t.Errorf("expected access token header, got %q", got)
		}

		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", `<`+client.APIURL+`/products.json?limit=250&page_info=next1>; rel="next"`)
			_, _ = w.Write([]byte(firstPage))
			return
		}
		w.Header().Set("Link", `<`+client.APIURL+`/products.json?limit=250&page_info=prev>; rel="previous"`)
		_, _ = w.Write([]byte(secondPage))
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(products))
	}
	if len(seen) != 2 || seen[0] != "limit=250" {
		t.Fatalf("unexpected requests: %v", seen)
	}
	if products[0].Variants[1].Price != 149.5 {
		t.Fatalf("expected string price to be decoded, got %v", products[0].Variants[1].Price)
	}
}

func TestProductsGzip(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(secondPage))
		_ = gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	})

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 || products[0].Title != "Hydrafacial" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestProductsBadStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	if _, err := client.Products(context.Background()); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		shop    string
		token   string
		wantURL string
		wantErr bool
	}{
		{name: "plain shop", shop: "wisy", token: "t", wantURL: "https://wisy.myshopify.com/admin/api/" + DefaultAPIVersion},
		{name: "full domain", shop: "Wisy.myshopify.com", token: "t", wantURL: "https://wisy.myshopify.com/admin/api/" + DefaultAPIVersion},
		{name: "url injection", shop: "evil.com/x?", token: "t", wantErr: true},
		{name: "missing token", shop: "wisy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := New(tt.shop, "", tt.token, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.APIURL != tt.wantURL {
				t.Fatalf("expected %q, got %q", tt.wantURL, client.APIURL)
			}
		})
	}
}

func TestToRecords(t *testing.T) {
	t.Parallel()

	products := []Product{
		{Title: "Laser Haarentfernung", BodyHTML: "<p>Dauerhaft <b>glatt</b>.</p>", Variants: []Variant{{Title: "Achseln", Price: 89}}},
		{Title: ""},
		{Title: "Alt", Status: "ARCHIVED"},
	}

	records := ToRecords(products)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Description != "Dauerhaft glatt ." {
		t.Fatalf("unexpected description: %q", records[0].Description)
	}
	if len(records[0].Areas) != 1 || records[0].Areas[0] != (catalog.Area{Name: "Achseln", Price: 89}) {
		t.Fatalf("unexpected areas: %+v", records[0].Areas)
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{input: "", expect: ""},
		{input: "<p>Hallo</p>\n<p>Welt</p>", expect: "Hallo Welt"},
		{input: "Haut &amp; Haar", expect: "Haut & Haar"},
		{input: "<div class=\"x\"><br/>Text</div>", expect: "Text"},
	}

	for _, tt := range tests {
		if got := StripHTML(tt.input); got != tt.expect {
			t.Fatalf("StripHTML(%q): expected %q, got %q", tt.input, tt.expect, got)
		}
	}
}

func TestWriteFileIsReadableByCatalog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "treatments.json")
	records := []Record{
		{Treatment: "Laser Haarentfernung", Description: "Glatte Haut.", Areas: []catalog.Area{{Name: "Achseln", Price: 89}, {Name: "Rücken", Price: 149.5}}},
		{Treatment: "Hydrafacial", Areas: []catalog.Area{{Name: "Default Title", Price: 90}}},
	}

	if err := WriteFile(path, records); err != nil {
		t.Fatalf("write file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("written file is not json: %v", err)
	}

	entries, err := catalog.NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Price != "ab 89 €" || entries[1].Price != "90 €" {
		t.Fatalf("unexpected derived prices: %q, %q", entries[0].Price, entries[1].Price)
	}
}
