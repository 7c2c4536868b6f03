package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/intent"
	"github.com/spigell/wisy/internal/link"
	"github.com/spigell/wisy/internal/matcher"
	"github.com/spigell/wisy/internal/responder"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treatments.json")
	data := `[
  {"treatment": "Laser Haarentfernung", "areas": [{"name": "Achseln", "price": 89}, {"name": "Beine", "price": 199}]},
  {"name": "Hydrafacial", "preis": "90 €", "beschreibung": "Tiefenreinigung mit Feuchtigkeit."}
]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestSetupWithoutLanguageModel(t *testing.T) {
	t.Parallel()

	config := &Config{
		CatalogFile: writeCatalog(t),
		Link:        link.Config{URL: "https://example.com/contact"},
		AI:          &AIConfig{Enabled: false},
	}

	c, err := setup(context.Background(), config, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := c.responder.Respond(context.Background(), "Was kostet Hydrafacial?")
	if got.Source != responder.SourceCatalog || got.Treatment != "Hydrafacial" {
		t.Fatalf("unexpected reply: %+v", got)
	}

	got = c.responder.Respond(context.Background(), "Haben Sie am Samstag geöffnet?")
	if got.Source != responder.SourceFallback {
		t.Fatalf("expected fallback without a language model, got %+v", got)
	}
	if !strings.Contains(got.Text, "[Kontaktformular](https://example.com/contact)") {
		t.Fatalf("expected contact link in fallback: %q", got.Text)
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *Config
	}{
		{name: "missing contact url", config: &Config{}},
		{
			name: "broken synonym",
			config: &Config{
				Link:    link.Config{URL: "https://example.com/contact"},
				Matcher: MatcherConfig{Rules: []matcher.SynonymSpec{{Name: "x", Query: "(", Category: "y"}}},
			},
		},
		{
			name: "negative threshold",
			config: &Config{
				Link:    link.Config{URL: "https://example.com/contact"},
				Matcher: MatcherConfig{Config: matcher.Config{Threshold: -1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := setup(context.Background(), tt.config, zap.NewNop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *AIConfig
	}{
		{name: "nil", cfg: nil},
		{name: "disabled", cfg: &AIConfig{Enabled: false}},
		{name: "unknown provider", cfg: &AIConfig{Enabled: true, Provider: "other", Gemini: &GeminiConfig{Models: []string{"m"}}}},
		{name: "no models", cfg: &AIConfig{Enabled: true, Gemini: &GeminiConfig{}}},
		{name: "no key", cfg: &AIConfig{Enabled: true, Gemini: &GeminiConfig{Models: []string{"m"}}}},
	}

	t.Setenv("GEMINI_API_KEY", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newGenerator(context.Background(), tt.cfg, zap.NewNop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWriteExplanation(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{{Name: "Botox"}, {Name: "Hydrafacial"}}
	m := matcher.New(matcher.DefaultConfig(), nil)

	var buf bytes.Buffer
	question := "was kostet hydrafacial"
	writeExplanation(&buf, question, intent.Classify(question), m, entries)

	out := buf.String()
	if !strings.HasPrefix(out, "intent: price\n") {
		t.Fatalf("unexpected intent line: %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected intent and two candidates, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "*") || !strings.HasSuffix(lines[1], "Hydrafacial") {
		t.Fatalf("expected Hydrafacial above threshold first, got %q", lines[1])
	}
	if strings.HasPrefix(lines[2], "*") {
		t.Fatalf("expected Botox below threshold, got %q", lines[2])
	}
}
