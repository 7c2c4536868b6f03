package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/ai"
	"github.com/spigell/wisy/internal/ai/gemini"
	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/link"
	"github.com/spigell/wisy/internal/logger"
	"github.com/spigell/wisy/internal/matcher"
	"github.com/spigell/wisy/internal/reply"
	"github.com/spigell/wisy/internal/responder"
	"github.com/spigell/wisy/internal/secrets"
)

// components is everything a command needs to answer messages.
type components struct {
	config    *Config
	logger    *zap.Logger
	links     *link.Normalizer
	loader    *catalog.Loader
	matcher   *matcher.Matcher
	responder *responder.Responder
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func loadConfig(l *zap.Logger) *Config {
	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		l.Fatal("config is required")
	}

	// secrets are tagged json:"-"
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return config
}

// setup wires the answering pipeline from config.
func setup(ctx context.Context, config *Config, l *zap.Logger) (*components, error) {
	links, err := link.New(config.Link)
	if err != nil {
		return nil, fmt.Errorf("link configuration: %w", err)
	}

	matcherConfig := config.Matcher.Config
	if err := matcherConfig.Validate(); err != nil {
		return nil, fmt.Errorf("matcher configuration: %w", err)
	}
	if len(config.Matcher.Rules) > 0 {
		rules, err := matcher.CompileSynonyms(config.Matcher.Rules)
		if err != nil {
			return nil, fmt.Errorf("matcher synonyms: %w", err)
		}
		matcherConfig.Synonyms = rules
	}
	m := matcher.New(matcherConfig, l.Named("matcher"))

	loader := catalog.NewLoader(catalog.NewFileSource(config.CatalogFile), l.Named("catalog"))

	generator, err := newGenerator(ctx, config.AI, l.Named("ai"))
	if err != nil {
		l.Warn("answering without a language model", zap.Error(err))
	}

	deps := responder.Deps{
		Catalog:  loader,
		Matcher:  m,
		Composer: reply.NewComposer(config.Reply, links),
		Links:    links,
		Logger:   l.Named("responder"),
	}
	// A typed nil would look configured.
	if generator != nil {
		deps.Generator = generator
	}

	r, err := responder.New(config.Responder, deps)
	if err != nil {
		return nil, err
	}

	return &components{
		config:    config,
		logger:    l,
		links:     links,
		loader:    loader,
		matcher:   m,
		responder: r,
	}, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, l *zap.Logger) (*ai.Chain, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("ai is disabled")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil || len(cfg.Gemini.Models) == 0 {
		return nil, errors.New("at least one gemini model is required under ai.gemini.models")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	opts := gemini.Options{
		MaxRetries:      cfg.Gemini.MaxRetries,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		MaxLogLength:    cfg.Gemini.MaxLogLength,
	}

	generators := make([]ai.Generator, 0, len(cfg.Gemini.Models))
	for _, model := range cfg.Gemini.Models {
		g, err := gemini.NewGenerator(client, model, opts, l)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model, err)
		}
		generators = append(generators, g)
	}

	chain := ai.NewChain(l, generators...)
	l.Info("language model configured", zap.String("models", chain.Model()))

	return chain, nil
}
