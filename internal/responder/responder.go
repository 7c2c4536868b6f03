// Package responder answers one customer message: greeting, catalog match or
// generated text, always finished by the link normalizer.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/wisy/internal/ai"
	"github.com/spigell/wisy/internal/catalog"
	"github.com/spigell/wisy/internal/intent"
	"github.com/spigell/wisy/internal/link"
	"github.com/spigell/wisy/internal/logger"
	"github.com/spigell/wisy/internal/utils"
)

const (
	DefaultMaxMessageLength = 300
	DefaultTimeout          = 30 * time.Second
	DefaultGreeting         = "Hallo! Wie kann ich Ihnen heute weiterhelfen?"

	notUnderstood = "Entschuldigung, ich habe Sie nicht verstanden."
	fallbackReply = "Entschuldigung, es gab ein Problem. Bitte nutzen Sie unser %s."
)

// Source names the step that produced a reply.
type Source string

const (
	SourceGreeting  Source = "greeting"
	SourceCatalog   Source = "catalog"
	SourceGenerator Source = "generator"
	SourceFallback  Source = "fallback"
)

// Reply is the final answer for one message.
type Reply struct {
	ID        string        `json:"id"`
	Text      string        `json:"reply"`
	Source    Source        `json:"source"`
	Treatment string        `json:"treatment,omitempty"`
	Intent    intent.Intent `json:"intent"`
}

// Config tunes the responder.
type Config struct {
	MaxMessageLength int           `mapstructure:"max-message-length"`
	Greeting         string        `mapstructure:"greeting"`
	SystemPrompt     string        `mapstructure:"system-prompt"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = DefaultMaxMessageLength
	}
	if strings.TrimSpace(c.Greeting) == "" {
		c.Greeting = DefaultGreeting
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Request carries one message through the steps.
type Request struct {
	Query   string
	Intent  intent.Intent
	History []ai.Message
	Catalog []catalog.Entry

	// Treatment is set by the step that answered from the catalog.
	Treatment string
}

// Deps aggregates what the steps need.
type Deps struct {
	Catalog   *catalog.Loader
	Matcher   TreatmentFinder
	Composer  Composer
	Generator ai.Generator
	Links     *link.Normalizer
	Logger    *zap.Logger
}

// TreatmentFinder picks the catalog entry a query refers to.
type TreatmentFinder interface {
	FindTreatment(query string, entries []catalog.Entry) (*catalog.Entry, bool)
}

// Composer renders a matched entry.
type Composer interface {
	Compose(entry *catalog.Entry, in intent.Intent) string
}

// Responder runs the steps in order. The first step producing text wins.
type Responder struct {
	cfg    Config
	deps   Deps
	steps  []Step
	newID  func() string
	logger *zap.Logger
}

// New builds a Responder with the default steps.
func New(cfg Config, deps Deps) (*Responder, error) {
	if deps.Links == nil {
		return nil, errors.New("link normalizer is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	cfg = cfg.withDefaults()

	r := &Responder{
		cfg:    cfg,
		deps:   deps,
		newID:  uuid.NewString,
		logger: deps.Logger,
	}
	r.steps = []Step{
		NewGreeting(cfg.Greeting),
		NewCatalogMatch(deps.Matcher, deps.Composer),
		NewGenerate(deps.Generator, renderPrompt(cfg.SystemPrompt, deps.Links)),
	}

	if deps.Matcher == nil || deps.Composer == nil {
		DisableByName(r.steps, catalogStepName, "matcher is not configured")
	}
	if deps.Generator == nil {
		DisableByName(r.steps, generateStepName, "generator is not configured")
	}

	return r, nil
}

// Steps exposes the configured steps.
func (r *Responder) Steps() []Step {
	return r.steps
}

// Respond answers message. It never fails: every problem ends in a fallback reply.
func (r *Responder) Respond(ctx context.Context, message string, history ...ai.Message) Reply {
	query := utils.Clip(strings.TrimSpace(message), r.cfg.MaxMessageLength)

	req := &Request{
		Query:   query,
		Intent:  intent.Classify(query),
		History: history,
	}
	id := r.newID()
	log := r.logger.With(zap.String(logger.FieldRequestID, id))

	log.Debug("message received",
		zap.String("query", utils.TruncateForLog(query, 120)),
		zap.Strings("intent", req.Intent.Flags()),
	)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	text, source := r.run(ctx, log, req)

	reply := Reply{
		ID:        id,
		Text:      r.deps.Links.Normalize(text),
		Source:    source,
		Treatment: req.Treatment,
		Intent:    req.Intent,
	}

	logger.WithFields(r.logger, logger.ReplyFields(reply.ID, string(reply.Source), reply.Treatment)...).
		Info("message answered", zap.Int("reply_length", len([]rune(reply.Text))))

	return reply
}

func (r *Responder) run(ctx context.Context, log *zap.Logger, req *Request) (string, Source) {
	for _, step := range r.steps {
		if !step.IsEnabled() {
			continue
		}

		if step.NeedsCatalog() && req.Catalog == nil {
			req.Catalog = r.deps.Catalog.LoadOrEmpty(ctx)
		}

		text, ok, err := step.Apply(ctx, req)
		if err != nil {
			if errors.Is(err, ai.ErrEmptyResponse) {
				log.Warn("generator returned no text", zap.String("step", step.Name()), zap.Error(err))
				return notUnderstood, step.Source()
			}
			log.Error("answering failed, sending fallback", zap.String("step", step.Name()), zap.Error(err))
			return r.fallback(), SourceFallback
		}
		if ok {
			log.Debug("step answered", zap.String("step", step.Name()))
			return text, step.Source()
		}
	}

	log.Warn("no step answered, sending fallback")
	return r.fallback(), SourceFallback
}

func (r *Responder) fallback() string {
	return fmt.Sprintf(fallbackReply, r.deps.Links.Canonical())
}
