package responder

import (
	"context"
	"strconv"
	"strings"

	"github.com/spigell/wisy/internal/ai"
	"github.com/spigell/wisy/internal/link"
)

const (
	greetingStepName = "greeting"
	catalogStepName  = "catalog"
	generateStepName = "generate"
)

// Step is one way of answering a message.
type Step interface {
	Name() string
	Source() Source
	Disable(reason string)
	IsEnabled() bool
	NeedsCatalog() bool

	// Apply returns ok=false when the step has nothing to say.
	Apply(ctx context.Context, req *Request) (text string, ok bool, err error)
}

// Status represents runtime information about a step.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// DisableByName marks the step with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Step, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided steps.
func Describe(steps []Step) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type greetingStep struct {
	toggle
	text string
}

// NewGreeting answers messages that only greet.
func NewGreeting(text string) Step {
	return &greetingStep{text: text}
}

func (s *greetingStep) Name() string       { return greetingStepName }
func (s *greetingStep) Source() Source     { return SourceGreeting }
func (s *greetingStep) NeedsCatalog() bool { return false }

func (s *greetingStep) Apply(_ context.Context, req *Request) (string, bool, error) {
	if !req.Intent.GreetingOnly() {
		return "", false, nil
	}
	return s.text, true, nil
}

type catalogStep struct {
	toggle
	finder   TreatmentFinder
	composer Composer
}

// NewCatalogMatch answers from the catalog entry the query refers to.
func NewCatalogMatch(finder TreatmentFinder, composer Composer) Step {
	return &catalogStep{finder: finder, composer: composer}
}

func (s *catalogStep) Name() string       { return catalogStepName }
func (s *catalogStep) Source() Source     { return SourceCatalog }
func (s *catalogStep) NeedsCatalog() bool { return true }

func (s *catalogStep) Apply(_ context.Context, req *Request) (string, bool, error) {
	entry, ok := s.finder.FindTreatment(req.Query, req.Catalog)
	if !ok {
		return "", false, nil
	}
	req.Treatment = entry.Name
	return s.composer.Compose(entry, req.Intent), true, nil
}

func (s *catalogStep) Status() Status {
	return Status{Name: s.Name(), Enabled: s.IsEnabled(), Reason: s.reason}
}

type generateStep struct {
	toggle
	generator ai.Generator
	prompt    string
}

// NewGenerate asks the language model when nothing else answered.
func NewGenerate(generator ai.Generator, systemPrompt string) Step {
	return &generateStep{generator: generator, prompt: systemPrompt}
}

func (s *generateStep) Name() string       { return generateStepName }
func (s *generateStep) Source() Source     { return SourceGenerator }
func (s *generateStep) NeedsCatalog() bool { return false }

func (s *generateStep) Apply(ctx context.Context, req *Request) (string, bool, error) {
	conversation := make([]ai.Message, 0, len(req.History)+2)
	conversation = append(conversation, ai.Message{Role: ai.RoleSystem, Content: s.prompt})
	for _, msg := range req.History {
		if msg.Role == ai.RoleSystem {
			continue
		}
		conversation = append(conversation, msg)
	}
	conversation = append(conversation, ai.Message{Role: ai.RoleUser, Content: req.Query})

	text, err := s.generator.Generate(ctx, conversation)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (s *generateStep) Status() Status {
	details := map[string]string{
		"prompt_length": strconv.Itoa(len([]rune(s.prompt))),
	}
	if s.generator != nil {
		details["models"] = s.generator.Model()
	}
	return Status{Name: s.Name(), Enabled: s.IsEnabled(), Reason: s.reason, Details: details}
}

const contactPlaceholder = "{{contact}}"

// DefaultSystemPrompt is sent to the model. {{contact}} becomes the canonical contact link.
const DefaultSystemPrompt = `Du bist Wisy, der Assistent eines Kosmetikstudios für ästhetische Behandlungen.
Antworte immer freundlich, professionell und in maximal 3 Sätzen.
Wenn keine Behandlung passt, lade höflich ein, unser {{contact}} zu nutzen.
Gib keine Telefonnummer und keine E-Mail-Adresse an.`

func renderPrompt(prompt string, links *link.Normalizer) string {
	return strings.ReplaceAll(prompt, contactPlaceholder, links.Canonical())
}
