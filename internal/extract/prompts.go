package extract

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"

	"github.com/joseph-ayodele/orders-intake/internal/llm"
)

//go:embed prompts.toml
var defaultPrompts []byte

// Prompt is one extractor prompt as stored in prompts.toml.
type Prompt struct {
	Tier   string `toml:"tier"`
	System string `toml:"system"`
	User   string `toml:"user"`

	tmpl *template.Template
}

// Prompts holds the parsed templates by extractor name.
type Prompts struct {
	byName map[string]*Prompt
}

var required = []string{"customer", "sku", "reference", "valve", "address", "cpsd", "options"}

// DefaultPrompts parses the embedded prompts.toml.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPrompts)
}

// ParsePrompts parses a TOML prompt document. Every extractor must have a prompt.
func ParsePrompts(data []byte) (*Prompts, error) {
	var raw map[string]*Prompt
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	for _, name := range required {
		p, ok := raw[name]
		if !ok || strings.TrimSpace(p.User) == "" {
			return nil, fmt.Errorf("parse prompts: missing %q", name)
		}
		t, err := template.New(name).Option("missingkey=error").Parse(p.User)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", name, err)
		}
		p.tmpl = t
	}
	return &Prompts{byName: raw}, nil
}

// Render builds the request for the named prompt.
func (p *Prompts) Render(name string, data any) (llm.Request, error) {
	pr, ok := p.byName[name]
	if !ok || pr.tmpl == nil {
		return llm.Request{}, fmt.Errorf("unknown prompt %q", name)
	}
	var b strings.Builder
	if err := pr.tmpl.Execute(&b, data); err != nil {
		return llm.Request{}, fmt.Errorf("render prompt %q: %w", name, err)
	}
	tier := llm.TierDefault
	if pr.Tier == string(llm.TierComplex) {
		tier = llm.TierComplex
	}
	return llm.Request{
		System: pr.System,
		Prompt: strings.TrimSpace(b.String()),
		Tier:   tier,
	}, nil
}
