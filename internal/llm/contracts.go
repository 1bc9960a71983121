package llm

import "context"

// Tier selects between the cheaper default model and the stronger complex model.
type Tier string

const (
	TierDefault Tier = "default"
	TierComplex Tier = "complex"
)

// Request is one prompt sent to a model.
type Request struct {
	System    string
	Prompt    string
	Tier      Tier
	MaxTokens int
}

// Completer returns the raw text a provider produced for a request.
// Providers live in subpackages (openai, anthropic).
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Models maps tiers onto provider model names.
type Models struct {
	Default string
	Complex string
}

func (m Models) For(t Tier) string {
	if t == TierComplex && m.Complex != "" {
		return m.Complex
	}
	return m.Default
}
