// Package extract turns order text into field values: one small extractor per
// field, each sending a prompt through the shared llm.Caller and post-processing
// the reply against the reference bundle.
package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
)

// Thresholds are the per-field acceptance thresholds.
type Thresholds struct {
	Customer float64
	Address  float64
	Catalog  float64
}

// DefaultThresholds are used when a field threshold is left at zero.
var DefaultThresholds = Thresholds{Customer: 0.60, Address: 0.80, Catalog: 0.60}

// Extractors bundles every field extractor over one caller.
type Extractors struct {
	caller     *llm.Caller
	prompts    *Prompts
	thresholds Thresholds
	overrides  *matching.Overrides
	logger     *slog.Logger
}

func New(caller *llm.Caller, prompts *Prompts, thresholds Thresholds, overrides *matching.Overrides, logger *slog.Logger) *Extractors {
	if logger == nil {
		logger = slog.Default()
	}
	if thresholds.Customer <= 0 {
		thresholds.Customer = DefaultThresholds.Customer
	}
	if thresholds.Address <= 0 {
		thresholds.Address = DefaultThresholds.Address
	}
	if thresholds.Catalog <= 0 {
		thresholds.Catalog = DefaultThresholds.Catalog
	}
	if overrides == nil {
		overrides = matching.DefaultOverrides()
	}
	return &Extractors{
		caller:     caller,
		prompts:    prompts,
		thresholds: thresholds,
		overrides:  overrides,
		logger:     logger,
	}
}

func (e *Extractors) Thresholds() Thresholds { return e.thresholds }

func (e *Extractors) Overrides() *matching.Overrides { return e.overrides }

// call renders the named prompt and decodes the reply into out.
func (e *Extractors) call(ctx context.Context, name string, data any, schema map[string]any, out any) error {
	req, err := e.prompts.Render(name, data)
	if err != nil {
		return err
	}
	return e.caller.CallJSON(ctx, req, schema, out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
