package core

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/events"
	"github.com/joseph-ayodele/orders-intake/internal/export"
	"github.com/joseph-ayodele/orders-intake/internal/extract"
	"github.com/joseph-ayodele/orders-intake/internal/llm/provider"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
	"github.com/joseph-ayodele/orders-intake/internal/pipeline"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
	"github.com/joseph-ayodele/orders-intake/internal/repository"
	"github.com/joseph-ayodele/orders-intake/internal/review"
)

// Deps is everything a binary needs to drive jobs.
type Deps struct {
	Processor  *Processor
	Exporter   *export.Service
	Publisher  events.Publisher
	References *repository.ReferenceRepository
}

// Close releases the event publisher.
func (d *Deps) Close() error {
	return d.Publisher.Close()
}

// Wire builds the processor stack from configuration over an open database.
func Wire(cfg *common.Config, db *repository.DB, logger *slog.Logger) (*Deps, error) {
	if logger == nil {
		logger = slog.Default()
	}
	caller, err := provider.NewCaller(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	prompts, err := extract.DefaultPrompts()
	if err != nil {
		return nil, err
	}
	overrides, err := matching.LoadOverrides(cfg.Pipeline.OverridesFile)
	if err != nil {
		return nil, fmt.Errorf("overrides: %w", err)
	}
	ex := extract.New(caller, prompts, extract.Thresholds{
		Customer: cfg.Pipeline.CustomerThreshold,
		Address:  cfg.Pipeline.AddressThreshold,
		Catalog:  cfg.Pipeline.CatalogThreshold,
	}, overrides, logger)
	orch := pipeline.NewOrchestrator(logger, pipeline.Config{
		OrderConcurrency: cfg.Pipeline.OrderConcurrency,
		FieldConcurrency: cfg.Pipeline.FieldConcurrency,
	}, ex)

	refs := repository.NewReferenceRepository(db, logger)
	loader := reference.NewCachedLoader(refs, cfg.Reference.CacheTTL,
		reference.WithRetry(cfg.Reference.MaxAttempts, cfg.Reference.RetryInterval),
		reference.WithLogger(logger),
	)
	orders := repository.NewOrderRepository(db, logger)
	pub := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)

	proc := NewProcessor(logger,
		db,
		repository.NewJobRepository(db, logger),
		orders,
		loader,
		orch,
		review.NewGate(repository.NewReviewStore(db, logger), logger),
		pub,
	)
	return &Deps{
		Processor:  proc,
		Exporter:   export.NewService(orders, logger),
		Publisher:  pub,
		References: refs,
	}, nil
}
