// Package pipeline extracts order records from order texts: customer first, then
// the remaining fields concurrently, then validation and partitioning.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/extract"
	"github.com/joseph-ayodele/orders-intake/internal/orders"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

// Config holds the concurrency limits.
type Config struct {
	OrderConcurrency int // default 4
	FieldConcurrency int // default 5
}

type Orchestrator struct {
	Logger  *slog.Logger
	Cfg     Config
	Extract *extract.Extractors
	Now     func() time.Time
}

func NewOrchestrator(logger *slog.Logger, cfg Config, ex *extract.Extractors) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OrderConcurrency <= 0 {
		cfg.OrderConcurrency = 4
	}
	if cfg.FieldConcurrency <= 0 {
		cfg.FieldConcurrency = 5
	}
	return &Orchestrator{Logger: logger, Cfg: cfg, Extract: ex, Now: time.Now}
}

// OrderOutcome is one order text split into valid and invalid records.
type OrderOutcome struct {
	Succeeded []entity.OrderRecord
	Failed    []entity.OrderRecord
}

// fields collects the concurrent extractor results for one order. Each
// extractor writes only its own pair.
type fields struct {
	sku      extract.SKUResult
	skuErr   error
	refs     []*string
	refErr   error
	valves   []constants.Valve
	valveErr error
	addr     extract.AddressResult
	addrErr  error
	cpsd     extract.CPSDResult
	cpsdErr  error
	opts     extract.OptionsResult
	optsErr  error
}

// ExtractOrder runs every extractor for one order text. It never returns an
// error: failures are recorded on the records. When customer resolution cannot
// reach the model the order becomes a single wholly failed record and the other
// fields are not extracted.
func (o *Orchestrator) ExtractOrder(ctx context.Context, entry entity.Entry, b *reference.Bundle, orderNo int) OrderOutcome {
	ctx = common.WithEntryID(ctx, entry.EntryID)
	start := time.Now()
	o.Logger.Info("pipeline.order.start", "order_no", orderNo, "entry_id", entry.EntryID, "text_len", len(entry.RawText))

	cust, err := o.Extract.Customer(ctx, entry, b)
	switch {
	case errors.Is(err, common.ErrExternalCall):
		o.Logger.Error("pipeline.order.customer_failed", "order_no", orderNo, "entry_id", entry.EntryID, "err", err)
		f := callFailure("customer_id", "customer", err)
		f.Reason = "customer resolution unavailable"
		return partition([]entity.OrderRecord{placeholder(entry, orderNo, f)})
	case err != nil:
		// the order goes on with an unresolved customer
		f := callFailure("customer_id", "customer", err)
		f.Reason = "customer could not be identified"
		cust = extract.CustomerResult{Failure: &f}
		o.Logger.Warn("pipeline.order.customer_unreadable", "order_no", orderNo, "entry_id", entry.EntryID, "err", err)
	case cust.Failure != nil:
		o.Logger.Warn("pipeline.order.customer_unmatched", "order_no", orderNo, "entry_id", entry.EntryID, "reason", cust.Failure.Reason)
	}

	f := o.extractFields(ctx, entry, cust, b)
	catalog := b.Catalog(o.Extract.Thresholds().Catalog, o.Extract.Overrides())
	records := merge(entry, orderNo, cust, f, catalog)

	out := partition(records)
	o.Logger.Info("pipeline.order.done",
		"order_no", orderNo,
		"entry_id", entry.EntryID,
		"customer_id", cust.ID,
		"customer_via", cust.Via,
		"succeeded", len(out.Succeeded),
		"failed", len(out.Failed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (o *Orchestrator) extractFields(ctx context.Context, entry entity.Entry, cust extract.CustomerResult, b *reference.Bundle) *fields {
	f := &fields{}
	var g errgroup.Group
	g.SetLimit(o.Cfg.FieldConcurrency)

	// every task returns nil so one failure never cancels its siblings
	g.Go(guard(&f.skuErr, func() { f.sku, f.skuErr = o.Extract.SKU(ctx, entry, b) }))
	g.Go(guard(&f.refErr, func() { f.refs, f.refErr = o.Extract.Reference(ctx, entry, cust) }))
	g.Go(guard(&f.valveErr, func() { f.valves, f.valveErr = o.Extract.Valves(ctx, entry) }))
	g.Go(guard(&f.addrErr, func() { f.addr, f.addrErr = o.Extract.Address(ctx, entry, cust, b) }))
	g.Go(guard(&f.cpsdErr, func() { f.cpsd, f.cpsdErr = o.Extract.CPSD(ctx, entry, o.Now()) }))
	g.Go(guard(&f.optsErr, func() { f.opts, f.optsErr = o.Extract.Options(ctx, entry, b) }))
	_ = g.Wait()

	for _, fe := range []struct {
		subagent string
		err      error
	}{
		{"sku", f.skuErr}, {"reference", f.refErr}, {"valve", f.valveErr},
		{"address", f.addrErr}, {"cpsd", f.cpsdErr}, {"options", f.optsErr},
	} {
		if fe.err != nil {
			o.Logger.Warn("pipeline.field.failed", "entry_id", entry.EntryID, "subagent", fe.subagent, "err", fe.err)
		}
	}
	return f
}

// guard turns a panic in fn into an error stored in errp.
func guard(errp *error, fn func()) func() error {
	return func() error {
		defer func() {
			if p := recover(); p != nil {
				*errp = fmt.Errorf("panic: %v", p)
			}
		}()
		fn()
		return nil
	}
}

func partition(records []entity.OrderRecord) OrderOutcome {
	valid, invalid := orders.Partition(records)
	return OrderOutcome{Succeeded: valid, Failed: invalid}
}

// placeholder is the single record standing in for an order that produced no lines.
func placeholder(entry entity.Entry, orderNo int, failures ...entity.FailureContext) entity.OrderRecord {
	r := entity.OrderRecord{
		OrderNo: orderNo,
		LineNo:  1,
		Valve:   constants.ValveNone,
		EntryID: entry.EntryID,
	}
	for _, f := range failures {
		r.Failures = append(r.Failures, locate(f, r))
	}
	return r
}

// callFailure records an extractor that returned an error instead of a result.
func callFailure(field, subagent string, err error) entity.FailureContext {
	kind := entity.FailureException
	switch {
	case errors.Is(err, common.ErrExternalCall):
		kind = entity.FailureExternalCall
	case errors.Is(err, common.ErrInvalidFieldFormat):
		kind = entity.FailureInvalidFieldFormat
	}
	return entity.FailureContext{
		Kind:     kind,
		Field:    field,
		Subagent: subagent,
		Message:  fmt.Sprintf("%s extraction failed: %v", subagent, err),
	}
}

func locate(f entity.FailureContext, r entity.OrderRecord) entity.FailureContext {
	f.OrderNo, f.LineNo, f.EntryID = r.OrderNo, r.LineNo, r.EntryID
	return f
}
