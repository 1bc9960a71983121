package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

// ExtractionProgressMax is the share of job progress owned by extraction;
// the rest belongs to review and persistence.
const ExtractionProgressMax = 80

// ProgressFunc receives extraction progress in [0, ExtractionProgressMax].
type ProgressFunc func(percent int, message string)

// BatchResult is every record of a batch, sorted by (order_no, line_no).
type BatchResult struct {
	Succeeded []entity.OrderRecord
	Failed    []entity.OrderRecord
}

// Failures returns the failure contexts of every failed record, in record order.
func (r BatchResult) Failures() []entity.FailureContext {
	var out []entity.FailureContext
	for _, rec := range r.Failed {
		out = append(out, rec.Failures...)
	}
	return out
}

// Run extracts every entry. Orders are numbered from 1 in input order and run
// in parallel up to OrderConcurrency. A panic while extracting one order is
// recorded as an exception failure on that order only.
func (o *Orchestrator) Run(ctx context.Context, entries []entity.Entry, b *reference.Bundle, progress ProgressFunc) BatchResult {
	if progress == nil {
		progress = func(int, string) {}
	}
	start := time.Now()
	total := len(entries)
	o.Logger.Info("pipeline.batch.start", "orders", total, "concurrency", o.Cfg.OrderConcurrency)
	progress(0, fmt.Sprintf("extracting %d orders", total))

	outcomes := make([]OrderOutcome, total)
	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(o.Cfg.OrderConcurrency)
	for i, entry := range entries {
		orderNo := i + 1
		g.Go(func() error {
			outcomes[i] = o.safeExtract(ctx, entry, b, orderNo)

			mu.Lock()
			done++
			progress(done*ExtractionProgressMax/total, fmt.Sprintf("extracted %d/%d orders", done, total))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if total == 0 {
		progress(ExtractionProgressMax, "no orders")
	}

	var res BatchResult
	for _, oc := range outcomes {
		res.Succeeded = append(res.Succeeded, oc.Succeeded...)
		res.Failed = append(res.Failed, oc.Failed...)
	}
	sortRecords(res.Succeeded)
	sortRecords(res.Failed)

	o.Logger.Info("pipeline.batch.done",
		"orders", total,
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (o *Orchestrator) safeExtract(ctx context.Context, entry entity.Entry, b *reference.Bundle, orderNo int) (out OrderOutcome) {
	defer func() {
		if p := recover(); p != nil {
			o.Logger.Error("pipeline.order.panic",
				"order_no", orderNo,
				"entry_id", entry.EntryID,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			out = exceptionOutcome(entry, orderNo, fmt.Sprintf("panic: %v", p))
		}
	}()
	if err := ctx.Err(); err != nil {
		return exceptionOutcome(entry, orderNo, err.Error())
	}
	return o.ExtractOrder(ctx, entry, b, orderNo)
}

func exceptionOutcome(entry entity.Entry, orderNo int, msg string) OrderOutcome {
	return partition([]entity.OrderRecord{placeholder(entry, orderNo, entity.FailureContext{
		Kind:    entity.FailureException,
		Message: msg,
	})})
}

func sortRecords(rs []entity.OrderRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].OrderNo != rs[j].OrderNo {
			return rs[i].OrderNo < rs[j].OrderNo
		}
		return rs[i].LineNo < rs[j].LineNo
	})
}
