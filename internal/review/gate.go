// Package review holds extracted batches until a reviewer approves or rejects them.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/orders"
)

// ErrAlreadyResolved is returned for any approve or reject after the first.
var ErrAlreadyResolved = fmt.Errorf("%w: review already resolved", common.ErrConflict)

// Batch is a set of records awaiting (or past) review.
type Batch struct {
	Handle     uuid.UUID
	State      constants.ReviewState
	Records    []entity.OrderRecord
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Store persists review batches. Resolve must be a conditional transition out of
// awaiting_review that returns ErrAlreadyResolved when the batch was already
// resolved; a nil records slice leaves the stored records unchanged.
type Store interface {
	Create(ctx context.Context, b Batch) error
	Get(ctx context.Context, handle uuid.UUID) (Batch, error)
	Resolve(ctx context.Context, handle uuid.UUID, state constants.ReviewState, records []entity.OrderRecord) error
}

// ApprovalResult splits an approved batch into records to commit and records to report.
type ApprovalResult struct {
	Valid   []entity.OrderRecord
	Invalid []entity.OrderRecord
}

type Gate struct {
	store  Store
	logger *slog.Logger
}

func NewGate(store Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// Submit stores records under a new handle.
func (g *Gate) Submit(ctx context.Context, records []entity.OrderRecord) (uuid.UUID, error) {
	h := uuid.New()
	return h, g.SubmitAs(ctx, h, records)
}

// SubmitAs stores records under a caller chosen handle, such as a job id.
func (g *Gate) SubmitAs(ctx context.Context, handle uuid.UUID, records []entity.OrderRecord) error {
	b := Batch{
		Handle:    handle,
		State:     constants.ReviewAwaiting,
		Records:   records,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.Create(ctx, b); err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	g.logger.Info("review.submitted", "handle", handle, "records", len(records))
	return nil
}

// Get returns the batch behind handle.
func (g *Gate) Get(ctx context.Context, handle uuid.UUID) (Batch, error) {
	return g.store.Get(ctx, handle)
}

// Approve applies edits, re-validates every record and resolves the batch as
// approved. Invalid records do not block the rest: they come back in Invalid.
// Edits replace the record with the same key wholesale; edits with an unknown
// key are appended.
func (g *Gate) Approve(ctx context.Context, handle uuid.UUID, edited []entity.OrderRecord) (ApprovalResult, error) {
	b, err := g.store.Get(ctx, handle)
	if err != nil {
		return ApprovalResult{}, err
	}
	if b.State != constants.ReviewAwaiting {
		return ApprovalResult{}, ErrAlreadyResolved
	}

	records := ApplyEdits(b.Records, edited)
	valid, invalid := orders.Partition(records)

	final := make([]entity.OrderRecord, 0, len(valid)+len(invalid))
	final = append(append(final, valid...), invalid...)
	if err := g.store.Resolve(ctx, handle, constants.ReviewApproved, final); err != nil {
		return ApprovalResult{}, err
	}
	g.logger.Info("review.approved",
		"handle", handle,
		"edited", len(edited),
		"valid", len(valid),
		"invalid", len(invalid),
	)
	return ApprovalResult{Valid: valid, Invalid: invalid}, nil
}

// Reject resolves the batch as rejected.
func (g *Gate) Reject(ctx context.Context, handle uuid.UUID) error {
	if err := g.store.Resolve(ctx, handle, constants.ReviewRejected, nil); err != nil {
		return err
	}
	g.logger.Info("review.rejected", "handle", handle)
	return nil
}

// ApplyEdits replaces records by key, last write wins, appending unknown keys.
func ApplyEdits(records, edited []entity.OrderRecord) []entity.OrderRecord {
	out := make([]entity.OrderRecord, len(records))
	copy(out, records)
	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.Key()] = i
	}
	for _, e := range edited {
		if i, ok := index[e.Key()]; ok {
			out[i] = e
			continue
		}
		index[e.Key()] = len(out)
		out = append(out, e)
	}
	return out
}
