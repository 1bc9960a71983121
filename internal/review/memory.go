package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

// MemoryStore keeps batches in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	batches map[uuid.UUID]Batch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[uuid.UUID]Batch)}
}

func (s *MemoryStore) Create(_ context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[b.Handle]; ok {
		return fmt.Errorf("%w: review %s exists", common.ErrConflict, b.Handle)
	}
	b.Records = clone(b.Records)
	s.batches[b.Handle] = b
	return nil
}

func (s *MemoryStore) Get(_ context.Context, handle uuid.UUID) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[handle]
	if !ok {
		return Batch{}, fmt.Errorf("%w: review %s", common.ErrNotFound, handle)
	}
	b.Records = clone(b.Records)
	return b, nil
}

func (s *MemoryStore) Resolve(_ context.Context, handle uuid.UUID, state constants.ReviewState, records []entity.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[handle]
	if !ok {
		return fmt.Errorf("%w: review %s", common.ErrNotFound, handle)
	}
	if b.State != constants.ReviewAwaiting {
		return ErrAlreadyResolved
	}
	now := time.Now().UTC()
	b.State, b.ResolvedAt = state, &now
	if records != nil {
		b.Records = clone(records)
	}
	s.batches[handle] = b
	return nil
}

func clone(rs []entity.OrderRecord) []entity.OrderRecord {
	if rs == nil {
		return nil
	}
	out := make([]entity.OrderRecord, len(rs))
	copy(out, rs)
	return out
}
