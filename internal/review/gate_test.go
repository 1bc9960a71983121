package review

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

func record(orderNo, lineNo, qty int) entity.OrderRecord {
	return entity.OrderRecord{
		OrderNo:    orderNo,
		LineNo:     lineNo,
		CustomerID: "C001",
		SKU:        "NAT140080BLCO",
		Quantity:   qty,
		Valve:      constants.ValveNone,
	}
}

func TestApproveRevalidatesEdits(t *testing.T) {
	ctx := context.Background()
	g := NewGate(NewMemoryStore(), nil)

	h, err := g.Submit(ctx, []entity.OrderRecord{record(1, 1, 2), record(2, 1, 0)})
	require.NoError(t, err)

	res, err := g.Approve(ctx, h, []entity.OrderRecord{record(2, 1, 5)})
	require.NoError(t, err)
	assert.Len(t, res.Valid, 2)
	assert.Empty(t, res.Invalid)
	assert.Equal(t, 5, res.Valid[1].Quantity)

	b, err := g.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewApproved, b.State)
	assert.NotNil(t, b.ResolvedAt)
}

func TestApproveKeepsInvalidOutOfTheWay(t *testing.T) {
	ctx := context.Background()
	g := NewGate(NewMemoryStore(), nil)

	bad := record(1, 2, 3)
	bad.SKU = "SHORT"
	h, err := g.Submit(ctx, []entity.OrderRecord{record(1, 1, 1), bad})
	require.NoError(t, err)

	res, err := g.Approve(ctx, h, nil)
	require.NoError(t, err)
	require.Len(t, res.Valid, 1)
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, "sku", res.Invalid[0].Failures[0].Field)

	b, err := g.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewApproved, b.State)
}

func TestResolveOnce(t *testing.T) {
	ctx := context.Background()
	g := NewGate(NewMemoryStore(), nil)

	h, err := g.Submit(ctx, []entity.OrderRecord{record(1, 1, 1)})
	require.NoError(t, err)
	require.NoError(t, g.Reject(ctx, h))

	_, err = g.Approve(ctx, h, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.ErrorIs(t, g.Reject(ctx, h), ErrAlreadyResolved)
	assert.True(t, errors.Is(err, common.ErrConflict))

	_, err = g.Approve(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestConcurrentApproveSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	g := NewGate(NewMemoryStore(), nil)
	h, err := g.Submit(ctx, []entity.OrderRecord{record(1, 1, 1)})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, lost int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Approve(ctx, h, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrAlreadyResolved) {
				lost++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, lost)
}

func TestApplyEdits(t *testing.T) {
	base := []entity.OrderRecord{record(1, 1, 1), record(1, 2, 1)}
	first, second := record(1, 2, 4), record(1, 2, 9)
	second.CustomerID = ""
	extra := record(3, 1, 2)

	out := ApplyEdits(base, []entity.OrderRecord{first, second, extra})
	require.Len(t, out, 3)
	assert.Equal(t, 9, out[1].Quantity)
	assert.Empty(t, out[1].CustomerID, "edits replace the whole record")
	assert.Equal(t, "3-1", out[2].Key())
	assert.Equal(t, 1, base[1].Quantity, "input untouched")
}
