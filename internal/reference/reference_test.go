package reference

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

func sampleBundle() *Bundle {
	return (&Bundle{
		Customers: []entity.ReferenceEntity{
			{ID: "C1", Name: "MATERIALES GIL SL", Type: entity.EntityCustomer},
			{ID: "C2", Name: "HIERROS LOPEZ", Type: entity.EntityCustomer},
		},
		Addresses: map[string][]entity.Address{
			"C1": {{ID: "A1", CustomerID: "C1", Street: "Calle Mayor 5", City: "Soria"}},
		},
		EmailLookup: map[string]entity.ReferenceEntity{
			" Compras@Gil.com ": {ID: "C1", Name: "MATERIALES GIL SL"},
		},
		Families: []entity.Family{{Desc: "Nature", Prefix: "NAT"}},
	}).Index()
}

func TestBundle(t *testing.T) {
	b := sampleBundle()

	c, ok := b.Customer("C2")
	assert.True(t, ok)
	assert.Equal(t, "HIERROS LOPEZ", c.Name)
	_, ok = b.Customer("C9")
	assert.False(t, ok)

	c, ok = b.CustomerByEmail("COMPRAS@gil.com")
	assert.True(t, ok)
	assert.Equal(t, "C1", c.ID)

	assert.Len(t, b.AddressesOf("C1"), 1)
	assert.Empty(t, b.AddressesOf("C2"))
	assert.False(t, b.LoadedAt.IsZero())

	cat := b.Catalog(0.6, nil)
	fam, res := cat.MatchFamily("nature")
	assert.True(t, res.Matched)
	assert.Equal(t, "NAT", fam.Prefix)
}

func TestCachedLoader(t *testing.T) {
	t.Run("caches within ttl", func(t *testing.T) {
		var calls atomic.Int32
		inner := LoaderFunc(func(context.Context) (*Bundle, error) {
			calls.Add(1)
			return sampleBundle(), nil
		})
		l := NewCachedLoader(inner, time.Minute)

		first, err := l.Load(context.Background())
		require.NoError(t, err)
		second, err := l.Load(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.EqualValues(t, 1, calls.Load())

		l.Invalidate()
		_, err = l.Load(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		inner := LoaderFunc(func(context.Context) (*Bundle, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("connection reset")
			}
			return sampleBundle(), nil
		})
		l := NewCachedLoader(inner, time.Minute, WithRetry(3, time.Millisecond))

		b, err := l.Load(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, b)
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("exhausted retries are batch level", func(t *testing.T) {
		var calls atomic.Int32
		inner := LoaderFunc(func(context.Context) (*Bundle, error) {
			calls.Add(1)
			return nil, errors.New("db down")
		})
		l := NewCachedLoader(inner, time.Minute, WithRetry(3, time.Millisecond))

		_, err := l.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrBatchLevel))
		assert.EqualValues(t, 3, calls.Load())
	})

	t.Run("cancelled context is not retried", func(t *testing.T) {
		var calls atomic.Int32
		inner := LoaderFunc(func(ctx context.Context) (*Bundle, error) {
			calls.Add(1)
			return nil, ctx.Err()
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		l := NewCachedLoader(inner, time.Minute, WithRetry(3, time.Millisecond))

		_, err := l.Load(ctx)
		require.Error(t, err)
		assert.EqualValues(t, 1, calls.Load())
	})
}
