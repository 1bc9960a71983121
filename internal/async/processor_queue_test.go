package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu    sync.Mutex
	ran   []uuid.UUID
	block chan struct{}
	err   error
	panic bool
}

func (r *recordingRunner) RunJob(ctx context.Context, id uuid.UUID) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.ran = append(r.ran, id)
	r.mu.Unlock()
	if r.panic {
		panic("boom")
	}
	return r.err
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func TestQueueRunsEveryJob(t *testing.T) {
	r := &recordingRunner{err: errors.New("ignored")}
	q := NewProcessorQueue(r, nil, WithWorkers(3), WithQueueSize(2))

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, q.Enqueue(context.Background(), Job{JobID: ids[i]}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, ids, r.ran)
}

func TestQueueBackpressure(t *testing.T) {
	r := &recordingRunner{block: make(chan struct{})}
	q := NewProcessorQueue(r, nil, WithWorkers(1), WithQueueSize(0))

	// the single worker takes the first job and blocks on it
	require.NoError(t, q.Enqueue(context.Background(), Job{JobID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{JobID: uuid.New()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(r.block)
	q.Shutdown(context.Background())
	assert.Equal(t, 1, r.count())
}

func TestQueueShutdown(t *testing.T) {
	r := &recordingRunner{panic: true}
	q := NewProcessorQueue(r, nil, WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{JobID: uuid.New()}))
	q.Shutdown(context.Background())
	assert.Equal(t, 1, r.count(), "panicking job does not kill the worker pool")

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{JobID: uuid.New()}), ErrShuttingDown)
	q.Shutdown(context.Background())
}
