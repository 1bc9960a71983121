package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job asks a worker to run one pending intake job.
type Job struct {
	JobID       uuid.UUID
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
