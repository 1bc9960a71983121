// Package core runs order intake jobs: extraction, human review and persistence.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/events"
	"github.com/joseph-ayodele/orders-intake/internal/export"
	"github.com/joseph-ayodele/orders-intake/internal/pipeline"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
	"github.com/joseph-ayodele/orders-intake/internal/repository"
	"github.com/joseph-ayodele/orders-intake/internal/review"
)

const (
	progressSaving   = 90
	RejectedByReview = "rejected by reviewer"
)

// Transactor runs fn in one database transaction. *repository.DB implements it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Processor coordinates extraction, the review gate and persistence for one job.
type Processor struct {
	logger       *slog.Logger
	tx           Transactor
	jobsRepo     repository.JobRepository
	ordersRepo   repository.OrderRepository
	loader       reference.Loader
	orchestrator *pipeline.Orchestrator
	gate         *review.Gate
	publisher    events.Publisher
}

func NewProcessor(
	logger *slog.Logger,
	tx Transactor,
	jobsRepo repository.JobRepository,
	ordersRepo repository.OrderRepository,
	loader reference.Loader,
	orchestrator *pipeline.Orchestrator,
	gate *review.Gate,
	publisher events.Publisher,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if tx == nil {
		tx = noTx{}
	}
	return &Processor{
		logger:       logger,
		tx:           tx,
		jobsRepo:     jobsRepo,
		ordersRepo:   ordersRepo,
		loader:       loader,
		orchestrator: orchestrator,
		gate:         gate,
		publisher:    publisher,
	}
}

// CreateJob stores entries as a pending job.
func (p *Processor) CreateJob(ctx context.Context, entries []entity.Entry) (*entity.Job, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", common.ErrInvalidInput)
	}
	for i, e := range entries {
		if e.RawText == "" {
			return nil, fmt.Errorf("%w: entry %d has no raw_text", common.ErrInvalidInput, i+1)
		}
	}
	job, err := p.jobsRepo.Create(ctx, entries)
	if err != nil {
		return nil, err
	}
	p.logger.Info("processor.job.created", "job_id", job.ID, "entries", len(entries))
	return job, nil
}

// Job returns the current job row.
func (p *Processor) Job(ctx context.Context, jobID uuid.UUID) (*entity.Job, error) {
	return p.jobsRepo.Get(ctx, jobID)
}

// Review returns the batch held for review.
func (p *Processor) Review(ctx context.Context, jobID uuid.UUID) (review.Batch, error) {
	return p.gate.Get(ctx, jobID)
}

// RunJob extracts every entry of a pending job and holds the records for review.
// Only failures that stop the whole batch are returned; per-order failures end
// up on the records and in the job's failure summary.
func (p *Processor) RunJob(ctx context.Context, jobID uuid.UUID) error {
	ctx = common.WithJobID(ctx, jobID.String())
	if err := p.jobsRepo.SetStatus(ctx, jobID, constants.JobStatusRunning); err != nil {
		return err
	}
	entries, err := p.jobsRepo.Entries(ctx, jobID)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	p.progress(ctx, jobID)(0, "loading reference data")

	bundle, err := p.loader.Load(ctx)
	if err != nil {
		return p.fail(ctx, jobID, common.BatchLevelError("reference data unavailable", err))
	}

	res := p.orchestrator.Run(ctx, entries, bundle, p.progress(ctx, jobID))
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, jobID, err)
	}

	records := append(append([]entity.OrderRecord{}, res.Succeeded...), res.Failed...)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].OrderNo != records[j].OrderNo {
			return records[i].OrderNo < records[j].OrderNo
		}
		return records[i].LineNo < records[j].LineNo
	})

	if err := p.jobsRepo.SaveResults(ctx, jobID, repository.JobResults{
		Succeeded: len(res.Succeeded),
		Failed:    len(res.Failed),
		Failures:  res.Failures(),
		Summary:   export.FailureSummary(res.Failed),
	}); err != nil {
		return p.fail(ctx, jobID, err)
	}
	if err := p.gate.SubmitAs(ctx, jobID, records); err != nil {
		return p.fail(ctx, jobID, err)
	}
	if err := p.jobsRepo.SetStatus(ctx, jobID, constants.JobStatusAwaitingReview); err != nil {
		return err
	}
	p.progress(ctx, jobID)(pipeline.ExtractionProgressMax, "awaiting review")

	p.publish(ctx, events.JobEvent{
		Type:      events.TypeAwaitingReview,
		JobID:     jobID,
		Status:    constants.JobStatusAwaitingReview,
		Succeeded: len(res.Succeeded),
		Failed:    len(res.Failed),
	})
	p.logger.Info("processor.job.awaiting_review",
		"job_id", jobID,
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
	)
	return nil
}

// Approve resolves the job's review batch with the reviewer's edits, stores the
// valid records and completes the job. Resolution and persistence share one
// transaction: when any step fails the review stays awaiting and Approve can be
// retried.
func (p *Processor) Approve(ctx context.Context, jobID uuid.UUID, edited []entity.OrderRecord) (review.ApprovalResult, error) {
	var res review.ApprovalResult
	err := p.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if res, err = p.gate.Approve(ctx, jobID, edited); err != nil {
			return err
		}
		p.progress(ctx, jobID)(progressSaving, "saving approved orders")

		if err := p.ordersRepo.InsertBatch(ctx, jobID, res.Valid); err != nil {
			return err
		}
		var failures []entity.FailureContext
		for _, r := range res.Invalid {
			failures = append(failures, r.Failures...)
		}
		if err := p.jobsRepo.SaveResults(ctx, jobID, repository.JobResults{
			Succeeded: len(res.Valid),
			Failed:    len(res.Invalid),
			Failures:  failures,
			Summary:   export.FailureSummary(res.Invalid),
		}); err != nil {
			return err
		}
		return p.jobsRepo.Complete(ctx, jobID, len(res.Valid), len(res.Invalid))
	})
	if err != nil {
		p.logger.Error("processor.approve.failed", "job_id", jobID, "err", err)
		return review.ApprovalResult{}, err
	}

	p.publish(ctx, events.JobEvent{
		Type:      events.TypeCompleted,
		JobID:     jobID,
		Status:    constants.JobStatusCompleted,
		Succeeded: len(res.Valid),
		Failed:    len(res.Invalid),
	})
	p.logger.Info("processor.job.completed", "job_id", jobID, "valid", len(res.Valid), "invalid", len(res.Invalid))
	return res, nil
}

// Reject discards the job's review batch and fails the job.
func (p *Processor) Reject(ctx context.Context, jobID uuid.UUID) error {
	err := p.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := p.gate.Reject(ctx, jobID); err != nil {
			return err
		}
		return p.jobsRepo.Fail(ctx, jobID, RejectedByReview)
	})
	if err != nil {
		return err
	}
	p.publish(ctx, events.JobEvent{Type: events.TypeFailed, JobID: jobID, Status: constants.JobStatusFailed, Message: RejectedByReview})
	p.logger.Info("processor.job.rejected", "job_id", jobID)
	return nil
}

func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	p.logger.Error("processor.job.failed", "job_id", jobID, "batch_level", errors.Is(cause, common.ErrBatchLevel), "err", cause)
	// the job row is still updated when the caller's context is done
	if err := p.jobsRepo.Fail(context.WithoutCancel(ctx), jobID, cause.Error()); err != nil {
		p.logger.Error("processor.job.fail_status", "job_id", jobID, "err", err)
	}
	p.publish(ctx, events.JobEvent{Type: events.TypeFailed, JobID: jobID, Status: constants.JobStatusFailed, Message: cause.Error()})
	return cause
}

func (p *Processor) progress(ctx context.Context, jobID uuid.UUID) pipeline.ProgressFunc {
	return func(percent int, message string) {
		if err := p.jobsRepo.SetProgress(ctx, jobID, percent, message); err != nil {
			p.logger.Warn("processor.progress.failed", "job_id", jobID, "err", err)
		}
	}
}

// publish never fails a job; lost events are logged.
func (p *Processor) publish(ctx context.Context, ev events.JobEvent) {
	if err := p.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		p.logger.Warn("processor.event.dropped", "type", ev.Type, "job_id", ev.JobID, "err", err)
	}
}
