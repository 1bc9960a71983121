package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

// JobResults is what extraction leaves on a job before review.
type JobResults struct {
	Succeeded int
	Failed    int
	Failures  []entity.FailureContext
	Summary   string
}

type JobRepository interface {
	Create(ctx context.Context, entries []entity.Entry) (*entity.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	Entries(ctx context.Context, id uuid.UUID) ([]entity.Entry, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error
	SetProgress(ctx context.Context, id uuid.UUID, progress int, message string) error
	SaveResults(ctx context.Context, id uuid.UUID, res JobResults) error
	Complete(ctx context.Context, id uuid.UUID, succeeded, failed int) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
}

type jobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewJobRepository(db *DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log}
}

var jobColumns = []string{
	"id", "status", "progress", "progress_message", "orders_succeeded", "orders_failed",
	"error_message", "failure_context", "failure_summary", "created_at", "updated_at", "completed_at",
}

func (r *jobRepo) Create(ctx context.Context, entries []entity.Entry) (*entity.Job, error) {
	now := time.Now().UTC()
	job := &entity.Job{
		ID:        uuid.New(),
		Status:    constants.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if entries == nil {
		entries = []entity.Entry{}
	}
	ev, err := jsonValue(entries)
	if err != nil {
		return nil, err
	}
	fv, _ := jsonValue([]entity.FailureContext{})
	q, args := r.db.builder().Insert("jobs").
		Columns("id", "status", "progress", "progress_message", "entries", "failure_context", "created_at", "updated_at").
		Values(job.ID.String(), string(job.Status), 0, "", ev, fv, now, now).
		Query()
	if err := r.db.conn(ctx).Exec(ctx, q, args, nil); err != nil {
		r.log.Error("job create failed", "err", err)
		return nil, dbError("create job", err)
	}
	r.log.Info("job created", "job_id", job.ID, "entries", len(entries))
	return job, nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	q, args := r.db.builder().Select(jobColumns...).
		From(entsql.Table("jobs")).
		Where(entsql.EQ("id", id.String())).
		Query()
	rows := &entsql.Rows{}
	if err := r.db.conn(ctx).Query(ctx, q, args, rows); err != nil {
		return nil, dbError("get job", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, dbError("get job", err)
		}
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, id)
	}

	var (
		job      entity.Job
		rawID    string
		status   string
		errMsg   stdsql.NullString
		summary  stdsql.NullString
		progress stdsql.NullString
	)
	if err := rows.Scan(
		&rawID, &status, &job.Progress, &progress, &job.OrdersSucceeded, &job.OrdersFailed,
		&errMsg, jsonCol{&job.FailureContext}, &summary,
		timeCol{&job.CreatedAt}, timeCol{&job.UpdatedAt}, nullTimeCol{&job.CompletedAt},
	); err != nil {
		return nil, dbError("scan job", err)
	}
	job.ID, _ = uuid.Parse(rawID)
	job.Status = constants.JobStatus(status)
	job.ProgressMessage = progress.String
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if summary.Valid {
		job.FailureSummary = &summary.String
	}
	return &job, nil
}

func (r *jobRepo) Entries(ctx context.Context, id uuid.UUID) ([]entity.Entry, error) {
	q, args := r.db.builder().Select("entries").
		From(entsql.Table("jobs")).
		Where(entsql.EQ("id", id.String())).
		Query()
	rows := &entsql.Rows{}
	if err := r.db.conn(ctx).Query(ctx, q, args, rows); err != nil {
		return nil, dbError("job entries", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, id)
	}
	var entries []entity.Entry
	if err := rows.Scan(jsonCol{&entries}); err != nil {
		return nil, dbError("scan job entries", err)
	}
	return entries, nil
}

// SetStatus moves a job that is not yet terminal to status.
func (r *jobRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error {
	return r.update(ctx, id, "set status", map[string]any{"status": string(status)})
}

func (r *jobRepo) SetProgress(ctx context.Context, id uuid.UUID, progress int, message string) error {
	return r.update(ctx, id, "set progress", map[string]any{"progress": progress, "progress_message": message})
}

func (r *jobRepo) SaveResults(ctx context.Context, id uuid.UUID, res JobResults) error {
	fv, err := jsonValue(res.Failures)
	if err != nil {
		return err
	}
	var summary any
	if res.Summary != "" {
		summary = res.Summary
	}
	return r.update(ctx, id, "save results", map[string]any{
		"orders_succeeded": res.Succeeded,
		"orders_failed":    res.Failed,
		"failure_context":  fv,
		"failure_summary":  summary,
	})
}

func (r *jobRepo) Complete(ctx context.Context, id uuid.UUID, succeeded, failed int) error {
	err := r.update(ctx, id, "complete", map[string]any{
		"status":           string(constants.JobStatusCompleted),
		"progress":         100,
		"progress_message": "completed",
		"orders_succeeded": succeeded,
		"orders_failed":    failed,
		"completed_at":     time.Now().UTC(),
	})
	if err == nil {
		r.log.Info("job finished (completed)", "job_id", id, "succeeded", succeeded, "failed", failed)
	}
	return err
}

func (r *jobRepo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	err := r.update(ctx, id, "fail", map[string]any{
		"status":        string(constants.JobStatusFailed),
		"error_message": message,
		"completed_at":  time.Now().UTC(),
	})
	if err == nil {
		r.log.Warn("job finished (failed)", "job_id", id, "error", message)
	}
	return err
}

// update sets columns on a job that has not reached a terminal status.
func (r *jobRepo) update(ctx context.Context, id uuid.UUID, op string, set map[string]any) error {
	u := r.db.builder().Update("jobs").Set("updated_at", time.Now().UTC())
	for _, col := range sortedKeys(set) {
		if set[col] == nil {
			u.SetNull(col)
			continue
		}
		u.Set(col, set[col])
	}
	q, args := u.Where(entsql.And(
		entsql.EQ("id", id.String()),
		entsql.NotIn("status", string(constants.JobStatusCompleted), string(constants.JobStatusFailed)),
	)).Query()

	var res stdsql.Result
	if err := r.db.conn(ctx).Exec(ctx, q, args, &res); err != nil {
		r.log.Error("job update failed", "job_id", id, "op", op, "err", err)
		return dbError(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: job %s is already finished", common.ErrConflict, id)
	}
	return nil
}
