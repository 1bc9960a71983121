package server

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/orders-intake/internal/async"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/review"
)

// Jobs is the job lifecycle the service drives. *core.Processor implements it.
type Jobs interface {
	CreateJob(ctx context.Context, entries []entity.Entry) (*entity.Job, error)
	Job(ctx context.Context, jobID uuid.UUID) (*entity.Job, error)
	Review(ctx context.Context, jobID uuid.UUID) (review.Batch, error)
	Approve(ctx context.Context, jobID uuid.UUID, edited []entity.OrderRecord) (review.ApprovalResult, error)
	Reject(ctx context.Context, jobID uuid.UUID) error
}

// Exporter renders a job's stored orders as XLSX. *export.Service implements it.
type Exporter interface {
	JobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error)
}

type ReviewService struct {
	jobs     Jobs
	queue    async.Queue
	exporter Exporter
	logger   *zap.Logger
}

var _ ReviewServer = (*ReviewService)(nil)

func NewReviewService(jobs Jobs, queue async.Queue, exporter Exporter, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{jobs: jobs, queue: queue, exporter: exporter, logger: logger}
}

type startJobRequest struct {
	Entries []entity.Entry `json:"entries"`
}

type jobRequest struct {
	JobID string `json:"job_id"`
}

type approveRequest struct {
	JobID  string               `json:"job_id"`
	Edited []entity.OrderRecord `json:"edited"`
}

func (s *ReviewService) StartJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req startJobRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	job, err := s.jobs.CreateJob(ctx, req.Entries)
	if err != nil {
		s.logger.Warn("start job failed", zap.Error(err))
		return nil, common.ToGRPC(err)
	}
	if err := s.queue.Enqueue(ctx, async.Job{JobID: job.ID, SubmittedAt: time.Now()}); err != nil {
		s.logger.Error("enqueue job failed", zap.String("job_id", job.ID.String()), zap.Error(err))
		return nil, common.ToGRPC(err)
	}
	s.logger.Info("job started", zap.String("job_id", job.ID.String()), zap.Int("entries", len(req.Entries)))
	return encode(map[string]any{"job_id": job.ID.String(), "status": job.Status})
}

func (s *ReviewService) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := jobID(in)
	if err != nil {
		return nil, err
	}
	job, err := s.jobs.Job(ctx, id)
	if err != nil {
		return nil, common.ToGRPC(err)
	}
	return encode(job)
}

func (s *ReviewService) GetReview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := jobID(in)
	if err != nil {
		return nil, err
	}
	b, err := s.jobs.Review(ctx, id)
	if err != nil {
		return nil, common.ToGRPC(err)
	}
	return encode(map[string]any{
		"job_id":      id.String(),
		"state":       b.State,
		"records":     b.Records,
		"created_at":  b.CreatedAt,
		"resolved_at": b.ResolvedAt,
	})
}

func (s *ReviewService) Approve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req approveRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseJobID(req.JobID)
	if err != nil {
		return nil, err
	}
	res, err := s.jobs.Approve(ctx, id, req.Edited)
	if err != nil {
		s.logger.Warn("approve failed", zap.String("job_id", req.JobID), zap.Error(err))
		return nil, common.ToGRPC(err)
	}
	s.logger.Info("job approved",
		zap.String("job_id", req.JobID),
		zap.Int("valid", len(res.Valid)),
		zap.Int("invalid", len(res.Invalid)),
	)
	return encode(map[string]any{"job_id": req.JobID, "valid": nonNil(res.Valid), "invalid": nonNil(res.Invalid)})
}

func (s *ReviewService) Reject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := jobID(in)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Reject(ctx, id); err != nil {
		s.logger.Warn("reject failed", zap.String("job_id", id.String()), zap.Error(err))
		return nil, common.ToGRPC(err)
	}
	s.logger.Info("job rejected", zap.String("job_id", id.String()))
	return encode(map[string]any{"job_id": id.String(), "state": "rejected"})
}

func (s *ReviewService) ExportOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := jobID(in)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.exporter.JobXLSX(ctx, id)
	if err != nil {
		s.logger.Error("export.xlsx.failed", zap.String("job_id", id.String()), zap.Error(err))
		return nil, common.ToGRPC(err)
	}
	// []byte encodes as base64
	return encode(map[string]any{"job_id": id.String(), "xlsx": xlsx})
}

func jobID(in *structpb.Struct) (uuid.UUID, error) {
	var req jobRequest
	if err := decode(in, &req); err != nil {
		return uuid.Nil, err
	}
	return parseJobID(req.JobID)
}

func parseJobID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, status.Error(codes.InvalidArgument, "job_id is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "job_id must be a UUID")
	}
	return id, nil
}

func decode(in *structpb.Struct, out any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "request: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "response: %v", err)
	}
	return out, nil
}

func nonNil(rs []entity.OrderRecord) []entity.OrderRecord {
	if rs == nil {
		return []entity.OrderRecord{}
	}
	return rs
}
