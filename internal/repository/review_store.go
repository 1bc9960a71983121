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
	"github.com/joseph-ayodele/orders-intake/internal/review"
)

// ReviewStore keeps review batches in the review_batches table, so a batch can
// be approved by a different process than the one that submitted it.
type ReviewStore struct {
	db  *DB
	log *slog.Logger
}

func NewReviewStore(db *DB, log *slog.Logger) *ReviewStore {
	if log == nil {
		log = slog.Default()
	}
	return &ReviewStore{db: db, log: log}
}

var _ review.Store = (*ReviewStore)(nil)

func (s *ReviewStore) Create(ctx context.Context, b review.Batch) error {
	rv, err := jsonValue(records(b.Records))
	if err != nil {
		return err
	}
	q, args := s.db.builder().Insert("review_batches").
		Columns("handle", "state", "records", "created_at").
		Values(b.Handle.String(), string(b.State), rv, b.CreatedAt).
		Query()
	if err := s.db.conn(ctx).Exec(ctx, q, args, nil); err != nil {
		return dbError("create review", err)
	}
	return nil
}

func (s *ReviewStore) Get(ctx context.Context, handle uuid.UUID) (review.Batch, error) {
	q, args := s.db.builder().Select("state", "records", "created_at", "resolved_at").
		From(entsql.Table("review_batches")).
		Where(entsql.EQ("handle", handle.String())).
		Query()
	rows := &entsql.Rows{}
	if err := s.db.conn(ctx).Query(ctx, q, args, rows); err != nil {
		return review.Batch{}, dbError("get review", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return review.Batch{}, dbError("get review", err)
		}
		return review.Batch{}, fmt.Errorf("%w: review %s", common.ErrNotFound, handle)
	}

	b := review.Batch{Handle: handle}
	var state string
	if err := rows.Scan(&state, jsonCol{&b.Records}, timeCol{&b.CreatedAt}, nullTimeCol{&b.ResolvedAt}); err != nil {
		return review.Batch{}, dbError("scan review", err)
	}
	b.State = constants.ReviewState(state)
	return b, nil
}

// Resolve is a conditional update out of awaiting_review; of two concurrent
// resolutions only one changes a row.
func (s *ReviewStore) Resolve(ctx context.Context, handle uuid.UUID, state constants.ReviewState, recs []entity.OrderRecord) error {
	u := s.db.builder().Update("review_batches").
		Set("state", string(state)).
		Set("resolved_at", time.Now().UTC())
	if recs != nil {
		rv, err := jsonValue(recs)
		if err != nil {
			return err
		}
		u.Set("records", rv)
	}
	q, args := u.Where(entsql.And(
		entsql.EQ("handle", handle.String()),
		entsql.EQ("state", string(constants.ReviewAwaiting)),
	)).Query()

	var res stdsql.Result
	if err := s.db.conn(ctx).Exec(ctx, q, args, &res); err != nil {
		return dbError("resolve review", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError("resolve review", err)
	}
	if n == 1 {
		s.log.Info("review resolved", "handle", handle, "state", state)
		return nil
	}
	if _, err := s.Get(ctx, handle); err != nil {
		return err
	}
	return review.ErrAlreadyResolved
}

func records(rs []entity.OrderRecord) []entity.OrderRecord {
	if rs == nil {
		return []entity.OrderRecord{}
	}
	return rs
}
