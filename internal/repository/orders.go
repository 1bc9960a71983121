package repository

import (
	"context"
	stdsql "database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

type OrderRepository interface {
	// InsertBatch stores approved records in one transaction.
	InsertBatch(ctx context.Context, jobID uuid.UUID, records []entity.OrderRecord) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.OrderRecord, error)
}

type orderRepo struct {
	db  *DB
	log *slog.Logger
}

func NewOrderRepository(db *DB, log *slog.Logger) OrderRepository {
	if log == nil {
		log = slog.Default()
	}
	return &orderRepo{db: db, log: log}
}

var orderColumns = []string{
	"order_no", "line_no", "customer_id", "customer_name", "sku", "quantity", "reference_no", "valve",
	"delivery_address", "cpsd", "entry_id", "option_sku", "option_qty", "telephone_number", "contact_name",
}

func (r *orderRepo) InsertBatch(ctx context.Context, jobID uuid.UUID, records []entity.OrderRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	ins := r.db.builder().Insert("orders").Columns(append([]string{"job_id"}, append(orderColumns, "created_at")...)...)
	for _, o := range records {
		ins.Values(
			jobID.String(), o.OrderNo, o.LineNo, o.CustomerID, o.CustomerName, o.SKU, o.Quantity,
			nullable(o.ReferenceNo), string(o.Valve), nullable(o.DeliveryAddress), nullable(o.CPSD), o.EntryID,
			nullable(o.OptionSKU), nullable(o.OptionQty), nullable(o.TelephoneNumber), nullable(o.ContactName),
			now,
		)
	}
	q, args := ins.Query()
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.db.conn(ctx).Exec(ctx, q, args, nil); err != nil {
			r.log.Error("orders insert failed", "job_id", jobID, "records", len(records), "err", err)
			return dbError("insert orders", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Info("orders inserted", "job_id", jobID, "records", len(records))
	return nil
}

func (r *orderRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.OrderRecord, error) {
	q, args := r.db.builder().Select(orderColumns...).
		From(entsql.Table("orders")).
		Where(entsql.EQ("job_id", jobID.String())).
		OrderBy("order_no", "line_no").
		Query()
	rows := &entsql.Rows{}
	if err := r.db.conn(ctx).Query(ctx, q, args, rows); err != nil {
		return nil, dbError("list orders", err)
	}
	defer rows.Close()

	var out []entity.OrderRecord
	for rows.Next() {
		var (
			o                                  entity.OrderRecord
			valve                              string
			ref, addr, cpsd, optSKU, tel, name stdsql.NullString
			optQty                             stdsql.NullFloat64
		)
		if err := rows.Scan(
			&o.OrderNo, &o.LineNo, &o.CustomerID, &o.CustomerName, &o.SKU, &o.Quantity, &ref, &valve,
			&addr, &cpsd, &o.EntryID, &optSKU, &optQty, &tel, &name,
		); err != nil {
			return nil, dbError("scan order", err)
		}
		o.Valve = constants.Valve(valve)
		o.ReferenceNo = fromNull(ref)
		o.DeliveryAddress = fromNull(addr)
		o.CPSD = fromNull(cpsd)
		o.OptionSKU = fromNull(optSKU)
		o.TelephoneNumber = fromNull(tel)
		o.ContactName = fromNull(name)
		if optQty.Valid {
			o.OptionQty = &optQty.Float64
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list orders", err)
	}
	return out, nil
}

func fromNull(s stdsql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
