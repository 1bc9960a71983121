package repository

import (
	"context"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

// ReferenceRepository reads and seeds the customer, address and catalog tables.
// It implements reference.Loader.
type ReferenceRepository struct {
	db  *DB
	log *slog.Logger
}

func NewReferenceRepository(db *DB, log *slog.Logger) *ReferenceRepository {
	if log == nil {
		log = slog.Default()
	}
	return &ReferenceRepository{db: db, log: log}
}

var _ reference.Loader = (*ReferenceRepository)(nil)

// Load reads a complete snapshot.
func (r *ReferenceRepository) Load(ctx context.Context) (*reference.Bundle, error) {
	b := &reference.Bundle{
		Addresses:   map[string][]entity.Address{},
		EmailLookup: map[string]entity.ReferenceEntity{},
	}
	names := map[string]string{}

	err := r.each(ctx, "customers", []string{"id", "name"}, "id", func(rows *entsql.Rows) error {
		var c entity.ReferenceEntity
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return err
		}
		c.Type = entity.EntityCustomer
		names[c.ID] = c.Name
		b.Customers = append(b.Customers, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, "customer_emails", []string{"email", "customer_id"}, "email", func(rows *entsql.Rows) error {
		var email, id string
		if err := rows.Scan(&email, &id); err != nil {
			return err
		}
		b.EmailLookup[email] = entity.ReferenceEntity{ID: id, Name: names[id], Type: entity.EntityCustomer}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, "addresses", []string{"id", "customer_id", "street", "post_code", "city", "province"}, "id", func(rows *entsql.Rows) error {
		var a entity.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Street, &a.PostCode, &a.City, &a.Province); err != nil {
			return err
		}
		b.Addresses[a.CustomerID] = append(b.Addresses[a.CustomerID], a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, "families", []string{"prefix", "description"}, "prefix", func(rows *entsql.Rows) error {
		var f entity.Family
		if err := rows.Scan(&f.Prefix, &f.Desc); err != nil {
			return err
		}
		f.Prefix = strings.TrimSpace(f.Prefix)
		b.Families = append(b.Families, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, "colors", []string{"code", "description"}, "code", func(rows *entsql.Rows) error {
		var c entity.Color
		if err := rows.Scan(&c.Code, &c.Desc); err != nil {
			return err
		}
		c.Code = strings.TrimSpace(c.Code)
		b.Colors = append(b.Colors, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.each(ctx, "option_items", []string{"sku", "family", "color_code", "size", "option_type", "default_size"}, "sku", func(rows *entsql.Rows) error {
		var o entity.OptionItem
		if err := rows.Scan(&o.SKU, &o.Family, &o.ColorCode, &o.Size, &o.Type, &o.DefaultSize); err != nil {
			return err
		}
		b.Options = append(b.Options, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("reference data loaded",
		"customers", len(b.Customers),
		"emails", len(b.EmailLookup),
		"families", len(b.Families),
		"colors", len(b.Colors),
		"options", len(b.Options),
	)
	return b.Index(), nil
}

func (r *ReferenceRepository) each(ctx context.Context, table string, cols []string, orderBy string, fn func(*entsql.Rows) error) error {
	q, args := r.db.builder().Select(cols...).From(entsql.Table(table)).OrderBy(orderBy).Query()
	rows := &entsql.Rows{}
	if err := r.db.conn(ctx).Query(ctx, q, args, rows); err != nil {
		return dbError("load "+table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return dbError("scan "+table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return dbError("load "+table, err)
	}
	return nil
}

// Counts returns the row count of every reference table.
func (r *ReferenceRepository) Counts(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	for _, table := range referenceTables {
		q, args := r.db.builder().Select(entsql.Count("*")).From(entsql.Table(table)).Query()
		rows := &entsql.Rows{}
		if err := r.db.conn(ctx).Query(ctx, q, args, rows); err != nil {
			return nil, dbError("count "+table, err)
		}
		var n int
		if rows.Next() {
			if err := rows.Scan(&n); err != nil {
				rows.Close()
				return nil, dbError("count "+table, err)
			}
		}
		rows.Close()
		out[table] = n
	}
	return out, nil
}

// referenceTables in insert order; deletes run in reverse.
var referenceTables = []string{"customers", "customer_emails", "addresses", "families", "colors", "option_items"}

// Seed replaces all reference data with b in one transaction.
func (r *ReferenceRepository) Seed(ctx context.Context, b *reference.Bundle) (err error) {
	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return dbError("begin seed tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	sb := r.db.builder()

	for i := len(referenceTables) - 1; i >= 0; i-- {
		q, args := sb.Delete(referenceTables[i]).Query()
		if err = tx.Exec(ctx, q, args, nil); err != nil {
			return dbError("clear "+referenceTables[i], err)
		}
	}

	inserts := []*entsql.InsertBuilder{}
	if len(b.Customers) > 0 {
		ins := sb.Insert("customers").Columns("id", "name")
		for _, c := range b.Customers {
			ins.Values(c.ID, c.Name)
		}
		inserts = append(inserts, ins)
	}
	if len(b.EmailLookup) > 0 {
		ins := sb.Insert("customer_emails").Columns("email", "customer_id")
		for email, c := range b.EmailLookup {
			ins.Values(strings.ToLower(strings.TrimSpace(email)), c.ID)
		}
		inserts = append(inserts, ins)
	}
	var addrs []entity.Address
	for _, list := range b.Addresses {
		addrs = append(addrs, list...)
	}
	if len(addrs) > 0 {
		ins := sb.Insert("addresses").Columns("id", "customer_id", "street", "post_code", "city", "province")
		for _, a := range addrs {
			ins.Values(a.ID, a.CustomerID, a.Street, a.PostCode, a.City, a.Province)
		}
		inserts = append(inserts, ins)
	}
	if len(b.Families) > 0 {
		ins := sb.Insert("families").Columns("prefix", "description")
		for _, f := range b.Families {
			ins.Values(f.Prefix, f.Desc)
		}
		inserts = append(inserts, ins)
	}
	if len(b.Colors) > 0 {
		ins := sb.Insert("colors").Columns("code", "description")
		for _, c := range b.Colors {
			ins.Values(c.Code, c.Desc)
		}
		inserts = append(inserts, ins)
	}
	if len(b.Options) > 0 {
		ins := sb.Insert("option_items").Columns("sku", "family", "color_code", "size", "option_type", "default_size")
		for _, o := range b.Options {
			ins.Values(o.SKU, o.Family, o.ColorCode, o.Size, o.Type, o.DefaultSize)
		}
		inserts = append(inserts, ins)
	}

	for _, ins := range inserts {
		q, args := ins.Query()
		if err = tx.Exec(ctx, q, args, nil); err != nil {
			return dbError("seed reference data", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return dbError("commit seed", err)
	}
	r.log.Info("reference data seeded", "customers", len(b.Customers), "addresses", len(addrs))
	return nil
}
