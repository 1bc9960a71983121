package repository

import (
	"context"

	"entgo.io/ent/dialect"
)

type txKey struct{}

// WithTx runs fn in one transaction. Repositories called with the context
// handed to fn join it; a nested WithTx reuses the outer transaction.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return fn(ctx)
	}
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return dbError("begin tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				d.logger.Warn("rollback failed", "err", rerr)
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return dbError("commit tx", err)
	}
	return nil
}

// conn returns the transaction carried by ctx, or the driver.
func (d *DB) conn(ctx context.Context) dialect.ExecQuerier {
	if tx, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return tx
	}
	return d.Driver
}
