package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "domainvault/pkg/domain-errors"
	txcontext "domainvault/pkg/platform/tx"
)

const defaultPurchaseTxTimeout = 5 * time.Second

// purchaseTx bounds the record write of a purchase. By the time it runs the
// registrar has already accepted the order, so it must not inherit a nearly
// spent request deadline.
type purchaseTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPurchaseTx(db *sql.DB) *purchaseTx {
	return &purchaseTx{db: db}
}

func (t *purchaseTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPurchaseTxTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin purchase transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit purchase transaction")
	}
	return nil
}
