package aggregates

import (
	"context"

	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// TxRunner runs fn inside one database transaction. The dbctx passed to fn
// carries the transaction; repos must use it for every read and write.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// TxRunnerFunc adapts a plain function to TxRunner.
type TxRunnerFunc func(ctx context.Context, fn func(dbc dbctx.Context) error) error

func (f TxRunnerFunc) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return f(ctx, fn)
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return TxRunnerFunc(func(ctx context.Context, fn func(dbc dbctx.Context) error) error {
		if fn == nil {
			return nil
		}
		if db == nil {
			return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
		}
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	})
}
