package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"gorm.io/gorm"
)

const defaultMaxAttempts = 1

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	// MaxAttempts bounds how often a write is re-run after a retryable
	// infrastructure failure (serialization, deadlock, busy database).
	// Guard failures are never re-run. Defaults to a single attempt.
	MaxAttempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	return d
}

// executeWrite runs fn in a transaction and maps the outcome to a coded
// error. Retryable failures re-run the whole transaction; every other
// outcome returns after the first attempt.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	var mapped error
	for attempt := 1; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if !domainagg.IsCode(mapped, domainagg.CodeRetryable) || ctx.Err() != nil || attempt >= deps.MaxAttempts {
			break
		}
		deps.Hooks.IncRetry(op)
		deps.Log.Warn("retrying aggregate write", "op", op, "attempt", attempt, "error", mapped)
	}

	status := aggregateStatus(mapped)
	if domainagg.IsCode(mapped, domainagg.CodeConflict) {
		deps.Hooks.IncConflict(op)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeOf(MapError("aggregate.status", err))
	}
	if code == "" {
		return "failure"
	}
	return string(code)
}
