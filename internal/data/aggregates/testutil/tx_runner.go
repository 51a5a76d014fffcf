package testutil

import (
	"context"
	"sync"

	"github.com/fieldcare/fieldcare-backend/internal/data/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
)

// InjectedTxRunner injects begin/commit failures around aggregate writes.
// With Inner set, the body runs inside Inner's real transaction and an
// injected commit failure is returned from within it, so the database rolls
// the body's writes back. Without Inner the body runs with no transaction.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failCommit
	}

	var err error
	if r.Inner != nil {
		err = r.Inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	if err != nil {
		r.RollbackCalls++
	} else {
		r.CommitCalls++
	}
	r.mu.Unlock()
	return err
}
