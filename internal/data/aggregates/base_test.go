package aggregates

import (
	"context"
	"sync"
	"testing"
	"time"

	domainagg "github.com/fieldcare/fieldcare-backend/internal/domain/aggregates"
	"github.com/fieldcare/fieldcare-backend/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner()

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.success", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != "success" {
		t.Fatalf("operation status: want=success got=%s", hooks.Operations[0].Status)
	}
}

func TestExecuteWriteObservesInvalidStateStatus(t *testing.T) {
	hooks := &spyHooks{}
	runner := spyTxRunner()

	err := executeWrite(context.Background(), BaseDeps{
		Runner: runner,
		Hooks:  hooks,
	}, "aggregate.test.invalid_state", func(_ dbctx.Context) error {
		return InvalidStateError("not pending")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domainagg.IsCode(err, domainagg.CodeInvalidState) {
		t.Fatalf("expected invalid state code, got=%v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != string(domainagg.CodeInvalidState) {
		t.Fatalf("operation status: want=%s got=%s", domainagg.CodeInvalidState, hooks.Operations[0].Status)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		runner := spyTxRunner()
		err := executeWrite(context.Background(), BaseDeps{
			Runner: runner,
			Hooks:  hooks,
		}, "aggregate.test.conflict", func(_ dbctx.Context) error {
			return ConflictError("stale version")
		})
		if err == nil {
			t.Fatalf("expected error")
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "aggregate.test.conflict" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeConflict) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})

	t.Run("retryable", func(t *testing.T) {
		hooks := &spyHooks{}
		calls := 0
		err := executeWrite(context.Background(), BaseDeps{
			Runner:      spyTxRunner(),
			Hooks:       hooks,
			MaxAttempts: 3,
		}, "aggregate.test.retry", func(_ dbctx.Context) error {
			calls++
			return RetryableError("temporary lock timeout")
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if calls != 3 {
			t.Fatalf("attempts: want=3 got=%d", calls)
		}
		if len(hooks.Retries) != 2 || hooks.Retries[0] != "aggregate.test.retry" {
			t.Fatalf("retry hooks: %+v", hooks.Retries)
		}
		if len(hooks.Conflicts) != 0 {
			t.Fatalf("conflict hooks should be empty, got=%+v", hooks.Conflicts)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})
}

func TestExecuteWriteSucceedsAfterRetry(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0
	err := executeWrite(context.Background(), BaseDeps{
		Runner:      spyTxRunner(),
		Hooks:       hooks,
		MaxAttempts: 2,
	}, "aggregate.test.busy", func(_ dbctx.Context) error {
		calls++
		if calls == 1 {
			return RetryableError("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("executeWrite: %v", err)
	}
	if calls != 2 || len(hooks.Retries) != 1 {
		t.Fatalf("calls=%d retries=%v", calls, hooks.Retries)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteWriteDefaultsToSingleAttempt(t *testing.T) {
	calls := 0
	_ = executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner()}, "aggregate.test.once", func(_ dbctx.Context) error {
		calls++
		return RetryableError("database is locked")
	})
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestExecuteWriteDoesNotRetryOtherCodes(t *testing.T) {
	calls := 0
	_ = executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner(), MaxAttempts: 5}, "aggregate.test.state", func(_ dbctx.Context) error {
		calls++
		return InvalidStateError("not pending")
	})
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestAggregateStatus(t *testing.T) {
	if got := aggregateStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateStatus(InvalidStateError("x")); got != string(domainagg.CodeInvalidState) {
		t.Fatalf("invalid state status: got=%s", got)
	}
	if got := aggregateStatus(ConflictError("x")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateStatus(RetryableError("x")); got != string(domainagg.CodeRetryable) {
		t.Fatalf("retry status: got=%s", got)
	}
	if got := aggregateStatus(context.DeadlineExceeded); got != string(domainagg.CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

// spyTxRunner runs the body without a database.
func spyTxRunner() TxRunner {
	return TxRunnerFunc(func(ctx context.Context, fn func(dbc dbctx.Context) error) error {
		return fn(dbctx.Context{Ctx: ctx})
	})
}

type spyHooks struct {
	mu         sync.Mutex
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}
