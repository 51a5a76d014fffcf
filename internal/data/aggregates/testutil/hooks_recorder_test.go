package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Treatment.Accept", "success", 10*time.Millisecond)
	h.ObserveOperation("Treatment.Accept", "invalid_state", time.Millisecond)
	h.ObserveOperation("Treatment.Reject", "success", time.Millisecond)
	h.IncConflict("Treatment.Delete")
	h.IncRetry("Treatment.Accept")

	got := h.Statuses("Treatment.Accept")
	if len(got) != 2 || got[0] != "success" || got[1] != "invalid_state" {
		t.Fatalf("unexpected statuses: %+v", got)
	}
	if len(h.Conflicts) != 1 || h.Conflicts[0] != "Treatment.Delete" {
		t.Fatalf("unexpected conflicts: %+v", h.Conflicts)
	}
	if len(h.Retries) != 1 || h.Retries[0] != "Treatment.Accept" {
		t.Fatalf("unexpected retries: %+v", h.Retries)
	}
}
