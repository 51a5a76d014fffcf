package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("FC_TEST_DURATION", "15s")
	if got := Duration("FC_TEST_DURATION", time.Second); got != 15*time.Second {
		t.Fatalf("duration string: got %v", got)
	}
	t.Setenv("FC_TEST_DURATION", "7")
	if got := Duration("FC_TEST_DURATION", time.Second); got != 7*time.Second {
		t.Fatalf("duration seconds: got %v", got)
	}
	t.Setenv("FC_TEST_DURATION", "soon")
	if got := Duration("FC_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("duration fallback: got %v", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("FC_TEST_LIST", " planetary_computer, ,scihub ")
	got := List("FC_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "planetary_computer" || got[1] != "scihub" {
		t.Fatalf("unexpected list: %#v", got)
	}
	t.Setenv("FC_TEST_LIST", "")
	if got := List("FC_TEST_LIST", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected default, got %#v", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("FC_TEST_BOOL", "on")
	if !Bool("FC_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("FC_TEST_BOOL", "maybe")
	if Bool("FC_TEST_BOOL", false) {
		t.Fatalf("expected default false")
	}
}
