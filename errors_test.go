package dispatchloop

import (
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

func TestWakeChannelInitError(t *testing.T) {
	e := &WakeChannelInitError{Cause: errBoom}
	if !errors.Is(e, errBoom) {
		t.Fatal("errors.Is should see through Unwrap to the cause")
	}
	if e.Error() == "" {
		t.Fatal("Error() must not be empty")
	}
}

func TestPollError(t *testing.T) {
	e := &PollError{Cause: errBoom}
	if !errors.Is(e, errBoom) {
		t.Fatal("errors.Is should see through Unwrap to the cause")
	}
}

func TestWakeIOError(t *testing.T) {
	e := &WakeIOError{Op: "write", Cause: errBoom}
	if !errors.Is(e, errBoom) {
		t.Fatal("errors.Is should see through Unwrap to the cause")
	}
	if e.Op != "write" {
		t.Fatalf("Op = %q, want write", e.Op)
	}
}

func TestNopLogger_DiscardsSilently(t *testing.T) {
	l := NewNopLogger()
	// these must not panic regardless of arguments.
	l.Warnf("x=%d", 1)
	l.Errorf("%v", errBoom)
}
