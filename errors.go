package dispatchloop

import "fmt"

// WakeChannelInitError wraps a failure to create the wake primitive
// during Loop construction. It is always fatal: the loop cannot
// function without a wake channel, since index 0 of the FD table is
// reserved for it.
type WakeChannelInitError struct {
	Cause error
}

func (e *WakeChannelInitError) Error() string {
	return fmt.Sprintf("dispatchloop: failed to initialize wake channel: %v", e.Cause)
}

func (e *WakeChannelInitError) Unwrap() error { return e.Cause }

// PollError wraps a failure of the underlying OS poll call. It is
// logged and treated as "no descriptors ready"; the loop continues to
// the next iteration rather than propagating it to the caller of Run.
type PollError struct {
	Cause error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("dispatchloop: poll failed: %v", e.Cause)
}

func (e *PollError) Unwrap() error { return e.Cause }

// WakeIOError wraps a read or write failure on the wake channel's
// underlying transport. It is logged and never propagated into a
// watch, timeout, or dispatch source callback.
type WakeIOError struct {
	// Op is either "write" (Wakeup failed to signal) or "read" (the
	// acknowledgement drain failed).
	Op    string
	Cause error
}

func (e *WakeIOError) Error() string {
	return fmt.Sprintf("dispatchloop: wake channel %s failed: %v", e.Op, e.Cause)
}

func (e *WakeIOError) Unwrap() error { return e.Cause }
