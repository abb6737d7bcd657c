// Package dispatchloop provides a priority-based event loop that
// multiplexes watches (poll-discovered file descriptors), timeouts
// (one-shot wall-clock deadlines), and dispatch sources (self-owning
// event producers) onto a single dispatch thread.
//
// # Architecture
//
// The loop is built around a [Loop] core driven by a five-phase cycle
// per iteration: sweep deletions, prepare, poll, check, dispatch. It
// consumes four publisher/subscriber hooks from an external [Context]
// (one per source kind, plus a wakeup hook) and otherwise knows nothing
// about what a [Watch], [Timeout], or [DispatchSource] actually does —
// serialization, transport, and object lifecycle all live outside this
// package.
//
// # Platform Support
//
// The wake channel and the blocking poll call are implemented with
// platform-native primitives:
//   - Linux: eventfd (semaphore mode) for wake, unix.Poll for readiness
//   - Darwin/BSD: a self-pipe for wake, unix.Poll for readiness
//   - Windows: a loopback UDP pair for wake, a dynamically-linked
//     WSAPoll for readiness
//
// # Thread Safety
//
// [Loop.Wakeup] and [Loop.Stop] are safe to call from any goroutine at
// any time. Registration and unregistration of watches, timeouts, and
// dispatch sources are driven by the [Context] callbacks, which the
// loop assumes may also be invoked from any goroutine. All other
// callbacks (Watch.Dispatch, Timeout.Dispatch, DispatchSource.Prepare/
// Check/Dispatch) run exclusively on the goroutine that called [Loop.Run]
// or [Loop.DoSingleIteration].
//
// # Usage
//
//	loop, err := dispatchloop.New(myContext)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loop.Close()
//
//	go func() {
//	    time.Sleep(time.Second)
//	    loop.Stop()
//	}()
//
//	loop.Run(dispatchloop.TimeoutInfinite)
//
// # Error Types
//
// The package provides a small set of error types for the failure modes
// described by its error-handling design:
//   - [WakeChannelInitError]: the wake primitive could not be created
//   - [PollError]: the OS poll call returned an error
//   - [WakeIOError]: a wake channel read/write failed
//
// All of them wrap an underlying Cause and support [errors.Is] and
// [errors.As] via Unwrap.
package dispatchloop
