// Package dispatchloop: the wake channel.
//
// The wake channel is the one primitive that lets a thread other than
// the loop's own unblock a pending poll immediately: wake() is always
// safe to call, never blocks, and never surfaces an error to its
// caller (errors are logged as WakeIOError instead). An unread wake
// causes the next poll to see the wake descriptor as readable; ack()
// drains it back to quiescent.
//
//   - Linux: a semaphore-mode eventfd (wake_linux.go).
//   - Darwin/BSD: a self-pipe, since those platforms have no eventfd
//     equivalent (wake_unix_bsd.go).
//   - Windows: a loopback UDP pair, since Windows has no pollable
//     anonymous-pipe equivalent alongside WSAPoll's socket set
//     (wake_windows.go); UDP keeps this simpler than a TCP pair since
//     no connection/accept handshake is required for datagrams.
package dispatchloop

// wakeChannel abstracts the cross-thread wake primitive. fd and
// wakeEvents report what to register into index 0 of the fdTable.
type wakeChannel interface {
	fd() int
	wakeEvents() Events
	// wake signals the channel. Safe from any goroutine, never blocks.
	wake() error
	// ack drains any pending wake signal back to a quiescent state.
	ack() error
	close() error
}
