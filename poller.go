// Package dispatchloop: cross-platform blocking poll.
//
// Loop's poll phase needs exactly one primitive from the OS: given a
// snapshot of (fd, events) pairs and a timeout in milliseconds, block
// until at least one is ready (or the timeout elapses, or a signal
// interrupts) and fill in revents.
//
//   - Linux/Darwin/BSD: poll(2), via golang.org/x/sys/unix.Poll
//     (poll_unix.go).
//   - Windows: WSAPoll, dynamically linked from ws2_32.dll since
//     golang.org/x/sys/windows does not export a binding for it
//     (poll_windows.go).
package dispatchloop

// systemPoll blocks for up to timeoutMs milliseconds (negative means
// forever, zero means return immediately) waiting for readiness on
// scratch, filling in each entry's revents in place. It never returns
// an error for EINTR: a poll interrupted by a signal is treated as
// "zero ready" by its platform implementation.
//
// systemPoll itself is implemented per-platform, in poll_unix.go and
// poll_windows.go respectively.
