//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package dispatchloop

import (
	"golang.org/x/sys/unix"
)

// systemPoll is the Unix implementation of the blocking wait phase: a
// thin wrapper over poll(2) via golang.org/x/sys/unix.
func systemPoll(scratch []pollFD, timeoutMs int) (int, error) {
	fds := make([]unix.PollFd, len(scratch))
	for i, e := range scratch {
		fds[i] = unix.PollFd{Fd: int32(e.fd), Events: eventsToNative(e.events)}
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := range scratch {
		scratch[i].revents = nativeToEvents(fds[i].Revents)
	}
	return n, nil
}

func eventsToNative(e Events) int16 {
	var n int16
	if e&EventRead != 0 {
		n |= unix.POLLIN
	}
	if e&EventWrite != 0 {
		n |= unix.POLLOUT
	}
	return n
}

func nativeToEvents(n int16) Events {
	var e Events
	if n&unix.POLLIN != 0 {
		e |= EventRead
	}
	if n&unix.POLLOUT != 0 {
		e |= EventWrite
	}
	if n&unix.POLLERR != 0 {
		e |= EventError
	}
	if n&(unix.POLLHUP|unix.POLLNVAL) != 0 {
		e |= EventHangup
	}
	return e
}
