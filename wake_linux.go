//go:build linux

package dispatchloop

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// eventfdWake is the Linux wake channel: a semaphore-mode eventfd.
// Every write posts one count; every read consumes exactly one. A
// non-blocking eventfd lets ack() drain in a tight loop without
// risking a blocking read once the counter reaches zero.
type eventfdWake struct {
	fd int
}

func newWakeChannel() (wakeChannel, error) {
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE|unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &eventfdWake{fd: fd}, nil
}

func (w *eventfdWake) fd() int            { return w.fd }
func (w *eventfdWake) wakeEvents() Events { return EventRead }

func (w *eventfdWake) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(w.fd, buf[:])
	if err == unix.EAGAIN {
		// The eventfd counter is saturated: a wake is already pending,
		// which is all the caller needed.
		return nil
	}
	return err
}

// ack drains every pending count. In EFD_SEMAPHORE mode each read
// consumes exactly one count, so this loops until EAGAIN rather than
// assuming a single read clears everything.
func (w *eventfdWake) ack() error {
	var buf [8]byte
	for {
		_, err := unix.Read(w.fd, buf[:])
		if err == nil {
			continue
		}
		if err == unix.EAGAIN {
			return nil
		}
		return err
	}
}

func (w *eventfdWake) close() error {
	return unix.Close(w.fd)
}
