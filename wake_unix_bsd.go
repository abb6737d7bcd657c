//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package dispatchloop

import (
	"golang.org/x/sys/unix"
)

// pipeWake is the wake channel for Unix platforms without an eventfd
// equivalent: a non-blocking self-pipe. A single byte is enough to
// mark "wake pending"; ack drains every byte currently buffered.
type pipeWake struct {
	readFD  int
	writeFD int
}

func newWakeChannel() (wakeChannel, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, err
	}
	return &pipeWake{readFD: fds[0], writeFD: fds[1]}, nil
}

func (w *pipeWake) fd() int            { return w.readFD }
func (w *pipeWake) wakeEvents() Events { return EventRead }

func (w *pipeWake) wake() error {
	_, err := unix.Write(w.writeFD, []byte{1})
	if err == unix.EAGAIN {
		// Pipe buffer full: a wake is already pending.
		return nil
	}
	return err
}

func (w *pipeWake) ack() error {
	var buf [64]byte
	for {
		_, err := unix.Read(w.readFD, buf[:])
		if err == nil {
			continue
		}
		if err == unix.EAGAIN {
			return nil
		}
		return err
	}
}

func (w *pipeWake) close() error {
	err1 := unix.Close(w.readFD)
	err2 := unix.Close(w.writeFD)
	if err1 != nil {
		return err1
	}
	return err2
}
