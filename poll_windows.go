//go:build windows

package dispatchloop

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WSAPoll is not exported by golang.org/x/sys/windows, so it is
// dynamically linked from ws2_32.dll, following the same pattern used
// elsewhere in the pack for calling unexported Winsock APIs.
var (
	ws2_32      = windows.NewLazySystemDLL("ws2_32.dll")
	procWSAPoll = ws2_32.NewProc("WSAPoll")
)

// WSAPOLLFD mirrors WSAPOLLFD from winsock2.h.
type wsaPollFD struct {
	fd      uintptr
	events  int16
	revents int16
}

// Winsock poll flags (winsock2.h); POLLIN/POLLOUT are macro
// combinations, mirrored here so callers never see the native bits.
const (
	wsaPollErr    = int16(0x0001)
	wsaPollHup    = int16(0x0002)
	wsaPollNval   = int16(0x0004)
	wsaPollWrNorm = int16(0x0010)
	wsaPollRdNorm = int16(0x0100)
	wsaPollRdBand = int16(0x0200)
)

// systemPoll is the Windows implementation of the blocking wait phase:
// a call to WSAPoll over a socket set. Every descriptor this loop ever
// polls on Windows is a socket (the wake channel included, since
// Windows has no pollable anonymous pipe/eventfd equivalent, hence the
// loopback UDP pair in wake_windows.go).
func systemPoll(scratch []pollFD, timeoutMs int) (int, error) {
	fds := make([]wsaPollFD, len(scratch))
	for i, e := range scratch {
		fds[i] = wsaPollFD{fd: uintptr(e.fd), events: eventsToNative(e.events)}
	}

	var fdsPtr unsafe.Pointer
	if len(fds) > 0 {
		fdsPtr = unsafe.Pointer(&fds[0])
	}

	r1, _, errno := procWSAPoll.Call(
		uintptr(fdsPtr),
		uintptr(len(fds)),
		uintptr(int32(timeoutMs)),
	)
	n := int(int32(r1))
	if n < 0 {
		if errno == syscall.EINTR {
			return 0, nil
		}
		return 0, errno
	}

	for i := range scratch {
		scratch[i].revents = nativeToEvents(fds[i].revents)
	}
	return n, nil
}

func eventsToNative(e Events) int16 {
	var n int16
	if e&EventRead != 0 {
		n |= wsaPollRdNorm | wsaPollRdBand
	}
	if e&EventWrite != 0 {
		n |= wsaPollWrNorm
	}
	return n
}

func nativeToEvents(n int16) Events {
	var e Events
	if n&(wsaPollRdNorm|wsaPollRdBand) != 0 {
		e |= EventRead
	}
	if n&wsaPollWrNorm != 0 {
		e |= EventWrite
	}
	if n&wsaPollErr != 0 {
		e |= EventError
	}
	if n&(wsaPollHup|wsaPollNval) != 0 {
		e |= EventHangup
	}
	return e
}
