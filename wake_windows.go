//go:build windows

package dispatchloop

import (
	"net"
	"time"
)

// udpWake is the Windows wake channel: a connected loopback UDP pair.
// Windows has no pollable anonymous-pipe or eventfd equivalent, so the
// wake descriptor must be a socket to sit in the same WSAPoll set as
// every other watch. UDP avoids the listen/accept handshake a TCP pair
// would need, since no stream semantics are required here.
type udpWake struct {
	recv  *net.UDPConn
	send  *net.UDPConn
	rawFD uintptr
}

func newWakeChannel() (wakeChannel, error) {
	recv, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}
	send, err := net.DialUDP("udp4", nil, recv.LocalAddr().(*net.UDPAddr))
	if err != nil {
		recv.Close()
		return nil, err
	}

	var rawFD uintptr
	sc, err := recv.SyscallConn()
	if err != nil {
		recv.Close()
		send.Close()
		return nil, err
	}
	if err := sc.Control(func(fd uintptr) { rawFD = fd }); err != nil {
		recv.Close()
		send.Close()
		return nil, err
	}

	return &udpWake{recv: recv, send: send, rawFD: rawFD}, nil
}

func (w *udpWake) fd() int            { return int(w.rawFD) }
func (w *udpWake) wakeEvents() Events { return EventRead }

func (w *udpWake) wake() error {
	_, err := w.send.Write([]byte{1})
	return err
}

func (w *udpWake) ack() error {
	buf := make([]byte, 64)
	_ = w.recv.SetReadDeadline(time.Now())
	for {
		_, err := w.recv.Read(buf)
		if err != nil {
			return nil
		}
	}
}

func (w *udpWake) close() error {
	err1 := w.recv.Close()
	err2 := w.send.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
