//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package dispatchloop

import (
	"os"
	"sync/atomic"
	"testing"
	"time"
)

type funcWatch struct {
	fd       int
	events   Events
	dispatch func(Events)
}

func (w *funcWatch) FD() (int, Events) { return w.fd, w.events }
func (w *funcWatch) Dispatch(events Events) {
	if w.dispatch != nil {
		w.dispatch(events)
	}
}

func TestLoop_FDReadabilityDispatchesWatch(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	defer r.Close()
	defer w.Close()

	ctx := newFakeContext()
	loop, err := New(ctx)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer loop.Close()

	var calls int32
	var seen Events
	ctx.addWatch(&funcWatch{
		fd:     int(r.Fd()),
		events: EventRead,
		dispatch: func(events Events) {
			atomic.AddInt32(&calls, 1)
			seen = events
			var buf [1]byte
			r.Read(buf[:]) // drain so the fd doesn't stay readable forever
		},
	}, 10)

	if _, err := w.Write([]byte{1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		time.Sleep(200 * time.Millisecond)
		loop.Stop()
		close(done)
	}()
	loop.Run(1000)
	<-done

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("watch.Dispatch called %d times, want exactly 1", got)
	}
	if seen&EventRead == 0 {
		t.Fatalf("observed events = %v, want EventRead set", seen)
	}
}

func TestLoop_FDUnregisterMidPoll(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe failed: %v", err)
	}
	defer r.Close()
	defer w.Close()

	ctx := newFakeContext()
	loop, err := New(ctx)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer loop.Close()

	var calls int32
	watch := &funcWatch{
		fd:     int(r.Fd()),
		events: EventRead,
		dispatch: func(Events) {
			atomic.AddInt32(&calls, 1)
		},
	}
	ctx.addWatch(watch, 0)

	go func() {
		time.Sleep(30 * time.Millisecond)
		ctx.removeWatch(watch)
	}()

	done := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		loop.Stop()
		close(done)
	}()

	loop.Run(TimeoutInfinite)
	<-done

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("watch.Dispatch called %d times, want 0 (fd was never written to)", got)
	}
	if n := len(loop.watches.snapshot()); n != 0 {
		t.Fatalf("watch entry not reaped after unregister, registry still has %d entries", n)
	}
}
