package dispatchloop

import "sync"

// pollFD is one (fd, events, revents) entry driving the system poll
// call.
type pollFD struct {
	fd      int
	events  Events
	revents Events
}

// fdTable is the mutex-protected, ordered sequence of pollFD entries.
// Index 0 is reserved for the wake channel for the entire lifetime of
// the loop; it is established by Loop's constructor before any other
// registration can occur.
type fdTable struct {
	mu      sync.Mutex
	entries []pollFD
}

// register appends a new entry. Duplicate (fd, events) pairs are
// allowed, though discouraged by callers.
func (t *fdTable) register(fd int, events Events) {
	t.mu.Lock()
	t.entries = append(t.entries, pollFD{fd: fd, events: events})
	t.mu.Unlock()
}

// unregister removes the first entry matching (fd, events) exactly.
// Callers are responsible for waking the loop before calling this, so
// a concurrently-blocked poll cannot observe the stale descriptor past
// the next wake.
func (t *fdTable) unregister(fd int, events Events) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.fd == fd && e.events == events {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// snapshotForPoll copies the current entries into a scratch buffer for
// the blocking poll call; revents is always reset to zero for the
// scratch, since the OS writes it.
func (t *fdTable) snapshotForPoll() []pollFD {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]pollFD, len(t.entries))
	copy(out, t.entries)
	for i := range out {
		out[i].revents = 0
	}
	return out
}

// mergeRevents copies revents from scratch back into the live table.
// The merge is a value search (fd and events both match), not an
// index-aligned copy: every live entry matching a scratch entry's
// (fd, events) is updated, including duplicates, and the search does
// not stop at the first match, so duplicate FD entries intentionally
// receive the same revents.
func (t *fdTable) mergeRevents(scratch []pollFD) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range scratch {
		for i := range t.entries {
			if t.entries[i].fd == s.fd && t.entries[i].events == s.events {
				t.entries[i].revents = s.revents
			}
		}
	}
}

// wakeRevents returns the revents currently recorded for index 0 (the
// wake channel), or zero when the table is empty.
func (t *fdTable) wakeRevents() Events {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return 0
	}
	return t.entries[0].revents
}

// nonWakeSnapshot returns a copy of every entry after index 0, for
// matching observed readiness back to registered watches.
func (t *fdTable) nonWakeSnapshot() []pollFD {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) <= 1 {
		return nil
	}
	out := make([]pollFD, len(t.entries)-1)
	copy(out, t.entries[1:])
	return out
}
