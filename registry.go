package dispatchloop

import "sync"

// entry is the lifecycle envelope shared by every registry variant
// (watches, timeouts, dispatch sources). T is the opaque, owning
// handle to the underlying collaborator (Watch, Timeout, or
// DispatchSource).
type entry[T any] struct {
	id       entryID
	priority Priority

	// mu guards the lifecycle flags below, independent of the
	// registry-wide mutex, so that the iteration engine can release the
	// registry lock for the duration of a user callback.
	mu              sync.Mutex
	deleteRequested bool
	inDispatch      bool

	// elapsed is meaningful only for timeout entries; it prevents
	// re-dispatch of a one-shot timeout until it is re-registered.
	elapsed bool

	// fd is meaningful only for watch entries: the descriptor
	// published into the FD table at registration time, cached so that
	// check can match observed readiness to the watch without
	// re-querying the payload. Unregistration does not use it; it
	// queries the payload's FD() again.
	fd int

	// pendingMarked tracks membership in the current iteration's
	// pending-dispatch set for this entry's registry. It is touched
	// only by the loop's own goroutine during prepare/check/dispatch,
	// never concurrently, so it needs no lock of its own.
	pendingMarked bool

	payload T
}

// requestDelete marks the entry for reaping. It never clears the flag
// once set: there is no operation that un-deletes an entry.
func (e *entry[T]) requestDelete() {
	e.mu.Lock()
	e.deleteRequested = true
	e.mu.Unlock()
}

// isDeleteRequested reports the current delete_requested flag.
func (e *entry[T]) isDeleteRequested() bool {
	e.mu.Lock()
	v := e.deleteRequested
	e.mu.Unlock()
	return v
}

// registry is a priority-ordered multimap of entries, guarded by its
// own mutex, independent of the other two registries.
type registry[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]
}

// insert adds a new entry at the given priority, maintaining the
// (priority, id) sort order, and returns it.
func (r *registry[T]) insert(priority Priority, id entryID, payload T) *entry[T] {
	e := &entry[T]{id: id, priority: priority, payload: payload}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := 0
	for i < len(r.entries) && less(r.entries[i].priority, r.entries[i].id, priority, id) {
		i++
	}
	r.entries = append(r.entries, nil)
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = e
	return e
}

// markDeleted scans for the first entry whose payload matches (via the
// supplied equality predicate) and flags it for deletion. It does not
// remove the entry: removal is the iteration engine's job, during the
// next sweep phase.
func (r *registry[T]) markDeleted(match func(T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if match(e.payload) {
			e.requestDelete()
			return true
		}
	}
	return false
}

// snapshot returns a shallow copy of the current entry pointers, safe
// to range over without holding the registry mutex across a user
// callback.
func (r *registry[T]) snapshot() []*entry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entry[T], len(r.entries))
	copy(out, r.entries)
	return out
}

// sweep removes every entry that is eligible for physical removal:
// delete_requested is true, in_dispatch is false, and it is not
// referenced by pending (the current iteration's pending-dispatch set
// for this registry). free is invoked for each reaped entry's payload.
func (r *registry[T]) sweep(pending map[*entry[T]]struct{}, free func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		e.mu.Lock()
		eligible := e.deleteRequested && !e.inDispatch
		e.mu.Unlock()
		if eligible {
			if _, isPending := pending[e]; !isPending {
				if free != nil {
					free(e.payload)
				}
				continue
			}
		}
		kept = append(kept, e)
	}
	r.entries = kept
}

// drainAll unconditionally removes and frees every entry, regardless of
// lifecycle flags. Used by Loop teardown after unsubscribing from the
// context, when nothing will ever dispatch these entries again.
func (r *registry[T]) drainAll(free func(T)) {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()
	if free == nil {
		return
	}
	for _, e := range entries {
		free(e.payload)
	}
}
