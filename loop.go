package dispatchloop

import (
	"sync/atomic"
	"time"
)

// TimeoutInfinite, passed as min_timeout to Run or DoSingleIteration,
// means "block until something is ready." A DispatchSource.Prepare
// result of TimeoutInfinite carries the same meaning: the source has
// no opinion on how soon the loop should wake.
const TimeoutInfinite int64 = -1

// TimeoutNone means "do not block." prepare forces the computed
// current minimum timeout to TimeoutNone the moment any timeout is
// found already elapsed; prepare then reports work pending, so
// DoSingleIteration dispatches without polling.
const TimeoutNone int64 = 0

// processStart anchors the monotonic clock every Timeout deadline is
// expected to share. time.Since retains the runtime's monotonic
// reading even though processStart itself is a wall-clock time.Time,
// so this is immune to wall-clock adjustments.
var processStart = time.Now()

// Now returns the current time on the same monotonic clock Loop uses
// to evaluate Timeout.ReadyTimeMs deadlines. Producers of Timeout
// values should compute ready_time_ms as Now() plus a delay.
func Now() int64 { return nowMs() }

func nowMs() int64 { return time.Since(processStart).Milliseconds() }

// watchReady pairs a pending watch entry with the revents observed for
// it during check, since Watch.Dispatch takes the observed mask, not
// the registered one.
type watchReady struct {
	e      *entry[Watch]
	events Events
}

// Loop is the priority-based event loop core: it multiplexes watches,
// timeouts, and dispatch sources published by a single Context onto
// whichever goroutine calls Run.
//
// A Loop is constructed once per Context and torn down with Close. All
// exported methods are safe to call from any goroutine except Run and
// DoSingleIteration, which must only ever be called from the single
// goroutine driving the loop, and Close, which must not run
// concurrently with Run.
type Loop struct {
	ctx  Context
	opts *loopOptions

	wake wakeChannel
	fds  fdTable

	watches  registry[Watch]
	timeouts registry[Timeout]
	sources  registry[DispatchSource]

	watchToken   SubscriptionToken
	timeoutToken SubscriptionToken
	sourceToken  SubscriptionToken
	wakeupToken  SubscriptionToken

	stopRequested atomic.Bool
	isBroken      atomic.Bool

	// The following fields are owned exclusively by the goroutine
	// driving Run/DoSingleIteration; they hold the current iteration's
	// pending-dispatch sets and need no lock of their own, since that
	// goroutine is the only writer or reader of them.
	currentMinTimeout int64
	pendingTimeouts   []*entry[Timeout]
	pendingWatches    []watchReady
	pendingSources    []*entry[DispatchSource]
}

// New creates a Loop over ctx, registering the wake channel at FD
// table index 0 and subscribing to every source kind the context
// publishes. The returned Loop must eventually be closed with Close.
func New(ctx Context, opts ...LoopOption) (*Loop, error) {
	cfg := resolveOptions(opts)

	wc, err := newWakeChannel()
	if err != nil {
		return nil, &WakeChannelInitError{Cause: err}
	}

	l := &Loop{ctx: ctx, opts: cfg, wake: wc}
	l.fds.register(wc.fd(), wc.wakeEvents())

	l.watchToken = ctx.SubscribeWatches(l.registerWatch, l.unregisterWatch)
	l.timeoutToken = ctx.SubscribeTimeouts(l.registerTimeout, l.unregisterTimeout)
	l.sourceToken = ctx.SubscribeDispatchSources(l.registerDispatchSource, l.unregisterDispatchSource)
	l.wakeupToken = ctx.SubscribeWakeup(l.Wakeup)

	return l, nil
}

// Close unsubscribes from the context, closes the wake channel, and
// then unconditionally discards every remaining registry entry,
// regardless of delete_requested or in_dispatch. It is not safe to
// call concurrently with Run.
func (l *Loop) Close() error {
	l.ctx.UnsubscribeWatches(l.watchToken)
	l.ctx.UnsubscribeTimeouts(l.timeoutToken)
	l.ctx.UnsubscribeDispatchSources(l.sourceToken)
	l.ctx.UnsubscribeWakeup(l.wakeupToken)

	err := l.wake.close()

	l.watches.drainAll(nil)
	l.timeouts.drainAll(nil)
	l.sources.drainAll(nil)

	return err
}

// Wakeup unblocks a poll in progress, or ensures the next one returns
// immediately. Safe to call from any goroutine at any time; it never
// blocks and never surfaces an error to the caller.
func (l *Loop) Wakeup() {
	if err := l.wake.wake(); err != nil {
		l.opts.logger.Errorf("wake failed: %v", &WakeIOError{Op: "write", Cause: err})
	}
}

// Stop requests that Run return at the next iteration boundary and
// wakes the loop so that it does so promptly even if currently
// blocked in poll. Thread-safe and idempotent.
func (l *Loop) Stop() {
	l.stopRequested.Store(true)
	l.Wakeup()
}

// Run drives the loop until Stop is called, invoking DoSingleIteration
// with minTimeout as the upper bound on each blocking poll. It must be
// called from exactly one goroutine.
func (l *Loop) Run(minTimeout int64) {
	for !l.stopRequested.Load() {
		l.DoSingleIteration(minTimeout)
	}
}

// DoSingleIteration runs one pass of the five-phase cycle: sweep
// deletions, prepare; if anything is already pending, dispatch
// directly, otherwise poll, check, and dispatch only if check found
// something ready. Exposed for callers embedding the loop in their own
// scheduling instead of calling Run.
func (l *Loop) DoSingleIteration(minTimeout int64) {
	l.sweepDeletions()

	if l.prepare(minTimeout) {
		l.dispatch()
		return
	}

	l.poll()

	if l.check() {
		l.dispatch()
	}
}

// clampTimeout applies the configured poll timeout cap, if any, to a
// computed blocking interval, without disturbing the TimeoutInfinite /
// TimeoutNone sentinels when no cap is configured.
func (l *Loop) clampTimeout(t int64) int64 {
	if l.opts.pollTimeoutCap > 0 && (t < 0 || t > l.opts.pollTimeoutCap) {
		return l.opts.pollTimeoutCap
	}
	return t
}

// --- Phase 1: sweep deletions ---

func (l *Loop) sweepDeletions() {
	l.timeouts.sweep(entrySet(l.pendingTimeouts), nil)
	l.sources.sweep(entrySet(l.pendingSources), nil)
	l.watches.sweep(watchPendingSet(l.pendingWatches), nil)
}

func entrySet[T any](pending []*entry[T]) map[*entry[T]]struct{} {
	m := make(map[*entry[T]]struct{}, len(pending))
	for _, e := range pending {
		m[e] = struct{}{}
	}
	return m
}

func watchPendingSet(pending []watchReady) map[*entry[Watch]]struct{} {
	m := make(map[*entry[Watch]]struct{}, len(pending))
	for _, w := range pending {
		m[w.e] = struct{}{}
	}
	return m
}

// --- Phase 2: prepare ---

// prepare calls Prepare on every non-deleted dispatch source, folds in
// every non-deleted, non-elapsed timeout deadline, and returns whether
// anything is already pending dispatch.
func (l *Loop) prepare(requestedTimeout int64) bool {
	currentMin := requestedTimeout

	for _, e := range l.sources.snapshot() {
		if e.isDeleteRequested() {
			continue
		}
		ready, timeout := e.payload.Prepare()
		if ready {
			appendPendingSource(&l.pendingSources, e)
		} else if timeout > 0 && (currentMin < 0 || timeout < currentMin) {
			currentMin = timeout
		}
	}

	l.scanTimeouts(&currentMin)

	l.currentMinTimeout = currentMin
	return len(l.pendingSources) > 0 || len(l.pendingTimeouts) > 0
}

// scanTimeouts marks every non-deleted, non-elapsed timeout whose
// deadline has passed as elapsed and queues it for dispatch. When
// tighten is non-nil it also narrows the caller's candidate blocking
// interval; the re-scan after a zero-result poll passes nil, since no
// blocking decision remains to narrow this iteration. Shared by both
// call sites rather than duplicated, since they walk the same registry
// the same way.
func (l *Loop) scanTimeouts(tighten *int64) {
	now := nowMs()
	for _, e := range l.timeouts.snapshot() {
		if e.isDeleteRequested() {
			continue
		}
		e.mu.Lock()
		elapsed := e.elapsed
		e.mu.Unlock()
		if elapsed {
			continue
		}

		interval := e.payload.ReadyTimeMs() - now
		if interval <= 0 {
			e.mu.Lock()
			e.elapsed = true
			e.mu.Unlock()
			appendPendingTimeout(&l.pendingTimeouts, e)
			if tighten != nil {
				*tighten = TimeoutNone
			}
		} else if tighten != nil && (*tighten < 0 || interval < *tighten) {
			*tighten = interval
		}
	}
}

// --- Phase 3: poll ---

// poll snapshots the FD table, blocks in the platform poll call for up
// to the current minimum timeout, merges revents back, and acks the
// wake channel if it fired. A poll error is logged and treated as "no
// descriptors ready" rather than propagated, since there is no caller
// in this design that could usefully react to a transient poll failure.
func (l *Loop) poll() {
	scratch := l.fds.snapshotForPoll()
	timeout := l.clampTimeout(l.currentMinTimeout)

	n, err := systemPoll(scratch, int(timeout))
	if err != nil {
		l.opts.logger.Warnf("poll failed, treating as no descriptors ready: %v", &PollError{Cause: err})
		n = 0
	}
	// On error the scratch revents are still the zeros snapshotForPoll
	// set, so merging clears the previous iteration's readiness.
	l.fds.mergeRevents(scratch)

	if n == 0 {
		l.scanTimeouts(nil)
	}

	if l.fds.wakeRevents() != 0 {
		if err := l.wake.ack(); err != nil {
			l.opts.logger.Errorf("wake ack failed: %v", &WakeIOError{Op: "read", Cause: err})
		}
	}
}

// --- Phase 4: check ---

// check matches observed FD readiness to watches and gives every
// non-deleted dispatch source a final chance to declare itself ready.
func (l *Loop) check() bool {
	fds := l.fds.nonWakeSnapshot()
	for _, e := range l.watches.snapshot() {
		if e.isDeleteRequested() {
			continue
		}
		for _, fd := range fds {
			if fd.revents == 0 || e.fd != fd.fd {
				continue
			}
			appendPendingWatch(&l.pendingWatches, e, fd.revents)
		}
	}

	for _, e := range l.sources.snapshot() {
		if e.isDeleteRequested() {
			continue
		}
		if e.payload.Check() {
			appendPendingSource(&l.pendingSources, e)
		}
	}

	return len(l.pendingTimeouts) > 0 || len(l.pendingWatches) > 0 || len(l.pendingSources) > 0
}

func appendPendingTimeout(pending *[]*entry[Timeout], e *entry[Timeout]) {
	if e.pendingMarked {
		return
	}
	e.pendingMarked = true
	*pending = append(*pending, e)
}

func appendPendingSource(pending *[]*entry[DispatchSource], e *entry[DispatchSource]) {
	if e.pendingMarked {
		return
	}
	e.pendingMarked = true
	*pending = append(*pending, e)
}

// appendPendingWatch records e as ready to dispatch with events, OR-ing
// the observed mask into any match already recorded this iteration
// (the FD table permits duplicate (fd, events) rows, so a watch can
// legitimately be matched more than once per Phase 4 pass).
func appendPendingWatch(pending *[]watchReady, e *entry[Watch], events Events) {
	if e.pendingMarked {
		for i := range *pending {
			if (*pending)[i].e == e {
				(*pending)[i].events |= events
				return
			}
		}
		return
	}
	e.pendingMarked = true
	*pending = append(*pending, watchReady{e: e, events: events})
}

// --- Phase 5: dispatch ---

// dispatch runs the three pending sets in order (timeouts, watches,
// dispatch sources), each in the priority order its registry already
// maintains, and clears each set afterward.
func (l *Loop) dispatch() {
	for _, e := range l.pendingTimeouts {
		dispatchEntry(e, func(t Timeout) { t.Dispatch() })
	}
	clearPendingTimeouts(&l.pendingTimeouts)

	for _, w := range l.pendingWatches {
		events := w.events
		dispatchEntry(w.e, func(watch Watch) { watch.Dispatch(events) })
	}
	clearPendingWatches(&l.pendingWatches)

	if len(l.pendingSources) > 0 {
		l.isBroken.Store(false)
		for _, e := range l.pendingSources {
			if l.isBroken.Load() {
				break
			}
			dispatchSource(e)
		}
	}
	clearPendingSources(&l.pendingSources)
}

// dispatchEntry implements steps 1-3 and 5 of Phase 5 for a single
// entry: lock, skip if already delete-requested, else mark in_dispatch,
// release, invoke, re-lock, clear in_dispatch.
func dispatchEntry[T any](e *entry[T], invoke func(T)) {
	e.mu.Lock()
	if e.deleteRequested {
		e.mu.Unlock()
		return
	}
	e.inDispatch = true
	e.mu.Unlock()

	invoke(e.payload)

	e.mu.Lock()
	e.inDispatch = false
	e.mu.Unlock()
}

// dispatchSource re-invokes Dispatch in a tight loop while it reports
// more work pending, breaking early if delete_requested turns true
// mid-loop. A call already in progress always runs to completion; the
// source is not otherwise told its deletion is pending.
func dispatchSource(e *entry[DispatchSource]) {
	e.mu.Lock()
	if e.deleteRequested {
		e.mu.Unlock()
		return
	}
	e.inDispatch = true
	e.mu.Unlock()

	for {
		e.mu.Lock()
		deleted := e.deleteRequested
		e.mu.Unlock()
		if deleted {
			break
		}
		if !e.payload.Dispatch() {
			break
		}
	}

	e.mu.Lock()
	e.inDispatch = false
	e.mu.Unlock()
}

func clearPendingTimeouts(pending *[]*entry[Timeout]) {
	for _, e := range *pending {
		e.pendingMarked = false
	}
	*pending = (*pending)[:0]
}

func clearPendingSources(pending *[]*entry[DispatchSource]) {
	for _, e := range *pending {
		e.pendingMarked = false
	}
	*pending = (*pending)[:0]
}

func clearPendingWatches(pending *[]watchReady) {
	for _, w := range *pending {
		w.e.pendingMarked = false
	}
	*pending = (*pending)[:0]
}

// --- Registration bridge ---

func (l *Loop) registerWatch(w Watch, priority Priority) {
	fd, events := w.FD()
	l.fds.register(fd, events)
	e := l.watches.insert(priority, entryID(l.opts.entryIDSource()), w)
	e.fd = fd
}

func (l *Loop) unregisterWatch(w Watch) {
	fd, events := w.FD()
	l.Wakeup()
	l.fds.unregister(fd, events)
	l.watches.markDeleted(func(x Watch) bool { return x == w })
}

func (l *Loop) registerTimeout(t Timeout, priority Priority) {
	l.timeouts.insert(priority, entryID(l.opts.entryIDSource()), t)
}

func (l *Loop) unregisterTimeout(t Timeout) {
	l.timeouts.markDeleted(func(x Timeout) bool { return x == t })
}

func (l *Loop) registerDispatchSource(s DispatchSource, priority Priority) {
	l.sources.insert(priority, entryID(l.opts.entryIDSource()), s)
}

func (l *Loop) unregisterDispatchSource(s DispatchSource) {
	l.sources.markDeleted(func(x DispatchSource) bool { return x == s })
	l.isBroken.Store(true)
}
