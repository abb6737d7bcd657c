package dispatchloop

// Watch binds a file descriptor and event mask to a callback. The loop
// discovers readiness by polling; Dispatch is invoked with the observed
// revents whenever the descriptor becomes ready.
type Watch interface {
	// FD reports the descriptor and the event mask to poll for. It is
	// queried at registration time, when the pair is added to the FD
	// table, and again at unregistration, when the FD-table entry
	// matching the pair it then reports is removed.
	FD() (fd int, events Events)
	// Dispatch delivers the observed revents for this watch's fd.
	Dispatch(events Events)
}

// Timeout is a one-shot deadline with a callback. Re-arming is not the
// loop's responsibility: once dispatched, a Timeout is considered
// spent until it is registered again.
type Timeout interface {
	// ReadyTimeMs reports the monotonic deadline, in milliseconds, at
	// which this timeout should fire.
	ReadyTimeMs() int64
	// Dispatch delivers the elapsed timeout.
	Dispatch()
}

// DispatchSource is an active source that advertises its own readiness
// and can continue producing work across a single dispatch call.
type DispatchSource interface {
	// Prepare is called once per iteration, before polling. It reports
	// whether the source is already ready, and if not, a requested
	// timeout in milliseconds the loop should use as an upper bound on
	// how long it blocks (TimeoutInfinite if the source has no
	// opinion).
	Prepare() (ready bool, timeoutMs int64)
	// Check is called once per iteration, after polling, to give the
	// source a final chance to declare readiness based on whatever
	// happened during the poll.
	Check() (ready bool)
	// Dispatch performs one unit of work and reports whether more work
	// is immediately pending. The loop re-invokes Dispatch in a tight
	// loop while it returns true, stopping early only if the entry is
	// concurrently unregistered.
	Dispatch() (more bool)
}

// SubscriptionToken is returned by a Context's subscribe methods and
// passed back to the matching unsubscribe method at Loop teardown.
type SubscriptionToken any

// Context is the external collaborator the loop subscribes to at
// construction: it is the one thing New needs, and the only way
// watches, timeouts, and dispatch sources ever reach the loop. The
// loop never constructs a Context and never inspects its internals,
// only these eight methods.
type Context interface {
	SubscribeWatches(add func(w Watch, priority Priority), remove func(w Watch)) SubscriptionToken
	UnsubscribeWatches(token SubscriptionToken)

	SubscribeTimeouts(add func(t Timeout, priority Priority), remove func(t Timeout)) SubscriptionToken
	UnsubscribeTimeouts(token SubscriptionToken)

	SubscribeDispatchSources(add func(s DispatchSource, priority Priority), remove func(s DispatchSource)) SubscriptionToken
	UnsubscribeDispatchSources(token SubscriptionToken)

	SubscribeWakeup(wakeup func()) SubscriptionToken
	UnsubscribeWakeup(token SubscriptionToken)
}
