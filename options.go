package dispatchloop

import "sync/atomic"

// loopOptions holds configuration resolved from LoopOption values.
type loopOptions struct {
	logger         Logger
	pollTimeoutCap int64
	entryIDSource  func() uint64
}

// LoopOption configures a Loop instance at construction time.
type LoopOption interface {
	applyLoop(*loopOptions)
}

type loopOptionFunc func(*loopOptions)

func (f loopOptionFunc) applyLoop(opts *loopOptions) { f(opts) }

// WithLogger configures the Logger used to report poll failures and
// wake channel read/write errors. The default is a no-op logger.
func WithLogger(logger Logger) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithPollTimeoutCap clamps the blocking interval computed by prepare
// to at most d milliseconds before it reaches the OS poll call. A
// value <= 0 disables the cap (the default). With a cap set, an
// interval of TimeoutInfinite (or any negative value) is also replaced
// by d, so no single poll blocks longer than d; TimeoutNone is passed
// through unchanged.
func WithPollTimeoutCap(d int64) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) {
		opts.pollTimeoutCap = d
	})
}

// WithEntryIDSource overrides the monotonic entry-id generator used to
// break priority ties. It exists for tests that need deterministic,
// predictable ordering; production callers should never need it.
func WithEntryIDSource(next func() uint64) LoopOption {
	return loopOptionFunc(func(opts *loopOptions) {
		if next != nil {
			opts.entryIDSource = next
		}
	})
}

// resolveOptions applies LoopOption values over the package defaults.
func resolveOptions(opts []LoopOption) *loopOptions {
	cfg := &loopOptions{
		logger: NewNopLogger(),
	}
	var nextID atomic.Uint64
	cfg.entryIDSource = func() uint64 {
		return nextID.Add(1)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyLoop(cfg)
	}
	return cfg
}
