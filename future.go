package rcmp

import (
	"context"
	"sync"
)

// Future is the result of an asynchronous operation that settles exactly once.
//
// Hosts return a Future from AppendScript and AppendStylesheet after the
// element has been inserted, so the order in which futures are created is
// the order in which the underlying loads were started.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewFuture returns a pending future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that already succeeded.
func Resolved() *Future {
	f := NewFuture()
	f.Settle(nil)
	return f
}

// Rejected returns a future that already failed with err.
func Rejected(err error) *Future {
	f := NewFuture()
	f.Settle(err)
	return f
}

// Settle completes the future. Only the first call has an effect; it reports
// whether this call settled the future.
func (f *Future) Settle(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the settled error. It returns nil while the future is pending.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Settled reports whether the future has completed.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx is done.
// Giving up on the wait does not cancel the underlying operation.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
