package bridge

import (
	"context"
	"sync"
)

// Promise is the pending outcome of a static image job. It settles exactly
// once.
type Promise struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func (p *Promise) resolve(v any) {
	p.once.Do(func() {
		p.value = v
		close(p.done)
	})
}

func (p *Promise) reject(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} { return p.done }

// Await blocks until the promise settles or ctx ends. Rejections are
// *CodedError values.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
