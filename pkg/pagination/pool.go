package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTaskPanic marks a settlement whose task panicked.
var ErrTaskPanic = errors.New("task panicked")

// Settlement is the outcome of one pool task.
type Settlement[T any] struct {
	// Index is the submission order, starting at 0.
	Index int
	Value T
	Err   error
}

// Fulfilled reports whether the task completed without error.
func (s Settlement[T]) Fulfilled() bool {
	return s.Err == nil
}

// Pool runs tasks with at most a fixed number in flight. Submitted tasks
// wait for a free permit; Wait blocks until every task has settled.
type Pool[T any] struct {
	permits chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	settlements []Settlement[T]
}

// NewPool creates a pool with the given number of permits (minimum 1).
func NewPool[T any](permits int) *Pool[T] {
	if permits < 1 {
		permits = 1
	}
	return &Pool[T]{
		permits: make(chan struct{}, permits),
	}
}

// Permits returns the concurrency ceiling of the pool.
func (p *Pool[T]) Permits() int {
	return cap(p.permits)
}

// Submit schedules task and returns its settlement index. It does not
// block. If ctx is done before a permit is free the task never runs and
// settles with ctx.Err().
func (p *Pool[T]) Submit(ctx context.Context, task func(context.Context) (T, error)) int {
	p.mu.Lock()
	index := len(p.settlements)
	p.settlements = append(p.settlements, Settlement[T]{Index: index})
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.permits <- struct{}{}:
		case <-ctx.Done():
			p.settle(index, *new(T), ctx.Err())
			return
		}
		defer func() { <-p.permits }()

		value, err := run(ctx, task)
		p.settle(index, value, err)
	}()

	return index
}

// Wait blocks until all submitted tasks have settled and returns the
// settlements in submission order.
func (p *Pool[T]) Wait() []Settlement[T] {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Settlement[T], len(p.settlements))
	copy(out, p.settlements)
	return out
}

func (p *Pool[T]) settle(index int, value T, err error) {
	p.mu.Lock()
	p.settlements[index] = Settlement[T]{Index: index, Value: value, Err: err}
	p.mu.Unlock()
}

// run executes task and turns a panic into an error.
func run[T any](ctx context.Context, task func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value, err = zero, fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return task(ctx)
}
