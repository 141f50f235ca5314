// Package jobs runs background derivative work (proxy transcodes and
// thumbnail strips) one job at a time in submission order.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueClosed is returned when submitting to a closed queue
var ErrQueueClosed = errors.New("job queue closed")

type task struct {
	name string
	run  func(ctx context.Context)
}

// Queue is a serialized FIFO: at most one job is in flight and the next
// one starts as soon as the previous returns.
type Queue struct {
	logger zerolog.Logger

	mu      sync.Mutex
	pending []task
	closed  bool
	running string

	wake   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue creates a queue and starts its worker
func NewQueue(logger zerolog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		logger: logger.With().Str("component", "jobs").Logger(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go q.loop()
	return q
}

func (q *Queue) submit(t task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, t)
	depth := len(q.pending)
	q.mu.Unlock()

	q.logger.Debug().Str("job", t.name).Int("depth", depth).Msg("job queued")

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) loop() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 {
			if q.closed {
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			select {
			case <-q.wake:
			case <-q.ctx.Done():
				return
			}
			q.mu.Lock()
		}
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.running = t.name
		q.mu.Unlock()

		start := time.Now()
		t.run(q.ctx)
		q.logger.Debug().Str("job", t.name).Dur("took", time.Since(start)).Msg("job finished")

		q.mu.Lock()
		q.running = ""
		q.mu.Unlock()
	}
}

// Len returns the number of jobs waiting to start
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Running returns the name of the job in flight, or ""
func (q *Queue) Running() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Close stops accepting jobs, runs everything already queued and waits for
// the worker to exit. If ctx ends first the remaining jobs still run, but
// with a cancelled context, so every handle resolves.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.logger.Warn().Int("pending", q.Len()).Msg("closing queue early, cancelling remaining jobs")
		q.cancel()
		<-q.done
		return ctx.Err()
	}
}

// Pending is the handle for a queued job's result
type Pending[T any] struct {
	done chan struct{}
	val  T
}

// Done is closed once the result is available
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the job has produced its result or ctx ends
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Resolved returns a handle that already holds v
func Resolved[T any](v T) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{}), val: v}
	close(p.done)
	return p
}

// Enqueue appends fn to q and returns a handle for its result
func Enqueue[T any](q *Queue, name string, fn func(ctx context.Context) T) (*Pending[T], error) {
	p := &Pending[T]{done: make(chan struct{})}
	err := q.submit(task{name: name, run: func(ctx context.Context) {
		p.val = fn(ctx)
		close(p.done)
	}})
	if err != nil {
		return nil, err
	}
	return p, nil
}
