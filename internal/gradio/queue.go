// Package gradio implements the two-step queued call protocol used by Gradio
// clients: a POST submits the input and returns an event id, a GET on that id
// streams the outcome as server-sent events.
package gradio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	// ErrEventNotFound is returned for unknown or expired event ids.
	ErrEventNotFound = errors.New("event not found")
	// ErrQueueClosed is returned by Submit after Shutdown.
	ErrQueueClosed = errors.New("queue is closed")
)

// Func is the operation behind an endpoint.
type Func func(ctx context.Context, input string) (string, error)

// Outcome is the terminal state of an event.
type Outcome struct {
	Output string
	Err    error
}

type event struct {
	done    chan struct{}
	outcome Outcome
}

// Queue runs submitted calls in the background and keeps their outcomes
// for ttl so clients can fetch them.
type Queue struct {
	fn     Func
	store  *cache.Cache
	sem    chan struct{}
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue. concurrency bounds how many calls run at once
// (values below 1 mean 1).
func NewQueue(fn Func, ttl time.Duration, concurrency int, logger *zap.Logger) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		fn:     fn,
		store:  cache.New(ttl, ttl/2+time.Second),
		sem:    make(chan struct{}, concurrency),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit enqueues input and returns the event id.
func (q *Queue) Submit(input string) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	id := uuid.NewString()
	ev := &event{done: make(chan struct{})}
	q.store.SetDefault(id, ev)

	q.wg.Add(1)
	go q.run(id, ev, input)
	return id, nil
}

func (q *Queue) run(id string, ev *event, input string) {
	defer q.wg.Done()
	defer close(ev.done)

	select {
	case q.sem <- struct{}{}:
	case <-q.ctx.Done():
		ev.outcome = Outcome{Err: q.ctx.Err()}
		return
	}
	defer func() { <-q.sem }()

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Queued call panicked", zap.String("event_id", id), zap.Any("panic", r))
			ev.outcome = Outcome{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out, err := q.fn(q.ctx, input)
	if err != nil {
		q.logger.Warn("Queued call failed", zap.String("event_id", id), zap.Error(err))
	}
	ev.outcome = Outcome{Output: out, Err: err}
}

// Await blocks until the event finishes or ctx is done.
func (q *Queue) Await(ctx context.Context, id string) (Outcome, error) {
	v, ok := q.store.Get(id)
	if !ok {
		return Outcome{}, ErrEventNotFound
	}
	ev := v.(*event)
	select {
	case <-ev.done:
		return ev.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Done returns a channel closed when the event finishes.
func (q *Queue) Done(id string) (<-chan struct{}, error) {
	v, ok := q.store.Get(id)
	if !ok {
		return nil, ErrEventNotFound
	}
	return v.(*event).done, nil
}

// Len reports the number of events currently held.
func (q *Queue) Len() int {
	return q.store.ItemCount()
}

// Shutdown stops accepting work and waits for running calls. Calls still
// running when ctx expires are cancelled.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-finished
		return ctx.Err()
	}
}
