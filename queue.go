package envisalink

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind is the kind of a delayed event.
type EventKind uint8

const (
	EventArmDisarm EventKind = iota + 1
	EventTimeSync
)

func (k EventKind) String() string {
	switch k {
	case EventArmDisarm:
		return "arm-disarm"
	case EventTimeSync:
		return "time-sync"
	default:
		return "unknown"
	}
}

// Completion is called once an event is done. ok is false when the event
// finished without a resulting state.
type Completion func(state SecurityState, ok bool)

// DelayedEvent is a command waiting in a Queue.
type DelayedEvent struct {
	ID        string
	Kind      EventKind
	Target    SecurityState
	EnableSet bool
	Attempts  int
	done      Completion
	once      *sync.Once
}

func newRequestEvent(target SecurityState, enableSet bool, done Completion) *DelayedEvent {
	return &DelayedEvent{
		ID:        uuid.NewString(),
		Kind:      EventArmDisarm,
		Target:    target,
		EnableSet: enableSet,
		done:      done,
		once:      &sync.Once{},
	}
}

func newTimeSyncEvent(done Completion) *DelayedEvent {
	return &DelayedEvent{
		ID:   uuid.NewString(),
		Kind: EventTimeSync,
		done: done,
		once: &sync.Once{},
	}
}

// retryOf returns a copy of evt for the next attempt.
func retryOf(evt *DelayedEvent) *DelayedEvent {
	next := *evt
	next.Attempts++
	return &next
}

// resolve calls the completion at most once, retries included.
func (e *DelayedEvent) resolve(state SecurityState, ok bool) {
	e.once.Do(func() {
		if e.done != nil {
			e.done(state, ok)
		}
	})
}

// Processor handles one event. It either resolves the event and returns nil,
// or returns the event to retry.
type Processor func(ctx context.Context, evt *DelayedEvent) *DelayedEvent

// Queue runs the delayed events of one entity in order, one at a time.
// A retried event goes back to the head of the queue after the retry delay.
type Queue struct {
	name       string
	process    Processor
	retryDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	events  []*DelayedEvent
	running bool
	closed  bool
	timer   *time.Timer
}

func NewQueue(name string, retryDelay time.Duration, process Processor) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		name:       name,
		process:    process,
		retryDelay: retryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Enqueue appends evt to the queue and starts draining if idle.
func (q *Queue) Enqueue(evt *DelayedEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		log.Warn("queue closed, dropping event", "queue", q.name, "kind", evt.Kind, "id", evt.ID)
		evt.resolve(0, false)
		return
	}
	q.events = append(q.events, evt)
	log.Debug("event queued", "queue", q.name, "kind", evt.Kind, "id", evt.ID, "pending", len(q.events))
	if !q.running {
		q.running = true
		q.schedule(0)
	}
	q.mu.Unlock()
}

// Len returns the number of events waiting, not counting the one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops the queue. Events still waiting complete without a value.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
	}
	pending := q.events
	q.events = nil
	q.mu.Unlock()

	q.cancel()
	for _, evt := range pending {
		evt.resolve(0, false)
	}
}

// must hold q.mu.
func (q *Queue) schedule(d time.Duration) {
	q.timer = time.AfterFunc(d, q.drain)
}

func (q *Queue) drain() {
	q.mu.Lock()
	if q.closed || len(q.events) == 0 {
		q.running = false
		q.mu.Unlock()
		return
	}
	evt := q.events[0]
	q.events = q.events[1:]
	q.mu.Unlock()

	retry := q.safeProcess(evt)

	q.mu.Lock()
	if q.closed {
		q.running = false
		q.mu.Unlock()
		if retry != nil {
			retry.resolve(0, false)
		}
		return
	}
	defer q.mu.Unlock()
	switch {
	case retry != nil:
		log.Info("retrying event", "queue", q.name, "id", retry.ID, "attempt", retry.Attempts, "in", q.retryDelay)
		q.events = append([]*DelayedEvent{retry}, q.events...)
		q.schedule(q.retryDelay)
	case len(q.events) > 0:
		q.schedule(0)
	default:
		q.running = false
	}
}

func (q *Queue) safeProcess(evt *DelayedEvent) (retry *DelayedEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("failed to process delayed event", "queue", q.name, "id", evt.ID, "err", r)
			retry = nil
			evt.resolve(0, false)
		}
	}()
	return q.process(q.ctx, evt)
}
