package envisalink

import (
	"context"
	"time"
)

// Task is a function running on a fixed interval until stopped.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every runs fn after first, then every interval, until ctx is done or the
// task is stopped.
func Every(ctx context.Context, first, interval time.Duration, fn func()) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		timer := time.NewTimer(first)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				fn()
				timer.Reset(interval)
			}
		}
	}()
	return t
}

// Stop cancels the task and waits for it to return.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}
