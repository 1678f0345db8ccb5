package envisalink

import (
	"context"
	"fmt"
	"sync"
)

// Partition tracks the state of one panel partition and owns its command
// queue.
type Partition struct {
	Number int
	Name   string

	pin   string
	sink  Sink
	link  Link
	queue *Queue

	mu         sync.Mutex
	status     *Status
	lastTarget *SecurityState
}

func (p *Partition) String() string {
	return fmt.Sprintf("%s (%d)", p.Name, p.Number)
}

// OnStatus applies a new status code reported by the panel.
func (p *Partition) OnStatus(code, mode string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := Translate(code, mode)
	p.status = &status
	log.Debug("partition status", "partition", p.Number, "code", code, "mode", mode, "status", status.Name)

	switch code {
	case CodeExitDelay:
		log.Info("exit delay", "partition", p.String())
	case CodeEntryDelay:
		log.Info("entry delay", "partition", p.String())
	case CodeAlarm:
		log.Info("alarm state", "partition", p.String(), "state", AlarmTriggered)
		p.sink.SetCurrentState(p.Number, AlarmTriggered)
	case CodeArmed, CodeDisarmed:
		state, _ := status.SecurityState()
		p.lastTarget = &state
		log.Info("alarm state", "partition", p.String(), "state", state)
		p.sink.SetTargetState(p.Number, state, true)
		p.sink.SetCurrentState(p.Number, state)
	case CodeReadyRestore, CodeReady, CodeNotReady, CodeReadyForce:
		state, ok := status.SecurityState()
		if p.lastTarget == nil && ok {
			log.Info("alarm state", "partition", p.String(), "state", state)
		}
		p.lastTarget = nil
		if ok {
			p.lastTarget = &state
		}
		obstructed := !status.Ready()
		log.Debug("setting obstructed", "partition", p.String(), "obstructed", obstructed)
		p.sink.SetObstruction(p.Number, obstructed)
	}
}

// CurrentState is the state shown as the partition's current state.
func (p *Partition) CurrentState() SecurityState {
	return p.AlarmState(false)
}

// TargetState is the state shown as the partition's target state. It is
// never AlarmTriggered.
func (p *Partition) TargetState() SecurityState {
	return p.AlarmState(true)
}

// AlarmState computes the current or target state. When the partition is
// in alarm, the target falls back to the last armed/disarmed state, or
// Disarmed if there is none.
func (p *Partition) AlarmState(wantTarget bool) SecurityState {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := SecurityState(0), false
	if p.status != nil {
		current, ok = p.status.SecurityState()
	}
	if wantTarget && ok && current == AlarmTriggered {
		ok = false
	}

	result := Disarmed
	switch {
	case ok:
		result = current
	case p.lastTarget != nil:
		result = *p.lastTarget
	}
	log.Debug(
		"alarm state",
		"partition", p.Number,
		"target", wantTarget,
		"state", result,
	)
	return result
}

// LastTarget returns the last armed/disarmed state the panel reported.
func (p *Partition) LastTarget() (SecurityState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastTarget == nil {
		return 0, false
	}
	return *p.lastTarget, true
}

// Status returns the last status reported for the partition.
func (p *Partition) Status() (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return Status{}, false
	}
	return *p.status, true
}

// Obstructed reports whether the partition is not ready to be armed.
func (p *Partition) Obstructed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status == nil || !p.status.Ready()
}

// RequestTargetState queues a request to move the partition to state.
// done is called once the request completes. Requests with echo set only
// reflect the panel state and complete without sending anything.
func (p *Partition) RequestTargetState(state SecurityState, echo bool, done Completion) {
	log.Debug("set alarm target state", "partition", p.Number, "state", state, "echo", echo)
	p.queue.Enqueue(newRequestEvent(state, !echo, done))
}

// SetTargetState requests state and waits for the result. It returns false
// if the request finished without a state or ctx was done first.
func (p *Partition) SetTargetState(ctx context.Context, state SecurityState) (SecurityState, bool) {
	type result struct {
		state SecurityState
		ok    bool
	}
	ch := make(chan result, 1)
	p.RequestTargetState(state, false, func(state SecurityState, ok bool) {
		ch <- result{state, ok}
	})
	select {
	case r := <-ch:
		return r.state, r.ok
	case <-ctx.Done():
		return 0, false
	}
}

// Pending returns the number of queued requests.
func (p *Partition) Pending() int {
	return p.queue.Len()
}

func (p *Partition) notReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status != nil && p.status.Code == CodeNotReady
}

func (p *Partition) processAlarmState(ctx context.Context, evt *DelayedEvent) *DelayedEvent {
	if !evt.EnableSet {
		evt.resolve(0, false)
		return nil
	}

	if evt.Target != Disarmed && p.notReady() {
		log.Warn("partition not ready, refusing to arm", "partition", p.String(), "requested", evt.Target)
		p.sink.SetTargetState(p.Number, Disarmed, false)
		evt.resolve(Disarmed, true)
		return nil
	}

	command, ok := armDisarmCommand(p.Number, p.pin, evt.Target)
	if !ok {
		log.Warn("unhandled alarm state", "partition", p.String(), "state", evt.Target)
		evt.resolve(0, false)
		return nil
	}

	log.Info(
		"setting alarm state",
		"partition", p.String(),
		"state", evt.Target,
		"attempt", evt.Attempts,
	)
	ack, err := p.link.Send(ctx, command)
	if err != nil {
		log.Error("could not set alarm state", "partition", p.String(), "state", evt.Target, "err", err)
		evt.resolve(0, false)
		return nil
	}

	if ack.Busy() {
		if evt.Attempts >= MaxRetries {
			log.Error("panel busy, giving up", "partition", p.String(), "state", evt.Target, "attempts", evt.Attempts)
			evt.resolve(0, false)
			return nil
		}
		log.Warn("panel busy", "partition", p.String(), "state", evt.Target)
		return retryOf(evt)
	}

	p.sink.SetTargetState(p.Number, evt.Target, false)
	evt.resolve(evt.Target, true)
	return nil
}
