package envisalink

import (
	"context"
	"sync"
	"time"
)

type fakeLink struct {
	mu    sync.Mutex
	sent  []string
	acks  []Ack
	err   error
	block chan struct{}
}

// Send pops the next ack, or acknowledges with "500" when none is left.
func (l *fakeLink) Send(ctx context.Context, command string) (Ack, error) {
	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, command)
	if l.err != nil {
		return "", l.err
	}
	if len(l.acks) == 0 {
		return "500", nil
	}
	ack := l.acks[0]
	l.acks = l.acks[1:]
	return ack, nil
}

func (l *fakeLink) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}

type targetWrite struct {
	Partition int
	State     SecurityState
	Echo      bool
}

type recordingSink struct {
	mu          sync.Mutex
	current     map[int]SecurityState
	targets     []targetWrite
	obstruction map[int]bool
	zones       map[int]bool
	programs    map[int]bool
	battery     BatteryStatus
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		current:     map[int]SecurityState{},
		obstruction: map[int]bool{},
		zones:       map[int]bool{},
		programs:    map[int]bool{},
	}
}

func (s *recordingSink) SetCurrentState(p int, state SecurityState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[p] = state
}

func (s *recordingSink) SetTargetState(p int, state SecurityState, echo bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, targetWrite{p, state, echo})
}

func (s *recordingSink) SetObstruction(p int, obstructed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obstruction[p] = obstructed
}

func (s *recordingSink) SetZone(zone int, _ Kind, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[zone] = value
}

func (s *recordingSink) SetProgram(index int, detected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[index] = detected
}

func (s *recordingSink) SetBattery(status BatteryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = status
}

func (s *recordingSink) Targets() []targetWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]targetWrite(nil), s.targets...)
}

func (s *recordingSink) Current(p int) (SecurityState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.current[p]
	return state, ok
}

func (s *recordingSink) Obstructed(p int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.obstruction[p]
	return v, ok
}

func (s *recordingSink) Zone(n int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.zones[n]
	return v, ok
}

func (s *recordingSink) Program(n int) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.programs[n]
	return v, ok
}

func newTestPartition(link Link, sink Sink) *Partition {
	p := &Partition{
		Number: 1,
		Name:   "Alarm",
		pin:    "1234",
		sink:   sink,
		link:   link,
	}
	p.queue = NewQueue("partition-1", 10*time.Millisecond, p.processAlarmState)
	return p
}
