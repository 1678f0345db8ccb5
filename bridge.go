package envisalink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// DefaultRetryDelay is the wait before a busy command is sent again.
const DefaultRetryDelay = time.Second

const (
	defaultClockDelay     = 5 * time.Second
	defaultClockInterval  = time.Hour
	defaultPartitionName  = "Alarm"
	clockQueueName        = "clock"
	partitionQueuePattern = "partition-%d"
)

// PartitionConfig configures one partition. Partitions are numbered in the
// order they are given, starting at 1.
type PartitionConfig struct {
	Name string
	PIN  string
}

// Options configures a Bridge.
type Options struct {
	PIN        string
	Partitions []PartitionConfig
	Zones      []Zone
	Programs   []Program
	// FirstProgramIndex is the first index not used by any zone.
	FirstProgramIndex int

	SuppressClockReset bool
	ClockResetDelay    time.Duration
	ClockResetInterval time.Duration
	RetryDelay         time.Duration
	Now                func() time.Time
}

func (o *Options) setDefaults() {
	if len(o.Partitions) == 0 {
		o.Partitions = []PartitionConfig{{Name: defaultPartitionName}}
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.ClockResetDelay == 0 {
		o.ClockResetDelay = defaultClockDelay
	}
	if o.ClockResetInterval == 0 {
		o.ClockResetInterval = defaultClockInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Bridge routes panel events to partitions, zones and programs, and runs
// the periodic clock reset.
type Bridge struct {
	link Link
	sink Sink
	opts Options

	partitions map[int]*Partition
	zones      *ZoneTracker
	programs   *ProgramTracker
	clock      *Queue
	clockTask  *Task

	mu      sync.Mutex
	battery BatteryStatus
}

func New(link Link, sink Sink, opts Options) *Bridge {
	if sink == nil {
		sink = nopSink{}
	}
	opts.setDefaults()

	b := &Bridge{
		link:       link,
		sink:       sink,
		opts:       opts,
		partitions: map[int]*Partition{},
		zones:      NewZoneTracker(sink),
		programs:   NewProgramTracker(sink, opts.FirstProgramIndex, opts.Programs),
	}

	for i, cfg := range opts.Partitions {
		pin := cfg.PIN
		if pin == "" {
			pin = opts.PIN
		}
		p := &Partition{
			Number: i + 1,
			Name:   cfg.Name,
			pin:    pin,
			sink:   sink,
			link:   link,
		}
		p.queue = NewQueue(fmt.Sprintf(partitionQueuePattern, p.Number), opts.RetryDelay, p.processAlarmState)
		b.partitions[p.Number] = p
	}

	for _, zone := range opts.Zones {
		if !b.zones.Register(zone) {
			log.Warn(
				"duplicate zone number, ignoring",
				"zone", zone.Number,
				"name", zone.Name,
			)
		}
	}

	b.clock = NewQueue(clockQueueName, opts.RetryDelay, b.processTimeChange)
	return b
}

// Start starts the periodic clock reset, unless suppressed.
func (b *Bridge) Start(ctx context.Context) {
	if b.opts.SuppressClockReset {
		log.Info("clock reset is disabled")
		return
	}
	b.clockTask = Every(ctx, b.opts.ClockResetDelay, b.opts.ClockResetInterval, b.SyncTime)
}

// Close stops the clock reset and all queues.
func (b *Bridge) Close() {
	if b.clockTask != nil {
		b.clockTask.Stop()
	}
	b.clock.Close()
	for _, p := range b.partitions {
		p.queue.Close()
	}
}

// Partition returns the partition with the given number.
func (b *Bridge) Partition(n int) (*Partition, bool) {
	p, ok := b.partitions[n]
	return p, ok
}

// Partitions returns all partitions, sorted by number.
func (b *Bridge) Partitions() []*Partition {
	result := make([]*Partition, 0, len(b.partitions))
	for _, p := range b.partitions {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b *Partition) int {
		return a.Number - b.Number
	})
	return result
}

func (b *Bridge) Zones() *ZoneTracker {
	return b.zones
}

func (b *Bridge) Programs() *ProgramTracker {
	return b.programs
}

// Battery returns the last known panel battery status.
func (b *Bridge) Battery() BatteryStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.battery
}

// SyncTime queues a clock reset on the panel.
func (b *Bridge) SyncTime() {
	b.clock.Enqueue(newTimeSyncEvent(nil))
}

func (b *Bridge) OnZone(evt ZoneEvent) {
	defer recoverHandler("zone")
	b.zones.OnZoneEvent(evt.Zone, evt.Code, evt.Mode)
}

func (b *Bridge) OnPartition(evt PartitionEvent) {
	defer recoverHandler("partition")
	p, ok := b.partitions[evt.Partition]
	if !ok {
		log.Debug("ignoring event for unknown partition", "partition", evt.Partition, "code", evt.Code)
		return
	}
	p.OnStatus(evt.Code, evt.Mode)
}

// OnSystem handles panel-wide codes and replays any snapshot through the
// zone and partition handlers.
func (b *Bridge) OnSystem(evt SystemEvent) {
	defer recoverHandler("system")

	if evt.Code != "" {
		code, _ := ParseStatusCode(evt.Code)
		b.programs.OnSystemEvent(code)
		if status, ok := batteryStatusFor(code); ok {
			b.mu.Lock()
			b.battery = status
			b.mu.Unlock()
			log.Info("panel battery", "status", status)
			b.sink.SetBattery(status)
		}
	}

	for _, n := range sortedKeys(evt.Zones) {
		code, mode := ParseStatusCode(evt.Zones[n])
		b.OnZone(ZoneEvent{Zone: n, Code: code, Mode: mode})
	}
	for _, n := range sortedKeys(evt.Partitions) {
		code, mode := ParseStatusCode(evt.Partitions[n])
		b.OnPartition(PartitionEvent{Partition: n, Code: code, Mode: mode})
	}
}

func (b *Bridge) processTimeChange(ctx context.Context, evt *DelayedEvent) *DelayedEvent {
	command := timeSyncCommand(b.opts.Now())
	log.Info("setting the current time on the alarm system", "time", command[len(cmdSetTime):])
	ack, err := b.link.Send(ctx, command)
	switch {
	case err != nil:
		log.Error("time not set", "err", err)
	case ack.Busy():
		log.Warn("time not set, panel busy")
	default:
		log.Info("time set", "ack", ack)
	}
	evt.resolve(0, err == nil && !ack.Busy())
	return nil
}

func recoverHandler(name string) {
	if r := recover(); r != nil {
		log.Error("failed to handle update", "handler", name, "err", r)
	}
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
