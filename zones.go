package envisalink

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Zone is a configured zone and its last known status.
type Zone struct {
	Number    int
	Name      string
	Kind      Kind
	Partition int
	Status    Status
}

// Detected is the sensor reading exposed for the zone.
// A zone that has never reported reads as closed.
func (z Zone) Detected() bool {
	return z.Kind.Reading(z.Status.Hint)
}

// ZoneTracker keeps the last status of every configured zone.
type ZoneTracker struct {
	mu    sync.Mutex
	zones map[int]*Zone
	sink  Sink
}

func NewZoneTracker(sink Sink) *ZoneTracker {
	if sink == nil {
		sink = nopSink{}
	}
	return &ZoneTracker{
		zones: map[int]*Zone{},
		sink:  sink,
	}
}

// Register adds a zone to be monitored. It returns false if the zone number
// is already taken, in which case the zone is ignored.
func (t *ZoneTracker) Register(zone Zone) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.zones[zone.Number]; ok {
		return false
	}
	t.zones[zone.Number] = &zone
	return true
}

// OnZoneEvent stores the new status of a zone and pushes the resulting
// reading to the sink. Events for unknown zones are ignored.
func (t *ZoneTracker) OnZoneEvent(number int, code, mode string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	zone, ok := t.zones[number]
	if !ok {
		log.Debug("ignoring event for unmonitored zone", "zone", number, "code", code)
		return
	}
	zone.Status = Translate(code, mode)
	log.Info(
		"zone status",
		"zone", zone.Number,
		"name", zone.Name,
		"code", zone.Status.Code,
		"status", zone.Status.Name,
	)
	t.sink.SetZone(zone.Number, zone.Kind, zone.Detected())
}

// Detected returns the reading of a zone, and false if it is not monitored.
func (t *ZoneTracker) Detected(number int) (bool, bool) {
	zone, ok := t.Zone(number)
	if !ok {
		return false, false
	}
	return zone.Detected(), true
}

// Zone returns a copy of the zone.
func (t *ZoneTracker) Zone(number int) (Zone, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	zone, ok := t.zones[number]
	if !ok {
		return Zone{}, false
	}
	return *zone, true
}

// Zones returns a copy of all zones, sorted by number.
func (t *ZoneTracker) Zones() []Zone {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Zone, 0, len(t.zones))
	for _, z := range t.zones {
		result = append(result, *z)
	}
	slices.SortFunc(result, func(a, b Zone) int {
		return a.Number - b.Number
	})
	return result
}

// Program is a virtual smoke sensor fed by panel-wide system codes.
type Program struct {
	Index     int
	Name      string
	Partition int
	Detected  bool
}

// ProgramTracker keeps the smoke programs. Program indexes start at the
// first index not used by any zone.
type ProgramTracker struct {
	mu       sync.Mutex
	programs []*Program
	sink     Sink
}

func NewProgramTracker(sink Sink, first int, programs []Program) *ProgramTracker {
	if sink == nil {
		sink = nopSink{}
	}
	t := &ProgramTracker{sink: sink}
	for i, p := range programs {
		p := p
		p.Index = first + i
		t.programs = append(t.programs, &p)
	}
	return t
}

// OnSystemEvent applies a panel-wide code to all programs.
func (t *ProgramTracker) OnSystemEvent(code string) {
	var detected bool
	switch code {
	case CodeSmokeProgram:
		detected = true
	case CodeSmokeProgramClear:
		detected = false
	default:
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.programs {
		p.Detected = detected
		log.Info("smoke program", "name", p.Name, "index", p.Index, "detected", detected)
		t.sink.SetProgram(p.Index, detected)
	}
}

// Programs returns a copy of all programs.
func (t *ProgramTracker) Programs() []Program {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Program, 0, len(t.programs))
	for _, p := range t.programs {
		result = append(result, *p)
	}
	return result
}
