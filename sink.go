package envisalink

// Sink receives state changes computed by the bridge.
//
// Implementations must not call back into the bridge synchronously: writes
// happen while the emitting partition or zone holds its lock.
type Sink interface {
	SetCurrentState(partition int, state SecurityState)
	// SetTargetState writes the target state. echo is true when the write
	// only reflects what the panel reported and must never be turned into
	// a new arm/disarm request.
	SetTargetState(partition int, state SecurityState, echo bool)
	SetObstruction(partition int, obstructed bool)
	SetZone(zone int, kind Kind, value bool)
	SetProgram(index int, detected bool)
	SetBattery(status BatteryStatus)
}

type nopSink struct{}

func (nopSink) SetCurrentState(int, SecurityState)      {}
func (nopSink) SetTargetState(int, SecurityState, bool) {}
func (nopSink) SetObstruction(int, bool)                {}
func (nopSink) SetZone(int, Kind, bool)                 {}
func (nopSink) SetProgram(int, bool)                    {}
func (nopSink) SetBattery(BatteryStatus)                {}
