package envisalink

import "golang.org/x/exp/slices"

// SecurityState mirrors HomeKit's SecuritySystem current/target state values.
type SecurityState int

const (
	StayArm SecurityState = iota
	AwayArm
	NightArm
	Disarmed
	AlarmTriggered
)

func (s SecurityState) String() string {
	switch s {
	case StayArm:
		return "STAY_ARM"
	case AwayArm:
		return "AWAY_ARM"
	case NightArm:
		return "NIGHT_ARM"
	case Disarmed:
		return "DISARMED"
	case AlarmTriggered:
		return "ALARM_TRIGGERED"
	default:
		return "UNKNOWN"
	}
}

// SelectableTargets returns the states a user may pick as a target.
// DISARMED, STAY_ARM and AWAY_ARM are always kept, whatever is disabled.
func SelectableTargets(disabled ...SecurityState) []SecurityState {
	result := []SecurityState{}
	for _, s := range []SecurityState{StayArm, AwayArm, NightArm, Disarmed} {
		if s == NightArm && slices.Contains(disabled, s) {
			continue
		}
		result = append(result, s)
	}
	return result
}
