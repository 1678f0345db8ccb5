package envisalink

import (
	"strconv"
	"time"
)

const (
	cmdSetTime = "010"
	cmdArmAway = "030"
	cmdArmStay = "031"
	cmdDisarm  = "040"
	timeLayout = "1504010206" // HHMM mmddyy
	// MaxRetries is how many times a command answered with a busy ack is
	// sent again before giving up.
	MaxRetries = 5
)

// armDisarmCommand builds the command that moves a partition to state.
// It returns false for states that cannot be requested.
func armDisarmCommand(partition int, pin string, state SecurityState) (string, bool) {
	p := strconv.Itoa(partition)
	switch state {
	case Disarmed:
		return cmdDisarm + p + pin, true
	case StayArm, NightArm:
		return cmdArmStay + p, true
	case AwayArm:
		return cmdArmAway + p, true
	default:
		return "", false
	}
}

func timeSyncCommand(t time.Time) string {
	return cmdSetTime + t.Format(timeLayout)
}
