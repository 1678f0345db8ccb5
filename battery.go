package envisalink

type BatteryStatus uint8

const (
	BatteryStatusUnknown BatteryStatus = iota
	BatteryStatusLow
	BatteryStatusNormal
)

const (
	CodeBatteryTrouble        = "800"
	CodeBatteryTroubleRestore = "801"
)

func (b BatteryStatus) String() string {
	switch b {
	case BatteryStatusLow:
		return "low"
	case BatteryStatusNormal:
		return "normal"
	default:
		return "unknown"
	}
}

// Level is a rough battery percentage, the panel only reports trouble.
func (b BatteryStatus) Level() int {
	switch b {
	case BatteryStatusNormal:
		return 100
	case BatteryStatusLow:
		return 20
	default:
		return 0
	}
}

func batteryStatusFor(code string) (BatteryStatus, bool) {
	switch code {
	case CodeBatteryTrouble:
		return BatteryStatusLow, true
	case CodeBatteryTroubleRestore:
		return BatteryStatusNormal, true
	default:
		return BatteryStatusUnknown, false
	}
}
