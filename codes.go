package envisalink

// Hint is the coarse meaning of a status code, used by sensors and the
// partition ready check.
type Hint string

const (
	HintOpen       Hint = "open"
	HintClosed     Hint = "closed"
	HintReady      Hint = "ready"
	HintReadyForce Hint = "readyforce"
	HintAlarm      Hint = "alarm"
	HintDisarmed   Hint = "disarmed"
	HintUnknown    Hint = "unknown"
)

const (
	CodeZoneOpen          = "609"
	CodeZoneRestored      = "610"
	CodeReadyRestore      = "626"
	CodeSmokeProgram      = "631"
	CodeSmokeProgramClear = "632"
	CodeReady             = "650"
	CodeNotReady          = "651"
	CodeArmed             = "652"
	CodeReadyForce        = "653"
	CodeAlarm             = "654"
	CodeDisarmed          = "655"
	CodeExitDelay         = "656"
	CodeEntryDelay        = "657"
)

type codeInfo struct {
	name string
	hint Hint
}

var codes = map[string]codeInfo{
	"500":                 {"Command Acknowledge", HintUnknown},
	"501":                 {"Command Error", HintUnknown},
	"502":                 {"System Error", HintUnknown},
	"601":                 {"Zone Alarm", HintAlarm},
	"602":                 {"Zone Alarm Restore", HintUnknown},
	"603":                 {"Zone Tamper", HintUnknown},
	"604":                 {"Zone Tamper Restore", HintUnknown},
	"605":                 {"Zone Fault", HintUnknown},
	"606":                 {"Zone Fault Restore", HintUnknown},
	CodeZoneOpen:          {"Zone Open", HintOpen},
	CodeZoneRestored:      {"Zone Restored", HintClosed},
	CodeReadyRestore:      {"Partition Ready Restore", HintUnknown},
	CodeSmokeProgram:      {"Smoke/Aux Alarm", HintUnknown},
	CodeSmokeProgramClear: {"Smoke/Aux Alarm Restore", HintUnknown},
	CodeReady:             {"Partition Ready", HintReady},
	CodeNotReady:          {"Partition Not Ready", HintUnknown},
	CodeArmed:             {"Partition Armed", HintUnknown},
	CodeReadyForce:        {"Partition Ready - Force Arming Enabled", HintReadyForce},
	CodeAlarm:             {"Partition In Alarm", HintAlarm},
	CodeDisarmed:          {"Partition Disarmed", HintDisarmed},
	CodeExitDelay:         {"Exit Delay in Progress", HintUnknown},
	CodeEntryDelay:        {"Entry Delay in Progress", HintUnknown},
	"658":                 {"Keypad Lock-out", HintUnknown},
	"659":                 {"Partition Failed to Arm", HintUnknown},
	"672":                 {"Failure to Arm", HintUnknown},
	"673":                 {"Partition is Busy", HintUnknown},
	"700":                 {"User Closing", HintUnknown},
	"750":                 {"User Opening", HintUnknown},
	"751":                 {"Special Opening", HintUnknown},
}

// Status is a translated status code.
type Status struct {
	Code string
	Mode string
	Name string
	Hint Hint
}

// Translate maps a raw code and its optional mode digit to a Status.
// Unknown codes translate to HintUnknown.
func Translate(code, mode string) Status {
	info, ok := codes[code]
	if !ok {
		info = codeInfo{"Unknown", HintUnknown}
	}
	return Status{
		Code: code,
		Mode: mode,
		Name: info.name,
		Hint: info.hint,
	}
}

// ParseStatusCode splits a raw proxy code, e.g. "652 1", into its code and mode.
// The mode is only meaningful for armed partitions.
func ParseStatusCode(raw string) (code, mode string) {
	if len(raw) < 3 {
		return raw, ""
	}
	code = raw[:3]
	if code == CodeArmed && len(raw) >= 5 {
		mode = raw[4:5]
	}
	return code, mode
}

// SecurityState returns the partition state implied by the status, if any.
func (s Status) SecurityState() (SecurityState, bool) {
	switch {
	case s.Hint == HintAlarm:
		return AlarmTriggered, true
	case s.Code == CodeReady || s.Hint == HintDisarmed:
		return Disarmed, true
	case s.Code == CodeArmed:
		// 0: away, 1: stay, 2: zero-entry away, 3: zero-entry stay
		if s.Mode == "1" || s.Mode == "3" {
			return StayArm, true
		}
		return AwayArm, true
	default:
		return 0, false
	}
}

// Ready reports whether the partition can be armed.
func (s Status) Ready() bool {
	return s.Hint == HintReady || s.Hint == HintReadyForce
}
