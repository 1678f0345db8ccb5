package envisalink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	for code, hint := range map[string]Hint{
		"609": HintOpen,
		"610": HintClosed,
		"650": HintReady,
		"653": HintReadyForce,
		"654": HintAlarm,
		"601": HintAlarm,
		"655": HintDisarmed,
		"651": HintUnknown,
		"652": HintUnknown,
		"626": HintUnknown,
		"631": HintUnknown,
		"632": HintUnknown,
		"656": HintUnknown,
		"657": HintUnknown,
	} {
		t.Run(code, func(t *testing.T) {
			status := Translate(code, "")
			require.Equal(t, code, status.Code)
			require.Equal(t, hint, status.Hint)
			require.NotEqual(t, "Unknown", status.Name)
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		status := Translate("999", "")
		require.Equal(t, HintUnknown, status.Hint)
		require.Equal(t, "Unknown", status.Name)
		_, ok := status.SecurityState()
		require.False(t, ok)
	})
}

func TestParseStatusCode(t *testing.T) {
	for raw, expected := range map[string][2]string{
		"652 1": {"652", "1"},
		"652 0": {"652", "0"},
		"652":   {"652", ""},
		"650 1": {"650", ""},
		"609":   {"609", ""},
		"60":    {"60", ""},
		"":      {"", ""},
	} {
		t.Run(raw, func(t *testing.T) {
			code, mode := ParseStatusCode(raw)
			require.Equal(t, expected[0], code)
			require.Equal(t, expected[1], mode)
		})
	}
}

func TestStatusSecurityState(t *testing.T) {
	for name, tt := range map[string]struct {
		code, mode string
		state      SecurityState
		ok         bool
	}{
		"alarm":           {"654", "", AlarmTriggered, true},
		"ready":           {"650", "", Disarmed, true},
		"disarmed":        {"655", "", Disarmed, true},
		"away":            {"652", "0", AwayArm, true},
		"stay":            {"652", "1", StayArm, true},
		"zero entry away": {"652", "2", AwayArm, true},
		"zero entry stay": {"652", "3", StayArm, true},
		"no mode":         {"652", "", AwayArm, true},
		"not ready":       {"651", "", 0, false},
		"ready force":     {"653", "", 0, false},
		"zone open":       {"609", "", 0, false},
	} {
		t.Run(name, func(t *testing.T) {
			state, ok := Translate(tt.code, tt.mode).SecurityState()
			require.Equal(t, tt.ok, ok)
			if ok {
				require.Equal(t, tt.state, state)
			}
		})
	}
}

func TestStatusReady(t *testing.T) {
	require.True(t, Translate(CodeReady, "").Ready())
	require.True(t, Translate(CodeReadyForce, "").Ready())
	require.False(t, Translate(CodeNotReady, "").Ready())
	require.False(t, Translate(CodeArmed, "0").Ready())
	require.False(t, Translate(CodeReadyRestore, "").Ready())
}
