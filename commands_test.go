package envisalink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArmDisarmCommand(t *testing.T) {
	for state, expected := range map[SecurityState]string{
		Disarmed: "04021234",
		StayArm:  "0312",
		NightArm: "0312",
		AwayArm:  "0302",
	} {
		t.Run(state.String(), func(t *testing.T) {
			cmd, ok := armDisarmCommand(2, "1234", state)
			require.True(t, ok)
			require.Equal(t, expected, cmd)
		})
	}

	t.Run("unhandled", func(t *testing.T) {
		_, ok := armDisarmCommand(1, "1234", AlarmTriggered)
		require.False(t, ok)
		_, ok = armDisarmCommand(1, "1234", SecurityState(42))
		require.False(t, ok)
	})
}

func TestTimeSyncCommand(t *testing.T) {
	now := time.Date(2024, time.March, 7, 9, 5, 0, 0, time.UTC)
	require.Equal(t, "0100905030724", timeSyncCommand(now))
}

func TestAck(t *testing.T) {
	require.True(t, Ack("024").Busy())
	require.False(t, Ack("500").Busy())
	require.False(t, Ack("").Busy())
}
