package envisalink

import (
	"context"
	"os"
	"time"

	logp "github.com/charmbracelet/log"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "envisalink",
})

// SetLogLevel changes the level of the package logger.
func SetLogLevel(level logp.Level) {
	log.SetLevel(level)
}

// BusyAck is the acknowledgement the panel sends when it could not take a
// command right now.
const BusyAck Ack = "024"

// Ack is the panel's reply to a command.
type Ack string

// Busy reports whether the command should be tried again later.
func (a Ack) Busy() bool {
	return a == BusyAck
}

// Link sends commands to the panel.
type Link interface {
	Send(ctx context.Context, command string) (Ack, error)
}

// Handler receives status events from the panel.
type Handler interface {
	OnZone(evt ZoneEvent)
	OnPartition(evt PartitionEvent)
	OnSystem(evt SystemEvent)
}
