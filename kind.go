package envisalink

import "fmt"

// Kind is the type of an accessory backed by the panel.
type Kind uint8

const (
	KindPartition Kind = iota + 1
	KindMotion
	KindDoor
	KindWindow
	KindLeak
	KindSmoke
)

func (k Kind) String() string {
	switch k {
	case KindPartition:
		return "partition"
	case KindMotion:
		return "motion"
	case KindDoor:
		return "door"
	case KindWindow:
		return "window"
	case KindLeak:
		return "leak"
	case KindSmoke:
		return "smoke"
	default:
		return "unknown"
	}
}

// ParseKind parses a zone type as written in the configuration.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindMotion, KindDoor, KindWindow, KindLeak, KindSmoke} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unhandled accessory type: %q", s)
}

// IsContact reports whether the kind is exposed as a contact sensor.
func (k Kind) IsContact() bool {
	return k == KindDoor || k == KindWindow
}

// readings maps a sensor kind to the boolean it exposes for a hint.
// Contact sensors are inverted: an open zone means contact not detected.
var readings = map[Kind]func(Hint) bool{
	KindMotion: isOpen,
	KindDoor:   isClosed,
	KindWindow: isClosed,
	KindLeak:   isOpen,
	KindSmoke:  isOpen,
}

func isOpen(h Hint) bool   { return h == HintOpen }
func isClosed(h Hint) bool { return h != HintOpen }

// Reading returns the exposed sensor value for the given hint.
func (k Kind) Reading(h Hint) bool {
	fn, ok := readings[k]
	if !ok {
		return false
	}
	return fn(h)
}
