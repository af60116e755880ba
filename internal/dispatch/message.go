package dispatch

import (
	"github.com/sweeney/fridge-monitor/internal/edge"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

// Kind identifies the payload of a Message.
type Kind int

const (
	// KindTick only advances the period grid.
	KindTick Kind = iota
	KindDoor
	KindPower
	KindSample
)

func (k Kind) String() string {
	switch k {
	case KindDoor:
		return "door"
	case KindPower:
		return "power"
	case KindSample:
		return "sample"
	default:
		return "tick"
	}
}

// Message is one input to the dispatcher. Only the field matching Kind is
// read.
type Message struct {
	Kind   Kind
	Time   logic.Timestamp
	Door   logic.DoorEventType
	Power  logic.PowerEventType
	Sample logic.TemperatureSample
}

// Tick returns a message that only advances the grid to ts.
func Tick(ts logic.Timestamp) Message {
	return Message{Kind: KindTick, Time: ts}
}

// Door returns a door event message.
func Door(typ logic.DoorEventType, ts logic.Timestamp) Message {
	return Message{Kind: KindDoor, Time: ts, Door: typ}
}

// Power returns a power event message.
func Power(typ logic.PowerEventType, ts logic.Timestamp) Message {
	return Message{Kind: KindPower, Time: ts, Power: typ}
}

// Sample returns a temperature sample message.
func Sample(s logic.TemperatureSample, ts logic.Timestamp) Message {
	return Message{Kind: KindSample, Time: ts, Sample: s}
}

// FromEdge converts a debounced input transition into a message at ts.
func FromEdge(ev edge.Event, ts logic.Timestamp) (Message, bool) {
	switch ev.Type {
	case edge.EventDoorOpened:
		return Door(logic.DoorOpened, ts), true
	case edge.EventDoorClosed:
		return Door(logic.DoorClosed, ts), true
	case edge.EventPowerOn:
		return Power(logic.PowerOn, ts), true
	case edge.EventPowerOff:
		return Power(logic.PowerOff, ts), true
	default:
		return Message{}, false
	}
}
