// Package edge debounces polled door and power inputs into transition events.
// It has no hardware or clock dependencies; time is passed in with every
// sample.
package edge

import "time"

// State is the debounced logical state of one input.
type State string

const (
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
	StateOn     State = "ON"
	StateOff    State = "OFF"
)

// EventType is a debounced transition.
type EventType string

const (
	EventDoorOpened EventType = "DOOR_OPENED"
	EventDoorClosed EventType = "DOOR_CLOSED"
	EventPowerOn    EventType = "POWER_ON"
	EventPowerOff   EventType = "POWER_OFF"
)

// Event is a transition ready to be handed to the trackers.
type Event struct {
	// Timestamp is the poll that confirmed the transition, not the first
	// poll that saw the new value. Events stay in poll order.
	Timestamp  time.Time
	Type       EventType
	DoorState  State
	PowerState State
}

// Input is a single poll of both inputs, already in logical form.
type Input struct {
	DoorOpen bool
	PowerOn  bool
	Time     time.Time
}

// channelState tracks debounce state for one input.
type channelState struct {
	stable       State
	pending      State
	pendingSince time.Time
	baselined    bool
}

// EventCounts tracks transitions since startup.
type EventCounts struct {
	DoorOpened int
	DoorClosed int
	PowerOn    int
	PowerOff   int
}

// HeartbeatData is emitted when the heartbeat interval elapses.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
