package logic

// DoorAlarmThreshold is the longest single opening, in seconds, that does not alarm.
const DoorAlarmThreshold = 300

// Window selects one of the two independent accumulation windows.
type Window int

const (
	ShortWindow Window = iota
	LongWindow
)

func (w Window) String() string {
	switch w {
	case ShortWindow:
		return "short"
	case LongWindow:
		return "long"
	default:
		return "unknown"
	}
}

// DoorEventType is the kind of door transition.
type DoorEventType string

const (
	DoorOpened DoorEventType = "DOOR_OPENED"
	DoorClosed DoorEventType = "DOOR_CLOSED"
)

// DoorEvent is a door transition at a point in time.
type DoorEvent struct {
	Type DoorEventType
	Time Timestamp
}

// doorWindow is the per-window door accumulator.
type doorWindow struct {
	prevEnd   Timestamp
	openCount uint16
	openAccum uint32
	alarmed   bool
}

// Door tracks door openings and accumulates open time for two windows.
type Door struct {
	open        bool
	openedAt    Timestamp
	lastEventTS Timestamp
	windows     [2]doorWindow
}

// NewDoor creates a door tracker. An open door is assumed to have opened at now.
func NewDoor(open bool, now Timestamp) *Door {
	d := &Door{lastEventTS: now}
	d.windows[ShortWindow].prevEnd = now.FloorToShort()
	d.windows[LongWindow].prevEnd = now.FloorToLong()
	if open {
		d.open = true
		d.openedAt = now
		d.windows[ShortWindow].openCount = 1
		d.windows[LongWindow].openCount = 1
	}
	return d
}

// LogEvent applies an open or close event.
// Returns ErrOutOfOrderTimestamp if the event predates the last accepted one.
func (d *Door) LogEvent(ev DoorEvent) error {
	if err := d.accept(ev.Time); err != nil {
		return err
	}

	switch ev.Type {
	case DoorOpened:
		d.open = true
		d.openedAt = ev.Time
		for i := range d.windows {
			d.windows[i].openCount++
		}
	case DoorClosed:
		if !d.open {
			return nil
		}
		duration := ev.Time.Since(d.openedAt)
		d.open = false
		// Both windows see the same close, so both flags follow this opening.
		for i := range d.windows {
			d.windows[i].openAccum += duration
			d.windows[i].alarmed = duration >= DoorAlarmThreshold
		}
	}
	return nil
}

// Sample returns the opening count and open seconds for the window,
// including an opening still in progress at now.
func (d *Door) Sample(w Window, now Timestamp) (count uint16, openSeconds uint32) {
	win := d.windows[w]
	return win.openCount, win.openAccum + d.InstantOpenDuration(now)
}

// IsAlarmed reports whether the window has seen a long opening, or whether
// the door has currently been open for longer than the threshold.
func (d *Door) IsAlarmed(w Window, now Timestamp) bool {
	openLong := d.open && now.Since(d.openedAt) > DoorAlarmThreshold
	return d.windows[w].alarmed || openLong
}

// Reset clears the window's accumulators and records ts as its boundary.
// The other window and the open/closed status are not touched.
func (d *Door) Reset(w Window, ts Timestamp) error {
	if err := d.accept(ts); err != nil {
		return err
	}
	d.windows[w] = doorWindow{prevEnd: ts}
	return nil
}

// InstantOpenDuration returns how long the door has been open at now,
// or 0 if it is closed or now precedes the opening.
func (d *Door) InstantOpenDuration(now Timestamp) uint32 {
	if !d.open {
		return 0
	}
	return now.Since(d.openedAt)
}

// IsOpen reports whether the last event left the door open.
func (d *Door) IsOpen() bool {
	return d.open
}

// WindowStart returns the boundary recorded by the last reset of the window.
func (d *Door) WindowStart(w Window) Timestamp {
	return d.windows[w].prevEnd
}

// LastEvent returns the timestamp of the last accepted event or reset.
func (d *Door) LastEvent() Timestamp {
	return d.lastEventTS
}

func (d *Door) accept(ts Timestamp) error {
	if ts < d.lastEventTS {
		return ErrOutOfOrderTimestamp
	}
	d.lastEventTS = ts
	return nil
}
