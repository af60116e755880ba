package edge

import "time"

// Detector debounces the door and power inputs.
type Detector struct {
	debounce      time.Duration
	door          channelState
	power         channelState
	baselined     bool
	startTime     time.Time
	counts        EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector. startTime anchors heartbeat uptime.
func NewDetector(debounce time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounce:      debounce,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process feeds one poll and returns the transitions it completes. Nothing is
// returned until both inputs have held a value for the debounce period.
// When both inputs change together the door event comes first.
func (d *Detector) Process(in Input) []Event {
	doorTo := d.step(&d.door, doorState(in.DoorOpen), in.Time)
	powerTo := d.step(&d.power, powerState(in.PowerOn), in.Time)

	if !d.baselined {
		d.baselined = d.door.baselined && d.power.baselined
		return nil
	}

	var events []Event
	if doorTo != "" {
		typ := EventDoorClosed
		if doorTo == StateOpen {
			typ = EventDoorOpened
			d.counts.DoorOpened++
		} else {
			d.counts.DoorClosed++
		}
		events = append(events, d.event(typ, in.Time))
	}
	if powerTo != "" {
		typ := EventPowerOff
		if powerTo == StateOn {
			typ = EventPowerOn
			d.counts.PowerOn++
		} else {
			d.counts.PowerOff++
		}
		events = append(events, d.event(typ, in.Time))
	}
	return events
}

func (d *Detector) event(typ EventType, at time.Time) Event {
	return Event{
		Timestamp:  at,
		Type:       typ,
		DoorState:  d.door.stable,
		PowerState: d.power.stable,
	}
}

// step applies the debounce rule to one input and returns the new stable
// state when a transition completes.
func (d *Detector) step(ch *channelState, s State, now time.Time) State {
	if !ch.baselined {
		if ch.pending != s {
			ch.pending = s
			ch.pendingSince = now
			return ""
		}
		if now.Sub(ch.pendingSince) >= d.debounce {
			ch.stable = s
			ch.baselined = true
			ch.pending = ""
		}
		return ""
	}

	if s == ch.stable {
		ch.pending = ""
		return ""
	}
	if ch.pending != s {
		ch.pending = s
		ch.pendingSince = now
		return ""
	}
	if now.Sub(ch.pendingSince) < d.debounce {
		return ""
	}
	ch.stable = s
	ch.pending = ""
	return s
}

func doorState(open bool) State {
	if open {
		return StateOpen
	}
	return StateClosed
}

func powerState(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// IsBaselined reports whether both inputs have a stable value.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the stable states. They are empty before baseline.
func (d *Detector) CurrentState() (door, power State) {
	return d.door.stable, d.power.stable
}

// DoorOpen reports the stable door state as a bool.
func (d *Detector) DoorOpen() bool {
	return d.door.stable == StateOpen
}

// PowerOn reports the stable power state as a bool.
func (d *Detector) PowerOn() bool {
	return d.power.stable == StateOn
}

// Counts returns the transition counts since startup.
func (d *Detector) Counts() EventCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data once interval has elapsed since the
// last heartbeat. It returns nil before baseline or when interval <= 0.
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 || !d.baselined {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.counts,
	}
}
