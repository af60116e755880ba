package logic

// PowerAlarmThreshold is the outage length, in seconds, that raises the power alarm.
const PowerAlarmThreshold = 86400

// PowerEventType is the kind of mains transition.
type PowerEventType string

const (
	PowerOn  PowerEventType = "POWER_ON"
	PowerOff PowerEventType = "POWER_OFF"
)

// PowerEvent is a mains transition at a point in time.
type PowerEvent struct {
	Type PowerEventType
	Time Timestamp
}

// powerWindow is the per-window availability accumulator.
type powerWindow struct {
	prevEnd Timestamp
	accum   uint32
	alarmed bool
}

// PowerAvailability accumulates mains-on time for two windows and alarms on
// outages of PowerAlarmThreshold or longer.
type PowerAvailability struct {
	status      PowerEvent
	lastEventTS Timestamp
	windows     [2]powerWindow
}

// NewPowerAvailability creates a tracker assuming the current state began at now.
func NewPowerAvailability(on bool, now Timestamp) *PowerAvailability {
	status := PowerEvent{Type: PowerOff, Time: now}
	if on {
		status.Type = PowerOn
	}
	p := &PowerAvailability{status: status, lastEventTS: now}
	p.windows[ShortWindow].prevEnd = now.FloorToShort()
	p.windows[LongWindow].prevEnd = now.FloorToLong()
	return p
}

// LogEvent applies an on or off event.
// Returns ErrOutOfOrderTimestamp if the event predates the last accepted one.
func (p *PowerAvailability) LogEvent(ev PowerEvent) error {
	if err := p.accept(ev.Time); err != nil {
		return err
	}

	switch ev.Type {
	case PowerOn:
		if p.status.Type == PowerOff {
			// Outages are only judged once power returns.
			outage := ev.Time.Since(p.status.Time)
			for i := range p.windows {
				p.windows[i].alarmed = outage >= PowerAlarmThreshold
			}
		}
	case PowerOff:
		if p.status.Type == PowerOn {
			uptime := ev.Time.Since(p.status.Time)
			for i := range p.windows {
				p.windows[i].accum += uptime
			}
		}
	default:
		return nil
	}
	p.status = ev
	return nil
}

// Sample returns the seconds power was available in the window,
// including the current on period up to now.
func (p *PowerAvailability) Sample(w Window, now Timestamp) uint32 {
	var live uint32
	if p.status.Type == PowerOn {
		live = now.Since(p.status.Time)
	}
	return p.windows[w].accum + live
}

// IsAlarmed reports a latched outage alarm, or an outage still in progress
// that has already reached the threshold at now.
func (p *PowerAvailability) IsAlarmed(w Window, now Timestamp) bool {
	offLong := p.status.Type == PowerOff && now.Since(p.status.Time) >= PowerAlarmThreshold
	return p.windows[w].alarmed || offLong
}

// Reset clears the window's accumulator and records ts as its boundary.
func (p *PowerAvailability) Reset(w Window, ts Timestamp) error {
	if err := p.accept(ts); err != nil {
		return err
	}
	p.windows[w] = powerWindow{prevEnd: ts}
	return nil
}

// InstantOffDuration returns how long power has been off at now, or 0.
func (p *PowerAvailability) InstantOffDuration(now Timestamp) uint32 {
	if p.status.Type != PowerOff {
		return 0
	}
	return now.Since(p.status.Time)
}

// IsOn reports whether mains power is currently available.
func (p *PowerAvailability) IsOn() bool {
	return p.status.Type == PowerOn
}

// WindowStart returns the boundary recorded by the last reset of the window.
func (p *PowerAvailability) WindowStart(w Window) Timestamp {
	return p.windows[w].prevEnd
}

// LastEvent returns the timestamp of the last accepted event or reset.
func (p *PowerAvailability) LastEvent() Timestamp {
	return p.lastEventTS
}

func (p *PowerAvailability) accept(ts Timestamp) error {
	if ts < p.lastEventTS {
		return ErrOutOfOrderTimestamp
	}
	p.lastEventTS = ts
	return nil
}
