package edge

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewDetector(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)
	if d.IsBaselined() {
		t.Error("new detector should not be baselined")
	}
	door, power := d.CurrentState()
	if door != "" || power != "" {
		t.Errorf("states before baseline = (%q, %q), want empty", door, power)
	}
}

func TestBaselineEstablishment(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)

	if ev := d.Process(Input{DoorOpen: true, PowerOn: true, Time: t0}); len(ev) != 0 {
		t.Errorf("expected no events during baseline, got %d", len(ev))
	}
	d.Process(Input{DoorOpen: true, PowerOn: true, Time: t0.Add(200 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	if ev := d.Process(Input{DoorOpen: true, PowerOn: true, Time: t0.Add(250 * time.Millisecond)}); len(ev) != 0 {
		t.Errorf("expected no events at baseline, got %d", len(ev))
	}
	if !d.IsBaselined() {
		t.Fatal("should be baselined after debounce period")
	}

	door, power := d.CurrentState()
	if door != StateOpen || power != StateOn {
		t.Errorf("states = (%s, %s), want (OPEN, ON)", door, power)
	}
	if !d.DoorOpen() || !d.PowerOn() {
		t.Error("bool accessors disagree with states")
	}
}

func TestBaselineRestartsOnChange(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)

	d.Process(Input{DoorOpen: true, PowerOn: true, Time: t0})
	d.Process(Input{DoorOpen: false, PowerOn: true, Time: t0.Add(100 * time.Millisecond)})
	d.Process(Input{DoorOpen: false, PowerOn: true, Time: t0.Add(250 * time.Millisecond)})
	if d.IsBaselined() {
		t.Fatal("door timer should have restarted")
	}

	d.Process(Input{DoorOpen: false, PowerOn: true, Time: t0.Add(350 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("should be baselined after debounce from the change")
	}
	if d.DoorOpen() {
		t.Error("door should have baselined closed")
	}
}

func TestDoorOpenAndClose(t *testing.T) {
	d := baselined(t, false, true)
	now := t0.Add(time.Minute)

	d.Process(Input{DoorOpen: true, PowerOn: true, Time: now})
	ev := d.Process(Input{DoorOpen: true, PowerOn: true, Time: now.Add(250 * time.Millisecond)})
	if len(ev) != 1 || ev[0].Type != EventDoorOpened {
		t.Fatalf("expected DOOR_OPENED, got %+v", ev)
	}
	if ev[0].DoorState != StateOpen || ev[0].PowerState != StateOn {
		t.Errorf("event states = (%s, %s)", ev[0].DoorState, ev[0].PowerState)
	}
	if !ev[0].Timestamp.Equal(now.Add(250 * time.Millisecond)) {
		t.Errorf("event time = %v", ev[0].Timestamp)
	}

	now = now.Add(time.Minute)
	d.Process(Input{DoorOpen: false, PowerOn: true, Time: now})
	ev = d.Process(Input{DoorOpen: false, PowerOn: true, Time: now.Add(time.Second)})
	if len(ev) != 1 || ev[0].Type != EventDoorClosed {
		t.Fatalf("expected DOOR_CLOSED, got %+v", ev)
	}
}

func TestPowerLossAndReturn(t *testing.T) {
	d := baselined(t, false, true)
	now := t0.Add(time.Minute)

	d.Process(Input{PowerOn: false, Time: now})
	ev := d.Process(Input{PowerOn: false, Time: now.Add(300 * time.Millisecond)})
	if len(ev) != 1 || ev[0].Type != EventPowerOff || ev[0].PowerState != StateOff {
		t.Fatalf("expected POWER_OFF, got %+v", ev)
	}

	d.Process(Input{PowerOn: true, Time: now.Add(time.Second)})
	ev = d.Process(Input{PowerOn: true, Time: now.Add(2 * time.Second)})
	if len(ev) != 1 || ev[0].Type != EventPowerOn {
		t.Fatalf("expected POWER_ON, got %+v", ev)
	}
}

func TestBounceShorterThanDebounce(t *testing.T) {
	d := baselined(t, false, true)
	now := t0.Add(time.Minute)

	d.Process(Input{DoorOpen: true, PowerOn: true, Time: now})
	d.Process(Input{DoorOpen: false, PowerOn: true, Time: now.Add(100 * time.Millisecond)})
	ev := d.Process(Input{DoorOpen: false, PowerOn: true, Time: now.Add(400 * time.Millisecond)})
	if len(ev) != 0 {
		t.Errorf("bounce should not produce events, got %+v", ev)
	}
	if d.DoorOpen() {
		t.Error("door should still be closed")
	}
}

func TestSimultaneousTransitionsDoorFirst(t *testing.T) {
	d := baselined(t, false, true)
	now := t0.Add(time.Minute)

	d.Process(Input{DoorOpen: true, PowerOn: false, Time: now})
	ev := d.Process(Input{DoorOpen: true, PowerOn: false, Time: now.Add(time.Second)})
	if len(ev) != 2 {
		t.Fatalf("expected 2 events, got %d", len(ev))
	}
	if ev[0].Type != EventDoorOpened || ev[1].Type != EventPowerOff {
		t.Errorf("order = %s, %s", ev[0].Type, ev[1].Type)
	}
	// Both events carry the final states.
	if ev[0].PowerState != StateOff {
		t.Errorf("first event power state = %s", ev[0].PowerState)
	}
}

func TestEventCounts(t *testing.T) {
	d := baselined(t, false, true)
	now := t0.Add(time.Minute)

	toggle := func(open, on bool) {
		d.Process(Input{DoorOpen: open, PowerOn: on, Time: now})
		d.Process(Input{DoorOpen: open, PowerOn: on, Time: now.Add(time.Second)})
		now = now.Add(time.Minute)
	}
	toggle(true, true)
	toggle(false, true)
	toggle(true, false)
	toggle(false, true)

	want := EventCounts{DoorOpened: 2, DoorClosed: 2, PowerOn: 1, PowerOff: 1}
	if got := d.Counts(); got != want {
		t.Errorf("counts = %+v, want %+v", got, want)
	}
}

func TestCheckHeartbeat(t *testing.T) {
	d := NewDetector(250*time.Millisecond, t0)
	if hb := d.CheckHeartbeat(t0.Add(time.Hour), time.Minute); hb != nil {
		t.Error("no heartbeat before baseline")
	}

	d = baselined(t, false, true)
	if hb := d.CheckHeartbeat(t0.Add(time.Hour), 0); hb != nil {
		t.Error("zero interval disables heartbeat")
	}
	if hb := d.CheckHeartbeat(t0.Add(10*time.Second), time.Minute); hb != nil {
		t.Error("heartbeat before interval")
	}

	hb := d.CheckHeartbeat(t0.Add(time.Minute), time.Minute)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if hb.Uptime != time.Minute {
		t.Errorf("uptime = %v", hb.Uptime)
	}
	if d.CheckHeartbeat(t0.Add(90*time.Second), time.Minute) != nil {
		t.Error("interval restarts after a heartbeat")
	}
	if d.CheckHeartbeat(t0.Add(2*time.Minute), time.Minute) == nil {
		t.Error("expected second heartbeat")
	}
}

func baselined(t *testing.T, doorOpen, powerOn bool) *Detector {
	t.Helper()
	d := NewDetector(250*time.Millisecond, t0)
	d.Process(Input{DoorOpen: doorOpen, PowerOn: powerOn, Time: t0})
	d.Process(Input{DoorOpen: doorOpen, PowerOn: powerOn, Time: t0.Add(250 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("failed to establish baseline")
	}
	return d
}
