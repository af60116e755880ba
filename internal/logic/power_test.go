package logic

import (
	"errors"
	"testing"
)

func TestPowerOutageScenario(t *testing.T) {
	p := NewPowerAvailability(true, 0)
	mustPower(t, p, PowerEvent{PowerOff, 700})

	justBefore := Timestamp(700 + PowerAlarmThreshold - 1)
	justAfter := Timestamp(700 + PowerAlarmThreshold + 1)

	if p.IsAlarmed(ShortWindow, justBefore) || p.IsAlarmed(LongWindow, justBefore) {
		t.Error("outage one second short of threshold should not alarm")
	}
	if !p.IsAlarmed(ShortWindow, justAfter) || !p.IsAlarmed(LongWindow, justAfter) {
		t.Error("outage past threshold should alarm live")
	}

	mustPower(t, p, PowerEvent{PowerOn, justAfter})
	if !p.IsAlarmed(ShortWindow, justAfter) || !p.IsAlarmed(LongWindow, justAfter) {
		t.Error("outage should latch once power returns")
	}
	if !p.IsAlarmed(LongWindow, justAfter+10000) {
		t.Error("latched alarm should persist while power is on")
	}
}

func TestPowerLiveAlarmAtThreshold(t *testing.T) {
	p := NewPowerAvailability(false, 100)
	if !p.IsAlarmed(ShortWindow, 100+PowerAlarmThreshold) {
		t.Error("live outage alarms at exactly the threshold")
	}
}

func TestPowerShortOutageClearsFlag(t *testing.T) {
	p := NewPowerAvailability(false, 0)
	mustPower(t, p, PowerEvent{PowerOn, 90000})
	if !p.IsAlarmed(LongWindow, 90000) {
		t.Fatal("long outage should alarm")
	}
	mustPower(t, p, PowerEvent{PowerOff, 91000})
	mustPower(t, p, PowerEvent{PowerOn, 91100})
	if p.IsAlarmed(LongWindow, 91100) {
		t.Error("a short outage overwrites the flag on both windows")
	}
}

func TestPowerAccumulatesUptime(t *testing.T) {
	p := NewPowerAvailability(true, 0)
	mustPower(t, p, PowerEvent{PowerOff, 1000})
	mustPower(t, p, PowerEvent{PowerOn, 1500})
	mustPower(t, p, PowerEvent{PowerOff, 1800})

	for _, w := range []Window{ShortWindow, LongWindow} {
		if got := p.Sample(w, 2000); got != 1300 {
			t.Errorf("%s Sample = %d, want 1300", w, got)
		}
	}

	mustPower(t, p, PowerEvent{PowerOn, 2000})
	if got := p.Sample(LongWindow, 2600); got != 1900 {
		t.Errorf("live Sample = %d, want 1900", got)
	}
	if got := p.Sample(LongWindow, 1900); got != 1300 {
		t.Errorf("Sample before on = %d, want 1300", got)
	}
}

func TestPowerResetIsPerWindow(t *testing.T) {
	p := NewPowerAvailability(true, 0)
	mustPower(t, p, PowerEvent{PowerOff, 600})
	if err := p.Reset(ShortWindow, 900); err != nil {
		t.Fatal(err)
	}
	if got := p.Sample(ShortWindow, 1000); got != 0 {
		t.Errorf("short Sample = %d, want 0", got)
	}
	if got := p.Sample(LongWindow, 1000); got != 600 {
		t.Errorf("long Sample = %d, want 600", got)
	}
	if p.IsOn() {
		t.Error("reset must not change power status")
	}
	if p.WindowStart(ShortWindow) != 900 {
		t.Errorf("short window start = %d", p.WindowStart(ShortWindow))
	}
}

func TestPowerOutOfOrderRejected(t *testing.T) {
	p := NewPowerAvailability(true, 500)
	before := *p
	if err := p.LogEvent(PowerEvent{PowerOff, 499}); !errors.Is(err, ErrOutOfOrderTimestamp) {
		t.Fatalf("expected ErrOutOfOrderTimestamp, got %v", err)
	}
	if err := p.Reset(LongWindow, 10); !errors.Is(err, ErrOutOfOrderTimestamp) {
		t.Fatalf("expected ErrOutOfOrderTimestamp, got %v", err)
	}
	if *p != before {
		t.Error("state changed after rejection")
	}
}

func TestInstantOffDuration(t *testing.T) {
	p := NewPowerAvailability(true, 0)
	if got := p.InstantOffDuration(100); got != 0 {
		t.Errorf("on = %d, want 0", got)
	}
	mustPower(t, p, PowerEvent{PowerOff, 200})
	if got := p.InstantOffDuration(260); got != 60 {
		t.Errorf("off = %d, want 60", got)
	}
	if got := p.InstantOffDuration(100); got != 0 {
		t.Errorf("before off = %d, want 0", got)
	}
}

func mustPower(t *testing.T, p *PowerAvailability, ev PowerEvent) {
	t.Helper()
	if err := p.LogEvent(ev); err != nil {
		t.Fatalf("LogEvent(%+v): %v", ev, err)
	}
}
