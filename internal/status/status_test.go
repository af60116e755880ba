package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/edge"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedTracker(cfg Config, now time.Time) *Tracker {
	tr := NewTracker(start, cfg)
	tr.SetClock(func() time.Time { return now })
	return tr
}

func sampleView() dispatch.View {
	last := logic.AggregationRecord{
		Start:                 0,
		End:                   logic.LongPeriod,
		DoorCount:             2,
		DoorOpenSeconds:       60,
		PowerAvailableSeconds: logic.LongPeriod,
		RecordsRead:           1,
	}
	return dispatch.View{
		Time:            logic.LongPeriod + 100,
		DoorOpen:        true,
		DoorOpenSeconds: 45,
		PowerOn:         true,
		Vaccine:         logic.Celsius(4.5),
		Ambient:         logic.Celsius(21),
		State:           logic.AlarmState{Kind: logic.InRange},
		Alarms:          dispatch.AlarmFlags{Door: false, TempHigh: false},
		Partial: logic.AggregationRecord{
			Start: logic.LongPeriod,
			End:   logic.LongPeriod + 100,
			TempLongRecord: logic.TempLongRecord{
				TVCSum: 450, TVCSeconds: 100, TVCMin: 4.5, TVCMax: 4.5, TVCObserved: true,
			},
			DoorCount:             1,
			DoorOpenSeconds:       45,
			PowerAvailableSeconds: 100,
			RecordsRead:           1,
		},
		LastRecord: &last,
		Processed:  12,
		Rejected:   1,
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{DeviceID: "f1", PollMs: 100, DebounceMs: 250, Broker: "tcp://localhost:1883", HTTPPort: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", snap.Config.PollMs)
	}
	if snap.Baselined || snap.HasView || snap.MQTTConnected {
		t.Error("expected empty state initially")
	}
	if snap.DoorState() != Unknown || snap.PowerState() != Unknown || snap.TemperatureState() != Unknown {
		t.Errorf("expected UNKNOWN states, got %s %s %s", snap.DoorState(), snap.PowerState(), snap.TemperatureState())
	}
}

func TestObserveAndInputs(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.Observe(sampleView())
	tr.UpdateInputs(true, edge.EventCounts{DoorOpened: 3, PowerOff: 1})

	snap := tr.Snapshot()
	if !snap.HasView {
		t.Fatal("expected HasView")
	}
	if snap.DoorState() != "OPEN" || snap.PowerState() != "ON" {
		t.Errorf("states: got door=%s power=%s", snap.DoorState(), snap.PowerState())
	}
	if snap.TemperatureState() != "IN_RANGE" {
		t.Errorf("temperature state: got %s", snap.TemperatureState())
	}
	if !snap.Baselined {
		t.Error("expected Baselined=true")
	}
	if snap.Counts.DoorOpened != 3 || snap.Counts.PowerOff != 1 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true, 0)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false, 7)
	snap := tr.Snapshot()
	if snap.MQTTConnected || snap.MQTTBuffered != 7 {
		t.Errorf("got connected=%v buffered=%d", snap.MQTTConnected, snap.MQTTBuffered)
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(start, Config{})
	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})
	snap := tr.Snapshot()
	if snap.Network == nil || snap.Network.IP != "192.168.1.42" {
		t.Errorf("unexpected network: %+v", snap.Network)
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := fixedTracker(Config{}, start.Add(15*time.Minute)).Snapshot()
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.UpdateInputs(true, edge.EventCounts{DoorOpened: 1})

	snap1 := tr.Snapshot()
	tr.UpdateInputs(true, edge.EventCounts{DoorOpened: 5})

	if snap1.Counts.DoorOpened != 1 {
		t.Errorf("snapshot changed after update: %d", snap1.Counts.DoorOpened)
	}
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Observe(dispatch.View{Processed: uint64(j)})
				tr.UpdateInputs(true, edge.EventCounts{DoorOpened: n})
				tr.SetMQTTConnected(j%2 == 0, j)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	tr := fixedTracker(Config{DeviceID: "f1", Broker: "tcp://b:1883", PollMs: 100}, start.Add(90*time.Second))
	tr.Observe(sampleView())
	tr.UpdateInputs(true, edge.EventCounts{DoorOpened: 2, DoorClosed: 1})
	tr.SetMQTTConnected(true, 0)

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status

	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should not carry event/reason")
	}
	if s.Device != "f1" || !s.Ready || s.UptimeSeconds != 90 {
		t.Errorf("header: %+v", s)
	}
	if s.Door.State != "OPEN" || s.Door.OpenFor != "P0DT0H0M45S" {
		t.Errorf("door: %+v", s.Door)
	}
	if s.Power.State != "ON" || s.Power.OffFor != "P0DT0S" {
		t.Errorf("power: %+v", s.Power)
	}
	if s.Temperature.Vaccine == nil || *s.Temperature.Vaccine != 4.5 {
		t.Errorf("vaccine: %v", s.Temperature.Vaccine)
	}
	if s.Period == nil || s.Period.Start != "2000-03-01T08:00:00Z" || s.Period.DoorCount != 1 {
		t.Errorf("current period: %+v", s.Period)
	}
	if s.Period.VaccineMean == nil || *s.Period.VaccineMean != 4.5 {
		t.Errorf("period mean: %v", s.Period.VaccineMean)
	}
	if s.LastRecord == nil || s.LastRecord.DoorOpen != "P0DT0H1M0S" {
		t.Errorf("last record: %+v", s.LastRecord)
	}
	if s.Messages.Processed != 12 || s.Messages.Rejected != 1 {
		t.Errorf("messages: %+v", s.Messages)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://b:1883" {
		t.Errorf("mqtt: %+v", s.MQTT)
	}
	if s.Counts.DoorOpened != 2 || s.Counts.DoorClosed != 1 {
		t.Errorf("counts: %+v", s.Counts)
	}
}

func TestFormatJSONBeforeFirstMessage(t *testing.T) {
	data := FormatJSON(fixedTracker(Config{}, start).Snapshot())

	var parsed map[string]map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := parsed["status"]["current_period"]; ok {
		t.Error("current_period should be omitted without a view")
	}
	if _, ok := parsed["status"]["last_record"]; ok {
		t.Error("last_record should be omitted without a record")
	}
	door := parsed["status"]["door"].(map[string]any)
	if door["state"] != Unknown {
		t.Errorf("door state: %v", door["state"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := fixedTracker(Config{}, start)
	tr.SetNetwork(&NetworkInfo{Type: "ethernet", IP: "10.0.0.2", Status: "up"})

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: %q %q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.IP != "10.0.0.2" {
		t.Errorf("network: %+v", parsed.Status.Network)
	}
	if strings.Contains(string(data), "\n") {
		t.Error("status event should be compact JSON")
	}
}
