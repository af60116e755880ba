package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

// RecordPayload is the message published for every long-period record.
type RecordPayload struct {
	Record RecordBody `json:"record"`
}

// RecordBody contains the record details. Dwell times are ISO-8601 durations.
type RecordBody struct {
	Device      string      `json:"device"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	RecordsRead int         `json:"records_read"`
	Vaccine     VaccineJSON `json:"vaccine"`
	Ambient     AmbientJSON `json:"ambient"`
	Door        DoorJSON    `json:"door"`
	Power       PowerJSON   `json:"power"`
}

// VaccineJSON is the vaccine probe summary.
type VaccineJSON struct {
	Mean       *float64 `json:"mean,omitempty"`
	Min        *float32 `json:"min,omitempty"`
	Max        *float32 `json:"max,omitempty"`
	BelowRange string   `json:"below_range"`
	AboveRange string   `json:"above_range"`
	LowAlarm   string   `json:"low_alarm"`
	HighAlarm  string   `json:"high_alarm"`
}

// AmbientJSON is the ambient probe summary.
type AmbientJSON struct {
	Mean *float64 `json:"mean,omitempty"`
}

// DoorJSON is the door summary.
type DoorJSON struct {
	Count int    `json:"count"`
	Open  string `json:"open"`
	Alarm bool   `json:"alarm"`
}

// PowerJSON is the power summary.
type PowerJSON struct {
	Available string `json:"available"`
	Alarm     bool   `json:"alarm"`
}

// FormatRecordPayload creates the JSON payload for a record.
func FormatRecordPayload(deviceID string, rec logic.AggregationRecord) ([]byte, error) {
	body := RecordBody{
		Device:      deviceID,
		Start:       clock.ToTime(rec.Start).Format(time.RFC3339),
		End:         clock.ToTime(rec.End).Format(time.RFC3339),
		RecordsRead: int(rec.RecordsRead),
		Vaccine: VaccineJSON{
			BelowRange: logic.FormatDuration(rec.TVCLowSeconds),
			AboveRange: logic.FormatDuration(rec.TVCHighSeconds),
			LowAlarm:   logic.FormatDuration(rec.LowAlarmSeconds),
			HighAlarm:  logic.FormatDuration(rec.HighAlarmSeconds),
		},
		Door: DoorJSON{
			Count: int(rec.DoorCount),
			Open:  logic.FormatDuration(rec.DoorOpenSeconds),
			Alarm: rec.DoorAlarmed,
		},
		Power: PowerJSON{
			Available: logic.FormatDuration(rec.PowerAvailableSeconds),
			Alarm:     rec.PowerAlarmed,
		},
	}
	if mean, ok := rec.TVCMean(); ok {
		body.Vaccine.Mean = &mean
	}
	if rec.TVCObserved {
		lo, hi := rec.TVCMin, rec.TVCMax
		body.Vaccine.Min, body.Vaccine.Max = &lo, &hi
	}
	if mean, ok := rec.TAmbMean(); ok {
		body.Ambient.Mean = &mean
	}
	return json.Marshal(RecordPayload{Record: body})
}

// AlarmPayload is the message published for an alarm edge.
type AlarmPayload struct {
	Alarm AlarmBody `json:"alarm"`
}

// AlarmBody contains the alarm edge details.
type AlarmBody struct {
	Device    string `json:"device"`
	Timestamp string `json:"timestamp"`
	Alarm     string `json:"alarm"`
	State     string `json:"state"` // RAISED or CLEARED
}

// FormatAlarmPayload creates the JSON payload for an alarm edge.
func FormatAlarmPayload(deviceID string, e dispatch.AlarmEdge) ([]byte, error) {
	state := "CLEARED"
	if e.Active {
		state = "RAISED"
	}
	return json.Marshal(AlarmPayload{Alarm: AlarmBody{
		Device:    deviceID,
		Timestamp: clock.ToTime(e.Time).Format(time.RFC3339),
		Alarm:     string(e.Alarm),
		State:     state,
	}})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillEvent is the retained last-will message registered at connect time.
func WillEvent(now time.Time) SystemEvent {
	return SystemEvent{
		Timestamp: now,
		Event:     EventShutdown,
		Reason:    ReasonDisconnect,
		Retained:  true,
	}
}
