package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

// Unknown is reported for inputs before the debouncer has a baseline.
const Unknown = "UNKNOWN"

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Device        string          `json:"device"`
	Ready         bool            `json:"ready"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	Door          DoorJSON        `json:"door"`
	Power         PowerJSON       `json:"power"`
	Temperature   TemperatureJSON `json:"temperature"`
	Period        *PeriodJSON     `json:"current_period,omitempty"`
	LastRecord    *PeriodJSON     `json:"last_record,omitempty"`
	Messages      MessagesJSON    `json:"messages"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Counts        CountsJSON      `json:"event_counts"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// DoorJSON reports the door input.
type DoorJSON struct {
	State   string `json:"state"`
	OpenFor string `json:"open_for"`
	Alarm   bool   `json:"alarm"`
}

// PowerJSON reports the mains input.
type PowerJSON struct {
	State  string `json:"state"`
	OffFor string `json:"off_for"`
	Alarm  bool   `json:"alarm"`
}

// TemperatureJSON reports the last probe readings and the alarm state.
type TemperatureJSON struct {
	Vaccine   *float32 `json:"vaccine"`
	Ambient   *float32 `json:"ambient"`
	State     string   `json:"state"`
	AlarmHigh bool     `json:"alarm_high"`
	AlarmLow  bool     `json:"alarm_low"`
}

// PeriodJSON summarizes an aggregation record.
type PeriodJSON struct {
	Start          string   `json:"start"`
	End            string   `json:"end"`
	VaccineMean    *float64 `json:"vaccine_mean,omitempty"`
	VaccineMin     *float32 `json:"vaccine_min,omitempty"`
	VaccineMax     *float32 `json:"vaccine_max,omitempty"`
	HighAlarm      string   `json:"high_alarm"`
	LowAlarm       string   `json:"low_alarm"`
	DoorCount      int      `json:"door_count"`
	DoorOpen       string   `json:"door_open"`
	PowerAvailable string   `json:"power_available"`
}

// MessagesJSON reports dispatcher counters.
type MessagesJSON struct {
	Processed uint64 `json:"processed"`
	Rejected  uint64 `json:"rejected"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	DoorOpened int `json:"door_opened"`
	DoorClosed int `json:"door_closed"`
	PowerOn    int `json:"power_on"`
	PowerOff   int `json:"power_off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   int64  `json:"debounce_ms"`
	SampleMs     int64  `json:"sample_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	TopicPrefix  string `json:"topic_prefix"`
	HTTPPort     string `json:"http_port"`
	StoreEnabled bool   `json:"store_enabled"`
}

// DoorState returns OPEN, CLOSED or UNKNOWN.
func (s Snapshot) DoorState() string {
	switch {
	case !s.HasView:
		return Unknown
	case s.View.DoorOpen:
		return "OPEN"
	default:
		return "CLOSED"
	}
}

// PowerState returns ON, OFF or UNKNOWN.
func (s Snapshot) PowerState() string {
	switch {
	case !s.HasView:
		return Unknown
	case s.View.PowerOn:
		return "ON"
	default:
		return "OFF"
	}
}

// TemperatureState returns the alarm state name or UNKNOWN.
func (s Snapshot) TemperatureState() string {
	if !s.HasView {
		return Unknown
	}
	return s.View.State.Kind.String()
}

func formatTS(ts logic.Timestamp) string {
	return clock.ToTime(ts).Format(time.RFC3339)
}

// PeriodFromRecord summarizes rec for JSON output.
func PeriodFromRecord(rec logic.AggregationRecord) *PeriodJSON {
	p := &PeriodJSON{
		Start:          formatTS(rec.Start),
		End:            formatTS(rec.End),
		HighAlarm:      logic.FormatDuration(rec.HighAlarmSeconds),
		LowAlarm:       logic.FormatDuration(rec.LowAlarmSeconds),
		DoorCount:      int(rec.DoorCount),
		DoorOpen:       logic.FormatDuration(rec.DoorOpenSeconds),
		PowerAvailable: logic.FormatDuration(rec.PowerAvailableSeconds),
	}
	if mean, ok := rec.TVCMean(); ok {
		p.VaccineMean = &mean
	}
	if rec.TVCObserved {
		lo, hi := rec.TVCMin, rec.TVCMax
		p.VaccineMin, p.VaccineMax = &lo, &hi
	}
	return p
}

func buildInner(snap Snapshot) StatusInner {
	v := snap.View
	inner := StatusInner{
		Device:        snap.Config.DeviceID,
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Door: DoorJSON{
			State:   snap.DoorState(),
			OpenFor: logic.FormatDuration(v.DoorOpenSeconds),
			Alarm:   v.Alarms.Door,
		},
		Power: PowerJSON{
			State:  snap.PowerState(),
			OffFor: logic.FormatDuration(v.PowerOffSeconds),
			Alarm:  v.Alarms.Power,
		},
		Temperature: TemperatureJSON{
			Vaccine:   v.Vaccine,
			Ambient:   v.Ambient,
			State:     snap.TemperatureState(),
			AlarmHigh: v.Alarms.TempHigh,
			AlarmLow:  v.Alarms.TempLow,
		},
		Messages: MessagesJSON{Processed: v.Processed, Rejected: v.Rejected},
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Buffered:  snap.MQTTBuffered,
		},
		Counts: CountsJSON{
			DoorOpened: snap.Counts.DoorOpened,
			DoorClosed: snap.Counts.DoorClosed,
			PowerOn:    snap.Counts.PowerOn,
			PowerOff:   snap.Counts.PowerOff,
		},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			DebounceMs:   snap.Config.DebounceMs,
			SampleMs:     snap.Config.SampleMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			TopicPrefix:  snap.Config.TopicPrefix,
			HTTPPort:     snap.Config.HTTPPort,
			StoreEnabled: snap.Config.StoreEnabled,
		},
	}
	if snap.HasView {
		inner.Period = PeriodFromRecord(v.Partial)
	}
	if v.LastRecord != nil {
		inner.LastRecord = PeriodFromRecord(*v.LastRecord)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
