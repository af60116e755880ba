package dispatch

import (
	"context"

	"github.com/sweeney/fridge-monitor/internal/logic"
)

// Alarm names an alarm the dispatcher reports edges for.
type Alarm string

const (
	AlarmDoor     Alarm = "DOOR"
	AlarmPower    Alarm = "POWER"
	AlarmTempHigh Alarm = "TEMP_HIGH"
	AlarmTempLow  Alarm = "TEMP_LOW"
)

// Alarms lists every alarm in reporting order.
var Alarms = []Alarm{AlarmDoor, AlarmPower, AlarmTempHigh, AlarmTempLow}

// AlarmEdge is a raise or clear of one alarm.
type AlarmEdge struct {
	Alarm  Alarm
	Active bool
	Time   logic.Timestamp
}

// ShortSample is the door and power summary of one short period.
type ShortSample struct {
	Start   logic.Timestamp
	End     logic.Timestamp
	Door    logic.DoorSample
	Power   logic.PowerSample
	Vaccine *float32
	Ambient *float32
	State   logic.AlarmState
}

// RecordSink receives every finalized long-period record.
type RecordSink interface {
	HandleRecord(ctx context.Context, rec logic.AggregationRecord) error
}

// ShortSink receives every short-period sample.
type ShortSink interface {
	HandleShortSample(ctx context.Context, s ShortSample) error
}

// AlarmSink receives alarm edges.
type AlarmSink interface {
	HandleAlarm(ctx context.Context, e AlarmEdge) error
}

// RecordSinkFunc adapts a function to RecordSink.
type RecordSinkFunc func(ctx context.Context, rec logic.AggregationRecord) error

// HandleRecord calls f.
func (f RecordSinkFunc) HandleRecord(ctx context.Context, rec logic.AggregationRecord) error {
	return f(ctx, rec)
}

// ShortSinkFunc adapts a function to ShortSink.
type ShortSinkFunc func(ctx context.Context, s ShortSample) error

// HandleShortSample calls f.
func (f ShortSinkFunc) HandleShortSample(ctx context.Context, s ShortSample) error {
	return f(ctx, s)
}

// AlarmSinkFunc adapts a function to AlarmSink.
type AlarmSinkFunc func(ctx context.Context, e AlarmEdge) error

// HandleAlarm calls f.
func (f AlarmSinkFunc) HandleAlarm(ctx context.Context, e AlarmEdge) error {
	return f(ctx, e)
}

type namedRecordSink struct {
	name string
	RecordSink
}

type namedShortSink struct {
	name string
	ShortSink
}

type namedAlarmSink struct {
	name string
	AlarmSink
}
