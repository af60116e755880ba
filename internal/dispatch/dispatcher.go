// Package dispatch owns the door, power and temperature trackers and feeds
// them from a bounded mailbox. It decides when period boundaries arrive,
// emits short samples and long records at those boundaries and reports
// alarm edges.
package dispatch

import (
	"context"
	"fmt"

	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/metrics"
)

// DefaultMailboxSize is the mailbox depth used when none is configured.
const DefaultMailboxSize = 8

// Initial is the state the trackers start from.
type Initial struct {
	DoorOpen bool
	PowerOn  bool
	Sample   logic.TemperatureSample
	Time     logic.Timestamp
}

// AlarmFlags is the level of every alarm after the last message.
type AlarmFlags struct {
	Door     bool
	Power    bool
	TempHigh bool
	TempLow  bool
}

func (f AlarmFlags) get(a Alarm) bool {
	switch a {
	case AlarmDoor:
		return f.Door
	case AlarmPower:
		return f.Power
	case AlarmTempHigh:
		return f.TempHigh
	case AlarmTempLow:
		return f.TempLow
	}
	return false
}

// View is a copy of the dispatcher state after a message.
type View struct {
	Time            logic.Timestamp
	DoorOpen        bool
	DoorOpenSeconds uint32
	PowerOn         bool
	PowerOffSeconds uint32
	Vaccine         *float32
	Ambient         *float32
	State           logic.AlarmState
	Alarms          AlarmFlags
	Partial         logic.AggregationRecord
	LastRecord      *logic.AggregationRecord
	Processed       uint64
	Rejected        uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMailboxSize sets the mailbox depth.
func WithMailboxSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.mailboxSize = n
		}
	}
}

// WithRecordSink adds a named record sink.
func WithRecordSink(name string, s RecordSink) Option {
	return func(d *Dispatcher) {
		d.records = append(d.records, namedRecordSink{name, s})
	}
}

// WithShortSink adds a named short-sample sink.
func WithShortSink(name string, s ShortSink) Option {
	return func(d *Dispatcher) {
		d.shorts = append(d.shorts, namedShortSink{name, s})
	}
}

// WithAlarmSink adds a named alarm sink.
func WithAlarmSink(name string, s AlarmSink) Option {
	return func(d *Dispatcher) {
		d.alarmSinks = append(d.alarmSinks, namedAlarmSink{name, s})
	}
}

// WithObserver registers fn to receive a View after every message.
func WithObserver(fn func(View)) Option {
	return func(d *Dispatcher) {
		d.observer = fn
	}
}

// Dispatcher routes messages to the trackers. Step and Run must not be used
// concurrently; Submit is safe from any goroutine.
type Dispatcher struct {
	door  *logic.Door
	power *logic.PowerAvailability
	temp  *logic.TemperatureAggregator

	last       logic.Timestamp
	shortStart logic.Timestamp
	longStart  logic.Timestamp
	alarms     AlarmFlags
	lastRecord *logic.AggregationRecord

	processed uint64
	rejected  uint64

	mailboxSize int
	mailbox     chan Message
	records     []namedRecordSink
	shorts      []namedShortSink
	alarmSinks  []namedAlarmSink
	observer    func(View)
}

// New creates a dispatcher whose trackers start from init.
func New(init Initial, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		door:        logic.NewDoor(init.DoorOpen, init.Time),
		power:       logic.NewPowerAvailability(init.PowerOn, init.Time),
		temp:        logic.NewTemperatureAggregator(init.Sample, init.Time),
		last:        init.Time,
		shortStart:  init.Time.FloorToShort(),
		longStart:   init.Time.FloorToLong(),
		mailboxSize: DefaultMailboxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.mailbox = make(chan Message, d.mailboxSize)
	d.alarms = d.evaluateAlarms(init.Time)
	return d
}

// Submit queues msg, blocking while the mailbox is full.
func (d *Dispatcher) Submit(ctx context.Context, msg Message) error {
	select {
	case d.mailbox <- msg:
		metrics.SetMailboxDepth(len(d.mailbox))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the mailbox until ctx is cancelled. Rejected messages are
// logged and counted; they never stop the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "dispatch")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-d.mailbox:
			metrics.SetMailboxDepth(len(d.mailbox))
			if err := d.Step(ctx, msg); err != nil {
				logger.WarnKV(ctx, "message rejected",
					"kind", msg.Kind.String(), "ts", uint32(msg.Time), "last", uint32(d.last), "error", err)
			}
		}
	}
}

// Step processes one message synchronously. A message older than the
// previous one is rejected with an error wrapping
// logic.ErrOutOfOrderTimestamp and leaves every tracker untouched.
func (d *Dispatcher) Step(ctx context.Context, msg Message) error {
	if msg.Time < d.last {
		return d.reject(msg, logic.ErrOutOfOrderTimestamp)
	}

	d.crossBoundaries(ctx, msg.Time)

	var err error
	switch msg.Kind {
	case KindDoor:
		err = d.door.LogEvent(logic.DoorEvent{Type: msg.Door, Time: msg.Time})
	case KindPower:
		err = d.power.LogEvent(logic.PowerEvent{Type: msg.Power, Time: msg.Time})
	case KindSample:
		err = d.temp.AddSample(msg.Sample, msg.Time)
		d.recordReadings()
	}
	if err != nil {
		return d.reject(msg, err)
	}

	d.last = msg.Time
	d.processed++
	metrics.ObserveMessage(msg.Kind.String(), metrics.ResultAccepted)
	metrics.SetInputs(d.door.IsOpen(), d.power.IsOn())

	d.reportAlarms(ctx, msg.Time)
	d.notify()
	return nil
}

func (d *Dispatcher) reject(msg Message, err error) error {
	d.rejected++
	metrics.ObserveMessage(msg.Kind.String(), metrics.ResultRejected)
	return fmt.Errorf("%s message at %d: %w", msg.Kind, msg.Time, err)
}

// crossBoundaries closes the short and long periods that ended at or
// before ts. A gap spanning several periods is closed as one period.
func (d *Dispatcher) crossBoundaries(ctx context.Context, ts logic.Timestamp) {
	if b := ts.FloorToShort(); b > d.shortStart {
		d.closeShort(ctx, b)
	}
	if b := ts.FloorToLong(); b > d.longStart {
		d.closeLong(ctx, b)
	}
}

func (d *Dispatcher) closeShort(ctx context.Context, end logic.Timestamp) {
	count, secs := d.door.Sample(logic.ShortWindow, end)
	s := ShortSample{
		Start: d.shortStart,
		End:   end,
		Door: logic.DoorSample{
			Count:   count,
			Seconds: secs,
			Alarmed: d.door.IsAlarmed(logic.ShortWindow, end),
		},
		Power: logic.PowerSample{
			AvailableSeconds: d.power.Sample(logic.ShortWindow, end),
			Alarmed:          d.power.IsAlarmed(logic.ShortWindow, end),
		},
		State: d.temp.State(),
	}
	s.Vaccine, s.Ambient = d.lastReadings()

	d.resetWindows(ctx, logic.ShortWindow, end)
	d.shortStart = end
	metrics.IncShortSample()

	for _, sink := range d.shorts {
		if err := sink.HandleShortSample(ctx, s); err != nil {
			metrics.IncSinkError(sink.name)
			logger.ErrorKV(ctx, "short sample sink failed", "sink", sink.name, "error", err)
		}
	}
}

func (d *Dispatcher) closeLong(ctx context.Context, end logic.Timestamp) {
	// Carry the integrals up to the boundary with the last readings.
	if err := d.temp.AddSample(logic.TemperatureSample{}, end); err != nil {
		logger.WarnKV(ctx, "temperature carry rejected", "end", uint32(end), "error", err)
	}
	temp := d.temp.FinalizeLongRecord()

	count, secs := d.door.Sample(logic.LongWindow, end)
	rec := logic.BuildRecord(d.longStart, end, temp,
		logic.DoorSample{Count: count, Seconds: secs, Alarmed: d.door.IsAlarmed(logic.LongWindow, end)},
		logic.PowerSample{
			AvailableSeconds: d.power.Sample(logic.LongWindow, end),
			Alarmed:          d.power.IsAlarmed(logic.LongWindow, end),
		},
	)

	d.resetWindows(ctx, logic.LongWindow, end)
	d.longStart = end
	d.lastRecord = &rec

	logger.InfoKV(ctx, "long record finalized",
		"start", uint32(rec.Start), "end", uint32(rec.End),
		"door_count", rec.DoorCount, "door_open", logic.FormatDuration(rec.DoorOpenSeconds),
		"power_available", logic.FormatDuration(rec.PowerAvailableSeconds))

	for _, sink := range d.records {
		if err := sink.HandleRecord(ctx, rec); err != nil {
			metrics.ObserveRecord(sink.name, metrics.ResultError)
			logger.ErrorKV(ctx, "record sink failed", "sink", sink.name, "error", err)
			continue
		}
		metrics.ObserveRecord(sink.name, metrics.ResultSuccess)
	}
}

func (d *Dispatcher) resetWindows(ctx context.Context, w logic.Window, ts logic.Timestamp) {
	if err := d.door.Reset(w, ts); err != nil {
		logger.WarnKV(ctx, "door window reset rejected", "window", w.String(), "ts", uint32(ts), "error", err)
	}
	if err := d.power.Reset(w, ts); err != nil {
		logger.WarnKV(ctx, "power window reset rejected", "window", w.String(), "ts", uint32(ts), "error", err)
	}
}

func (d *Dispatcher) evaluateAlarms(now logic.Timestamp) AlarmFlags {
	return AlarmFlags{
		Door:     d.door.IsAlarmed(logic.ShortWindow, now),
		Power:    d.power.IsAlarmed(logic.ShortWindow, now),
		TempHigh: d.temp.IsHighAlarm(),
		TempLow:  d.temp.IsLowAlarm(),
	}
}

func (d *Dispatcher) reportAlarms(ctx context.Context, now logic.Timestamp) {
	prev := d.alarms
	d.alarms = d.evaluateAlarms(now)

	for _, a := range Alarms {
		active := d.alarms.get(a)
		if active == prev.get(a) {
			continue
		}
		metrics.SetAlarm(string(a), active)
		logger.WarnKV(ctx, "alarm changed", "alarm", string(a), "active", active, "ts", uint32(now))

		e := AlarmEdge{Alarm: a, Active: active, Time: now}
		for _, sink := range d.alarmSinks {
			if err := sink.HandleAlarm(ctx, e); err != nil {
				metrics.IncSinkError(sink.name)
				logger.ErrorKV(ctx, "alarm sink failed", "sink", sink.name, "error", err)
			}
		}
	}
}

func (d *Dispatcher) recordReadings() {
	vax, amb := d.lastReadings()
	if vax != nil {
		metrics.SetTemperature("vaccine", *vax)
	}
	if amb != nil {
		metrics.SetTemperature("ambient", *amb)
	}
}

func (d *Dispatcher) lastReadings() (vaccine, ambient *float32) {
	if v, _, ok := d.temp.LastVaccine(); ok {
		vaccine = logic.Celsius(v)
	}
	if v, _, ok := d.temp.LastAmbient(); ok {
		ambient = logic.Celsius(v)
	}
	return vaccine, ambient
}

// Partial returns the record of the long period in progress, read at now.
// Nothing is reset.
func (d *Dispatcher) Partial(now logic.Timestamp) logic.AggregationRecord {
	count, secs := d.door.Sample(logic.LongWindow, now)
	return logic.BuildRecord(d.longStart, now, d.temp.Record(),
		logic.DoorSample{Count: count, Seconds: secs, Alarmed: d.door.IsAlarmed(logic.LongWindow, now)},
		logic.PowerSample{
			AvailableSeconds: d.power.Sample(logic.LongWindow, now),
			Alarmed:          d.power.IsAlarmed(logic.LongWindow, now),
		},
	)
}

// View returns the current state as of the last accepted message.
func (d *Dispatcher) View() View {
	v := View{
		Time:            d.last,
		DoorOpen:        d.door.IsOpen(),
		DoorOpenSeconds: d.door.InstantOpenDuration(d.last),
		PowerOn:         d.power.IsOn(),
		PowerOffSeconds: d.power.InstantOffDuration(d.last),
		State:           d.temp.State(),
		Alarms:          d.alarms,
		Partial:         d.Partial(d.last),
		Processed:       d.processed,
		Rejected:        d.rejected,
	}
	v.Vaccine, v.Ambient = d.lastReadings()
	if d.lastRecord != nil {
		rec := *d.lastRecord
		v.LastRecord = &rec
	}
	return v
}

func (d *Dispatcher) notify() {
	if d.observer != nil {
		d.observer(d.View())
	}
}

// Stats returns the processed and rejected message counts.
func (d *Dispatcher) Stats() (processed, rejected uint64) {
	return d.processed, d.rejected
}
