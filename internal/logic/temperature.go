package logic

// Vaccine temperature limits in degrees Celsius.
const (
	MaxGoodVaccineTemp float32 = 8.0
	MinGoodVaccineTemp float32 = 2.0
	AlarmLowTemp       float32 = -0.5
	// AlarmHysteresis is carried for record consumers; no transition uses it.
	AlarmHysteresis float32 = 0.1
)

// Persistence thresholds in seconds.
const (
	AlarmHighSeconds = 10 * secondsPerHour
	AlarmLowSeconds  = secondsPerHour
)

// defaultVaccineTemp picks the initial state when no vaccine reading exists.
const defaultVaccineTemp float32 = 23.0

// TemperatureSample is one reading of both probes. A nil field is a sensor fault.
type TemperatureSample struct {
	Ambient *float32
	Vaccine *float32
}

// Celsius returns a pointer to v, for building samples.
func Celsius(v float32) *float32 {
	return &v
}

// TempLongRecord holds the temperature statistics of one long period.
type TempLongRecord struct {
	TVCSum           float64 // time-weighted vaccine temperature integral, degC*s
	TVCSeconds       uint32
	TVCMin           float32
	TVCMax           float32
	TVCObserved      bool // TVCMin/TVCMax are meaningful
	TAmbSum          float64
	TAmbSeconds      uint32
	TVCLowSeconds    uint32 // vaccine below MinGoodVaccineTemp
	TVCHighSeconds   uint32 // vaccine above MaxGoodVaccineTemp
	LowAlarmSeconds  uint32
	HighAlarmSeconds uint32
}

// TemperatureAggregator runs the vaccine alarm state machine and integrates
// both channels into a TempLongRecord.
type TemperatureAggregator struct {
	state         AlarmState
	lastSampleTS  Timestamp
	longStart     Timestamp
	lastAmbient   float32
	hasAmbient    bool
	lastAmbientTS Timestamp
	lastVaccine   float32
	hasVaccine    bool
	lastVaccineTS Timestamp
	record        TempLongRecord
}

// NewTemperatureAggregator creates an aggregator from an initial sample.
func NewTemperatureAggregator(sample TemperatureSample, now Timestamp) *TemperatureAggregator {
	a := &TemperatureAggregator{
		lastSampleTS: now,
		longStart:    now.FloorToLong(),
	}

	if sample.Ambient != nil {
		a.lastAmbient, a.hasAmbient, a.lastAmbientTS = *sample.Ambient, true, now
	}

	tvc := defaultVaccineTemp
	if sample.Vaccine != nil {
		tvc = *sample.Vaccine
		a.lastVaccine, a.hasVaccine, a.lastVaccineTS = tvc, true, now
		a.record.TVCMin, a.record.TVCMax, a.record.TVCObserved = tvc, tvc, true
	}
	a.state = initialState(tvc, now)

	return a
}

func initialState(tvc float32, now Timestamp) AlarmState {
	switch {
	case tvc > MaxGoodVaccineTemp:
		return hotNoAlarm(now)
	case tvc < MinGoodVaccineTemp && tvc > AlarmLowTemp:
		return cold(now)
	default:
		return freezeNoAlarm(now, now)
	}
}

// AddSample folds one sample taken at now into the record and advances the
// alarm state machine. Returns ErrOutOfOrderTimestamp if now is earlier than
// the previous sample.
func (a *TemperatureAggregator) AddSample(sample TemperatureSample, now Timestamp) error {
	if now < a.lastSampleTS {
		return ErrOutOfOrderTimestamp
	}
	delta := uint32(now - a.lastSampleTS)
	prev := a.state

	a.integrateVaccine(sample.Vaccine, delta)
	a.integrateAmbient(sample.Ambient, delta)

	if a.hasVaccine {
		switch {
		case a.lastVaccine > MaxGoodVaccineTemp:
			a.record.TVCHighSeconds += delta
		case a.lastVaccine < MinGoodVaccineTemp:
			a.record.TVCLowSeconds += delta
		}
	}

	a.record.HighAlarmSeconds += prev.highAlarmDwell(a.lastSampleTS, now)
	a.record.LowAlarmSeconds += prev.lowAlarmDwell(a.lastSampleTS, now)

	a.state = prev.upgrade(now)
	if sample.Vaccine != nil {
		a.state = a.state.next(*sample.Vaccine, now)
	}

	if sample.Vaccine != nil {
		a.lastVaccine, a.hasVaccine, a.lastVaccineTS = *sample.Vaccine, true, now
	}
	if sample.Ambient != nil {
		a.lastAmbient, a.hasAmbient, a.lastAmbientTS = *sample.Ambient, true, now
	}
	a.lastSampleTS = now
	return nil
}

func (a *TemperatureAggregator) integrateVaccine(cur *float32, delta uint32) {
	r := &a.record
	if !a.hasVaccine {
		if cur != nil {
			r.TVCMin, r.TVCMax, r.TVCObserved = *cur, *cur, true
		}
		return
	}

	end := a.lastVaccine
	if cur != nil {
		end = *cur
	}
	r.TVCSum += trapezoid(a.lastVaccine, end, delta)
	r.TVCSeconds += delta

	if !r.TVCObserved {
		r.TVCMin, r.TVCMax = min(a.lastVaccine, end), max(a.lastVaccine, end)
		r.TVCObserved = true
		return
	}
	if cur != nil {
		r.TVCMin = min(r.TVCMin, *cur)
		r.TVCMax = max(r.TVCMax, *cur)
	}
}

func (a *TemperatureAggregator) integrateAmbient(cur *float32, delta uint32) {
	if !a.hasAmbient {
		return
	}
	end := a.lastAmbient
	if cur != nil {
		end = *cur
	}
	a.record.TAmbSum += trapezoid(a.lastAmbient, end, delta)
	a.record.TAmbSeconds += delta
}

func trapezoid(from, to float32, delta uint32) float64 {
	return (float64(from) + float64(to)) / 2 * float64(delta)
}

// IsHighAlarm reports whether the last sample left the state in HotAlarm.
func (a *TemperatureAggregator) IsHighAlarm() bool {
	return a.state.Kind == HotAlarm
}

// IsLowAlarm reports whether the last sample left the state in FreezeAlarm.
func (a *TemperatureAggregator) IsLowAlarm() bool {
	return a.state.Kind == FreezeAlarm
}

// State returns the current alarm state.
func (a *TemperatureAggregator) State() AlarmState {
	return a.state
}

// Record returns the long record accumulated so far without resetting it.
func (a *TemperatureAggregator) Record() TempLongRecord {
	return a.record
}

// LastVaccine returns the last good vaccine reading and when it was taken.
func (a *TemperatureAggregator) LastVaccine() (float32, Timestamp, bool) {
	return a.lastVaccine, a.lastVaccineTS, a.hasVaccine
}

// LastAmbient returns the last good ambient reading and when it was taken.
func (a *TemperatureAggregator) LastAmbient() (float32, Timestamp, bool) {
	return a.lastAmbient, a.lastAmbientTS, a.hasAmbient
}

// LastSample returns the timestamp of the last processed sample.
func (a *TemperatureAggregator) LastSample() Timestamp {
	return a.lastSampleTS
}

// LongWindowStart returns where the record being accumulated begins.
func (a *TemperatureAggregator) LongWindowStart() Timestamp {
	return a.longStart
}

// FinalizeLongRecord returns the current record and starts a fresh one at the
// last sample time. The alarm state and its start times carry over.
func (a *TemperatureAggregator) FinalizeLongRecord() TempLongRecord {
	rec := a.record
	a.record = TempLongRecord{}
	a.longStart = a.lastSampleTS
	return rec
}
