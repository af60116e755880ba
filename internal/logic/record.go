package logic

// DoorSample is a door window reading.
type DoorSample struct {
	Count   uint16
	Seconds uint32
	Alarmed bool
}

// PowerSample is a power window reading.
type PowerSample struct {
	AvailableSeconds uint32
	Alarmed          bool
}

// AggregationRecord is the per-long-period output of the whole engine.
// Records of finer periods can be merged into a coarser one with Merge.
type AggregationRecord struct {
	Start Timestamp
	End   Timestamp

	TempLongRecord

	DoorCount             uint16
	DoorOpenSeconds       uint32
	DoorAlarmed           bool
	PowerAvailableSeconds uint32
	PowerAlarmed          bool

	// RecordsRead counts how many records were merged into this one.
	RecordsRead uint8
}

// BuildRecord combines one finalized temperature record with the long-window
// door and power readings taken at the same boundary.
func BuildRecord(start, end Timestamp, temp TempLongRecord, door DoorSample, power PowerSample) AggregationRecord {
	return AggregationRecord{
		Start:                 start,
		End:                   end,
		TempLongRecord:        temp,
		DoorCount:             door.Count,
		DoorOpenSeconds:       door.Seconds,
		DoorAlarmed:           door.Alarmed,
		PowerAvailableSeconds: power.AvailableSeconds,
		PowerAlarmed:          power.Alarmed,
		RecordsRead:           1,
	}
}

// Merge folds rec into r: counters are summed, min/max kept global, alarm
// flags or'ed, the period widened and RecordsRead incremented.
func (r *AggregationRecord) Merge(rec AggregationRecord) {
	if r.RecordsRead == 0 {
		r.Start, r.End = rec.Start, rec.End
	} else {
		r.Start = min(r.Start, rec.Start)
		r.End = max(r.End, rec.End)
	}

	r.TVCSum += rec.TVCSum
	r.TVCSeconds += rec.TVCSeconds
	if rec.TVCObserved {
		if r.TVCObserved {
			r.TVCMin = min(r.TVCMin, rec.TVCMin)
			r.TVCMax = max(r.TVCMax, rec.TVCMax)
		} else {
			r.TVCMin, r.TVCMax, r.TVCObserved = rec.TVCMin, rec.TVCMax, true
		}
	}
	r.TAmbSum += rec.TAmbSum
	r.TAmbSeconds += rec.TAmbSeconds
	r.TVCLowSeconds += rec.TVCLowSeconds
	r.TVCHighSeconds += rec.TVCHighSeconds
	r.LowAlarmSeconds += rec.LowAlarmSeconds
	r.HighAlarmSeconds += rec.HighAlarmSeconds

	r.DoorCount += rec.DoorCount
	r.DoorOpenSeconds += rec.DoorOpenSeconds
	r.DoorAlarmed = r.DoorAlarmed || rec.DoorAlarmed
	r.PowerAvailableSeconds += rec.PowerAvailableSeconds
	r.PowerAlarmed = r.PowerAlarmed || rec.PowerAlarmed

	if r.RecordsRead < ^uint8(0) {
		r.RecordsRead++
	}
}

// MergeAll merges records in order into a single record.
func MergeAll(records []AggregationRecord) AggregationRecord {
	var out AggregationRecord
	for _, rec := range records {
		out.Merge(rec)
	}
	return out
}

// TVCMean returns the time-weighted mean vaccine temperature.
func (r TempLongRecord) TVCMean() (float64, bool) {
	if r.TVCSeconds == 0 {
		return 0, false
	}
	return r.TVCSum / float64(r.TVCSeconds), true
}

// TAmbMean returns the time-weighted mean ambient temperature.
func (r TempLongRecord) TAmbMean() (float64, bool) {
	if r.TAmbSeconds == 0 {
		return 0, false
	}
	return r.TAmbSum / float64(r.TAmbSeconds), true
}
