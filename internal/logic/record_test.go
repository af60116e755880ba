package logic

import "testing"

func TestBuildRecord(t *testing.T) {
	temp := TempLongRecord{TVCSum: 1, TVCSeconds: 2, TVCMin: 3, TVCMax: 4, TVCObserved: true}
	rec := BuildRecord(0, 28800, temp, DoorSample{Count: 3, Seconds: 120, Alarmed: true}, PowerSample{AvailableSeconds: 28000})

	if rec.RecordsRead != 1 {
		t.Errorf("RecordsRead = %d, want 1", rec.RecordsRead)
	}
	if rec.TempLongRecord != temp {
		t.Errorf("temperature part = %+v", rec.TempLongRecord)
	}
	if rec.DoorCount != 3 || rec.DoorOpenSeconds != 120 || !rec.DoorAlarmed {
		t.Errorf("door part = %+v", rec)
	}
	if rec.PowerAvailableSeconds != 28000 || rec.PowerAlarmed {
		t.Errorf("power part = %+v", rec)
	}
}

func TestMergeRecords(t *testing.T) {
	a := BuildRecord(28800, 57600,
		TempLongRecord{TVCSum: 100, TVCSeconds: 20, TVCMin: 3, TVCMax: 6, TVCObserved: true, TAmbSum: 50, TAmbSeconds: 10, TVCHighSeconds: 5, HighAlarmSeconds: 1},
		DoorSample{Count: 2, Seconds: 30}, PowerSample{AvailableSeconds: 100})
	b := BuildRecord(0, 28800,
		TempLongRecord{TVCSum: 40, TVCSeconds: 10, TVCMin: 1, TVCMax: 5, TVCObserved: true, TVCLowSeconds: 7, LowAlarmSeconds: 2},
		DoorSample{Count: 1, Seconds: 400, Alarmed: true}, PowerSample{AvailableSeconds: 50, Alarmed: true})
	c := BuildRecord(57600, 86400, TempLongRecord{TVCMin: -40, TVCMax: 99}, DoorSample{}, PowerSample{})

	got := MergeAll([]AggregationRecord{a, b, c})

	if got.RecordsRead != 3 {
		t.Errorf("RecordsRead = %d, want 3", got.RecordsRead)
	}
	if got.Start != 0 || got.End != 86400 {
		t.Errorf("period = %d..%d, want 0..86400", got.Start, got.End)
	}
	if got.TVCSum != 140 || got.TVCSeconds != 30 {
		t.Errorf("TVC integral = %v/%d", got.TVCSum, got.TVCSeconds)
	}
	// c never observed a vaccine value, so its zero min/max are ignored.
	if got.TVCMin != 1 || got.TVCMax != 6 || !got.TVCObserved {
		t.Errorf("min/max = %v/%v", got.TVCMin, got.TVCMax)
	}
	if got.TAmbSum != 50 || got.TAmbSeconds != 10 {
		t.Errorf("TAmb = %v/%d", got.TAmbSum, got.TAmbSeconds)
	}
	if got.TVCLowSeconds != 7 || got.TVCHighSeconds != 5 || got.LowAlarmSeconds != 2 || got.HighAlarmSeconds != 1 {
		t.Errorf("dwell = %+v", got.TempLongRecord)
	}
	if got.DoorCount != 3 || got.DoorOpenSeconds != 430 || !got.DoorAlarmed {
		t.Errorf("door = %d/%d/%v", got.DoorCount, got.DoorOpenSeconds, got.DoorAlarmed)
	}
	if got.PowerAvailableSeconds != 150 || !got.PowerAlarmed {
		t.Errorf("power = %d/%v", got.PowerAvailableSeconds, got.PowerAlarmed)
	}
}

func TestMergeEmpty(t *testing.T) {
	got := MergeAll(nil)
	if got != (AggregationRecord{}) {
		t.Errorf("MergeAll(nil) = %+v", got)
	}
}

func TestMeans(t *testing.T) {
	r := TempLongRecord{TVCSum: 450, TVCSeconds: 90, TAmbSum: 0, TAmbSeconds: 0}
	if m, ok := r.TVCMean(); !ok || m != 5 {
		t.Errorf("TVCMean = %v %v", m, ok)
	}
	if _, ok := r.TAmbMean(); ok {
		t.Error("TAmbMean with zero seconds should not be ok")
	}
}
