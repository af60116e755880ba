package logic

import "math"

// AlarmKind names the variant of an AlarmState.
type AlarmKind int

const (
	InRange AlarmKind = iota
	HotNoAlarm
	HotAlarm
	Cold
	FreezeNoAlarm
	FreezeAlarm
)

func (k AlarmKind) String() string {
	switch k {
	case InRange:
		return "IN_RANGE"
	case HotNoAlarm:
		return "HOT_NO_ALARM"
	case HotAlarm:
		return "HOT_ALARM"
	case Cold:
		return "COLD"
	case FreezeNoAlarm:
		return "FREEZE_NO_ALARM"
	case FreezeAlarm:
		return "FREEZE_ALARM"
	default:
		return "UNKNOWN"
	}
}

// AlarmState is the vaccine temperature state. Start is when the excursion
// began: above 8 degC for the Hot kinds, below 2 degC for Cold and Freeze.
// FreezeStart is when the reading went to -0.5 degC or lower (Freeze kinds only).
type AlarmState struct {
	Kind        AlarmKind
	Start       Timestamp
	FreezeStart Timestamp
}

func hotNoAlarm(start Timestamp) AlarmState {
	return AlarmState{Kind: HotNoAlarm, Start: start}
}

func cold(coolStart Timestamp) AlarmState {
	return AlarmState{Kind: Cold, Start: coolStart}
}

func freezeNoAlarm(coolStart, freezeStart Timestamp) AlarmState {
	return AlarmState{Kind: FreezeNoAlarm, Start: coolStart, FreezeStart: freezeStart}
}

func (s AlarmState) isHot() bool {
	return s.Kind == HotNoAlarm || s.Kind == HotAlarm
}

func (s AlarmState) isFreeze() bool {
	return s.Kind == FreezeNoAlarm || s.Kind == FreezeAlarm
}

// highDeadline is when a HotNoAlarm excursion becomes an alarm. ok is false
// when the deadline lies past the end of the Timestamp range.
func (s AlarmState) highDeadline() (Timestamp, bool) {
	return deadlineAfter(s.Start, AlarmHighSeconds)
}

// lowDeadline is when a FreezeNoAlarm excursion becomes an alarm.
func (s AlarmState) lowDeadline() (Timestamp, bool) {
	return deadlineAfter(s.FreezeStart, AlarmLowSeconds)
}

func deadlineAfter(start Timestamp, seconds uint32) (Timestamp, bool) {
	if start > Timestamp(math.MaxUint32-seconds) {
		return 0, false
	}
	return start + Timestamp(seconds), true
}

// upgrade promotes a NoAlarm excursion that has persisted past its threshold.
func (s AlarmState) upgrade(now Timestamp) AlarmState {
	switch {
	case s.Kind == HotNoAlarm && now.Since(s.Start) >= AlarmHighSeconds:
		s.Kind = HotAlarm
	case s.Kind == FreezeNoAlarm && now.Since(s.FreezeStart) >= AlarmLowSeconds:
		s.Kind = FreezeAlarm
	}
	return s
}

// next is the transition for a vaccine reading taken at now.
func (s AlarmState) next(tvc float32, now Timestamp) AlarmState {
	switch {
	case s.isHot():
		switch {
		case tvc > MaxGoodVaccineTemp:
			return s
		case tvc <= AlarmLowTemp:
			return freezeNoAlarm(now, now)
		case tvc < MinGoodVaccineTemp:
			return cold(now)
		}
	case s.isFreeze():
		switch {
		case tvc <= AlarmLowTemp:
			return s
		case tvc < MinGoodVaccineTemp:
			return cold(s.Start)
		case tvc > MaxGoodVaccineTemp:
			return hotNoAlarm(now)
		}
	case s.Kind == Cold:
		switch {
		case tvc <= AlarmLowTemp:
			return freezeNoAlarm(s.Start, now)
		case tvc < MinGoodVaccineTemp:
			return s
		case tvc > MaxGoodVaccineTemp:
			return hotNoAlarm(now)
		}
	default:
		switch {
		case tvc > MaxGoodVaccineTemp:
			return hotNoAlarm(now)
		case tvc <= AlarmLowTemp:
			return freezeNoAlarm(now, now)
		case tvc < MinGoodVaccineTemp:
			return cold(now)
		}
	}
	return AlarmState{}
}

// highAlarmDwell is the part of (from, now] this state spent in a high alarm.
// A HotNoAlarm state counts only the time after its persistence deadline.
func (s AlarmState) highAlarmDwell(from, now Timestamp) uint32 {
	switch s.Kind {
	case HotAlarm:
		return now.Since(from)
	case HotNoAlarm:
		if deadline, ok := s.highDeadline(); ok {
			return now.Since(max(from, deadline))
		}
		return 0
	default:
		return 0
	}
}

// lowAlarmDwell is the freeze counterpart of highAlarmDwell.
func (s AlarmState) lowAlarmDwell(from, now Timestamp) uint32 {
	switch s.Kind {
	case FreezeAlarm:
		return now.Since(from)
	case FreezeNoAlarm:
		if deadline, ok := s.lowDeadline(); ok {
			return now.Since(max(from, deadline))
		}
		return 0
	default:
		return 0
	}
}
