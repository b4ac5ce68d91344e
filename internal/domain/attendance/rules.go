package attendance

import (
	"math"
	"time"
)

// Delta returns how far actual is from planned; positive means late.
func Delta(actual, planned time.Time) time.Duration {
	return actual.Sub(planned)
}

// DeltaMinutes rounds d to whole minutes.
func DeltaMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

func WithinTolerance(delta, tolerance time.Duration) bool {
	return absDuration(delta) <= tolerance
}

// ClassifyCheckIn returns the anomaly raised by a check-in delta, if any.
func ClassifyCheckIn(delta, tolerance time.Duration) (AnomalyType, bool) {
	if WithinTolerance(delta, tolerance) {
		return "", false
	}
	if delta > 0 {
		return AnomalyLateCheckIn, true
	}
	return AnomalyEarlyCheckIn, true
}

// ClassifyCheckOut returns the anomaly raised by a check-out delta, if any.
func ClassifyCheckOut(delta, tolerance time.Duration) (AnomalyType, bool) {
	if WithinTolerance(delta, tolerance) {
		return "", false
	}
	if delta > 0 {
		return AnomalyLateCheckOut, true
	}
	return AnomalyEarlyCheckOut, true
}

// PlannedDuration is the scheduled working time of a shift, net of the planned break.
func PlannedDuration(s Shift) time.Duration {
	d := s.PlannedEnd.Sub(s.PlannedStart) - time.Duration(s.PlannedBreakMinutes)*time.Minute
	if d < 0 {
		return 0
	}
	return d
}

// WorkedDuration assumes the planned break was taken.
func WorkedDuration(checkIn, checkOut time.Time, breakMinutes int) time.Duration {
	d := checkOut.Sub(checkIn) - time.Duration(breakMinutes)*time.Minute
	if d < 0 {
		return 0
	}
	return d
}

func Overtime(worked, planned time.Duration) time.Duration {
	if worked <= planned {
		return 0
	}
	return worked - planned
}

func HasOvertime(overtime, threshold time.Duration) bool {
	return overtime > threshold
}

// Hours converts d to hours rounded to two decimals.
func Hours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

var suggestions = map[AnomalyType][]ResolutionReason{
	AnomalyLateCheckIn:      {ReasonTraffic, ReasonAuthorizedLeave, ReasonTimeRecovery},
	AnomalyEarlyCheckIn:     {ReasonTimeRecovery, ReasonAuthorizedLeave, ReasonOther},
	AnomalyLateCheckOut:     {ReasonTimeRecovery, ReasonPersonalEmergency, ReasonOther},
	AnomalyEarlyCheckOut:    {ReasonAuthorizedLeave, ReasonPersonalEmergency, ReasonTimeRecovery},
	AnomalyMissingCheckIn:   {ReasonForgotten, ReasonTechnicalIssue, ReasonSmartWorking},
	AnomalyMissingCheckOut:  {ReasonForgotten, ReasonTechnicalIssue, ReasonSmartWorking},
	AnomalyLocationMismatch: {ReasonSmartWorking, ReasonTechnicalIssue, ReasonOther},
	AnomalyExtendedBreak:    {ReasonPersonalEmergency, ReasonTimeRecovery, ReasonOther},
	AnomalyUnusualPattern:   {ReasonOther, ReasonNotSpecified},
}

// SuggestionsFor returns the quick-resolution reasons offered for an anomaly type.
func SuggestionsFor(t AnomalyType) []ResolutionReason {
	out := make([]ResolutionReason, len(suggestions[t]))
	copy(out, suggestions[t])
	return out
}

// CanTransition encodes the anomaly status machine. Terminal statuses never move.
func CanTransition(from, to AnomalyStatus) bool {
	switch from {
	case StatusPending:
		switch to {
		case StatusAutoApproved, StatusManuallyApproved, StatusRejected, StatusSelfCorrected, StatusRequiresReview:
			return true
		}
	case StatusRequiresReview:
		return to == StatusManuallyApproved || to == StatusRejected
	}
	return false
}

// EvaluateWellbeing returns the advisory raised by the weekly totals, if any.
func EvaluateWellbeing(worked, overtime time.Duration, maxWeeklyHours float64, p Policy) WellbeingAlert {
	hours := worked.Hours()
	if maxWeeklyHours > 0 {
		if hours > maxWeeklyHours {
			return WellbeingOverMaxHours
		}
		if hours > maxWeeklyHours*p.WellbeingWarnFraction {
			return WellbeingNearMaxHours
		}
	}
	if p.WeeklyOvertimeAlert > 0 && overtime > p.WeeklyOvertimeAlert {
		return WellbeingOvertimeLimit
	}
	return WellbeingNone
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
