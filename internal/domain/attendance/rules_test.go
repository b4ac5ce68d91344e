package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCheckIn(t *testing.T) {
	tol := 15 * time.Minute
	tests := []struct {
		name  string
		delta time.Duration
		want  AnomalyType
		raise bool
	}{
		{"on time", 0, "", false},
		{"late within tolerance", 10 * time.Minute, "", false},
		{"late on the boundary", 15 * time.Minute, "", false},
		{"late past tolerance", 15*time.Minute + time.Second, AnomalyLateCheckIn, true},
		{"early within tolerance", -15 * time.Minute, "", false},
		{"early past tolerance", -20 * time.Minute, AnomalyEarlyCheckIn, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyCheckIn(tt.delta, tol)
			assert.Equal(t, tt.raise, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCheckOut(t *testing.T) {
	tol := 15 * time.Minute
	got, ok := ClassifyCheckOut(45*time.Minute, tol)
	assert.True(t, ok)
	assert.Equal(t, AnomalyLateCheckOut, got)

	got, ok = ClassifyCheckOut(-30*time.Minute, tol)
	assert.True(t, ok)
	assert.Equal(t, AnomalyEarlyCheckOut, got)

	_, ok = ClassifyCheckOut(5*time.Minute, tol)
	assert.False(t, ok)
}

func TestWorkedAndOvertime(t *testing.T) {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	shift := Shift{PlannedStart: start, PlannedEnd: start.Add(8 * time.Hour), PlannedBreakMinutes: 30}

	planned := PlannedDuration(shift)
	worked := WorkedDuration(start, start.Add(8*time.Hour+45*time.Minute), 30)
	overtime := Overtime(worked, planned)

	assert.Equal(t, 7.5, Hours(planned))
	assert.Equal(t, 8.25, Hours(worked))
	assert.Equal(t, 45*time.Minute, overtime)
	assert.True(t, HasOvertime(overtime, 30*time.Minute))
	assert.False(t, HasOvertime(30*time.Minute, 30*time.Minute), "threshold is exclusive")
	assert.Equal(t, time.Duration(0), Overtime(7*time.Hour, planned))
	assert.Equal(t, time.Duration(0), WorkedDuration(start, start.Add(10*time.Minute), 30))
}

func TestDeltaMinutesRounds(t *testing.T) {
	assert.Equal(t, 20, DeltaMinutes(20*time.Minute+20*time.Second))
	assert.Equal(t, -20, DeltaMinutes(-20*time.Minute))
	assert.Equal(t, 1, DeltaMinutes(30*time.Second))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusAutoApproved))
	assert.True(t, CanTransition(StatusPending, StatusSelfCorrected))
	assert.True(t, CanTransition(StatusPending, StatusRequiresReview))
	assert.True(t, CanTransition(StatusRequiresReview, StatusManuallyApproved))
	assert.True(t, CanTransition(StatusRequiresReview, StatusRejected))
	assert.False(t, CanTransition(StatusRequiresReview, StatusSelfCorrected))
	assert.False(t, CanTransition(StatusRequiresReview, StatusAutoApproved))
	for _, terminal := range []AnomalyStatus{StatusAutoApproved, StatusManuallyApproved, StatusRejected, StatusSelfCorrected} {
		assert.True(t, terminal.Terminal())
		assert.False(t, CanTransition(terminal, StatusPending))
		assert.False(t, CanTransition(terminal, StatusManuallyApproved))
	}
}

func TestSuggestionsFor(t *testing.T) {
	got := SuggestionsFor(AnomalyLateCheckIn)
	assert.Equal(t, ReasonTraffic, got[0])

	got[0] = ReasonOther
	assert.Equal(t, ReasonTraffic, SuggestionsFor(AnomalyLateCheckIn)[0], "callers get a copy")

	for _, typ := range []AnomalyType{AnomalyLateCheckIn, AnomalyEarlyCheckIn, AnomalyLateCheckOut, AnomalyEarlyCheckOut,
		AnomalyMissingCheckIn, AnomalyMissingCheckOut, AnomalyLocationMismatch, AnomalyExtendedBreak, AnomalyUnusualPattern} {
		for _, r := range SuggestionsFor(typ) {
			assert.True(t, r.Valid(), "%s suggests unknown reason %s", typ, r)
		}
	}
}

func TestPhaseOf(t *testing.T) {
	assert.Equal(t, PhaseCheckIn, PhaseOf(AnomalyEarlyCheckIn))
	assert.Equal(t, PhaseCheckOut, PhaseOf(AnomalyLateCheckOut))
	assert.Equal(t, PhaseMissing, PhaseOf(AnomalyMissingCheckOut))
	assert.Equal(t, PhaseLocation, PhaseOf(AnomalyLocationMismatch))
	assert.Equal(t, PhasePattern, PhaseOf(AnomalyUnusualPattern))
}

func TestEvaluateWellbeing(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, WellbeingOverMaxHours, EvaluateWellbeing(41*time.Hour, 0, 40, p))
	assert.Equal(t, WellbeingNearMaxHours, EvaluateWellbeing(37*time.Hour, 0, 40, p))
	assert.Equal(t, WellbeingNone, EvaluateWellbeing(36*time.Hour, 0, 40, p))
	assert.Equal(t, WellbeingOvertimeLimit, EvaluateWellbeing(30*time.Hour, 6*time.Hour, 40, p))
	assert.Equal(t, WellbeingNone, EvaluateWellbeing(30*time.Hour, 5*time.Hour, 40, p))
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), WeekStart(sunday))

	mon := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, WeekStart(mon))
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.NoError(t, p.Validate())

	ten, five := 10, 5
	merchant := p.ForMerchant(Merchant{ToleranceMinutes: &ten, AutoApproveToleranceMinutes: &five})
	assert.Equal(t, 10*time.Minute, merchant.Tolerance)
	assert.Equal(t, 5*time.Minute, merchant.AutoApproveTolerance)
	assert.Equal(t, 15*time.Minute, p.Tolerance, "defaults are not mutated")

	bad := p
	bad.ReviewAfter = 0
	assert.Error(t, bad.Validate())
}
