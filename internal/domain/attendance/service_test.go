package attendance

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 3 March 2025.
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

var (
	employee1 = Actor{UserID: "u1", Role: RoleEmployee, EmployeeID: "e1", MerchantID: "m1"}
	employee2 = Actor{UserID: "u2", Role: RoleEmployee, EmployeeID: "e2", MerchantID: "m1"}
	merchant1 = Actor{UserID: "mu1", Role: RoleMerchant, MerchantID: "m1"}
	merchant2 = Actor{UserID: "mu2", Role: RoleMerchant, MerchantID: "m2"}
)

type fixture struct {
	store    *fakeStore
	clock    *fixedClock
	notifier *recordingNotifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	store.merchants["m1"] = Merchant{ID: "m1", Name: "Bar Centrale", Timezone: "UTC"}
	store.merchants["m2"] = Merchant{ID: "m2", Name: "Pizzeria Nord", Timezone: "UTC"}
	store.employees["e1"] = Employee{ID: "e1", MerchantID: "m1", UserID: "u1"}
	store.employees["e2"] = Employee{ID: "e2", MerchantID: "m1", UserID: "u2"}

	clock := &fixedClock{now: at(0, 9, 0)}
	notifier := &recordingNotifier{}
	svc := NewService(store, DefaultPolicy(), WithClock(clock), WithNotifier(notifier))
	return &fixture{store: store, clock: clock, notifier: notifier, svc: svc}
}

// addShift plans a shift for employee on the given day offset from monday.
func (f *fixture) addShift(id, employeeID string, day, startHour, endHour, breakMinutes int) Shift {
	emp := f.store.employees[employeeID]
	s := Shift{
		ID:                  id,
		MerchantID:          emp.MerchantID,
		EmployeeID:          employeeID,
		Date:                monday.AddDate(0, 0, day),
		PlannedStart:        at(day, startHour, 0),
		PlannedEnd:          at(day, endHour, 0),
		PlannedBreakMinutes: breakMinutes,
		Status:              ShiftScheduled,
	}
	f.store.shifts[id] = s
	return s
}

func (f *fixture) checkIn(t *testing.T, shiftID string, when time.Time) CheckInResult {
	t.Helper()
	f.clock.Set(when)
	res, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{ShiftID: shiftID, Actor: employee1})
	require.NoError(t, err)
	return res
}

func TestRecordCheckIn_WithinTolerance(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	res := f.checkIn(t, "s1", at(0, 9, 10))

	assert.True(t, res.OnTime)
	assert.Equal(t, 10, res.DeltaMinutes)
	assert.Empty(t, res.Anomalies)
	assert.Nil(t, res.Primary())
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, ShiftOnTime, f.store.shifts["s1"].Status)
}

func TestRecordCheckIn_ToleranceBoundaryIsInclusive(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	res := f.checkIn(t, "s1", at(0, 9, 15))
	assert.Empty(t, res.Anomalies)
	assert.True(t, res.OnTime)
}

func TestRecordCheckIn_Late(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	res := f.checkIn(t, "s1", at(0, 9, 20))

	require.Len(t, res.Anomalies, 1)
	a := res.Anomalies[0]
	assert.Equal(t, AnomalyLateCheckIn, a.Type)
	assert.Equal(t, StatusPending, a.Status)
	assert.Nil(t, a.ResolutionReason)
	require.NotNil(t, a.DeltaSeconds)
	assert.Equal(t, 20*60, *a.DeltaSeconds)
	assert.Equal(t, 20, res.DeltaMinutes)
	assert.False(t, res.OnTime)
	require.NotEmpty(t, res.Suggestions)
	assert.Equal(t, ReasonTraffic, res.Suggestions[0])
	assert.Equal(t, ShiftAnomalous, f.store.shifts["s1"].Status)
}

func TestRecordCheckIn_Early(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	res := f.checkIn(t, "s1", at(0, 8, 40))

	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyEarlyCheckIn, res.Anomalies[0].Type)
	assert.Equal(t, -20, res.DeltaMinutes)
}

func TestRecordCheckIn_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)
	f.checkIn(t, "s1", at(0, 9, 0))

	_, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{ShiftID: "s1", Actor: employee1})
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRecordCheckIn_OtherEmployeesShift(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	_, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{ShiftID: "s1", Actor: employee2})
	assert.ErrorIs(t, err, ErrShiftNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRecordCheckIn_Validation(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	_, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{Actor: employee1})
	assert.ErrorIs(t, err, ErrMissingShiftID)

	_, err = f.svc.RecordCheckIn(context.Background(), CheckInInput{ShiftID: "s1", Actor: employee1, Location: &GeoPoint{Latitude: 120}})
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = f.svc.RecordCheckIn(context.Background(), CheckInInput{ShiftID: "s1", Actor: merchant1})
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
}

func TestRecordCheckIn_LocationMismatchOncePerShift(t *testing.T) {
	f := newFixture(t)
	m := f.store.merchants["m1"]
	m.Location = &GeoPoint{Latitude: 45.4642, Longitude: 9.1900}
	f.store.merchants["m1"] = m
	f.addShift("s1", "e1", 0, 9, 17, 30)
	far := &GeoPoint{Latitude: 45.0703, Longitude: 7.6869}

	f.clock.Set(at(0, 9, 0))
	in, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{ShiftID: "s1", Actor: employee1, Location: far})
	require.NoError(t, err)
	require.Len(t, in.Anomalies, 1)
	assert.Equal(t, AnomalyLocationMismatch, in.Anomalies[0].Type)
	assert.Equal(t, AnomalyLocationMismatch, in.Primary().Type)

	f.clock.Set(at(0, 17, 0))
	out, err := f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s1", Actor: employee1, Location: far})
	require.NoError(t, err)
	assert.Empty(t, out.Anomalies)
	assert.Len(t, f.store.anomaliesForShift("s1"), 1)
}

func TestRecordCheckIn_NearbyLocationPasses(t *testing.T) {
	f := newFixture(t)
	m := f.store.merchants["m1"]
	m.Location = &GeoPoint{Latitude: 45.4642, Longitude: 9.1900}
	f.store.merchants["m1"] = m
	f.addShift("s1", "e1", 0, 9, 17, 30)

	f.clock.Set(at(0, 9, 0))
	res, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{
		ShiftID:  "s1",
		Actor:    employee1,
		Location: &GeoPoint{Latitude: 45.4645, Longitude: 9.1903},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Anomalies)
}

func TestRecordCheckIn_CustomGeofence(t *testing.T) {
	f := newFixture(t)
	m := f.store.merchants["m1"]
	m.Location = &GeoPoint{Latitude: 45.4642, Longitude: 9.1900}
	m.GeofenceRadiusMeters = 50
	f.store.merchants["m1"] = m
	f.addShift("s1", "e1", 0, 9, 17, 30)

	var radius float64
	f.svc = NewService(f.store, DefaultPolicy(), WithClock(f.clock), WithGeofence(func(_, _ GeoPoint, r float64) bool {
		radius = r
		return false
	}))

	f.clock.Set(at(0, 9, 0))
	res, err := f.svc.RecordCheckIn(context.Background(), CheckInInput{
		ShiftID:  "s1",
		Actor:    employee1,
		Location: &GeoPoint{Latitude: 45.4642, Longitude: 9.1900},
	})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyLocationMismatch, res.Anomalies[0].Type)
	assert.Equal(t, 50.0, radius)
}

func TestRecordCheckOut_OvertimeAndLate(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)
	f.checkIn(t, "s1", at(0, 9, 0))

	f.clock.Set(at(0, 17, 45))
	res, err := f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s1", Actor: employee1})
	require.NoError(t, err)

	assert.Equal(t, 8.25, res.WorkedHours)
	assert.Equal(t, 7.5, res.PlannedHours)
	assert.Equal(t, 45, res.OvertimeMinutes)
	assert.True(t, res.HasOvertime)
	assert.Equal(t, 45, res.DeltaMinutes)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyLateCheckOut, res.Anomalies[0].Type)
	assert.Equal(t, ShiftAnomalous, f.store.shifts["s1"].Status)
}

func TestRecordCheckOut_OnTimeCompletesShift(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)
	f.checkIn(t, "s1", at(0, 9, 0))

	f.clock.Set(at(0, 17, 5))
	res, err := f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s1", Actor: employee1})
	require.NoError(t, err)

	assert.Empty(t, res.Anomalies)
	assert.False(t, res.HasOvertime)
	assert.Equal(t, ShiftCompleted, f.store.shifts["s1"].Status)
}

func TestRecordCheckOut_WithoutCheckIn(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	f.clock.Set(at(0, 17, 0))
	_, err := f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s1", Actor: employee1})

	assert.ErrorIs(t, err, ErrMissingCheckIn)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "missing_check_in", CodeOf(err))
	assert.Empty(t, f.store.anomaliesForShift("s1"))
}

func TestRecordCheckOut_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)
	f.checkIn(t, "s1", at(0, 9, 0))

	f.clock.Set(at(0, 17, 0))
	_, err := f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s1", Actor: employee1})
	require.NoError(t, err)
	_, err = f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s1", Actor: employee1})
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
}

func lateAnomaly(t *testing.T, f *fixture) Anomaly {
	t.Helper()
	f.addShift("s1", "e1", 0, 9, 17, 30)
	res := f.checkIn(t, "s1", at(0, 9, 20))
	require.Len(t, res.Anomalies, 1)
	return res.Anomalies[0]
}

func TestResolveAnomaly_SelfCorrectWithinWindow(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)

	f.clock.Set(a.CreatedAt.Add(23 * time.Hour))
	resolved, err := f.svc.ResolveAnomaly(context.Background(), ResolveInput{AnomalyID: a.ID, Reason: ReasonTraffic, Actor: employee1})
	require.NoError(t, err)

	assert.Equal(t, StatusSelfCorrected, resolved.Status)
	require.NotNil(t, resolved.ResolutionReason)
	assert.Equal(t, ReasonTraffic, *resolved.ResolutionReason)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, StatusSelfCorrected, f.store.anomalies[a.ID].Status)
}

func TestResolveAnomaly_SelfCorrectAfterWindow(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)

	f.clock.Set(a.CreatedAt.Add(25 * time.Hour))
	_, err := f.svc.ResolveAnomaly(context.Background(), ResolveInput{AnomalyID: a.ID, Reason: ReasonTraffic, Actor: employee1})

	assert.ErrorIs(t, err, ErrResolveWindowClosed)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, StatusPending, f.store.anomalies[a.ID].Status)
}

func TestResolveAnomaly_Rules(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)
	ctx := context.Background()

	_, err := f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Reason: ReasonTraffic, Actor: employee2})
	assert.ErrorIs(t, err, ErrNotShiftOwner)

	_, err = f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Actor: employee1})
	assert.ErrorIs(t, err, ErrInvalidReason, "employees must give a reason")

	_, err = f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Reason: "sunny_day", Actor: merchant1})
	assert.ErrorIs(t, err, ErrInvalidReason)

	_, err = f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Reason: ReasonOther, Decision: "maybe", Actor: merchant1})
	assert.ErrorIs(t, err, ErrInvalidDecision)

	_, err = f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Reason: ReasonOther, Actor: merchant2})
	assert.ErrorIs(t, err, ErrMerchantScope)

	_, err = f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: "missing", Reason: ReasonOther, Actor: merchant1})
	assert.ErrorIs(t, err, ErrAnomalyNotFound)
}

func TestResolveAnomaly_MerchantRejectThenTerminal(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)
	ctx := context.Background()

	resolved, err := f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Decision: DecisionReject, Actor: merchant1})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, resolved.Status)
	assert.Equal(t, ReasonNotSpecified, *resolved.ResolutionReason)
	assert.Equal(t, "mu1", resolved.ResolvedBy)

	_, err = f.svc.ResolveAnomaly(ctx, ResolveInput{AnomalyID: a.ID, Reason: ReasonTraffic, Actor: merchant1})
	assert.ErrorIs(t, err, ErrAnomalyTerminal)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestResolveAnomaly_MerchantApprovesReviewedAnomaly(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)
	stored := f.store.anomalies[a.ID]
	stored.Status = StatusRequiresReview
	f.store.anomalies[a.ID] = stored

	resolved, err := f.svc.ResolveAnomaly(context.Background(), ResolveInput{AnomalyID: a.ID, Reason: ReasonAuthorizedLeave, Actor: merchant1})
	require.NoError(t, err)
	assert.Equal(t, StatusManuallyApproved, resolved.Status)
}

func TestResolveAnomaly_LostRace(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)
	f.store.beforeTransition = func(id string) {
		f.store.mu.Lock()
		defer f.store.mu.Unlock()
		other := f.store.anomalies[id]
		other.Status = StatusAutoApproved
		f.store.anomalies[id] = other
	}

	_, err := f.svc.ResolveAnomaly(context.Background(), ResolveInput{AnomalyID: a.ID, Reason: ReasonTraffic, Actor: merchant1})
	assert.ErrorIs(t, err, ErrAnomalyTerminal)
	assert.Equal(t, StatusAutoApproved, f.store.anomalies[a.ID].Status)
}

func TestBatchApprove_Idempotent(t *testing.T) {
	f := newFixture(t)
	lateAnomaly(t, f)
	f.addShift("s2", "e1", 1, 9, 17, 30)
	f.checkIn(t, "s2", at(1, 9, 0))
	ctx := context.Background()

	first, err := f.svc.BatchApprove(ctx, []string{"s1", "s2", "s1"}, merchant1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Approved)
	assert.Equal(t, 1, first.Skipped)

	second, err := f.svc.BatchApprove(ctx, []string{"s1", "s2"}, merchant1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Approved)
	assert.Equal(t, 2, second.Skipped)

	for _, a := range f.store.anomaliesForShift("s1") {
		assert.Equal(t, StatusManuallyApproved, a.Status)
		assert.Equal(t, ReasonNotSpecified, *a.ResolutionReason)
	}
}

func TestBatchApprove_Authorization(t *testing.T) {
	f := newFixture(t)
	lateAnomaly(t, f)
	ctx := context.Background()

	_, err := f.svc.BatchApprove(ctx, []string{"s1"}, employee1)
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	_, err = f.svc.BatchApprove(ctx, []string{"s1"}, merchant2)
	assert.ErrorIs(t, err, ErrMerchantScope)

	_, err = f.svc.BatchApprove(ctx, []string{" "}, merchant1)
	assert.ErrorIs(t, err, ErrMissingShiftID)

	res, err := f.svc.BatchApprove(ctx, []string{"s1"}, Actor{UserID: "admin", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Approved)
}

func TestBatchApprove_CountsPerMerchant(t *testing.T) {
	f := newFixture(t)
	f.store.anomalies["x1"] = Anomaly{ID: "x1", ShiftID: "s1", MerchantID: "m1", Type: AnomalyLateCheckIn, Phase: PhaseCheckIn, Status: StatusPending}
	f.store.anomalies["x2"] = Anomaly{ID: "x2", ShiftID: "s1", MerchantID: "m1", Type: AnomalyLocationMismatch, Phase: PhaseLocation, Status: StatusRequiresReview}
	f.store.anomalies["x3"] = Anomaly{ID: "x3", ShiftID: "s9", MerchantID: "m2", Type: AnomalyEarlyCheckOut, Phase: PhaseCheckOut, Status: StatusPending}

	res, err := f.svc.BatchApprove(context.Background(), []string{"s1", "s9"}, Actor{UserID: "admin", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Approved)
	assert.Equal(t, map[string]int{"m1": 2, "m2": 1}, res.ByMerchant)
}

func TestRecordCheckIn_CarriesShiftMerchant(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)

	res := f.checkIn(t, "s1", at(0, 9, 0))
	assert.Equal(t, "m1", res.MerchantID)
}

func TestAutoValidateSweep_DefaultBandOnlyEscalates(t *testing.T) {
	f := newFixture(t)
	a := lateAnomaly(t, f)

	f.clock.Set(at(3, 12, 0))
	res, err := f.svc.AutoValidateSweep(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Approved)
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, StatusRequiresReview, f.store.anomalies[a.ID].Status)
}

func sweepFixture(t *testing.T) (*fixture, Anomaly, Anomaly) {
	t.Helper()
	f := newFixture(t)
	tolerance, band := 10, 15
	m := f.store.merchants["m1"]
	m.ToleranceMinutes = &tolerance
	m.AutoApproveToleranceMinutes = &band
	f.store.merchants["m1"] = m

	f.addShift("s1", "e1", 0, 9, 17, 30)
	f.addShift("s2", "e1", 1, 9, 17, 30)
	small := f.checkIn(t, "s1", at(0, 9, 12))
	large := f.checkIn(t, "s2", at(1, 9, 40))
	require.Len(t, small.Anomalies, 1)
	require.Len(t, large.Anomalies, 1)
	return f, small.Anomalies[0], large.Anomalies[0]
}

func TestAutoValidateSweep(t *testing.T) {
	f, small, large := sweepFixture(t)

	f.clock.Set(at(3, 12, 0))
	res, err := f.svc.AutoValidateSweep(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Approved)
	assert.Equal(t, 1, res.Escalated)
	assert.Equal(t, StatusAutoApproved, f.store.anomalies[small.ID].Status)
	assert.Equal(t, StatusRequiresReview, f.store.anomalies[large.ID].Status)
	require.Len(t, f.notifier.escalated, 1)
	assert.Equal(t, large.ID, f.notifier.escalated[0].ID)

	again, err := f.svc.AutoValidateSweep(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Scanned)
}

func TestAutoValidateSweep_YoungAnomalyStaysPending(t *testing.T) {
	f, _, large := sweepFixture(t)

	f.clock.Set(at(1, 12, 0))
	res, err := f.svc.AutoValidateSweep(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Escalated)
	assert.Equal(t, StatusPending, f.store.anomalies[large.ID].Status)
}

func TestAutoValidateSweep_ConcurrentResolutionWins(t *testing.T) {
	f, small, _ := sweepFixture(t)
	f.store.beforeTransition = func(id string) {
		if id != small.ID {
			return
		}
		f.store.mu.Lock()
		defer f.store.mu.Unlock()
		a := f.store.anomalies[id]
		a.Status = StatusSelfCorrected
		f.store.anomalies[id] = a
	}

	f.clock.Set(at(1, 12, 0))
	res, err := f.svc.AutoValidateSweep(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Approved)
	assert.Equal(t, StatusSelfCorrected, f.store.anomalies[small.ID].Status)
}

func TestAutoValidateSweep_UnknownMerchant(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AutoValidateSweep(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}

func TestDetectMissingPunches(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)
	f.addShift("s2", "e1", 0, 8, 12, 0)
	f.addShift("s3", "e1", 0, 18, 22, 0)
	f.checkIn(t, "s2", at(0, 8, 0))

	f.clock.Set(at(0, 20, 0))
	res, err := f.svc.DetectMissingPunches(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.MissingCheckIn)
	assert.Equal(t, 1, res.MissingCheckOut)

	s1 := f.store.anomaliesForShift("s1")
	require.Len(t, s1, 1)
	assert.Equal(t, AnomalyMissingCheckIn, s1[0].Type)
	assert.Equal(t, PhaseMissing, s1[0].Phase)
	assert.Empty(t, f.store.anomaliesForShift("s3"), "shift still inside the grace period")

	again, err := f.svc.DetectMissingPunches(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.MissingCheckIn+again.MissingCheckOut)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.addShift("s1", "e1", 0, 9, 17, 30)
	ctx := context.Background()

	f.clock.Set(at(0, 8, 30))
	view, err := f.svc.Status(ctx, "e1", employee1)
	require.NoError(t, err)
	assert.Equal(t, StateNotStarted, view.State)
	assert.Equal(t, ActionCheckIn, view.SuggestedAction)
	require.NotNil(t, view.CurrentShift)
	assert.Equal(t, "s1", view.CurrentShift.ID)

	f.checkIn(t, "s1", at(0, 9, 0))
	f.clock.Set(at(0, 11, 0))
	view, err = f.svc.Status(ctx, "e1", employee1)
	require.NoError(t, err)
	assert.True(t, view.IsCheckedIn)
	assert.False(t, view.IsOnBreak)
	assert.Equal(t, StateWorking, view.State)
	assert.Equal(t, ActionCheckOut, view.SuggestedAction)
	assert.Equal(t, 2.0, view.TotalWorkedHoursToday)

	f.clock.Set(at(0, 17, 0))
	_, err = f.svc.RecordCheckOut(ctx, CheckOutInput{ShiftID: "s1", Actor: employee1})
	require.NoError(t, err)
	view, err = f.svc.Status(ctx, "e1", merchant1)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, view.State)
	assert.Equal(t, ActionNone, view.SuggestedAction)
	assert.Equal(t, 7.5, view.TotalWorkedHoursThisWeek)
}

func TestStatus_NoShiftAndScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Status(ctx, "e2", employee2)
	require.NoError(t, err)
	assert.Equal(t, StateNoShift, view.State)
	assert.Nil(t, view.CurrentShift)

	_, err = f.svc.Status(ctx, "e1", employee2)
	assert.ErrorIs(t, err, ErrNotShiftOwner)

	_, err = f.svc.Status(ctx, "e1", merchant2)
	assert.ErrorIs(t, err, ErrMerchantScope)

	_, err = f.svc.Status(ctx, "ghost", merchant1)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestStatus_MerchantWestOfUTC(t *testing.T) {
	f := newFixture(t)
	m := f.store.merchants["m1"]
	m.Timezone = "America/New_York"
	f.store.merchants["m1"] = m
	f.punch("today", 0, 13, 21, 8*60)
	f.addShift("tomorrow", "e1", 1, 13, 21, 0)

	// 17:00 in New York, today's shift is over.
	f.clock.Set(at(0, 22, 0))
	view, err := f.svc.Status(context.Background(), "e1", employee1)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, view.State)
	assert.Equal(t, ActionNone, view.SuggestedAction)
	require.NotNil(t, view.CurrentShift)
	assert.Equal(t, "today", view.CurrentShift.ID)
	assert.Equal(t, 8.0, view.TotalWorkedHoursToday)
}

// punch records a completed shift directly in the store.
func (f *fixture) punch(id string, day, startHour, endHour, workedMinutes int) {
	s := f.addShift(id, "e1", day, startHour, endHour, 0)
	in := s.PlannedStart
	out := in.Add(time.Duration(workedMinutes) * time.Minute)
	f.store.events[id+"/"+string(KindCheckIn)] = ClockEvent{ID: id + "-in", ShiftID: id, Kind: KindCheckIn, OccurredAt: in}
	f.store.events[id+"/"+string(KindCheckOut)] = ClockEvent{ID: id + "-out", ShiftID: id, Kind: KindCheckOut, OccurredAt: out}
}

func TestWellbeing_OverMaxNotifiesOnCheckOut(t *testing.T) {
	f := newFixture(t)
	for day := 0; day < 4; day++ {
		f.punch("w"+string(rune('a'+day)), day, 8, 17, 9*60)
	}
	f.addShift("s5", "e1", 4, 8, 17, 0)
	f.checkIn(t, "s5", at(4, 8, 0))
	f.clock.Set(at(4, 17, 0))
	_, err := f.svc.RecordCheckOut(context.Background(), CheckOutInput{ShiftID: "s5", Actor: employee1})
	require.NoError(t, err)

	view, err := f.svc.Wellbeing(context.Background(), "e1", employee1)
	require.NoError(t, err)
	assert.True(t, view.HasAlert)
	assert.Equal(t, WellbeingOverMaxHours, view.Alert)
	assert.Equal(t, 45.0, view.HoursThisWeek)
	assert.Equal(t, 40.0, view.MaxWeeklyHours)

	require.NotEmpty(t, f.notifier.wellbeing)
	assert.Equal(t, WellbeingOverMaxHours, f.notifier.wellbeing[len(f.notifier.wellbeing)-1].Alert)
}

func TestWellbeing_NearMaxWithEmployeeLimit(t *testing.T) {
	f := newFixture(t)
	limit := 38.0
	e := f.store.employees["e1"]
	e.MaxWeeklyHours = &limit
	f.store.employees["e1"] = e
	for day := 0; day < 4; day++ {
		f.punch("w"+string(rune('a'+day)), day, 8, 17, 9*60)
	}
	f.clock.Set(at(4, 7, 0))

	view, err := f.svc.Wellbeing(context.Background(), "e1", merchant1)
	require.NoError(t, err)
	assert.Equal(t, WellbeingNearMaxHours, view.Alert)
	assert.Equal(t, 38.0, view.MaxWeeklyHours)
}

func TestWellbeing_OvertimeLimit(t *testing.T) {
	f := newFixture(t)
	limit := 100.0
	e := f.store.employees["e1"]
	e.MaxWeeklyHours = &limit
	f.store.employees["e1"] = e
	for day := 0; day < 4; day++ {
		f.punch("w"+string(rune('a'+day)), day, 8, 16, 9*60+30)
	}
	f.clock.Set(at(4, 7, 0))

	view, err := f.svc.Wellbeing(context.Background(), "e1", employee1)
	require.NoError(t, err)
	assert.Equal(t, WellbeingOvertimeLimit, view.Alert)
	assert.Equal(t, 6.0, view.OvertimeThisWeek)
}

func TestWellbeing_NoAlert(t *testing.T) {
	f := newFixture(t)
	f.punch("wa", 0, 9, 17, 8*60)
	f.clock.Set(at(1, 7, 0))

	view, err := f.svc.Wellbeing(context.Background(), "e1", employee1)
	require.NoError(t, err)
	assert.False(t, view.HasAlert)
	assert.Equal(t, WellbeingNone, view.Alert)
	assert.Equal(t, 8.0, view.HoursThisWeek)
}

type countingTx struct {
	readOnly, readWrite int
}

func (c *countingTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	c.readOnly++
	return fn(ctx)
}

func (c *countingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	c.readWrite++
	return fn(ctx)
}

func TestWellbeing_ReadsInsideReadOnlyTransaction(t *testing.T) {
	f := newFixture(t)
	tx := &countingTx{}
	f.svc = NewService(f.store, DefaultPolicy(), WithClock(f.clock), WithTransactionManager(tx))

	_, err := f.svc.Wellbeing(context.Background(), "e1", employee1)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.readOnly)
	assert.Zero(t, tx.readWrite)
}
