package attendance

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	shifts    map[string]Shift
	merchants map[string]Merchant
	employees map[string]Employee
	events    map[string]ClockEvent // key: shiftID/kind
	anomalies map[string]Anomaly

	// beforeTransition runs inside TransitionAnomaly before the status check.
	beforeTransition func(id string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts:    map[string]Shift{},
		merchants: map[string]Merchant{},
		employees: map[string]Employee{},
		events:    map[string]ClockEvent{},
		anomalies: map[string]Anomaly{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) GetShift(_ context.Context, id string) (Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[id]
	if !ok {
		return Shift{}, ErrShiftNotFound
	}
	return s, nil
}

func (f *fakeStore) UpdateShiftStatus(_ context.Context, id string, status ShiftStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[id]
	if !ok {
		return ErrShiftNotFound
	}
	s.Status = status
	f.shifts[id] = s
	return nil
}

func (f *fakeStore) GetMerchant(_ context.Context, id string) (Merchant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.merchants[id]
	if !ok {
		return Merchant{}, ErrMerchantNotFound
	}
	return m, nil
}

func (f *fakeStore) ListMerchantIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.merchants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) GetEmployee(_ context.Context, id string) (Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, nil
}

func (f *fakeStore) InsertClockEvent(_ context.Context, ev ClockEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ev.ShiftID + "/" + string(ev.Kind)
	if _, ok := f.events[key]; ok {
		if ev.Kind == KindCheckOut {
			return "", ErrAlreadyCheckedOut
		}
		return "", ErrAlreadyCheckedIn
	}
	ev.ID = f.nextID("event")
	f.events[key] = ev
	return ev.ID, nil
}

func (f *fakeStore) GetClockEvent(_ context.Context, shiftID string, kind ClockEventKind) (ClockEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[shiftID+"/"+string(kind)]
	if !ok {
		return ClockEvent{}, ErrClockEventNotFound
	}
	return ev, nil
}

func (f *fakeStore) InsertAnomaly(_ context.Context, a Anomaly) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.anomalies {
		if existing.ShiftID == a.ShiftID && existing.Phase == a.Phase {
			return "", false, nil
		}
	}
	a.ID = f.nextID("anomaly")
	f.anomalies[a.ID] = a
	return a.ID, true, nil
}

func (f *fakeStore) GetAnomaly(_ context.Context, id string) (Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.anomalies[id]
	if !ok {
		return Anomaly{}, ErrAnomalyNotFound
	}
	return a, nil
}

func (f *fakeStore) TransitionAnomaly(_ context.Context, id string, from []AnomalyStatus, to AnomalyStatus, reason *ResolutionReason, actor string, at time.Time) (bool, error) {
	if f.beforeTransition != nil {
		f.beforeTransition(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.anomalies[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, st := range from {
		if a.Status == st {
			matched = true
		}
	}
	if !matched {
		return false, nil
	}
	a.Status = to
	if reason != nil {
		r := *reason
		a.ResolutionReason = &r
	}
	if to.Terminal() {
		t := at
		a.ResolvedAt = &t
		a.ResolvedBy = actor
	}
	f.anomalies[id] = a
	return true, nil
}

func (f *fakeStore) ListAnomaliesByStatus(_ context.Context, merchantID string, statuses []AnomalyStatus) ([]Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Anomaly
	for _, a := range f.anomalies {
		if a.MerchantID == merchantID && hasStatus(statuses, a.Status) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListAnomaliesForShifts(_ context.Context, shiftIDs []string, statuses []AnomalyStatus) ([]Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range shiftIDs {
		wanted[id] = true
	}
	var out []Anomaly
	for _, a := range f.anomalies {
		if wanted[a.ShiftID] && hasStatus(statuses, a.Status) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListAttendance(_ context.Context, employeeID string, from, to time.Time) ([]ShiftAttendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ShiftAttendance
	for _, s := range f.shifts {
		if s.EmployeeID != employeeID || s.PlannedStart.Before(from) || !s.PlannedStart.Before(to) {
			continue
		}
		out = append(out, f.attendanceLocked(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shift.PlannedStart.Before(out[j].Shift.PlannedStart) })
	return out, nil
}

func (f *fakeStore) ListUnpunchedShifts(_ context.Context, merchantID string, endedBefore time.Time) ([]ShiftAttendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ShiftAttendance
	for _, s := range f.shifts {
		if s.MerchantID != merchantID || !s.PlannedEnd.Before(endedBefore) {
			continue
		}
		sa := f.attendanceLocked(s)
		if sa.CheckIn != nil && sa.CheckOut != nil {
			continue
		}
		out = append(out, sa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shift.ID < out[j].Shift.ID })
	return out, nil
}

func (f *fakeStore) attendanceLocked(s Shift) ShiftAttendance {
	sa := ShiftAttendance{Shift: s}
	if ev, ok := f.events[s.ID+"/"+string(KindCheckIn)]; ok {
		e := ev
		sa.CheckIn = &e
	}
	if ev, ok := f.events[s.ID+"/"+string(KindCheckOut)]; ok {
		e := ev
		sa.CheckOut = &e
	}
	return sa
}

func (f *fakeStore) anomaliesForShift(shiftID string) []Anomaly {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Anomaly
	for _, a := range f.anomalies {
		if a.ShiftID == shiftID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasStatus(statuses []AnomalyStatus, st AnomalyStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu        sync.Mutex
	escalated []Anomaly
	wellbeing []WellbeingView
}

func (n *recordingNotifier) AnomaliesEscalated(_ context.Context, _ string, anomalies []Anomaly) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.escalated = append(n.escalated, anomalies...)
	return nil
}

func (n *recordingNotifier) WellbeingAlert(_ context.Context, view WellbeingView) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.wellbeing = append(n.wellbeing, view)
	return nil
}
