package attendance

import (
	"context"
	"sort"
	"time"
)

// Status reports where an employee stands today and what they should do next.
func (s *Service) Status(ctx context.Context, employeeID string, actor Actor) (StatusView, error) {
	employee, err := s.visibleEmployee(ctx, employeeID, actor)
	if err != nil {
		return StatusView{}, err
	}
	now, err := s.merchantNow(ctx, employee.MerchantID)
	if err != nil {
		return StatusView{}, err
	}

	weekStart := WeekStart(now)
	shifts, err := s.store.ListAttendance(ctx, employee.ID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return StatusView{}, err
	}
	sort.Slice(shifts, func(i, j int) bool {
		return shifts[i].Shift.PlannedStart.Before(shifts[j].Shift.PlannedStart)
	})

	view := StatusView{
		EmployeeID:      employee.ID,
		State:           StateNoShift,
		SuggestedAction: ActionNone,
	}
	today := DayStart(now)
	var week, day time.Duration
	var todays []ShiftAttendance
	for _, sa := range shifts {
		worked := workedSoFar(sa, now)
		week += worked
		if calendarDay(sa.Shift.Date, now.Location()).Equal(today) || DayStart(sa.Shift.PlannedStart.In(now.Location())).Equal(today) {
			day += worked
			todays = append(todays, sa)
		}
		if sa.CheckIn != nil && sa.CheckOut == nil {
			shift := sa.Shift
			view.CurrentShift = &shift
			view.IsCheckedIn = true
		}
	}
	view.TotalWorkedHoursToday = Hours(day)
	view.TotalWorkedHoursThisWeek = Hours(week)

	switch {
	case view.IsCheckedIn:
		view.State = StateWorking
		view.SuggestedAction = ActionCheckOut
	case len(todays) > 0:
		view.State = StateCompleted
		for _, sa := range todays {
			if sa.CheckIn == nil {
				shift := sa.Shift
				view.CurrentShift = &shift
				view.State = StateNotStarted
				view.SuggestedAction = ActionCheckIn
				break
			}
		}
		if view.CurrentShift == nil {
			shift := todays[len(todays)-1].Shift
			view.CurrentShift = &shift
		}
	}
	return view, nil
}

// Wellbeing evaluates the weekly hours of an employee against the configured limits.
func (s *Service) Wellbeing(ctx context.Context, employeeID string, actor Actor) (WellbeingView, error) {
	if _, err := s.visibleEmployee(ctx, employeeID, actor); err != nil {
		return WellbeingView{}, err
	}
	var view WellbeingView
	err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		var err error
		view, err = s.wellbeing(txCtx, employeeID, s.clock.Now())
		return err
	})
	return view, err
}

func (s *Service) wellbeing(ctx context.Context, employeeID string, now time.Time) (WellbeingView, error) {
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return WellbeingView{}, err
	}
	merchant, err := s.store.GetMerchant(ctx, employee.MerchantID)
	if err != nil {
		return WellbeingView{}, err
	}
	now = inMerchantZone(now, merchant)

	weekStart := WeekStart(now)
	shifts, err := s.store.ListAttendance(ctx, employee.ID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return WellbeingView{}, err
	}

	var worked, overtime time.Duration
	for _, sa := range shifts {
		w := workedSoFar(sa, now)
		worked += w
		if sa.CheckOut != nil {
			overtime += Overtime(w, PlannedDuration(sa.Shift))
		}
	}

	maxHours := s.policy.MaxWeeklyHours
	if employee.MaxWeeklyHours != nil && *employee.MaxWeeklyHours > 0 {
		maxHours = *employee.MaxWeeklyHours
	}
	alert := EvaluateWellbeing(worked, overtime, maxHours, s.policy)
	return WellbeingView{
		EmployeeID:       employee.ID,
		HasAlert:         alert != WellbeingNone,
		Alert:            alert,
		HoursThisWeek:    Hours(worked),
		OvertimeThisWeek: Hours(overtime),
		MaxWeeklyHours:   maxHours,
	}, nil
}

// visibleEmployee loads the employee if actor may see their attendance.
func (s *Service) visibleEmployee(ctx context.Context, employeeID string, actor Actor) (Employee, error) {
	switch {
	case actor.IsEmployee():
		if employeeID != actor.EmployeeID {
			return Employee{}, ErrNotShiftOwner
		}
	case actor.IsMerchant(), actor.IsAdmin():
	default:
		return Employee{}, ErrRoleNotAllowed
	}
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Employee{}, err
	}
	if actor.IsMerchant() && employee.MerchantID != actor.MerchantID {
		return Employee{}, ErrMerchantScope
	}
	return employee, nil
}

// merchantNow returns the current time in the merchant's timezone.
func (s *Service) merchantNow(ctx context.Context, merchantID string) (time.Time, error) {
	merchant, err := s.store.GetMerchant(ctx, merchantID)
	if err != nil {
		return time.Time{}, err
	}
	return inMerchantZone(s.clock.Now(), merchant), nil
}

// inMerchantZone falls back to t's own location when the timezone is unknown.
func inMerchantZone(t time.Time, merchant Merchant) time.Time {
	if merchant.Timezone == "" {
		return t
	}
	loc, err := time.LoadLocation(merchant.Timezone)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// calendarDay reads the shift date by its calendar fields. DATE columns scan as
// UTC midnight, so converting with In would shift the day west of UTC.
func calendarDay(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// workedSoFar counts completed shifts net of the planned break and open
// shifts up to now.
func workedSoFar(sa ShiftAttendance, now time.Time) time.Duration {
	if sa.CheckIn == nil {
		return 0
	}
	if sa.CheckOut != nil {
		return WorkedDuration(sa.CheckIn.OccurredAt, sa.CheckOut.OccurredAt, sa.Shift.PlannedBreakMinutes)
	}
	if now.Before(sa.CheckIn.OccurredAt) {
		return 0
	}
	return now.Sub(sa.CheckIn.OccurredAt)
}
