package attendance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// SystemActor is recorded as resolver for transitions made by background sweeps.
const SystemActor = "system"

type Service struct {
	store    StoreAPI
	tx       TransactionManager
	clock    Clock
	policy   Policy
	geofence GeofenceFunc
	notifier Notifier
	recorder Recorder
}

type Option func(*Service)

func WithTransactionManager(tx TransactionManager) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithGeofence(fn GeofenceFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.geofence = fn
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewService(store StoreAPI, policy Policy, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tx:       noopTransactionManager{},
		clock:    realClock{},
		policy:   policy,
		geofence: WithinGeofence,
		notifier: noopNotifier{},
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) RecordCheckIn(ctx context.Context, in CheckInInput) (CheckInResult, error) {
	if strings.TrimSpace(in.ShiftID) == "" {
		return CheckInResult{}, ErrMissingShiftID
	}
	if in.Location != nil && !in.Location.Valid() {
		return CheckInResult{}, ErrInvalidLocation
	}
	at := in.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	now := s.clock.Now()

	var result CheckInResult
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		shift, err := s.ownShift(txCtx, in.ShiftID, in.Actor)
		if err != nil {
			return err
		}
		if shift.PlannedStart.IsZero() {
			return ErrShiftNotPlanned
		}
		merchant, err := s.store.GetMerchant(txCtx, shift.MerchantID)
		if err != nil {
			return err
		}
		policy := s.policy.ForMerchant(merchant)

		eventID, err := s.store.InsertClockEvent(txCtx, ClockEvent{
			ShiftID:    shift.ID,
			Kind:       KindCheckIn,
			OccurredAt: at,
			Location:   in.Location,
			CreatedAt:  now,
		})
		if err != nil {
			if errors.Is(err, ErrAlreadyCheckedIn) {
				s.recorder.ClockConflict(KindCheckIn)
			}
			return err
		}

		delta := Delta(at, shift.PlannedStart)
		result = CheckInResult{
			ShiftID:      shift.ID,
			MerchantID:   shift.MerchantID,
			EventID:      eventID,
			DeltaMinutes: DeltaMinutes(delta),
			Anomalies:    []Anomaly{},
		}
		if t, ok := ClassifyCheckIn(delta, policy.Tolerance); ok {
			a, created, err := s.openAnomaly(txCtx, shift, t, &delta, now)
			if err != nil {
				return err
			}
			if created {
				result.Anomalies = append(result.Anomalies, a)
			}
		}
		if s.outsideGeofence(in.Location, merchant, policy) {
			a, created, err := s.openAnomaly(txCtx, shift, AnomalyLocationMismatch, nil, now)
			if err != nil {
				return err
			}
			if created {
				result.Anomalies = append(result.Anomalies, a)
			}
		}
		result.OnTime = WithinTolerance(delta, policy.Tolerance)

		status := ShiftOnTime
		if len(result.Anomalies) > 0 {
			status = ShiftAnomalous
		}
		return s.store.UpdateShiftStatus(txCtx, shift.ID, status)
	})
	if err != nil {
		return CheckInResult{}, err
	}

	for _, a := range result.Anomalies {
		s.recorder.AnomalyRaised(a.Type)
	}
	if primary := result.Primary(); primary != nil {
		result.Suggestions = SuggestionsFor(primary.Type)
	}
	return result, nil
}

func (s *Service) RecordCheckOut(ctx context.Context, in CheckOutInput) (CheckOutResult, error) {
	if strings.TrimSpace(in.ShiftID) == "" {
		return CheckOutResult{}, ErrMissingShiftID
	}
	if in.Location != nil && !in.Location.Valid() {
		return CheckOutResult{}, ErrInvalidLocation
	}
	at := in.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	now := s.clock.Now()

	var result CheckOutResult
	var shift Shift
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		var err error
		shift, err = s.ownShift(txCtx, in.ShiftID, in.Actor)
		if err != nil {
			return err
		}
		if shift.PlannedStart.IsZero() {
			return ErrShiftNotPlanned
		}
		if shift.PlannedEnd.IsZero() {
			return ErrShiftNotEnded
		}
		merchant, err := s.store.GetMerchant(txCtx, shift.MerchantID)
		if err != nil {
			return err
		}
		policy := s.policy.ForMerchant(merchant)

		checkIn, err := s.store.GetClockEvent(txCtx, shift.ID, KindCheckIn)
		if err != nil {
			if errors.Is(err, ErrClockEventNotFound) {
				return ErrMissingCheckIn
			}
			return err
		}

		eventID, err := s.store.InsertClockEvent(txCtx, ClockEvent{
			ShiftID:    shift.ID,
			Kind:       KindCheckOut,
			OccurredAt: at,
			Location:   in.Location,
			CreatedAt:  now,
		})
		if err != nil {
			if errors.Is(err, ErrAlreadyCheckedOut) {
				s.recorder.ClockConflict(KindCheckOut)
			}
			return err
		}

		worked := WorkedDuration(checkIn.OccurredAt, at, shift.PlannedBreakMinutes)
		planned := PlannedDuration(shift)
		overtime := Overtime(worked, planned)
		delta := Delta(at, shift.PlannedEnd)

		result = CheckOutResult{
			ShiftID:         shift.ID,
			MerchantID:      shift.MerchantID,
			EventID:         eventID,
			DeltaMinutes:    DeltaMinutes(delta),
			WorkedHours:     Hours(worked),
			PlannedHours:    Hours(planned),
			OvertimeMinutes: DeltaMinutes(overtime),
			HasOvertime:     HasOvertime(overtime, policy.OvertimeThreshold),
			Anomalies:       []Anomaly{},
		}
		if t, ok := ClassifyCheckOut(delta, policy.Tolerance); ok {
			a, created, err := s.openAnomaly(txCtx, shift, t, &delta, now)
			if err != nil {
				return err
			}
			if created {
				result.Anomalies = append(result.Anomalies, a)
			}
		}
		if s.outsideGeofence(in.Location, merchant, policy) {
			a, created, err := s.openAnomaly(txCtx, shift, AnomalyLocationMismatch, nil, now)
			if err != nil {
				return err
			}
			if created {
				result.Anomalies = append(result.Anomalies, a)
			}
		}

		status := ShiftCompleted
		if len(result.Anomalies) > 0 || shift.Status == ShiftAnomalous {
			status = ShiftAnomalous
		}
		return s.store.UpdateShiftStatus(txCtx, shift.ID, status)
	})
	if err != nil {
		return CheckOutResult{}, err
	}

	for _, a := range result.Anomalies {
		s.recorder.AnomalyRaised(a.Type)
	}
	if primary := result.Primary(); primary != nil {
		result.Suggestions = SuggestionsFor(primary.Type)
	}
	s.checkWellbeing(ctx, shift.EmployeeID, now)
	return result, nil
}

// ownShift loads the shift and hides it from anyone but its employee.
func (s *Service) ownShift(ctx context.Context, shiftID string, actor Actor) (Shift, error) {
	if !actor.IsEmployee() {
		return Shift{}, ErrRoleNotAllowed
	}
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return Shift{}, err
	}
	if shift.EmployeeID != actor.EmployeeID {
		return Shift{}, ErrShiftNotFound
	}
	return shift, nil
}

func (s *Service) outsideGeofence(location *GeoPoint, merchant Merchant, policy Policy) bool {
	if location == nil || merchant.Location == nil {
		return false
	}
	radius := merchant.GeofenceRadiusMeters
	if radius <= 0 {
		radius = policy.GeofenceRadiusMeters
	}
	if radius <= 0 {
		return false
	}
	return !s.geofence(*location, *merchant.Location, radius)
}

func (s *Service) openAnomaly(ctx context.Context, shift Shift, t AnomalyType, delta *time.Duration, now time.Time) (Anomaly, bool, error) {
	a := Anomaly{
		ShiftID:    shift.ID,
		MerchantID: shift.MerchantID,
		EmployeeID: shift.EmployeeID,
		Type:       t,
		Phase:      PhaseOf(t),
		Status:     StatusPending,
		CreatedAt:  now,
	}
	if delta != nil {
		secs := int(delta.Round(time.Second) / time.Second)
		a.DeltaSeconds = &secs
	}
	id, created, err := s.store.InsertAnomaly(ctx, a)
	if err != nil {
		return Anomaly{}, false, err
	}
	a.ID = id
	return a, created, nil
}

func (s *Service) checkWellbeing(ctx context.Context, employeeID string, now time.Time) {
	view, err := s.wellbeing(ctx, employeeID, now)
	if err != nil {
		slog.Warn("wellbeing evaluation failed", "employeeId", employeeID, "err", err)
		return
	}
	if !view.HasAlert {
		return
	}
	if err := s.notifier.WellbeingAlert(ctx, view); err != nil {
		slog.Warn("wellbeing notification failed", "employeeId", employeeID, "err", err)
	}
}
