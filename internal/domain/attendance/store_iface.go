package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	GetShift(ctx context.Context, shiftID string) (Shift, error)
	UpdateShiftStatus(ctx context.Context, shiftID string, status ShiftStatus) error
	GetMerchant(ctx context.Context, merchantID string) (Merchant, error)
	ListMerchantIDs(ctx context.Context) ([]string, error)
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)

	// InsertClockEvent must fail with ErrAlreadyCheckedIn/ErrAlreadyCheckedOut when the
	// shift already has an event of the same kind.
	InsertClockEvent(ctx context.Context, event ClockEvent) (string, error)
	GetClockEvent(ctx context.Context, shiftID string, kind ClockEventKind) (ClockEvent, error)

	// InsertAnomaly returns created=false when the shift already has an anomaly of the same phase.
	InsertAnomaly(ctx context.Context, anomaly Anomaly) (id string, created bool, err error)
	GetAnomaly(ctx context.Context, anomalyID string) (Anomaly, error)
	// TransitionAnomaly moves the anomaly to `to` only if its current status is one of `from`.
	TransitionAnomaly(ctx context.Context, anomalyID string, from []AnomalyStatus, to AnomalyStatus, reason *ResolutionReason, actorUserID string, at time.Time) (bool, error)
	ListAnomaliesByStatus(ctx context.Context, merchantID string, statuses []AnomalyStatus) ([]Anomaly, error)
	ListAnomaliesForShifts(ctx context.Context, shiftIDs []string, statuses []AnomalyStatus) ([]Anomaly, error)

	ListAttendance(ctx context.Context, employeeID string, from, to time.Time) ([]ShiftAttendance, error)
	ListUnpunchedShifts(ctx context.Context, merchantID string, endedBefore time.Time) ([]ShiftAttendance, error)
}

// TransactionManager runs fn inside a transaction carried by the context.
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

// Notifier receives advisory events. Failures never affect the operation.
type Notifier interface {
	AnomaliesEscalated(ctx context.Context, merchantID string, anomalies []Anomaly) error
	WellbeingAlert(ctx context.Context, view WellbeingView) error
}

// Recorder counts engine outcomes for metrics.
type Recorder interface {
	AnomalyRaised(t AnomalyType)
	AnomalyTransitioned(to AnomalyStatus)
	ClockConflict(kind ClockEventKind)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type noopNotifier struct{}

func (noopNotifier) AnomaliesEscalated(context.Context, string, []Anomaly) error { return nil }
func (noopNotifier) WellbeingAlert(context.Context, WellbeingView) error        { return nil }

type noopRecorder struct{}

func (noopRecorder) AnomalyRaised(AnomalyType)         {}
func (noopRecorder) AnomalyTransitioned(AnomalyStatus) {}
func (noopRecorder) ClockConflict(ClockEventKind)      {}
