package attendance

import "errors"

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation_error"
)

// Error is a business-rule violation. It is never retried.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrShiftNotFound       = newError(KindNotFound, "shift_not_found", "shift not found")
	ErrEmployeeNotFound    = newError(KindNotFound, "employee_not_found", "employee not found")
	ErrMerchantNotFound    = newError(KindNotFound, "merchant_not_found", "merchant not found")
	ErrAnomalyNotFound     = newError(KindNotFound, "anomaly_not_found", "anomaly not found")
	ErrMissingCheckIn      = newError(KindNotFound, "missing_check_in", "no check-in recorded for shift")
	ErrClockEventNotFound  = newError(KindNotFound, "clock_event_not_found", "clock event not found")
	ErrAlreadyCheckedIn    = newError(KindConflict, "already_checked_in", "check-in already recorded for shift")
	ErrAlreadyCheckedOut   = newError(KindConflict, "already_checked_out", "check-out already recorded for shift")
	ErrNotShiftOwner       = newError(KindForbidden, "not_shift_owner", "shift belongs to another employee")
	ErrResolveWindowClosed = newError(KindForbidden, "resolve_window_closed", "self-resolution window has expired")
	ErrMerchantScope       = newError(KindForbidden, "merchant_scope", "shift belongs to another merchant")
	ErrRoleNotAllowed      = newError(KindForbidden, "role_not_allowed", "role not allowed for this operation")
	ErrAnomalyTerminal     = newError(KindInvalidState, "anomaly_terminal", "anomaly already resolved")
	ErrInvalidTransition   = newError(KindInvalidState, "invalid_transition", "anomaly cannot move to the requested status")
	ErrShiftNotPlanned     = newError(KindValidation, "shift_not_planned", "shift has no planned start time")
	ErrInvalidReason       = newError(KindValidation, "invalid_reason", "invalid resolution reason")
	ErrInvalidDecision     = newError(KindValidation, "invalid_decision", "invalid decision")
	ErrMissingShiftID      = newError(KindValidation, "shift_id_required", "shift id is required")
	ErrInvalidLocation     = newError(KindValidation, "invalid_location", "location coordinates out of range")
	ErrShiftNotEnded       = newError(KindValidation, "shift_not_planned_end", "shift has no planned end time")
)

// KindOf returns the business kind of err, or "" for infrastructure failures.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

// CodeOf returns the machine-readable code of err, or "" for infrastructure failures.
func CodeOf(err error) string {
	var target *Error
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
