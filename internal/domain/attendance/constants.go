package attendance

type AnomalyType string

const (
	AnomalyLateCheckIn      AnomalyType = "late_check_in"
	AnomalyEarlyCheckIn     AnomalyType = "early_check_in"
	AnomalyLateCheckOut     AnomalyType = "late_check_out"
	AnomalyEarlyCheckOut    AnomalyType = "early_check_out"
	AnomalyMissingCheckIn   AnomalyType = "missing_check_in"
	AnomalyMissingCheckOut  AnomalyType = "missing_check_out"
	AnomalyExtendedBreak    AnomalyType = "extended_break"
	AnomalyUnusualPattern   AnomalyType = "unusual_pattern"
	AnomalyLocationMismatch AnomalyType = "location_mismatch"
)

func (t AnomalyType) Valid() bool {
	switch t {
	case AnomalyLateCheckIn, AnomalyEarlyCheckIn, AnomalyLateCheckOut, AnomalyEarlyCheckOut,
		AnomalyMissingCheckIn, AnomalyMissingCheckOut, AnomalyExtendedBreak, AnomalyUnusualPattern,
		AnomalyLocationMismatch:
		return true
	}
	return false
}

// Phase groups anomaly types that may exist at most once per shift.
type Phase string

const (
	PhaseCheckIn  Phase = "check_in"
	PhaseCheckOut Phase = "check_out"
	PhaseLocation Phase = "location"
	PhaseMissing  Phase = "missing"
	PhasePattern  Phase = "pattern"
)

func PhaseOf(t AnomalyType) Phase {
	switch t {
	case AnomalyLateCheckIn, AnomalyEarlyCheckIn:
		return PhaseCheckIn
	case AnomalyLateCheckOut, AnomalyEarlyCheckOut:
		return PhaseCheckOut
	case AnomalyLocationMismatch:
		return PhaseLocation
	case AnomalyMissingCheckIn, AnomalyMissingCheckOut:
		return PhaseMissing
	default:
		return PhasePattern
	}
}

type AnomalyStatus string

const (
	StatusPending          AnomalyStatus = "pending"
	StatusAutoApproved     AnomalyStatus = "auto_approved"
	StatusManuallyApproved AnomalyStatus = "manually_approved"
	StatusRequiresReview   AnomalyStatus = "requires_review"
	StatusRejected         AnomalyStatus = "rejected"
	StatusSelfCorrected    AnomalyStatus = "self_corrected"
)

// Terminal reports whether no further transition is allowed out of s.
func (s AnomalyStatus) Terminal() bool {
	switch s {
	case StatusAutoApproved, StatusManuallyApproved, StatusRejected, StatusSelfCorrected:
		return true
	}
	return false
}

// Open statuses are the ones a resolution may start from.
var openStatuses = []AnomalyStatus{StatusPending, StatusRequiresReview}

type ResolutionReason string

const (
	ReasonTraffic           ResolutionReason = "traffic"
	ReasonAuthorizedLeave   ResolutionReason = "authorized_leave"
	ReasonTimeRecovery      ResolutionReason = "time_recovery"
	ReasonPersonalEmergency ResolutionReason = "personal_emergency"
	ReasonForgotten         ResolutionReason = "forgotten"
	ReasonTechnicalIssue    ResolutionReason = "technical_issue"
	ReasonSmartWorking      ResolutionReason = "smart_working"
	ReasonOther             ResolutionReason = "other"
	ReasonNotSpecified      ResolutionReason = "not_specified"
)

var AllReasons = []ResolutionReason{
	ReasonTraffic,
	ReasonAuthorizedLeave,
	ReasonTimeRecovery,
	ReasonPersonalEmergency,
	ReasonForgotten,
	ReasonTechnicalIssue,
	ReasonSmartWorking,
	ReasonOther,
	ReasonNotSpecified,
}

func (r ResolutionReason) Valid() bool {
	for _, candidate := range AllReasons {
		if r == candidate {
			return true
		}
	}
	return false
}

type ClockEventKind string

const (
	KindCheckIn  ClockEventKind = "check_in"
	KindCheckOut ClockEventKind = "check_out"
)

type ShiftStatus string

const (
	ShiftScheduled ShiftStatus = "scheduled"
	ShiftOnTime    ShiftStatus = "on_time"
	ShiftAnomalous ShiftStatus = "anomalous"
	ShiftCompleted ShiftStatus = "completed"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

const (
	RoleEmployee = "employee"
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"
)

type WellbeingAlert string

const (
	WellbeingNone          WellbeingAlert = ""
	WellbeingNearMaxHours  WellbeingAlert = "near_max_hours"
	WellbeingOverMaxHours  WellbeingAlert = "over_max_hours"
	WellbeingOvertimeLimit WellbeingAlert = "overtime_limit"
)
