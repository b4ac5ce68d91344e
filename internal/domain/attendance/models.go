package attendance

import "time"

type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

type Shift struct {
	ID                  string      `json:"id"`
	MerchantID          string      `json:"merchantId"`
	EmployeeID          string      `json:"employeeId"`
	Date                time.Time   `json:"date"`
	PlannedStart        time.Time   `json:"plannedStart"`
	PlannedEnd          time.Time   `json:"plannedEnd"`
	PlannedBreakMinutes int         `json:"plannedBreakMinutes"`
	Status              ShiftStatus `json:"status"`
}

type ClockEvent struct {
	ID         string         `json:"id"`
	ShiftID    string         `json:"shiftId"`
	Kind       ClockEventKind `json:"kind"`
	OccurredAt time.Time      `json:"occurredAt"`
	Location   *GeoPoint      `json:"location,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type Anomaly struct {
	ID               string            `json:"id"`
	ShiftID          string            `json:"shiftId"`
	MerchantID       string            `json:"merchantId"`
	EmployeeID       string            `json:"employeeId"`
	Type             AnomalyType       `json:"type"`
	Phase            Phase             `json:"phase"`
	Status           AnomalyStatus     `json:"status"`
	ResolutionReason *ResolutionReason `json:"resolutionReason,omitempty"`
	DeltaSeconds     *int              `json:"deltaSeconds,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	ResolvedAt       *time.Time        `json:"resolvedAt,omitempty"`
	ResolvedBy       string            `json:"resolvedBy,omitempty"`
}

// Delta returns the recorded timing deviation, if the anomaly has one.
func (a Anomaly) Delta() (time.Duration, bool) {
	if a.DeltaSeconds == nil {
		return 0, false
	}
	return time.Duration(*a.DeltaSeconds) * time.Second, true
}

type Merchant struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Location             *GeoPoint `json:"location,omitempty"`
	GeofenceRadiusMeters float64   `json:"geofenceRadiusMeters"`
	Timezone             string    `json:"timezone"`

	// Overrides of the global policy; nil means "use the default".
	ToleranceMinutes            *int `json:"toleranceMinutes,omitempty"`
	AutoApproveToleranceMinutes *int `json:"autoApproveToleranceMinutes,omitempty"`
}

type Employee struct {
	ID             string   `json:"id"`
	MerchantID     string   `json:"merchantId"`
	UserID         string   `json:"userId"`
	MaxWeeklyHours *float64 `json:"maxWeeklyHours,omitempty"`
}

// Actor is whoever triggers an operation.
type Actor struct {
	UserID     string
	Role       string
	EmployeeID string
	MerchantID string
}

func (a Actor) IsEmployee() bool { return a.Role == RoleEmployee }
func (a Actor) IsMerchant() bool { return a.Role == RoleMerchant }
func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }

// ShiftAttendance is a shift together with its recorded clock events.
type ShiftAttendance struct {
	Shift    Shift
	CheckIn  *ClockEvent
	CheckOut *ClockEvent
}

type CheckInInput struct {
	ShiftID  string
	Actor    Actor
	At       time.Time
	Location *GeoPoint
}

type CheckInResult struct {
	ShiftID      string             `json:"shiftId"`
	MerchantID   string             `json:"merchantId"`
	EventID      string             `json:"eventId"`
	DeltaMinutes int                `json:"deltaMinutes"`
	OnTime       bool               `json:"onTime"`
	Anomalies    []Anomaly          `json:"anomalies"`
	Suggestions  []ResolutionReason `json:"suggestions,omitempty"`
}

// Primary returns the anomaly surfaced to the employee: the timing one first, then any other.
func (r CheckInResult) Primary() *Anomaly {
	return primaryAnomaly(r.Anomalies)
}

type CheckOutInput struct {
	ShiftID  string
	Actor    Actor
	At       time.Time
	Location *GeoPoint
}

type CheckOutResult struct {
	ShiftID         string             `json:"shiftId"`
	MerchantID      string             `json:"merchantId"`
	EventID         string             `json:"eventId"`
	DeltaMinutes    int                `json:"deltaMinutes"`
	WorkedHours     float64            `json:"workedHours"`
	PlannedHours    float64            `json:"plannedHours"`
	OvertimeMinutes int                `json:"overtimeMinutes"`
	HasOvertime     bool               `json:"hasOvertime"`
	Anomalies       []Anomaly          `json:"anomalies"`
	Suggestions     []ResolutionReason `json:"suggestions,omitempty"`
}

func (r CheckOutResult) Primary() *Anomaly {
	return primaryAnomaly(r.Anomalies)
}

type ResolveInput struct {
	AnomalyID string
	Reason    ResolutionReason
	Decision  Decision
	Actor     Actor
	At        time.Time
}

type SweepResult struct {
	MerchantID string `json:"merchantId"`
	Scanned    int    `json:"scanned"`
	Approved   int    `json:"countApproved"`
	Escalated  int    `json:"countEscalated"`
}

type BatchResult struct {
	Approved int `json:"countApproved"`
	Skipped  int `json:"countSkipped"`
	// ByMerchant counts approvals per owning merchant.
	ByMerchant map[string]int `json:"-"`
}

type MissingPunchResult struct {
	MerchantID      string `json:"merchantId"`
	MissingCheckIn  int    `json:"missingCheckIn"`
	MissingCheckOut int    `json:"missingCheckOut"`
}

type StatusView struct {
	EmployeeID               string  `json:"employeeId"`
	IsCheckedIn              bool    `json:"isCheckedIn"`
	IsOnBreak                bool    `json:"isOnBreak"`
	CurrentShift             *Shift  `json:"currentShift,omitempty"`
	TotalWorkedHoursToday    float64 `json:"totalWorkedHoursToday"`
	TotalWorkedHoursThisWeek float64 `json:"totalWorkedHoursThisWeek"`

	// State is one of "no_shift", "not_started", "working", "completed".
	State string `json:"state"`

	// SuggestedAction is one of "none", "check_in", "check_out".
	SuggestedAction string `json:"suggestedAction"`
}

const (
	StateNoShift    = "no_shift"
	StateNotStarted = "not_started"
	StateWorking    = "working"
	StateCompleted  = "completed"

	ActionNone     = "none"
	ActionCheckIn  = "check_in"
	ActionCheckOut = "check_out"
)

type WellbeingView struct {
	EmployeeID       string         `json:"employeeId"`
	HasAlert         bool           `json:"hasWellbeingAlert"`
	Alert            WellbeingAlert `json:"alert,omitempty"`
	HoursThisWeek    float64        `json:"hoursThisWeek"`
	OvertimeThisWeek float64        `json:"overtimeThisWeek"`
	MaxWeeklyHours   float64        `json:"maxWeeklyHours"`
}

func primaryAnomaly(anomalies []Anomaly) *Anomaly {
	if len(anomalies) == 0 {
		return nil
	}
	for i := range anomalies {
		phase := anomalies[i].Phase
		if phase == PhaseCheckIn || phase == PhaseCheckOut {
			return &anomalies[i]
		}
	}
	return &anomalies[0]
}
