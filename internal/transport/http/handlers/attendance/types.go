package attendancehandler

import "staffhub/internal/domain/attendance"

type locationPayload struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

func (p *locationPayload) point() *attendance.GeoPoint {
	if p == nil {
		return nil
	}
	return &attendance.GeoPoint{Latitude: *p.Latitude, Longitude: *p.Longitude}
}

type punchPayload struct {
	ShiftID  string           `json:"shiftId" validate:"required,uuid"`
	Location *locationPayload `json:"location" validate:"omitempty"`
}

type resolvePayload struct {
	Reason   string `json:"reason" validate:"omitempty,oneof=traffic authorized_leave time_recovery personal_emergency forgotten technical_issue smart_working other not_specified"`
	Decision string `json:"decision" validate:"omitempty,oneof=approve reject"`
}

type merchantPayload struct {
	MerchantID string `json:"merchantId" validate:"omitempty,uuid"`
}

type batchApprovePayload struct {
	ShiftIDs []string `json:"shiftIds" validate:"required,min=1,max=500,dive,uuid"`
}

type reasonOption struct {
	Reason attendance.ResolutionReason `json:"reason"`
	Label  string                      `json:"label"`
}

type checkInResponse struct {
	ShiftID                string                 `json:"shiftId"`
	EventID                string                 `json:"eventId"`
	HasAnomaly             bool                   `json:"hasAnomaly"`
	AnomalyID              string                 `json:"anomalyId,omitempty"`
	AnomalyType            attendance.AnomalyType `json:"anomalyType,omitempty"`
	DeltaMinutes           int                    `json:"deltaMinutes"`
	Message                string                 `json:"message"`
	EmpatheticMessage      string                 `json:"empatheticMessage,omitempty"`
	QuickResolutionOptions []reasonOption         `json:"quickResolutionOptions,omitempty"`
	Anomalies              []attendance.Anomaly   `json:"anomalies"`
}

type checkOutResponse struct {
	ShiftID                string                 `json:"shiftId"`
	EventID                string                 `json:"eventId"`
	HasAnomaly             bool                   `json:"hasAnomaly"`
	HasOvertime            bool                   `json:"hasOvertime"`
	AnomalyID              string                 `json:"anomalyId,omitempty"`
	AnomalyType            attendance.AnomalyType `json:"anomalyType,omitempty"`
	DeltaMinutes           int                    `json:"deltaMinutes"`
	WorkedHours            float64                `json:"workedHours"`
	PlannedHours           float64                `json:"plannedHours"`
	OvertimeMinutes        int                    `json:"overtimeMinutes"`
	Message                string                 `json:"message"`
	EmpatheticMessage      string                 `json:"empatheticMessage,omitempty"`
	Context                string                 `json:"context,omitempty"`
	NextSteps              string                 `json:"nextSteps,omitempty"`
	QuickResolutionOptions []reasonOption         `json:"quickResolutionOptions,omitempty"`
	Anomalies              []attendance.Anomaly   `json:"anomalies"`
}

type resolveResponse struct {
	Anomaly attendance.Anomaly `json:"anomaly"`
	Message string             `json:"message"`
}

type sweepResponse struct {
	attendance.SweepResult
	Message string `json:"message"`
}

type batchResponse struct {
	attendance.BatchResult
	Message string `json:"message"`
}

type missingPunchResponse struct {
	attendance.MissingPunchResult
	Message string `json:"message"`
}

type statusResponse struct {
	attendance.StatusView
	StatusMessage string `json:"statusMessage"`
}

type wellbeingResponse struct {
	attendance.WellbeingView
	WellbeingMessage string `json:"wellbeingMessage"`
}
