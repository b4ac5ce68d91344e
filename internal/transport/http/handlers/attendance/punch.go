package attendancehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/domain/audit"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/shared"
)

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload punchPayload
	if !shared.DecodeJSON(w, r, &payload, requestID(r), false) {
		return
	}

	result, err := h.Engine.RecordCheckIn(r.Context(), attendance.CheckInInput{
		ShiftID:  payload.ShiftID,
		Actor:    actorFrom(user),
		Location: payload.Location.point(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	resp := checkInResponse{
		ShiftID:      result.ShiftID,
		EventID:      result.EventID,
		DeltaMinutes: result.DeltaMinutes,
		Anomalies:    result.Anomalies,
		Message:      h.Tr.T(ctx, "checkin.on_time"),
	}
	if resp.Anomalies == nil {
		resp.Anomalies = []attendance.Anomaly{}
	}
	if primary := result.Primary(); primary != nil {
		resp.HasAnomaly = true
		resp.AnomalyID = primary.ID
		resp.AnomalyType = primary.Type
		if !result.OnTime {
			resp.Message = h.Tr.T(ctx, "checkin.anomaly", map[string]any{"Minutes": absInt(result.DeltaMinutes)})
		}
		resp.EmpatheticMessage = h.empathetic(ctx, primary)
		resp.QuickResolutionOptions = h.reasonOptions(ctx, result.Suggestions)
	}

	h.record(r, user, result.MerchantID, audit.ActionCheckIn, audit.EntityShift, result.ShiftID, map[string]any{
		"eventId":    result.EventID,
		"onTime":     result.OnTime,
		"hasAnomaly": resp.HasAnomaly,
	})
	api.Created(w, resp, requestID(r))
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload punchPayload
	if !shared.DecodeJSON(w, r, &payload, requestID(r), false) {
		return
	}

	result, err := h.Engine.RecordCheckOut(r.Context(), attendance.CheckOutInput{
		ShiftID:  payload.ShiftID,
		Actor:    actorFrom(user),
		Location: payload.Location.point(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	resp := checkOutResponse{
		ShiftID:         result.ShiftID,
		EventID:         result.EventID,
		HasOvertime:     result.HasOvertime,
		DeltaMinutes:    result.DeltaMinutes,
		WorkedHours:     result.WorkedHours,
		PlannedHours:    result.PlannedHours,
		OvertimeMinutes: result.OvertimeMinutes,
		Anomalies:       result.Anomalies,
		Message:         h.Tr.T(ctx, "checkout.done", map[string]any{"Hours": result.WorkedHours}),
		NextSteps:       h.Tr.T(ctx, "checkout.next_steps.none"),
	}
	if resp.Anomalies == nil {
		resp.Anomalies = []attendance.Anomaly{}
	}
	if result.HasOvertime {
		resp.Context = h.Tr.T(ctx, "checkout.overtime.context", map[string]any{"Minutes": result.OvertimeMinutes})
		resp.NextSteps = h.Tr.T(ctx, "checkout.next_steps.overtime")
	}
	if primary := result.Primary(); primary != nil {
		resp.HasAnomaly = true
		resp.AnomalyID = primary.ID
		resp.AnomalyType = primary.Type
		resp.EmpatheticMessage = h.empathetic(ctx, primary)
		resp.QuickResolutionOptions = h.reasonOptions(ctx, result.Suggestions)
		resp.NextSteps = h.Tr.T(ctx, "checkout.next_steps.anomaly")
	}

	h.record(r, user, result.MerchantID, audit.ActionCheckOut, audit.EntityShift, result.ShiftID, map[string]any{
		"eventId":     result.EventID,
		"workedHours": result.WorkedHours,
		"hasOvertime": result.HasOvertime,
		"hasAnomaly":  resp.HasAnomaly,
	})
	api.Created(w, resp, requestID(r))
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload resolvePayload
	if !shared.DecodeJSON(w, r, &payload, requestID(r), true) {
		return
	}

	anomalyID := chi.URLParam(r, "anomalyID")
	resolved, err := h.Engine.ResolveAnomaly(r.Context(), attendance.ResolveInput{
		AnomalyID: anomalyID,
		Reason:    attendance.ResolutionReason(payload.Reason),
		Decision:  attendance.Decision(payload.Decision),
		Actor:     actorFrom(user),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, user, resolved.MerchantID, audit.ActionResolve, audit.EntityAnomaly, resolved.ID, map[string]any{
		"status":           resolved.Status,
		"resolutionReason": resolved.ResolutionReason,
	})
	api.Success(w, resolveResponse{
		Anomaly: resolved,
		Message: h.Tr.T(r.Context(), "resolve."+string(resolved.Status)),
	}, requestID(r))
}
