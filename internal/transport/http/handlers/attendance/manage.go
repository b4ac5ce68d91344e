package attendancehandler

import (
	"net/http"
	"sort"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/shared"
)

func (h *Handler) handleAutoValidate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload merchantPayload
	if !shared.DecodeJSON(w, r, &payload, requestID(r), true) {
		return
	}
	merchantID, err := targetMerchant(user, payload.MerchantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.Jobs.AutoValidateNow(r.Context(), merchantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, user, merchantID, audit.ActionAutoValidate, audit.EntityMerchant, merchantID, result)
	api.Success(w, sweepResponse{
		SweepResult: result,
		Message:     h.Tr.Plural(r.Context(), "sweep.done", result.Approved),
	}, requestID(r))
}

func (h *Handler) handleBatchApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload batchApprovePayload
	if !shared.DecodeJSON(w, r, &payload, requestID(r), false) {
		return
	}

	result, err := h.Engine.BatchApprove(r.Context(), payload.ShiftIDs, actorFrom(user))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.recordBatch(r, user, payload.ShiftIDs, result)
	api.Success(w, batchResponse{
		BatchResult: result,
		Message:     h.Tr.Plural(r.Context(), "batch.done", result.Approved),
	}, requestID(r))
}

func (h *Handler) handleDetectMissing(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload merchantPayload
	if !shared.DecodeJSON(w, r, &payload, requestID(r), true) {
		return
	}
	merchantID, err := targetMerchant(user, payload.MerchantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.Jobs.DetectMissingNow(r.Context(), merchantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, user, merchantID, audit.ActionDetectMissing, audit.EntityMerchant, merchantID, result)
	api.Success(w, missingPunchResponse{
		MissingPunchResult: result,
		Message: h.Tr.T(r.Context(), "missing.done", map[string]any{
			"CheckIn":  result.MissingCheckIn,
			"CheckOut": result.MissingCheckOut,
		}),
	}, requestID(r))
}

// recordBatch writes one audit row per merchant whose anomalies were approved,
// so each merchant finds the batch in its own audit scope.
func (h *Handler) recordBatch(r *http.Request, user auth.UserContext, shiftIDs []string, result attendance.BatchResult) {
	if len(result.ByMerchant) == 0 {
		h.record(r, user, user.MerchantID, audit.ActionBatchApprove, audit.EntityShift, "batch", map[string]any{
			"shiftIds":      shiftIDs,
			"countApproved": 0,
			"countSkipped":  result.Skipped,
		})
		return
	}
	merchants := make([]string, 0, len(result.ByMerchant))
	for id := range result.ByMerchant {
		merchants = append(merchants, id)
	}
	sort.Strings(merchants)
	for _, merchantID := range merchants {
		h.record(r, user, merchantID, audit.ActionBatchApprove, audit.EntityShift, "batch", map[string]any{
			"shiftIds":      shiftIDs,
			"countApproved": result.ByMerchant[merchantID],
			"countSkipped":  result.Skipped,
		})
	}
}
