package attendancehandler

import (
	"errors"
	"log/slog"
	"net/http"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/transport/http/api"
)

var (
	errMerchantRequired = &attendance.Error{Kind: attendance.KindValidation, Code: "merchant_id_required", Message: "merchantId is required"}
	errEmployeeRequired = &attendance.Error{Kind: attendance.KindValidation, Code: "employee_id_required", Message: "employeeId is required"}
)

var statusByKind = map[attendance.Kind]int{
	attendance.KindNotFound:     http.StatusNotFound,
	attendance.KindConflict:     http.StatusConflict,
	attendance.KindForbidden:    http.StatusForbidden,
	attendance.KindInvalidState: http.StatusConflict,
	attendance.KindValidation:   http.StatusBadRequest,
}

// fail writes err as an API error. Business errors carry their kind as the code and the
// specific rule in details.reason; anything else is a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := requestID(r)
	if errors.Is(err, attendance.ErrMissingCheckIn) {
		api.FailWithDetails(w, http.StatusNotFound, attendance.CodeOf(err), h.Tr.T(r.Context(), "checkout.missing_check_in"),
			map[string]any{"anomalyType": attendance.AnomalyMissingCheckIn}, reqID)
		return
	}

	kind := attendance.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		slog.Error("attendance request failed", "path", r.URL.Path, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
		return
	}
	api.FailWithDetails(w, status, string(kind), err.Error(), map[string]any{"reason": attendance.CodeOf(err)}, reqID)
}
