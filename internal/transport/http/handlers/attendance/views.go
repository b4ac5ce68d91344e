package attendancehandler

import (
	"net/http"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/transport/http/api"
)

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	employeeID, err := targetEmployee(user, r.URL.Query().Get("employeeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Engine.Status(r.Context(), employeeID, actorFrom(user))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, statusResponse{
		StatusView:    view,
		StatusMessage: h.Tr.T(r.Context(), "status."+view.State),
	}, requestID(r))
}

func (h *Handler) handleWellbeing(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	employeeID, err := targetEmployee(user, r.URL.Query().Get("employeeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.Engine.Wellbeing(r.Context(), employeeID, actorFrom(user))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	messageID := "wellbeing.none"
	if view.Alert != attendance.WellbeingNone {
		messageID = "wellbeing." + string(view.Alert)
	}
	api.Success(w, wellbeingResponse{
		WellbeingView: view,
		WellbeingMessage: h.Tr.T(r.Context(), messageID, map[string]any{
			"Hours":    view.HoursThisWeek,
			"Max":      view.MaxWeeklyHours,
			"Overtime": view.OvertimeThisWeek,
		}),
	}, requestID(r))
}
