package attendancehandler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/platform/i18n"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
	"staffhub/internal/transport/http/shared"
)

// Engine is the attendance service as seen by the HTTP layer.
type Engine interface {
	RecordCheckIn(ctx context.Context, in attendance.CheckInInput) (attendance.CheckInResult, error)
	RecordCheckOut(ctx context.Context, in attendance.CheckOutInput) (attendance.CheckOutResult, error)
	ResolveAnomaly(ctx context.Context, in attendance.ResolveInput) (attendance.Anomaly, error)
	BatchApprove(ctx context.Context, shiftIDs []string, actor attendance.Actor) (attendance.BatchResult, error)
	Status(ctx context.Context, employeeID string, actor attendance.Actor) (attendance.StatusView, error)
	Wellbeing(ctx context.Context, employeeID string, actor attendance.Actor) (attendance.WellbeingView, error)
}

// Jobs runs the batch operations through the job runner so manual runs land in job_runs too.
type Jobs interface {
	AutoValidateNow(ctx context.Context, merchantID string) (attendance.SweepResult, error)
	DetectMissingNow(ctx context.Context, merchantID string) (attendance.MissingPunchResult, error)
}

type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Handler struct {
	Engine      Engine
	Jobs        Jobs
	Audit       Auditor
	Tr          *i18n.Translator
	Idempotency *middleware.IdempotencyStore
}

func NewHandler(engine Engine, jobsSvc Jobs, auditSvc Auditor, tr *i18n.Translator, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Engine: engine, Jobs: jobsSvc, Audit: auditSvc, Tr: tr, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	managers := middleware.RequireRole(auth.RoleMerchant, auth.RoleAdmin)
	employees := middleware.RequireRole(auth.RoleEmployee)
	idempotent := middleware.Idempotent(h.Idempotency)

	r.Route("/attendance", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(employees, idempotent).Post("/check-in", h.handleCheckIn)
		r.With(employees, idempotent).Post("/check-out", h.handleCheckOut)
		r.Post("/anomalies/{anomalyID}/resolve", h.handleResolve)
		r.Get("/status", h.handleStatus)
		r.Get("/wellbeing", h.handleWellbeing)
		r.With(managers).Post("/auto-validate", h.handleAutoValidate)
		r.With(managers).Post("/batch-approve", h.handleBatchApprove)
		r.With(managers).Post("/missing-punches/detect", h.handleDetectMissing)
	})
}

func actorFrom(user auth.UserContext) attendance.Actor {
	return attendance.Actor{
		UserID:     user.UserID,
		Role:       user.Role,
		EmployeeID: user.EmployeeID,
		MerchantID: user.MerchantID,
	}
}

func (h *Handler) record(r *http.Request, user auth.UserContext, merchantID, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), audit.Entry{
		MerchantID: merchantID,
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      after,
	})
	if err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

// targetMerchant resolves which merchant a manager action applies to. Merchants act
// on their own merchant only; admins must name one.
func targetMerchant(user auth.UserContext, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if user.Role == auth.RoleMerchant {
		if requested != "" && requested != user.MerchantID {
			return "", attendance.ErrMerchantScope
		}
		return user.MerchantID, nil
	}
	if requested == "" {
		return "", errMerchantRequired
	}
	return requested, nil
}

// targetEmployee defaults the employee of a read view to the caller.
func targetEmployee(user auth.UserContext, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		return requested, nil
	}
	if user.EmployeeID != "" {
		return user.EmployeeID, nil
	}
	return "", errEmployeeRequired
}

func (h *Handler) reasonOptions(ctx context.Context, reasons []attendance.ResolutionReason) []reasonOption {
	if len(reasons) == 0 {
		return nil
	}
	out := make([]reasonOption, 0, len(reasons))
	for _, reason := range reasons {
		out = append(out, reasonOption{Reason: reason, Label: h.Tr.T(ctx, "reason."+string(reason))})
	}
	return out
}

func (h *Handler) empathetic(ctx context.Context, a *attendance.Anomaly) string {
	if a == nil {
		return ""
	}
	id, ok := empatheticMessages[a.Type]
	if !ok {
		return ""
	}
	return h.Tr.T(ctx, id)
}

var empatheticMessages = map[attendance.AnomalyType]string{
	attendance.AnomalyLateCheckIn:      "checkin.late.empathetic",
	attendance.AnomalyEarlyCheckIn:     "checkin.early.empathetic",
	attendance.AnomalyLateCheckOut:     "checkout.late.empathetic",
	attendance.AnomalyEarlyCheckOut:    "checkout.early.empathetic",
	attendance.AnomalyLocationMismatch: "location.empathetic",
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func currentUser(w http.ResponseWriter, r *http.Request) (auth.UserContext, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID(r))
	}
	return user, ok
}
