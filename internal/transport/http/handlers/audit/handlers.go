package audithandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"staffhub/internal/domain/audit"
	"staffhub/internal/domain/auth"
	"staffhub/internal/transport/http/api"
	"staffhub/internal/transport/http/middleware"
	"staffhub/internal/transport/http/shared"
)

type Lister interface {
	Count(ctx context.Context, merchantID string, filter audit.Filter) (int, error)
	List(ctx context.Context, merchantID string, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	Service Lister
}

func NewHandler(service Lister) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequireRole(auth.RoleMerchant, auth.RoleAdmin)).Get("/events", h.handleListEvents)
	})
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	// Merchants only ever see their own trail; admins may narrow by merchant.
	merchantID := user.MerchantID
	if user.Role != auth.RoleMerchant {
		merchantID = r.URL.Query().Get("merchantId")
	}

	page := shared.ParsePagination(r, 100, 500)
	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
		ActorUser:  r.URL.Query().Get("actorUserId"),
	}
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	total, err := h.Service.Count(r.Context(), merchantID, filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}

	events, err := h.Service.List(r.Context(), merchantID, filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "merchantId", merchantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}
