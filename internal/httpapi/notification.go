package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/notifysvc"
)

// NotificationHandler exposes email subscription endpoints.
type NotificationHandler struct {
	svc    *notifysvc.Service
	logger *zap.Logger
}

// NewNotificationHandler creates the handler.
func NewNotificationHandler(svc *notifysvc.Service, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the notification routes.
func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notifications/subscribe", h.Subscribe).Methods(http.MethodPost)
	router.HandleFunc("/notifications/unsubscribe", h.Unsubscribe).Methods(http.MethodPost)
	router.HandleFunc("/notifications/locations", h.Locations).Methods(http.MethodGet)
}

// RegisterAdminRoutes mounts the routes for operators. The caller wraps
// them in the auth middleware.
func (h *NotificationHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/notifications/subscribers/{location}", h.Subscribers).Methods(http.MethodGet)
	router.HandleFunc("/notifications/digest/run", h.RunDigest).Methods(http.MethodPost)
}

// Subscribe handles POST /notifications/subscribe.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Location string `json:"location"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	result, err := h.svc.Subscribe(r.Context(), req.Email, req.Location)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, result.Message, map[string]interface{}{
		"email":    result.Subscription.Email,
		"location": result.Subscription.Location,
		"is_new":   result.IsNew,
	}, nil)
}

// Unsubscribe handles POST /notifications/unsubscribe.
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	if err := h.svc.Unsubscribe(r.Context(), req.Email); err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "unsubscribed from email notifications", nil, nil)
}

// Locations handles GET /notifications/locations.
func (h *NotificationHandler) Locations(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.Locations(r.Context())
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "locations retrieved", infos, map[string]interface{}{"count": len(infos)})
}

// Subscribers handles GET /notifications/subscribers/{location}.
func (h *NotificationHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]
	subs, err := h.svc.Subscribers(r.Context(), location)
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	emails := make([]string, len(subs))
	for i, sub := range subs {
		emails[i] = sub.Email
	}
	respondOK(w, "subscribers retrieved", emails, map[string]interface{}{
		"location": location,
		"count":    len(emails),
	})
}

// RunDigest handles POST /notifications/digest/run, triggering the daily
// digest outside its schedule.
func (h *NotificationHandler) RunDigest(w http.ResponseWriter, r *http.Request) {
	queued, err := h.svc.RunDailyDigest(r.Context())
	if err != nil {
		respondError(w, h.logger, r, err)
		return
	}
	respondOK(w, "daily digest queued", map[string]interface{}{"queued": queued}, nil)
}
