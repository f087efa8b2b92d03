package alerts

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrAlertNotFound, Status: http.StatusNotFound, Message: "alert not found"},
	{Error: ErrNotificationNotFound, Status: http.StatusNotFound, Message: "notification not found"},
	{Error: ErrAlertExists, Status: http.StatusConflict, Message: "alert already exists"},
}

// Handler handles HTTP requests for the alerts module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new alerts handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers read and operator routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.ListAlerts)
		r.Get("/{alertID}", h.GetAlert)
		r.Get("/{alertID}/notifications", h.ListNotifications)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireRole(domain.RoleOperator))
			r.Post("/{alertID}/ack", h.AcknowledgeAlert)
			r.Post("/{alertID}/close", h.CloseAlert)
			r.Post("/{alertID}/notifications/{notificationID}/resend", h.ResendNotification)
		})
	})
}

// RegisterAdminRoutes registers routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/alerts", h.CreateAlert)
	r.Get("/notification-channels", h.ListChannelConfigs)
	r.Put("/notification-channels", h.UpsertChannelConfig)
}

// CreateAlertRequest represents request body for raising an alert.
type CreateAlertRequest struct {
	ServerID   *string `json:"server_id" validate:"omitempty,uuid"`
	SourceType string  `json:"source_type" validate:"required"`
	SourceID   *string `json:"source_id" validate:"omitempty,uuid"`
	AlertType  string  `json:"alert_type" validate:"required"`
	Severity   string  `json:"severity" validate:"required,oneof=info warning critical"`
	Message    string  `json:"message" validate:"required"`
}

// AcknowledgeAlertRequest represents request body for acknowledging.
type AcknowledgeAlertRequest struct {
	Comment string `json:"comment"`
}

// CloseAlertRequest represents request body for closing.
type CloseAlertRequest struct {
	Resolution string `json:"resolution"`
}

// UpsertChannelConfigRequest represents request body for a routing rule.
type UpsertChannelConfigRequest struct {
	ID          *string        `json:"id" validate:"omitempty,uuid"`
	Channel     string         `json:"channel" validate:"required,oneof=email teams slack webhook"`
	Recipient   string         `json:"recipient" validate:"required"`
	MinSeverity string         `json:"min_severity" validate:"required,oneof=info warning critical"`
	Enabled     bool           `json:"enabled"`
	Settings    map[string]any `json:"settings"`
}

// ListAlerts handles GET /alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	var filter AlertFilter

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.AlertStatus(v)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		severity := domain.Severity(v)
		if !severity.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid severity filter")
			return
		}
		filter.Severity = &severity
	}
	if v := r.URL.Query().Get("server_id"); v != "" {
		filter.ServerID = &v
	}
	if v := r.URL.Query().Get("source_type"); v != "" {
		filter.SourceType = &v
	}

	alerts, err := h.service.ListAlerts(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, alerts)
}

// CreateAlert handles POST /alerts.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	alert, err := h.service.CreateAlert(r.Context(), CreateAlertInput{
		ServerID:   req.ServerID,
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		AlertType:  req.AlertType,
		Severity:   domain.Severity(req.Severity),
		Message:    req.Message,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, alert)
}

// GetAlert handles GET /alerts/{alertID}.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.service.GetAlert(r.Context(), chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, alert)
}

// AcknowledgeAlert handles POST /alerts/{alertID}/ack.
// The lifecycle mutation itself is a no-op for unknown ids; the 404
// contract comes from the follow-up fetch.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	var req AcknowledgeAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.service.Acknowledge(r.Context(), alertID, req.Comment); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	alert, err := h.service.GetAlert(r.Context(), alertID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, alert)
}

// CloseAlert handles POST /alerts/{alertID}/close.
func (h *Handler) CloseAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	var req CloseAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.service.Close(r.Context(), alertID, req.Resolution); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	alert, err := h.service.GetAlert(r.Context(), alertID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, alert)
}

// ListNotifications handles GET /alerts/{alertID}/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.service.ListNotifications(r.Context(), chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if notifications == nil {
		notifications = []domain.Notification{}
	}
	httputil.Success(w, http.StatusOK, notifications)
}

// ResendNotification handles POST /alerts/{alertID}/notifications/{notificationID}/resend.
func (h *Handler) ResendNotification(w http.ResponseWriter, r *http.Request) {
	err := h.service.ResendNotification(r.Context(),
		chi.URLParam(r, "alertID"),
		chi.URLParam(r, "notificationID"),
	)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ListChannelConfigs handles GET /notification-channels.
func (h *Handler) ListChannelConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListChannelConfigs(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, configs)
}

// UpsertChannelConfig handles PUT /notification-channels.
func (h *Handler) UpsertChannelConfig(w http.ResponseWriter, r *http.Request) {
	var req UpsertChannelConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	cfg, err := h.service.UpsertChannelConfig(r.Context(), UpsertChannelConfigInput{
		ID:          req.ID,
		Channel:     domain.NotificationChannel(req.Channel),
		Recipient:   req.Recipient,
		MinSeverity: domain.Severity(req.MinSeverity),
		Enabled:     req.Enabled,
		Settings:    req.Settings,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, cfg)
}
