package servers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrServerNotFound, Status: http.StatusNotFound, Message: "server not found"},
	{Error: ErrHostnameTaken, Status: http.StatusConflict, Message: "hostname already taken"},
}

// Handler handles HTTP requests for the servers module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new servers handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers server inventory routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/servers", func(r chi.Router) {
		r.Get("/", h.ListServers)
		r.Get("/{serverID}", h.GetServer)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireRole(domain.RoleOperator))
			r.Post("/", h.RegisterServer)
			r.Put("/{serverID}", h.UpdateServer)
			r.Post("/{serverID}/health", h.RecordHealth)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireRole(domain.RoleAdmin))
			r.Delete("/{serverID}", h.DeleteServer)
		})
	})
}

// RegisterServerRequest represents request body for adding a server.
type RegisterServerRequest struct {
	Hostname    string   `json:"hostname" validate:"required,hostname_rfc1123"`
	DisplayName string   `json:"display_name"`
	Environment string   `json:"environment" validate:"required,oneof=dev test prod"`
	IPAddress   string   `json:"ip_address" validate:"omitempty,ip"`
	OS          string   `json:"os"`
	Tags        []string `json:"tags"`
}

// UpdateServerRequest represents request body for updating inventory
// metadata.
type UpdateServerRequest struct {
	DisplayName string   `json:"display_name"`
	Environment string   `json:"environment" validate:"required,oneof=dev test prod"`
	IPAddress   string   `json:"ip_address" validate:"omitempty,ip"`
	OS          string   `json:"os"`
	Tags        []string `json:"tags"`
}

// RecordHealthRequest represents request body for a health report.
type RecordHealthRequest struct {
	Status        string  `json:"status" validate:"required,oneof=healthy warning down unknown"`
	CPUPercent    float64 `json:"cpu_percent" validate:"gte=0,lte=100"`
	MemoryPercent float64 `json:"memory_percent" validate:"gte=0,lte=100"`
}

// ListServers handles GET /servers.
func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	var filter ServerFilter

	if v := r.URL.Query().Get("environment"); v != "" {
		env := domain.EnvironmentType(v)
		if !env.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid environment filter")
			return
		}
		filter.Environment = &env
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.ServerStatus(v)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &status
	}

	servers, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if servers == nil {
		servers = []*domain.Server{}
	}
	httputil.Success(w, http.StatusOK, servers)
}

// GetServer handles GET /servers/{serverID}.
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	server, err := h.service.Get(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, server)
}

// RegisterServer handles POST /servers.
func (h *Handler) RegisterServer(w http.ResponseWriter, r *http.Request) {
	var req RegisterServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	server, err := h.service.Register(r.Context(), RegisterInput{
		Hostname:    req.Hostname,
		DisplayName: req.DisplayName,
		Environment: domain.EnvironmentType(req.Environment),
		IPAddress:   req.IPAddress,
		OS:          req.OS,
		Tags:        req.Tags,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, server)
}

// UpdateServer handles PUT /servers/{serverID}.
func (h *Handler) UpdateServer(w http.ResponseWriter, r *http.Request) {
	var req UpdateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	server, err := h.service.UpdateMetadata(r.Context(), chi.URLParam(r, "serverID"), UpdateMetadataInput{
		DisplayName: req.DisplayName,
		Environment: domain.EnvironmentType(req.Environment),
		IPAddress:   req.IPAddress,
		OS:          req.OS,
		Tags:        req.Tags,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, server)
}

// RecordHealth handles POST /servers/{serverID}/health.
func (h *Handler) RecordHealth(w http.ResponseWriter, r *http.Request) {
	var req RecordHealthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	server, err := h.service.RecordHealth(r.Context(), chi.URLParam(r, "serverID"),
		domain.ServerStatus(req.Status), req.CPUPercent, req.MemoryPercent)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, server)
}

// DeleteServer handles DELETE /servers/{serverID}.
func (h *Handler) DeleteServer(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "serverID")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
