package collectors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/okutsev/fleetwatch/internal/domain"
	"github.com/okutsev/fleetwatch/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrCollectorNotFound, Status: http.StatusNotFound, Message: "collector not found"},
}

// Handler handles HTTP requests for the collectors module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new collectors handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers collector routes (require auth). Registration
// and heartbeats are collector-initiated, so they sit behind the operator
// role rather than admin.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/collectors", func(r chi.Router) {
		r.Get("/", h.ListCollectors)
		r.Get("/{collectorID}", h.GetCollector)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireRole(domain.RoleOperator))
			r.Post("/", h.RegisterCollector)
			r.Post("/{collectorID}/heartbeat", h.Heartbeat)
		})
	})
}

// RegisterCollectorRequest represents request body for registering a
// collector.
type RegisterCollectorRequest struct {
	ID     *string        `json:"id" validate:"omitempty,uuid"`
	Name   string         `json:"name" validate:"required"`
	Type   string         `json:"type" validate:"required,oneof=agent winrm powershell hybrid"`
	Config map[string]any `json:"config"`
}

// HeartbeatRequest represents request body for a heartbeat. SeenAt is
// optional; omitted means now.
type HeartbeatRequest struct {
	SeenAt *time.Time `json:"seen_at"`
}

// ListCollectors handles GET /collectors.
func (h *Handler) ListCollectors(w http.ResponseWriter, r *http.Request) {
	collectors, err := h.service.List(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if collectors == nil {
		collectors = []*domain.Collector{}
	}
	httputil.Success(w, http.StatusOK, collectors)
}

// GetCollector handles GET /collectors/{collectorID}.
func (h *Handler) GetCollector(w http.ResponseWriter, r *http.Request) {
	collector, err := h.service.Get(r.Context(), chi.URLParam(r, "collectorID"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, collector)
}

// RegisterCollector handles POST /collectors.
func (h *Handler) RegisterCollector(w http.ResponseWriter, r *http.Request) {
	var req RegisterCollectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	collector, err := h.service.Register(r.Context(), RegisterInput{
		ID:     req.ID,
		Name:   req.Name,
		Type:   domain.CollectorType(req.Type),
		Config: req.Config,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, collector)
}

// Heartbeat handles POST /collectors/{collectorID}/heartbeat. An empty body
// is accepted and means "seen now". Unknown collector ids respond 404 via
// the follow-up fetch.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	collectorID := chi.URLParam(r, "collectorID")

	var req HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.service.Heartbeat(r.Context(), collectorID, req.SeenAt); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	collector, err := h.service.Get(r.Context(), collectorID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, collector)
}
