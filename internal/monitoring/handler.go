package monitoring

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hirewell/interview-reminders/internal/interviews"
	"github.com/hirewell/interview-reminders/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: interviews.ErrNotFound, Status: http.StatusNotFound, Message: "interview not found"},
}

// Handler handles HTTP requests for the monitoring facade.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a monitoring handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers monitoring routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/queue/stats", h.GetQueueStats)
	r.Post("/interviews/{id}/reminders", h.TriggerManualReminder)
}

// GetQueueStats handles GET /queue/stats.
func (h *Handler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, stats)
}

// TriggerManualReminder handles POST /interviews/{id}/reminders.
func (h *Handler) TriggerManualReminder(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "id")

	if err := h.validator.Var(interviewID, "required,uuid"); err != nil {
		httputil.Error(w, http.StatusBadRequest, "interview id must be a uuid")
		return
	}

	if err := h.service.TriggerManualReminder(r.Context(), interviewID); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}
