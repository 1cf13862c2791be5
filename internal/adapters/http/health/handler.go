package health

import (
	"log/slog"
	"net/http"

	apphealth "3tcapital/taxcore/internal/application/health"
	corehealth "3tcapital/taxcore/internal/core/health"
	httpinfra "3tcapital/taxcore/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service *apphealth.Service
	log     *slog.Logger
}

func NewHandler(service *apphealth.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Status answers 503 when a critical dependency is down, 200 otherwise.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response := h.service.Status(r.Context())

	code := http.StatusOK
	if response.Status == corehealth.StatusDown {
		code = http.StatusServiceUnavailable
	}
	httpinfra.WriteJSON(w, code, response, h.log)
}
