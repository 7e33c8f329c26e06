package alerts_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	alerts "ms-gatekeeper/internal/alerts/service"
	"ms-gatekeeper/internal/auth"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/utils"
)

type Handler struct {
	AlertService *alerts.AlertService
	Logger       *logger.Logger
}

// ListAlerts returns an event's unacknowledged alerts. An optional ?since=
// RFC3339 query narrows the range; default is the last 24 hours.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	since := time.Now().UTC().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid since parameter", err.Error()))
			return
		}
		since = parsed
	}

	list, err := h.AlertService.ListAlerts(r.Context(), eventID, since)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Failed to list alerts", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Alerts fetched", map[string]interface{}{
		"alerts": list,
	}))
}

// AcknowledgeAlert marks one alert as handled. Repeating it is rejected so a
// second operator knows someone already took it.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	by := auth.ValidatorID(r.Context())

	err := h.AlertService.Acknowledge(r.Context(), alertID, by)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, utils.SuccessResponse("Alert acknowledged", nil))
	case errors.Is(err, alerts.ErrAlertNotFound):
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Alert not found", err.Error()))
	case errors.Is(err, alerts.ErrAlreadyAcknowledged):
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Alert already acknowledged", err.Error()))
	default:
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Failed to acknowledge alert", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Printf("Error writing response: %v\n", err)
	}
}
