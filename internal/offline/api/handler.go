package offline_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-gatekeeper/internal/auth"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
	offline "ms-gatekeeper/internal/offline/service"
	"ms-gatekeeper/internal/utils"
)

type Handler struct {
	OfflineService *offline.OfflineService
	Logger         *logger.Logger
}

type syncRequest struct {
	Validations []models.OfflineValidation `json:"validations"`
}

// SyncOfflineValidations replays a station's offline batch against the
// canonical store.
func (h *Handler) SyncOfflineValidations(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if len(req.Validations) == 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("No validation data provided", "validations array is empty"))
		return
	}

	validatorID := auth.ValidatorID(r.Context())
	origin := utils.ClientIP(r)

	result, err := h.OfflineService.SyncBatch(r.Context(), validatorID, origin, req.Validations)
	if err != nil {
		h.Logger.Error("SYNC", fmt.Sprintf("Batch sync aborted: %v", err))
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Sync unavailable, retry safe", err.Error()))
		return
	}

	msg := fmt.Sprintf("Synced %d validations, %d failed", result.SyncedCount, result.FailedCount)
	writeJSON(w, http.StatusOK, utils.SuccessResponse(msg, result))
}

// DownloadOfflinePackage hands a gate station its local validation cache.
func (h *Handler) DownloadOfflinePackage(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	pkg, err := h.OfflineService.BuildPackage(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, offline.ErrEventNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Failed to build offline package", err.Error()))
		return
	}

	filename := fmt.Sprintf("offline_package_%s_%s.json", eventID, time.Now().Format("20060102150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := json.NewEncoder(w).Encode(pkg); err != nil {
		fmt.Printf("Error writing response: %v\n", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Printf("Error writing response: %v\n", err)
	}
}
