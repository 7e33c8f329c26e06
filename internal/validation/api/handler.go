package validation_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ms-gatekeeper/internal/auth"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
	"ms-gatekeeper/internal/resolver"
	validation "ms-gatekeeper/internal/validation/service"
	"ms-gatekeeper/internal/utils"
)

type Handler struct {
	ValidationService *validation.ValidationService
	Logger            *logger.Logger
}

type validateRequest struct {
	Code   string `json:"code"`
	GateID string `json:"gate_id"`
}

// ValidatePass handles a live scan from a gate station.
// Expected POST body: {"code": "...", "gate_id": "..."}
func (h *Handler) ValidatePass(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("No code provided", "code is required"))
		return
	}
	if req.GateID == "" {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("gate_id is required", "gate_id is required"))
		return
	}

	validatorID := auth.ValidatorID(r.Context())
	origin := utils.ClientIP(r)

	result, err := h.ValidationService.AttemptEntry(r.Context(), req.Code, req.GateID, validatorID, origin, time.Now().UTC())
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Invalid code or pass not found", err.Error()))
			return
		}
		// No outcome was recorded; the station must treat this as unknown
		// and retry, never as a denial.
		h.Logger.Error("VALIDATION", fmt.Sprintf("Attempt aborted without outcome: %v", err))
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Validation unavailable, retry safe", err.Error()))
		return
	}

	status := statusForOutcome(result.Outcome)
	if result.Approved {
		writeJSON(w, status, utils.SuccessResponse(result.Reason, result))
		return
	}
	writeJSON(w, status, utils.APIResponse{
		Success:   false,
		Message:   result.Reason,
		Data:      result,
		Timestamp: time.Now(),
	})
}

// Duplicates surface distinctly from plain denials so scanner UIs can flag
// a possible pass-sharing attempt.
func statusForOutcome(outcome string) int {
	switch outcome {
	case models.OutcomeSuccess:
		return http.StatusOK
	case models.OutcomeDuplicate:
		return http.StatusConflict
	default:
		return http.StatusForbidden
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Printf("Error writing response: %v\n", err)
	}
}
