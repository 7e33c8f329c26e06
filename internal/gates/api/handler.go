package gates_api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	gatedb "ms-gatekeeper/internal/gates/db"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/utils"
)

type Handler struct {
	DB     *gatedb.DB
	Logger *logger.Logger
}

// CheckGateAccess answers whether a pass category can pass a gate. Absence of
// a rule reads as denied.
func (h *Handler) CheckGateAccess(w http.ResponseWriter, r *http.Request) {
	gateID := chi.URLParam(r, "gateID")
	categoryID := chi.URLParam(r, "categoryID")

	canAccess := false
	rule, err := h.DB.GetRule(r.Context(), gateID, categoryID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Rule lookup failed", err.Error()))
		return
	}
	if rule != nil {
		canAccess = rule.CanAccess
	}

	h.Logger.LogGate(gateID, fmt.Sprintf("Access probe for category %s: %t", categoryID, canAccess))

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Access rule evaluated", map[string]interface{}{
		"can_access":  canAccess,
		"gate_id":     gateID,
		"category_id": categoryID,
	}))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Printf("Error writing response: %v\n", err)
	}
}
