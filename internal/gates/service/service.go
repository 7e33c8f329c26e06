package gates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-gatekeeper/internal/models"
)

// Denial codes. Absence of a rule denies; only an explicit can_access=true
// rule admits.
const (
	CodeAllowed       = "Allowed"
	CodeGateNotFound  = "GateNotFound"
	CodeEventMismatch = "EventMismatch"
	CodeNoRule        = "NoRule"
	CodeAccessDenied  = "AccessDenied"
)

// Decision is the evaluator's answer. Denial is a normal outcome the caller
// must still log, not an error.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

type GateDBLayer interface {
	GetGateByID(ctx context.Context, id string) (*models.Gate, error)
	GetRule(ctx context.Context, gateID, categoryID string) (*models.AccessRule, error)
}

type GateService struct {
	DB GateDBLayer
}

func NewGateService(db GateDBLayer) *GateService {
	return &GateService{DB: db}
}

// CheckAccess decides whether the pass's category may enter through the gate.
// The error return is reserved for store failures; every policy outcome comes
// back as a Decision.
func (s *GateService) CheckAccess(ctx context.Context, pass *models.Pass, gateID string) (Decision, error) {
	gate, err := s.DB.GetGateByID(ctx, gateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Decision{Code: CodeGateNotFound, Reason: "Gate not found or inactive"}, nil
		}
		return Decision{}, fmt.Errorf("gate lookup failed: %w", err)
	}
	if !gate.IsActive {
		return Decision{Code: CodeGateNotFound, Reason: "Gate not found or inactive"}, nil
	}

	if gate.EventID != pass.EventID {
		return Decision{Code: CodeEventMismatch, Reason: "Gate does not belong to this event"}, nil
	}

	rule, err := s.DB.GetRule(ctx, gateID, pass.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Decision{Code: CodeNoRule, Reason: "No access rule for this pass category at this gate"}, nil
		}
		return Decision{}, fmt.Errorf("access rule lookup failed: %w", err)
	}

	if !rule.CanAccess {
		return Decision{Code: CodeAccessDenied, Reason: "Access denied for this pass category at this gate"}, nil
	}

	return Decision{Allowed: true, Code: CodeAllowed, Reason: "Gate access allowed"}, nil
}
