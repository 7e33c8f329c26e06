package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Validation outcomes. Every attempt ends in exactly one of these.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeExpired   = "expired"
)

// ValidationRecord is an append-only audit entry. One is written for every
// validation attempt, denied and duplicate attempts included, and is never
// updated or deleted afterwards.
type ValidationRecord struct {
	bun.BaseModel `bun:"table:validation_records"`

	ID          string    `bun:"id,pk"`
	PassID      string    `bun:"pass_id,notnull"`
	ValidatorID string    `bun:"validator_id,notnull"`
	Outcome     string    `bun:"outcome,notnull"` // success, failed, duplicate, expired
	Reason      string    `bun:"reason,nullzero"`
	Origin      string    `bun:"origin,nullzero"` // client IP or station identifier
	RecordedAt  time.Time `bun:"recorded_at,notnull"`

	Pass *Pass `bun:"rel:belongs-to,join:pass_id=id"`
}

// GateValidationRecord accompanies a ValidationRecord when a gate was part of
// the attempt. One-to-one with its parent record.
type GateValidationRecord struct {
	bun.BaseModel `bun:"table:gate_validation_records"`

	ID                 string    `bun:"id,pk"`
	ValidationRecordID string    `bun:"validation_record_id,notnull,unique"`
	GateID             string    `bun:"gate_id,notnull"`
	Granted            bool      `bun:"granted,notnull"`
	Reason             string    `bun:"reason,nullzero"`
	CreatedAt          time.Time `bun:"created_at,notnull"`
}

// EntryResult is the verdict handed back to a gate station.
type EntryResult struct {
	Approved bool         `json:"approved"`
	Outcome  string       `json:"outcome"`
	Reason   string       `json:"reason"`
	Pass     *PassSummary `json:"pass_summary,omitempty"`
}
