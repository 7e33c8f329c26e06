package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Alert types.
const (
	AlertDuplicateEntry     = "duplicate_entry"
	AlertSuspiciousActivity = "suspicious_activity"
	AlertGateViolation      = "gate_violation"
	AlertSystemError        = "system_error"
)

// Alert severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// RealtimeAlert is derived from the validation stream. It is never deleted;
// the only mutation allowed after creation is acknowledgement.
type RealtimeAlert struct {
	bun.BaseModel `bun:"table:realtime_alerts"`

	ID             string     `bun:"id,pk"`
	EventID        string     `bun:"event_id,notnull"`
	PassID         string     `bun:"pass_id,nullzero"`
	GateID         string     `bun:"gate_id,nullzero"`
	AlertType      string     `bun:"alert_type,notnull"`
	Severity       string     `bun:"severity,notnull"`
	Message        string     `bun:"message,notnull"`
	IsAcknowledged bool       `bun:"is_acknowledged,notnull,default:false"`
	AcknowledgedBy string     `bun:"acknowledged_by,nullzero"`
	AcknowledgedAt *time.Time `bun:"acknowledged_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
}
