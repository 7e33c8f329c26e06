package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Sync states for offline-captured validation events.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncFailed  = "failed"
)

// OfflineQueueEntry is a validation event captured by a gate station while
// disconnected. The reconciler flips SyncStatus to synced/failed; the row is
// kept afterwards for audit.
type OfflineQueueEntry struct {
	bun.BaseModel `bun:"table:offline_queue_entries"`

	ID             string     `bun:"id,pk"`
	PassCode       string     `bun:"pass_code,notnull"`
	GateID         string     `bun:"gate_id,nullzero"`
	ValidatorID    string     `bun:"validator_id,notnull"`
	ClaimedOutcome string     `bun:"claimed_outcome,notnull"`
	ClaimedAt      time.Time  `bun:"claimed_at,notnull"`
	Message        string     `bun:"message,nullzero"`
	SyncStatus     string     `bun:"sync_status,notnull,default:'pending'"`
	SyncedAt       *time.Time `bun:"synced_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// OfflineValidation is the wire shape a gate station uploads when it comes
// back online.
type OfflineValidation struct {
	PassCode       string    `json:"pass_code"`
	GateID         string    `json:"gate_id,omitempty"`
	ClaimedOutcome string    `json:"claimed_outcome"`
	ClaimedAt      time.Time `json:"claimed_at"`
	Message        string    `json:"message,omitempty"`
}

// OfflineEntryResult is the per-entry answer from a sync, carrying the actual
// outcome the canonical store settled on.
type OfflineEntryResult struct {
	PassCode      string `json:"pass_code"`
	SyncStatus    string `json:"sync_status"`
	ActualOutcome string `json:"actual_outcome,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type OfflineSyncResult struct {
	SyncedCount int                  `json:"synced_count"`
	FailedCount int                  `json:"failed_count"`
	Entries     []OfflineEntryResult `json:"per_entry_results"`
}

// Offline package: a read-only local cache for a disconnected gate station.

type OfflinePackage struct {
	Event      OfflineEventMeta  `json:"event"`
	Passes     []OfflinePass     `json:"passes"`
	Gates      []OfflineGate     `json:"gates"`
	Categories map[string]string `json:"pass_categories"`
	SnapshotAt time.Time         `json:"snapshot_at"`
}

type OfflineEventMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type OfflinePass struct {
	ID              string `json:"id"`
	PassCode        string `json:"pass_code"`
	ParticipantName string `json:"participant_name"`
	CategoryID      string `json:"category_id"`
	Used            bool   `json:"used"`
	UseCount        int    `json:"use_count"`
}

type OfflineGate struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	GateType          string   `json:"gate_type"`
	IsActive          bool     `json:"is_active"`
	AllowedCategories []string `json:"allowed_categories"`
}
