package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Gate struct {
	bun.BaseModel `bun:"table:gates"`

	ID          string    `bun:"id,pk"`
	EventID     string    `bun:"event_id,notnull"`
	Name        string    `bun:"name,notnull"`
	GateType    string    `bun:"gate_type,notnull,default:'General'"`
	Description string    `bun:"description,nullzero"`
	IsActive    bool      `bun:"is_active,notnull,default:true"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Event *Event        `bun:"rel:belongs-to,join:event_id=id"`
	Rules []*AccessRule `bun:"rel:has-many,join:id=gate_id"`
}

// AccessRule binds one pass category to one gate. At most one rule exists per
// (gate, category) pair; a missing rule means the category is denied.
type AccessRule struct {
	bun.BaseModel `bun:"table:access_rules"`

	ID         string    `bun:"id,pk"`
	GateID     string    `bun:"gate_id,notnull,unique:gate_category"`
	CategoryID string    `bun:"category_id,notnull,unique:gate_category"`
	CanAccess  bool      `bun:"can_access,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
