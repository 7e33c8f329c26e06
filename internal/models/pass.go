package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PassCategory struct {
	bun.BaseModel `bun:"table:pass_categories"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,nullzero"`
	AccessLevel int       `bun:"access_level,notnull,default:1"`
	ColorCode   string    `bun:"color_code,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Pass is one issued entry credential. The used/use_count pair is owned by the
// validation state machine and is only ever flipped through the conditional
// update in passes/db; everything else is written at issuance and read-only here.
type Pass struct {
	bun.BaseModel `bun:"table:passes"`

	ID               string     `bun:"id,pk"`
	EventID          string     `bun:"event_id,notnull"`
	CategoryID       string     `bun:"category_id,notnull"`
	PassCode         string     `bun:"pass_code,unique,notnull"`
	ParticipantName  string     `bun:"participant_name,notnull"`
	ParticipantEmail string     `bun:"participant_email,nullzero"`
	ParticipantPhone string     `bun:"participant_phone,nullzero"`
	Used             bool       `bun:"used,notnull,default:false"`
	UseCount         int        `bun:"use_count,notnull,default:0"`
	IssuedAt         time.Time  `bun:"issued_at,notnull,default:current_timestamp"`
	ExpiresAt        *time.Time `bun:"expires_at,nullzero"`

	Event    *Event        `bun:"rel:belongs-to,join:event_id=id"`
	Category *PassCategory `bun:"rel:belongs-to,join:category_id=id"`
}

// IsExpired reports whether the pass has an expiry and now is past it.
func (p *Pass) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// PassSummary is the participant-facing slice of a pass returned with a
// validation verdict.
type PassSummary struct {
	PassID           string `json:"pass_id"`
	PassCode         string `json:"pass_code"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email,omitempty"`
	ParticipantPhone string `json:"participant_phone,omitempty"`
	CategoryName     string `json:"category_name"`
	EventName        string `json:"event_name"`
	UseCount         int    `json:"use_count"`
}
