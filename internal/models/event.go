package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,nullzero"`
	Location    string    `bun:"location,nullzero"`
	StartDate   time.Time `bun:"start_date,notnull"`
	EndDate     time.Time `bun:"end_date,notnull"`
	Status      string    `bun:"status,notnull,default:'active'"` // active, completed, cancelled
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
