package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-gatekeeper/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetGateByID(ctx context.Context, id string) (*models.Gate, error) {
	var gate models.Gate
	err := d.Bun.NewSelect().
		Model(&gate).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &gate, nil
}

// GetRule fetches the single access rule for a (gate, category) pair, if one
// exists.
func (d *DB) GetRule(ctx context.Context, gateID, categoryID string) (*models.AccessRule, error) {
	var rule models.AccessRule
	err := d.Bun.NewSelect().
		Model(&rule).
		Where("gate_id = ? AND category_id = ?", gateID, categoryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetGatesByEvent lists an event's gates with their rules loaded, for the
// offline package.
func (d *DB) GetGatesByEvent(ctx context.Context, eventID string) ([]models.Gate, error) {
	var gates []models.Gate
	err := d.Bun.NewSelect().
		Model(&gates).
		Relation("Rules").
		Where("gate.event_id = ?", eventID).
		Order("gate.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return gates, nil
}
