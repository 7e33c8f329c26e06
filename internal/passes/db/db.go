package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-gatekeeper/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetPassByCode fetches a pass by its opaque code, with event and category
// loaded for the participant summary.
func (d *DB) GetPassByCode(ctx context.Context, code string) (*models.Pass, error) {
	var pass models.Pass
	err := d.Bun.NewSelect().
		Model(&pass).
		Relation("Event").
		Relation("Category").
		Where("pass.pass_code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

func (d *DB) GetPassByID(ctx context.Context, id string) (*models.Pass, error) {
	var pass models.Pass
	err := d.Bun.NewSelect().
		Model(&pass).
		Relation("Event").
		Relation("Category").
		Where("pass.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// MarkUsed performs the single atomic conditional update that admits a pass.
// The WHERE guard on the previous state makes it a compare-and-set: of any
// number of concurrent callers, exactly one sees rows == 1. It returns whether
// this caller won the transition.
func (d *DB) MarkUsed(ctx context.Context, passID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Pass)(nil)).
		Set("used = ?", true).
		Set("use_count = use_count + 1").
		Where("id = ? AND used = ?", passID, false).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// GetPassesByEvent lists every pass of an event for the offline package.
func (d *DB) GetPassesByEvent(ctx context.Context, eventID string) ([]models.Pass, error) {
	var passes []models.Pass
	err := d.Bun.NewSelect().
		Model(&passes).
		Where("event_id = ?", eventID).
		Order("pass_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return passes, nil
}

// GetCategories returns all pass categories keyed by ID.
func (d *DB) GetCategories(ctx context.Context) (map[string]string, error) {
	var categories []models.PassCategory
	err := d.Bun.NewSelect().
		Model(&categories).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(categories))
	for _, c := range categories {
		out[c.ID] = c.Name
	}
	return out, nil
}
