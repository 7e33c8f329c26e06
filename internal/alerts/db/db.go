package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-gatekeeper/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateAlert(ctx context.Context, alert models.RealtimeAlert) error {
	_, err := d.Bun.NewInsert().Model(&alert).Exec(ctx)
	return err
}

func (d *DB) GetAlertByID(ctx context.Context, id string) (*models.RealtimeAlert, error) {
	var alert models.RealtimeAlert
	err := d.Bun.NewSelect().
		Model(&alert).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListUnacknowledged returns an event's open alerts, newest first, capped at 50.
func (d *DB) ListUnacknowledged(ctx context.Context, eventID string, since time.Time) ([]models.RealtimeAlert, error) {
	var alerts []models.RealtimeAlert
	err := d.Bun.NewSelect().
		Model(&alerts).
		Where("event_id = ?", eventID).
		Where("is_acknowledged = ?", false).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(50).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// Acknowledge flips an alert to acknowledged, guarded on it being open, so a
// repeat acknowledgement affects zero rows.
func (d *DB) Acknowledge(ctx context.Context, alertID, by string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.RealtimeAlert)(nil)).
		Set("is_acknowledged = ?", true).
		Set("acknowledged_by = ?", by).
		Set("acknowledged_at = ?", at).
		Where("id = ? AND is_acknowledged = ?", alertID, false).
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
