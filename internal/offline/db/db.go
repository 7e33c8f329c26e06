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

func (d *DB) CreateEntry(ctx context.Context, entry models.OfflineQueueEntry) error {
	_, err := d.Bun.NewInsert().Model(&entry).Exec(ctx)
	return err
}

// UpdateEntryStatus moves a queue entry to synced/failed. The row itself is
// kept for audit.
func (d *DB) UpdateEntryStatus(ctx context.Context, id, status string, at time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.OfflineQueueEntry)(nil)).
		Set("sync_status = ?", status).
		Set("synced_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// EntriesByStatus lists queue entries in a given sync state, oldest first.
func (d *DB) EntriesByStatus(ctx context.Context, status string) ([]models.OfflineQueueEntry, error) {
	var entries []models.OfflineQueueEntry
	err := d.Bun.NewSelect().
		Model(&entries).
		Where("sync_status = ?", status).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
