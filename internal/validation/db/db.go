package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-gatekeeper/internal/models"
)

// DB is the audit ledger. Records only ever get appended; there is no update
// or delete path on purpose.
type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateValidationRecord(ctx context.Context, record models.ValidationRecord) error {
	_, err := d.Bun.NewInsert().Model(&record).Exec(ctx)
	return err
}

func (d *DB) CreateGateValidationRecord(ctx context.Context, record models.GateValidationRecord) error {
	_, err := d.Bun.NewInsert().Model(&record).Exec(ctx)
	return err
}

// PriorOutcomes returns earlier success/duplicate records for a pass inside
// the trailing window, excluding the record that triggered the query. The
// duplicate monitor keys its severity off the count.
func (d *DB) PriorOutcomes(ctx context.Context, passID, excludeRecordID string, since time.Time) ([]models.ValidationRecord, error) {
	var records []models.ValidationRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("pass_id = ?", passID).
		Where("id != ?", excludeRecordID).
		Where("recorded_at >= ?", since).
		Where("outcome IN (?)", bun.In([]string{models.OutcomeSuccess, models.OutcomeDuplicate})).
		Order("recorded_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RecordsByPass lists the full audit trail of one pass, oldest first.
func (d *DB) RecordsByPass(ctx context.Context, passID string) ([]models.ValidationRecord, error) {
	var records []models.ValidationRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("pass_id = ?", passID).
		Order("recorded_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountByOutcome counts a pass's records with the given outcome.
func (d *DB) CountByOutcome(ctx context.Context, passID, outcome string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.ValidationRecord)(nil)).
		Where("pass_id = ?", passID).
		Where("outcome = ?", outcome).
		Count(ctx)
}
