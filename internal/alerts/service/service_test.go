package alerts

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-gatekeeper/internal/models"
)

type MockAlertDB struct {
	mock.Mock
}

func (m *MockAlertDB) CreateAlert(ctx context.Context, alert models.RealtimeAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertDB) GetAlertByID(ctx context.Context, id string) (*models.RealtimeAlert, error) {
	args := m.Called(ctx, id)
	if alert, ok := args.Get(0).(*models.RealtimeAlert); ok {
		return alert, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAlertDB) ListUnacknowledged(ctx context.Context, eventID string, since time.Time) ([]models.RealtimeAlert, error) {
	args := m.Called(ctx, eventID, since)
	if alerts, ok := args.Get(0).([]models.RealtimeAlert); ok {
		return alerts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAlertDB) Acknowledge(ctx context.Context, alertID, by string, at time.Time) (bool, error) {
	args := m.Called(ctx, alertID, by, at)
	return args.Bool(0), args.Error(1)
}

type MockAuditWindow struct {
	mock.Mock
}

func (m *MockAuditWindow) PriorOutcomes(ctx context.Context, passID, excludeRecordID string, since time.Time) ([]models.ValidationRecord, error) {
	args := m.Called(ctx, passID, excludeRecordID, since)
	if records, ok := args.Get(0).([]models.ValidationRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) RecordScan(ctx context.Context, passID string) (int64, error) {
	args := m.Called(ctx, passID)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(db *MockAlertDB, audit *MockAuditWindow, tracker *MockTracker) *AlertService {
	var t ScanTracker
	if tracker != nil {
		t = tracker
	}
	return NewAlertService(db, audit, t, nil, nil, 5*time.Minute, 3)
}

func priors(n int) []models.ValidationRecord {
	records := make([]models.ValidationRecord, n)
	for i := range records {
		records[i] = models.ValidationRecord{ID: "prior", Outcome: models.OutcomeSuccess}
	}
	return records
}

func alertOfType(alertType, severity string) interface{} {
	return mock.MatchedBy(func(a models.RealtimeAlert) bool {
		return a.AlertType == alertType && a.Severity == severity
	})
}

func TestRecordOutcomeDuplicateRaisesMedium(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	svc := newTestService(db, audit, nil)

	record := models.ValidationRecord{ID: "rec-2", PassID: "pass-1", Outcome: models.OutcomeDuplicate, RecordedAt: time.Now()}
	audit.On("PriorOutcomes", mock.Anything, "pass-1", "rec-2", mock.Anything).Return(priors(1), nil)
	db.On("CreateAlert", mock.Anything, alertOfType(models.AlertDuplicateEntry, models.SeverityMedium)).Return(nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRecordOutcomeRepeatOffenderRaisesHigh(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	svc := newTestService(db, audit, nil)

	record := models.ValidationRecord{ID: "rec-4", PassID: "pass-1", Outcome: models.OutcomeDuplicate, RecordedAt: time.Now()}
	audit.On("PriorOutcomes", mock.Anything, "pass-1", "rec-4", mock.Anything).Return(priors(3), nil)
	db.On("CreateAlert", mock.Anything, alertOfType(models.AlertDuplicateEntry, models.SeverityHigh)).Return(nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRecordOutcomeFirstSuccessIsQuiet(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	svc := newTestService(db, audit, nil)

	record := models.ValidationRecord{ID: "rec-1", PassID: "pass-1", Outcome: models.OutcomeSuccess, RecordedAt: time.Now()}
	audit.On("PriorOutcomes", mock.Anything, "pass-1", "rec-1", mock.Anything).Return(priors(0), nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
}

func TestRecordOutcomeSuccessWithPriorsRaises(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	svc := newTestService(db, audit, nil)

	// A success landing after earlier attempts in the window is suspicious
	// even though the store admitted it.
	record := models.ValidationRecord{ID: "rec-2", PassID: "pass-1", Outcome: models.OutcomeSuccess, RecordedAt: time.Now()}
	audit.On("PriorOutcomes", mock.Anything, "pass-1", "rec-2", mock.Anything).Return(priors(1), nil)
	db.On("CreateAlert", mock.Anything, alertOfType(models.AlertDuplicateEntry, models.SeverityMedium)).Return(nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRecordOutcomeDeniedRaisesGateViolation(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	svc := newTestService(db, audit, nil)

	record := models.ValidationRecord{ID: "rec-1", PassID: "pass-1", Outcome: models.OutcomeFailed, Reason: "Access denied for this pass category at this gate", RecordedAt: time.Now()}
	db.On("CreateAlert", mock.Anything, alertOfType(models.AlertGateViolation, models.SeverityLow)).Return(nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-vip")
	require.NoError(t, err)
	db.AssertExpectations(t)
	audit.AssertNotCalled(t, "PriorOutcomes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordOutcomeExpiredIsQuiet(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	svc := newTestService(db, audit, nil)

	record := models.ValidationRecord{ID: "rec-1", PassID: "pass-1", Outcome: models.OutcomeExpired, RecordedAt: time.Now()}

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
}

func TestRecordOutcomeRapidScanThreshold(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	tracker := new(MockTracker)
	svc := newTestService(db, audit, tracker)

	record := models.ValidationRecord{ID: "rec-3", PassID: "pass-1", Outcome: models.OutcomeExpired, RecordedAt: time.Now()}
	tracker.On("RecordScan", mock.Anything, "pass-1").Return(int64(3), nil)
	db.On("CreateAlert", mock.Anything, alertOfType(models.AlertSuspiciousActivity, models.SeverityHigh)).Return(nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRecordOutcomeRapidScanRaisedOnlyAtThreshold(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	tracker := new(MockTracker)
	svc := newTestService(db, audit, tracker)

	// Fourth scan in the window: already alerted on the third, stay quiet.
	record := models.ValidationRecord{ID: "rec-4", PassID: "pass-1", Outcome: models.OutcomeExpired, RecordedAt: time.Now()}
	tracker.On("RecordScan", mock.Anything, "pass-1").Return(int64(4), nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
	db.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
}

func TestRecordOutcomeTrackerFailureIsNonFatal(t *testing.T) {
	db := new(MockAlertDB)
	audit := new(MockAuditWindow)
	tracker := new(MockTracker)
	svc := newTestService(db, audit, tracker)

	record := models.ValidationRecord{ID: "rec-1", PassID: "pass-1", Outcome: models.OutcomeSuccess, RecordedAt: time.Now()}
	tracker.On("RecordScan", mock.Anything, "pass-1").Return(int64(0), assert.AnError)
	audit.On("PriorOutcomes", mock.Anything, "pass-1", "rec-1", mock.Anything).Return(priors(0), nil)

	err := svc.RecordOutcome(context.Background(), record, "event-1", "gate-main")
	require.NoError(t, err)
}

func TestAcknowledge(t *testing.T) {
	db := new(MockAlertDB)
	svc := newTestService(db, new(MockAuditWindow), nil)

	db.On("Acknowledge", mock.Anything, "alert-1", "coordinator-1", mock.Anything).Return(true, nil)

	err := svc.Acknowledge(context.Background(), "alert-1", "coordinator-1")
	require.NoError(t, err)
}

func TestAcknowledgeNotFound(t *testing.T) {
	db := new(MockAlertDB)
	svc := newTestService(db, new(MockAuditWindow), nil)

	db.On("Acknowledge", mock.Anything, "alert-missing", "coordinator-1", mock.Anything).Return(false, nil)
	db.On("GetAlertByID", mock.Anything, "alert-missing").Return(nil, sql.ErrNoRows)

	err := svc.Acknowledge(context.Background(), "alert-missing", "coordinator-1")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestAcknowledgeTwice(t *testing.T) {
	db := new(MockAlertDB)
	svc := newTestService(db, new(MockAuditWindow), nil)

	db.On("Acknowledge", mock.Anything, "alert-1", "coordinator-1", mock.Anything).Return(false, nil)
	db.On("GetAlertByID", mock.Anything, "alert-1").Return(&models.RealtimeAlert{ID: "alert-1", IsAcknowledged: true}, nil)

	err := svc.Acknowledge(context.Background(), "alert-1", "coordinator-1")
	assert.ErrorIs(t, err, ErrAlreadyAcknowledged)
}
