package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
	"ms-gatekeeper/internal/utils"
)

var (
	ErrAlertNotFound       = errors.New("alert not found")
	ErrAlreadyAcknowledged = errors.New("alert already acknowledged")
)

type AlertDBLayer interface {
	CreateAlert(ctx context.Context, alert models.RealtimeAlert) error
	GetAlertByID(ctx context.Context, id string) (*models.RealtimeAlert, error)
	ListUnacknowledged(ctx context.Context, eventID string, since time.Time) ([]models.RealtimeAlert, error)
	Acknowledge(ctx context.Context, alertID, by string, at time.Time) (bool, error)
}

type AuditWindow interface {
	PriorOutcomes(ctx context.Context, passID, excludeRecordID string, since time.Time) ([]models.ValidationRecord, error)
}

type ScanTracker interface {
	RecordScan(ctx context.Context, passID string) (int64, error)
}

type KafkaPublisher interface {
	PublishAlertRaised(alert models.RealtimeAlert) error
}

// AlertService derives realtime alerts from the validation stream. Alerts are
// additive: nothing here ever changes a validation verdict.
type AlertService struct {
	DB      AlertDBLayer
	Audit   AuditWindow
	Tracker ScanTracker
	Kafka   KafkaPublisher
	Logger  *logger.Logger

	Window             time.Duration
	RapidScanThreshold int
}

func NewAlertService(db AlertDBLayer, audit AuditWindow, tracker ScanTracker, kafka KafkaPublisher, log *logger.Logger, window time.Duration, rapidScanThreshold int) *AlertService {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if rapidScanThreshold <= 0 {
		rapidScanThreshold = 3
	}
	return &AlertService{
		DB:      db,
		Audit:   audit,
		Tracker: tracker,
		Kafka:   kafka,
		Logger:  log,

		Window:             window,
		RapidScanThreshold: rapidScanThreshold,
	}
}

// RecordOutcome inspects one freshly written audit record. A duplicate
// outcome, or a success with earlier success/duplicate records inside the
// trailing window, raises a duplicate_entry alert whose severity scales with
// the prior count. A denied outcome raises a low gate_violation alert. Scan
// frequency past the threshold raises suspicious_activity.
func (s *AlertService) RecordOutcome(ctx context.Context, record models.ValidationRecord, eventID, gateID string) error {
	if s.Tracker != nil {
		count, err := s.Tracker.RecordScan(ctx, record.PassID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("ALERT", fmt.Sprintf("Scan tracker unavailable: %v", err))
			}
		} else if count == int64(s.RapidScanThreshold) {
			// Raised once, on the scan that crosses the threshold.
			if err := s.raise(ctx, models.RealtimeAlert{
				EventID:   eventID,
				PassID:    record.PassID,
				GateID:    gateID,
				AlertType: models.AlertSuspiciousActivity,
				Severity:  models.SeverityHigh,
				Message:   fmt.Sprintf("Pass scanned %d times within the last %s", count, s.Window),
			}); err != nil {
				return err
			}
		}
	}

	switch record.Outcome {
	case models.OutcomeFailed:
		return s.raise(ctx, models.RealtimeAlert{
			EventID:   eventID,
			PassID:    record.PassID,
			GateID:    gateID,
			AlertType: models.AlertGateViolation,
			Severity:  models.SeverityLow,
			Message:   record.Reason,
		})
	case models.OutcomeSuccess, models.OutcomeDuplicate:
		// fall through to duplicate detection
	default:
		return nil
	}

	priors, err := s.Audit.PriorOutcomes(ctx, record.PassID, record.ID, record.RecordedAt.Add(-s.Window))
	if err != nil {
		return fmt.Errorf("prior outcome lookup failed: %w", err)
	}

	if record.Outcome == models.OutcomeSuccess && len(priors) == 0 {
		return nil
	}

	severity := models.SeverityMedium
	if len(priors) >= 2 {
		severity = models.SeverityHigh
	}

	return s.raise(ctx, models.RealtimeAlert{
		EventID:   eventID,
		PassID:    record.PassID,
		GateID:    gateID,
		AlertType: models.AlertDuplicateEntry,
		Severity:  severity,
		Message:   fmt.Sprintf("Duplicate entry attempt detected (%d prior attempts in window)", len(priors)),
	})
}

func (s *AlertService) raise(ctx context.Context, alert models.RealtimeAlert) error {
	alert.ID = utils.NewID()
	alert.CreatedAt = time.Now().UTC()

	if err := s.DB.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	if s.Logger != nil {
		s.Logger.LogAlert(alert.AlertType, alert.Message)
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishAlertRaised(alert); err != nil && s.Logger != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish alert %s: %v", alert.ID, err))
		}
	}

	return nil
}

// ListAlerts returns an event's unacknowledged alerts since the given time,
// newest first.
func (s *AlertService) ListAlerts(ctx context.Context, eventID string, since time.Time) ([]models.RealtimeAlert, error) {
	return s.DB.ListUnacknowledged(ctx, eventID, since)
}

// Acknowledge marks an alert as handled. It is a conditional update:
// repeating it returns ErrAlreadyAcknowledged rather than rewriting the
// acknowledgement.
func (s *AlertService) Acknowledge(ctx context.Context, alertID, by string) error {
	ok, err := s.DB.Acknowledge(ctx, alertID, by, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("acknowledge failed: %w", err)
	}
	if ok {
		return nil
	}

	if _, err := s.DB.GetAlertByID(ctx, alertID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlertNotFound
		}
		return fmt.Errorf("alert lookup failed: %w", err)
	}
	return ErrAlreadyAcknowledged
}
