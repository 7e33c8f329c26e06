package validation

import (
	"context"
	"fmt"
	"time"

	gates "ms-gatekeeper/internal/gates/service"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
	"ms-gatekeeper/internal/utils"
)

type PassResolver interface {
	Resolve(ctx context.Context, code string) (*models.Pass, error)
}

type AccessChecker interface {
	CheckAccess(ctx context.Context, pass *models.Pass, gateID string) (gates.Decision, error)
}

type PassDBLayer interface {
	MarkUsed(ctx context.Context, passID string) (bool, error)
}

type AuditDBLayer interface {
	CreateValidationRecord(ctx context.Context, record models.ValidationRecord) error
	CreateGateValidationRecord(ctx context.Context, record models.GateValidationRecord) error
}

// AlertMonitor is notified synchronously after every audit record write. Its
// failures never change a validation verdict.
type AlertMonitor interface {
	RecordOutcome(ctx context.Context, record models.ValidationRecord, eventID, gateID string) error
}

type KafkaPublisher interface {
	PublishValidationRecorded(record models.ValidationRecord) error
}

// ValidationService owns the pass state machine: Unused -> Used, exactly once.
// The whole protocol funnels into PassDBLayer.MarkUsed, whose conditional
// update is the only critical section.
type ValidationService struct {
	Resolver PassResolver
	Access   AccessChecker
	Passes   PassDBLayer
	Audit    AuditDBLayer
	Monitor  AlertMonitor
	Kafka    KafkaPublisher
	Logger   *logger.Logger
}

func NewValidationService(res PassResolver, access AccessChecker, passes PassDBLayer, audit AuditDBLayer, monitor AlertMonitor, kafka KafkaPublisher, log *logger.Logger) *ValidationService {
	return &ValidationService{
		Resolver: res,
		Access:   access,
		Passes:   passes,
		Audit:    audit,
		Monitor:  monitor,
		Kafka:    kafka,
		Logger:   log,
	}
}

// AttemptEntry validates a scanned code at a gate. Once the code resolves to a
// pass, every branch writes exactly one ValidationRecord (plus a gate record
// when a gate was specified) before returning. Unresolvable codes return
// resolver.ErrNotFound with nothing written; a store failure aborts with no
// recorded outcome and the caller must treat the attempt as unknown.
func (s *ValidationService) AttemptEntry(ctx context.Context, code, gateID, validatorID, origin string, now time.Time) (*models.EntryResult, error) {
	pass, err := s.Resolver.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	if pass.IsExpired(now) {
		if err := s.record(ctx, pass, gateID, validatorID, origin, now, models.OutcomeExpired, "Pass expired", false, "Expired pass"); err != nil {
			return nil, err
		}
		return &models.EntryResult{
			Outcome: models.OutcomeExpired,
			Reason:  "Pass expired",
			Pass:    summarize(pass),
		}, nil
	}

	decision, err := s.Access.CheckAccess(ctx, pass, gateID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		reason := fmt.Sprintf("Gate denied: %s", decision.Reason)
		if err := s.record(ctx, pass, gateID, validatorID, origin, now, models.OutcomeFailed, reason, false, decision.Reason); err != nil {
			return nil, err
		}
		return &models.EntryResult{
			Outcome: models.OutcomeFailed,
			Reason:  decision.Reason,
			Pass:    summarize(pass),
		}, nil
	}

	won, err := s.markUsedRetry(ctx, pass.ID)
	if err != nil {
		return nil, fmt.Errorf("pass state transition failed: %w", err)
	}

	if !won {
		if err := s.record(ctx, pass, gateID, validatorID, origin, now, models.OutcomeDuplicate, "Duplicate scan (already used)", false, "Duplicate scan"); err != nil {
			return nil, err
		}
		return &models.EntryResult{
			Outcome: models.OutcomeDuplicate,
			Reason:  "Pass already used",
			Pass:    summarize(pass),
		}, nil
	}

	pass.Used = true
	pass.UseCount++

	if err := s.record(ctx, pass, gateID, validatorID, origin, now, models.OutcomeSuccess, "Pass validated successfully", true, "Entry approved"); err != nil {
		return nil, err
	}
	return &models.EntryResult{
		Approved: true,
		Outcome:  models.OutcomeSuccess,
		Reason:   "Entry approved",
		Pass:     summarize(pass),
	}, nil
}

// ApplyOfflineClaim replays one offline-captured event against the canonical
// store. Only a claimed success attempts the state transition; any other
// claimed outcome is logged as-is. The returned outcome is what the store
// actually settled on, which may differ from the claim.
func (s *ValidationService) ApplyOfflineClaim(ctx context.Context, pass *models.Pass, gateID, validatorID, origin, claimedOutcome, message string, claimedAt time.Time) (string, error) {
	if claimedOutcome != models.OutcomeSuccess {
		reason := message
		if reason == "" {
			reason = fmt.Sprintf("Offline %s replayed", claimedOutcome)
		}
		granted := false
		if err := s.record(ctx, pass, gateID, validatorID, origin, claimedAt, claimedOutcome, reason, granted, reason); err != nil {
			return "", err
		}
		return claimedOutcome, nil
	}

	won, err := s.markUsedRetry(ctx, pass.ID)
	if err != nil {
		return "", fmt.Errorf("pass state transition failed: %w", err)
	}

	if !won {
		if err := s.record(ctx, pass, gateID, validatorID, origin, claimedAt, models.OutcomeDuplicate, "Offline success claim superseded (already used)", false, "Duplicate scan"); err != nil {
			return "", err
		}
		return models.OutcomeDuplicate, nil
	}

	if err := s.record(ctx, pass, gateID, validatorID, origin, claimedAt, models.OutcomeSuccess, "Offline validation synced", true, "Entry approved"); err != nil {
		return "", err
	}
	return models.OutcomeSuccess, nil
}

// markUsedRetry retries the conditional update once on a transient store
// failure. Its inputs are idempotent, so the retry can never double-admit.
func (s *ValidationService) markUsedRetry(ctx context.Context, passID string) (bool, error) {
	won, err := s.Passes.MarkUsed(ctx, passID)
	if err == nil {
		return won, nil
	}
	if s.Logger != nil {
		s.Logger.Warn("VALIDATION", fmt.Sprintf("Conditional update failed, retrying once: %v", err))
	}
	return s.Passes.MarkUsed(ctx, passID)
}

// record appends the audit entries for one attempt and feeds the monitor.
func (s *ValidationService) record(ctx context.Context, pass *models.Pass, gateID, validatorID, origin string, at time.Time, outcome, reason string, granted bool, gateReason string) error {
	rec := models.ValidationRecord{
		ID:          utils.NewID(),
		PassID:      pass.ID,
		ValidatorID: validatorID,
		Outcome:     outcome,
		Reason:      reason,
		Origin:      origin,
		RecordedAt:  at,
	}

	if err := s.Audit.CreateValidationRecord(ctx, rec); err != nil {
		// Retried once; audit completeness must not depend on a transient blip.
		if err = s.Audit.CreateValidationRecord(ctx, rec); err != nil {
			return fmt.Errorf("audit append failed: %w", err)
		}
	}

	if gateID != "" {
		gateRec := models.GateValidationRecord{
			ID:                 utils.NewID(),
			ValidationRecordID: rec.ID,
			GateID:             gateID,
			Granted:            granted,
			Reason:             gateReason,
			CreatedAt:          at,
		}
		if err := s.Audit.CreateGateValidationRecord(ctx, gateRec); err != nil {
			return fmt.Errorf("gate audit append failed: %w", err)
		}
	}

	if s.Logger != nil {
		s.Logger.LogValidation(outcome, pass.PassCode, reason)
	}

	if s.Monitor != nil {
		if err := s.Monitor.RecordOutcome(ctx, rec, pass.EventID, gateID); err != nil && s.Logger != nil {
			s.Logger.Error("ALERT", fmt.Sprintf("Alert monitor failed for record %s: %v", rec.ID, err))
		}
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishValidationRecorded(rec); err != nil && s.Logger != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish validation record %s: %v", rec.ID, err))
		}
	}

	return nil
}

func summarize(pass *models.Pass) *models.PassSummary {
	summary := &models.PassSummary{
		PassID:           pass.ID,
		PassCode:         pass.PassCode,
		ParticipantName:  pass.ParticipantName,
		ParticipantEmail: pass.ParticipantEmail,
		ParticipantPhone: pass.ParticipantPhone,
		CategoryName:     "Unknown",
		EventName:        "Unknown",
		UseCount:         pass.UseCount,
	}
	if pass.Category != nil {
		summary.CategoryName = pass.Category.Name
	}
	if pass.Event != nil {
		summary.EventName = pass.Event.Name
	}
	return summary
}
