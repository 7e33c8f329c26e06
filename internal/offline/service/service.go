package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
	"ms-gatekeeper/internal/resolver"
	"ms-gatekeeper/internal/utils"
)

var ErrEventNotFound = errors.New("event not found")

type OfflineDBLayer interface {
	CreateEntry(ctx context.Context, entry models.OfflineQueueEntry) error
	UpdateEntryStatus(ctx context.Context, id, status string, at time.Time) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

type PassResolver interface {
	Resolve(ctx context.Context, code string) (*models.Pass, error)
}

// Replayer is the validation state machine's offline entry point. Its
// conditional update is what makes batch replay idempotent.
type Replayer interface {
	ApplyOfflineClaim(ctx context.Context, pass *models.Pass, gateID, validatorID, origin, claimedOutcome, message string, claimedAt time.Time) (string, error)
}

type PassStore interface {
	GetPassesByEvent(ctx context.Context, eventID string) ([]models.Pass, error)
	GetCategories(ctx context.Context) (map[string]string, error)
}

type GateStore interface {
	GetGatesByEvent(ctx context.Context, eventID string) ([]models.Gate, error)
}

type KafkaPublisher interface {
	PublishOfflineSynced(validatorID string, result models.OfflineSyncResult) error
}

// OfflineService reconciles validation events captured by disconnected gate
// stations and builds the read-only package those stations validate against.
type OfflineService struct {
	DB       OfflineDBLayer
	Resolver PassResolver
	Replay   Replayer
	Passes   PassStore
	Gates    GateStore
	Kafka    KafkaPublisher
	Logger   *logger.Logger
}

func NewOfflineService(db OfflineDBLayer, res PassResolver, replay Replayer, passes PassStore, gates GateStore, kafka KafkaPublisher, log *logger.Logger) *OfflineService {
	return &OfflineService{
		DB:       db,
		Resolver: res,
		Replay:   replay,
		Passes:   passes,
		Gates:    gates,
		Kafka:    kafka,
		Logger:   log,
	}
}

var validClaims = map[string]bool{
	models.OutcomeSuccess:   true,
	models.OutcomeFailed:    true,
	models.OutcomeDuplicate: true,
	models.OutcomeExpired:   true,
}

// SyncBatch replays a batch of offline validations. Entries are independent:
// one failing never aborts the rest, and replaying the same batch twice
// cannot double-admit because the state transition is a compare-and-set.
func (s *OfflineService) SyncBatch(ctx context.Context, validatorID, origin string, batch []models.OfflineValidation) (*models.OfflineSyncResult, error) {
	result := &models.OfflineSyncResult{
		Entries: make([]models.OfflineEntryResult, 0, len(batch)),
	}

	for _, v := range batch {
		entry := models.OfflineQueueEntry{
			ID:             utils.NewID(),
			PassCode:       v.PassCode,
			GateID:         v.GateID,
			ValidatorID:    validatorID,
			ClaimedOutcome: v.ClaimedOutcome,
			ClaimedAt:      v.ClaimedAt,
			Message:        v.Message,
			SyncStatus:     models.SyncPending,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.DB.CreateEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to persist queue entry: %w", err)
		}

		entryResult := s.syncEntry(ctx, entry, origin)
		if entryResult.SyncStatus == models.SyncSynced {
			result.SyncedCount++
		} else {
			result.FailedCount++
		}
		result.Entries = append(result.Entries, entryResult)
	}

	if s.Logger != nil {
		s.Logger.LogSync("BATCH", fmt.Sprintf("Synced %d validations, %d failed", result.SyncedCount, result.FailedCount))
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishOfflineSynced(validatorID, *result); err != nil && s.Logger != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish sync result: %v", err))
		}
	}

	return result, nil
}

func (s *OfflineService) syncEntry(ctx context.Context, entry models.OfflineQueueEntry, origin string) models.OfflineEntryResult {
	now := time.Now().UTC()

	fail := func(reason string) models.OfflineEntryResult {
		if err := s.DB.UpdateEntryStatus(ctx, entry.ID, models.SyncFailed, now); err != nil && s.Logger != nil {
			s.Logger.Error("SYNC", fmt.Sprintf("Failed to mark entry %s failed: %v", entry.ID, err))
		}
		return models.OfflineEntryResult{
			PassCode:   entry.PassCode,
			SyncStatus: models.SyncFailed,
			Reason:     reason,
		}
	}

	if !validClaims[entry.ClaimedOutcome] {
		return fail(fmt.Sprintf("invalid claimed outcome %q", entry.ClaimedOutcome))
	}

	pass, err := s.Resolver.Resolve(ctx, entry.PassCode)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			return fail("pass not found")
		}
		return fail(fmt.Sprintf("pass resolution failed: %v", err))
	}

	actual, err := s.Replay.ApplyOfflineClaim(ctx, pass, entry.GateID, entry.ValidatorID, origin, entry.ClaimedOutcome, entry.Message, entry.ClaimedAt)
	if err != nil {
		return fail(fmt.Sprintf("replay failed: %v", err))
	}

	if err := s.DB.UpdateEntryStatus(ctx, entry.ID, models.SyncSynced, now); err != nil && s.Logger != nil {
		s.Logger.Error("SYNC", fmt.Sprintf("Failed to mark entry %s synced: %v", entry.ID, err))
	}

	reason := ""
	if actual != entry.ClaimedOutcome {
		reason = fmt.Sprintf("claimed %s, recorded %s", entry.ClaimedOutcome, actual)
	}
	return models.OfflineEntryResult{
		PassCode:      entry.PassCode,
		SyncStatus:    models.SyncSynced,
		ActualOutcome: actual,
		Reason:        reason,
	}
}

// BuildPackage assembles the offline cache for one event: metadata, every
// pass with its current used state, and each gate with its resolved
// allowed-category set.
func (s *OfflineService) BuildPackage(ctx context.Context, eventID string) (*models.OfflinePackage, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("event lookup failed: %w", err)
	}

	passes, err := s.Passes.GetPassesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch passes: %w", err)
	}

	gates, err := s.Gates.GetGatesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gates: %w", err)
	}

	categories, err := s.Passes.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	pkg := &models.OfflinePackage{
		Event: models.OfflineEventMeta{
			ID:        event.ID,
			Name:      event.Name,
			Location:  event.Location,
			StartDate: event.StartDate,
			EndDate:   event.EndDate,
		},
		Passes:     make([]models.OfflinePass, 0, len(passes)),
		Gates:      make([]models.OfflineGate, 0, len(gates)),
		Categories: categories,
		SnapshotAt: time.Now().UTC(),
	}

	for _, p := range passes {
		pkg.Passes = append(pkg.Passes, models.OfflinePass{
			ID:              p.ID,
			PassCode:        p.PassCode,
			ParticipantName: p.ParticipantName,
			CategoryID:      p.CategoryID,
			Used:            p.Used,
			UseCount:        p.UseCount,
		})
	}

	for _, g := range gates {
		allowed := []string{}
		for _, rule := range g.Rules {
			if rule.CanAccess {
				allowed = append(allowed, rule.CategoryID)
			}
		}
		pkg.Gates = append(pkg.Gates, models.OfflineGate{
			ID:                g.ID,
			Name:              g.Name,
			GateType:          g.GateType,
			IsActive:          g.IsActive,
			AllowedCategories: allowed,
		})
	}

	if s.Logger != nil {
		s.Logger.LogSync("PACKAGE", fmt.Sprintf("Built offline package for event %s: %d passes, %d gates", eventID, len(pkg.Passes), len(pkg.Gates)))
	}

	return pkg, nil
}
