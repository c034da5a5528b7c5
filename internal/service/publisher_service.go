package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/events"
	"github.com/danvolkens/haven-hub-api/internal/models"
	"github.com/danvolkens/haven-hub-api/internal/pinterest"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
)

type pinStore interface {
	GetByID(ctx context.Context, id string) (*models.Pin, error)
	List(ctx context.Context, filter models.PinFilter) ([]models.Pin, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Pin, error)
	ListRetryable(ctx context.Context, cutoff time.Time, maxRetries, limit int) ([]models.Pin, error)
	ClaimForPublishing(ctx context.Context, id string) (bool, error)
	MarkPublished(ctx context.Context, id, externalID string, at time.Time) error
	MarkFailed(ctx context.Context, id, errMessage string) error
	ResetForRetry(ctx context.Context, id string, maxRetries int) (bool, error)
	AppendHistory(ctx context.Context, entry *models.PinScheduleHistory) error
}

type integrationStore interface {
	GetBoard(ctx context.Context, accountID, id string) (*models.Board, error)
	GetCredential(ctx context.Context, accountID, provider, credentialType string) (*models.Credential, error)
}

type pinCreator interface {
	CreatePin(ctx context.Context, accessToken string, req pinterest.CreatePinRequest) (*pinterest.CreatePinResponse, error)
}

// PublisherConfig governs the publish and retry schedules.
type PublisherConfig struct {
	PublishInterval time.Duration
	BatchSize       int
	RetryInterval   time.Duration
	RetryCooldown   time.Duration
	MaxRetries      int
}

// PublisherService drives scheduled pins through the external publish API.
type PublisherService struct {
	pins         pinStore
	integrations integrationStore
	client       pinCreator
	emitter      eventEmitter
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          PublisherConfig
}

// NewPublisherService constructs the publisher.
func NewPublisherService(
	pins pinStore,
	integrations integrationStore,
	client pinCreator,
	emitter eventEmitter,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg PublisherConfig,
) *PublisherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryCooldown <= 0 {
		cfg.RetryCooldown = 6 * time.Hour
	}
	return &PublisherService{
		pins:         pins,
		integrations: integrations,
		client:       client,
		emitter:      emitter,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
	}
}

// GetPin returns one pin scoped to its account.
func (s *PublisherService) GetPin(ctx context.Context, accountID, id string) (*models.Pin, error) {
	pin, err := s.pins.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pin not found")
	}
	if pin.AccountID != accountID {
		return nil, appErrors.ErrNotFound
	}
	return pin, nil
}

// ListPins returns pins matching the filter.
func (s *PublisherService) ListPins(ctx context.Context, filter models.PinFilter) ([]models.Pin, error) {
	pins, err := s.pins.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pins")
	}
	return pins, nil
}

// PublishDue claims and publishes every pin whose schedule has passed. A pin
// that fails never stops the rest of the batch.
func (s *PublisherService) PublishDue(ctx context.Context) (*dto.PublishRunResponse, error) {
	due, err := s.pins.ListDue(ctx, time.Now().UTC(), s.cfg.BatchSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due pins")
	}

	resp := &dto.PublishRunResponse{Due: len(due)}
	for i := range due {
		pin := due[i]
		claimed, err := s.pins.ClaimForPublishing(ctx, pin.ID)
		if err != nil {
			s.logger.Sugar().Warnw("pin claim failed", "pin_id", pin.ID, "error", err)
			resp.Skipped++
			continue
		}
		if !claimed {
			// another run got there first
			resp.Skipped++
			continue
		}
		if s.publishOne(ctx, &pin) {
			resp.Published++
		} else {
			resp.Failed++
		}
	}
	return resp, nil
}

// publishOne pushes a claimed pin through the external API. Returns true on
// success.
func (s *PublisherService) publishOne(ctx context.Context, pin *models.Pin) bool {
	// An external id already stored means a previous attempt succeeded but the
	// row transition was lost. Never publish the same pin twice.
	if pin.PinterestPinID != nil && *pin.PinterestPinID != "" {
		now := time.Now().UTC()
		if err := s.pins.MarkPublished(ctx, pin.ID, *pin.PinterestPinID, now); err != nil {
			s.logger.Sugar().Warnw("republish reconcile failed", "pin_id", pin.ID, "error", err)
			return false
		}
		s.appendHistory(ctx, pin.ID, "publish", "already_published", nil)
		return true
	}

	cred, err := s.integrations.GetCredential(ctx, pin.AccountID, models.ProviderPinterest, models.CredentialAccessToken)
	if err == nil && cred == nil {
		err = appErrors.ErrMissingCredential
	}
	if err != nil {
		s.failPin(ctx, pin, "missing pinterest credential: "+err.Error())
		return false
	}

	board, err := s.integrations.GetBoard(ctx, pin.AccountID, pin.BoardID)
	if err == nil && board == nil {
		err = appErrors.ErrMissingBoard
	}
	if err != nil {
		s.failPin(ctx, pin, "board mapping not found: "+err.Error())
		return false
	}

	req := pinterest.CreatePinRequest{
		BoardID:  board.PinterestBoardID,
		ImageURL: pin.ImageURL,
		Title:    pin.Title,
	}
	if pin.Description != nil {
		req.Description = *pin.Description
	}
	if pin.Link != nil {
		req.Link = *pin.Link
	}
	if pin.AltText != nil {
		req.AltText = *pin.AltText
	}

	result, err := s.client.CreatePin(ctx, cred.Value, req)
	if err != nil {
		s.failPin(ctx, pin, err.Error())
		return false
	}

	now := time.Now().UTC()
	if err := s.pins.MarkPublished(ctx, pin.ID, result.ID, now); err != nil {
		s.logger.Sugar().Errorw("publish succeeded but row update failed",
			"pin_id", pin.ID, "pinterest_pin_id", result.ID, "error", err)
		return false
	}
	s.appendHistory(ctx, pin.ID, "publish", "success", nil)
	s.metrics.RecordPinPublish("published")
	s.emitter.Publish(ctx, events.Event{
		Type:      events.TypePinPublished,
		AccountID: pin.AccountID,
		Payload:   map[string]string{"pinId": pin.ID, "pinterestPinId": result.ID},
	})
	s.logger.Sugar().Infow("pin published", "pin_id", pin.ID, "pinterest_pin_id", result.ID)
	return true
}

func (s *PublisherService) failPin(ctx context.Context, pin *models.Pin, message string) {
	if err := s.pins.MarkFailed(ctx, pin.ID, message); err != nil {
		s.logger.Sugar().Errorw("mark pin failed errored", "pin_id", pin.ID, "error", err)
	}
	s.appendHistory(ctx, pin.ID, "publish", "failure", &message)
	s.metrics.RecordPinPublish("failed")
	s.logger.Sugar().Warnw("pin publish failed", "pin_id", pin.ID, "error", message)
}

// RetrySweep moves cooled-down failed pins back onto the schedule while they
// still have retry budget.
func (s *PublisherService) RetrySweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.RetryCooldown)
	failed, err := s.pins.ListRetryable(ctx, cutoff, s.cfg.MaxRetries, s.cfg.BatchSize)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retryable pins")
	}

	reset := 0
	for _, pin := range failed {
		ok, err := s.pins.ResetForRetry(ctx, pin.ID, s.cfg.MaxRetries)
		if err != nil {
			s.logger.Sugar().Warnw("pin retry reset failed", "pin_id", pin.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		s.appendHistory(ctx, pin.ID, "retry", "rescheduled", nil)
		reset++
	}
	if reset > 0 {
		s.logger.Sugar().Infow("failed pins rescheduled", "count", reset)
	}
	return reset, nil
}

// StartSchedulers boots the publish and retry loops.
func (s *PublisherService) StartSchedulers(ctx context.Context) {
	if s.cfg.PublishInterval > 0 {
		ticker := time.NewTicker(s.cfg.PublishInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := s.PublishDue(ctx); err != nil {
						s.logger.Sugar().Warnw("publish sweep failed", "error", err)
					}
				}
			}
		}()
	}
	if s.cfg.RetryInterval > 0 {
		ticker := time.NewTicker(s.cfg.RetryInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := s.RetrySweep(ctx); err != nil {
						s.logger.Sugar().Warnw("retry sweep failed", "error", err)
					}
				}
			}
		}()
	}
}

func (s *PublisherService) appendHistory(ctx context.Context, pinID, action, result string, errMessage *string) {
	if err := s.pins.AppendHistory(ctx, &models.PinScheduleHistory{
		PinID:        pinID,
		Action:       action,
		Result:       result,
		ErrorMessage: errMessage,
	}); err != nil {
		s.logger.Sugar().Warnw("history append failed", "pin_id", pinID, "error", err)
	}
}
