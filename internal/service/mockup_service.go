package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/mockups"
	"github.com/danvolkens/haven-hub-api/internal/models"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
)

type mockupStore interface {
	Create(ctx context.Context, mockup *models.Mockup) error
	GetByID(ctx context.Context, id string) (*models.Mockup, error)
	UpdateStatus(ctx context.Context, id string, status models.MockupStatus, at time.Time) error
	MarkReady(ctx context.Context, id, fileURL string, creditsUsed int) error
	MarkFailed(ctx context.Context, id, errMessage string) error
	ListSceneTemplates(ctx context.Context, accountID string, sceneKeys []string) ([]models.SceneTemplate, error)
}

type retryEnqueuer interface {
	EnqueueRetry(ctx context.Context, task *models.RetryTask) error
}

type sceneRenderer interface {
	Render(ctx context.Context, req mockups.RenderRequest) (*mockups.RenderResponse, error)
}

// MockupService composites approved assets into lifestyle scenes through the
// external render provider.
type MockupService struct {
	mockups   mockupStore
	assets    assetStore
	provider  sceneRenderer
	approvals approvalRouter
	activity  activityLogger
	retries   retryEnqueuer
	logger    *zap.Logger
}

// NewMockupService constructs the service.
func NewMockupService(
	store mockupStore,
	assets assetStore,
	provider sceneRenderer,
	approvals approvalRouter,
	activity activityLogger,
	retries retryEnqueuer,
	logger *zap.Logger,
) *MockupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockupService{
		mockups:   store,
		assets:    assets,
		provider:  provider,
		approvals: approvals,
		activity:  activity,
		retries:   retries,
		logger:    logger,
	}
}

// GenerateBatch composites every asset-scene pair. One failed pair never stops
// the rest of the batch; failures land on the retry queue exactly once.
func (s *MockupService) GenerateBatch(ctx context.Context, accountID string, req dto.MockupBatchRequest) (*dto.MockupBatchResponse, error) {
	assets, err := s.assets.ListByIDs(ctx, accountID, req.AssetIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assets")
	}
	if len(assets) != len(req.AssetIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more assets not found")
	}
	for _, asset := range assets {
		if asset.Status != models.AssetStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("asset %s is not approved", asset.ID))
		}
	}

	templates, err := s.mockups.ListSceneTemplates(ctx, accountID, req.Scenes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scene templates")
	}
	byScene := make(map[string]models.SceneTemplate, len(templates))
	for _, tpl := range templates {
		byScene[tpl.SceneKey] = tpl
	}

	resp := &dto.MockupBatchResponse{Requested: len(assets) * len(req.Scenes)}
	for _, asset := range assets {
		for _, scene := range req.Scenes {
			tpl, ok := byScene[scene]
			if !ok {
				// unknown scene fails this pair only; the rest of the batch runs
				s.failUnknownScene(ctx, accountID, asset, scene)
				resp.Failed++
				continue
			}
			if err := s.renderPair(ctx, accountID, asset, tpl); err != nil {
				resp.Failed++
				continue
			}
			resp.Succeeded++
		}
	}
	return resp, nil
}

func (s *MockupService) failUnknownScene(ctx context.Context, accountID string, asset models.Asset, scene string) {
	reason := fmt.Sprintf("scene template %q not found", scene)
	s.logger.Sugar().Warnw("unknown scene requested", "asset_id", asset.ID, "scene", scene)

	mockup := &models.Mockup{
		AccountID: accountID,
		AssetID:   asset.ID,
		QuoteID:   &asset.QuoteID,
		Scene:     scene,
		Status:    models.MockupStatusProcessing,
	}
	if err := s.mockups.Create(ctx, mockup); err != nil {
		s.logger.Sugar().Warnw("persist mockup failed", "asset_id", asset.ID, "scene", scene, "error", err)
		return
	}
	if err := s.mockups.MarkFailed(ctx, mockup.ID, reason); err != nil {
		s.logger.Sugar().Warnw("mark mockup failed errored", "mockup_id", mockup.ID, "error", err)
	}
	payload, _ := json.Marshal(map[string]string{"assetId": asset.ID, "scene": scene})
	if err := s.retries.EnqueueRetry(ctx, &models.RetryTask{
		AccountID:      accountID,
		OperationType:  "mockup_render",
		Payload:        payload,
		LastError:      reason,
		ReferenceID:    mockup.ID,
		ReferenceTable: models.ReferenceMockups,
	}); err != nil {
		s.logger.Sugar().Warnw("retry enqueue failed", "mockup_id", mockup.ID, "error", err)
	}
}

func (s *MockupService) renderPair(ctx context.Context, accountID string, asset models.Asset, tpl models.SceneTemplate) error {
	mockup := &models.Mockup{
		AccountID: accountID,
		AssetID:   asset.ID,
		QuoteID:   &asset.QuoteID,
		Scene:     tpl.SceneKey,
		Status:    models.MockupStatusProcessing,
	}
	if err := s.mockups.Create(ctx, mockup); err != nil {
		return fmt.Errorf("persist mockup: %w", err)
	}

	result, err := s.provider.Render(ctx, mockups.RenderRequest{
		TemplateID:  tpl.TemplateID,
		SmartObject: tpl.SmartObject,
		ImageURL:    asset.FileURL,
		Width:       tpl.Width,
		Height:      tpl.Height,
	})
	if err != nil {
		s.logger.Sugar().Warnw("scene render failed",
			"mockup_id", mockup.ID, "asset_id", asset.ID, "scene", tpl.SceneKey, "error", err)
		if markErr := s.mockups.MarkFailed(ctx, mockup.ID, err.Error()); markErr != nil {
			s.logger.Sugar().Warnw("mark mockup failed errored", "mockup_id", mockup.ID, "error", markErr)
		}
		payload, _ := json.Marshal(map[string]string{"assetId": asset.ID, "scene": tpl.SceneKey})
		if retryErr := s.retries.EnqueueRetry(ctx, &models.RetryTask{
			AccountID:      accountID,
			OperationType:  "mockup_render",
			Payload:        payload,
			LastError:      err.Error(),
			ReferenceID:    mockup.ID,
			ReferenceTable: models.ReferenceMockups,
		}); retryErr != nil {
			s.logger.Sugar().Warnw("retry enqueue failed", "mockup_id", mockup.ID, "error", retryErr)
		}
		return err
	}

	if err := s.mockups.MarkReady(ctx, mockup.ID, result.ResultURL, result.CreditsUsed); err != nil {
		return fmt.Errorf("mark mockup ready: %w", err)
	}

	details, _ := json.Marshal(map[string]interface{}{
		"assetId": asset.ID, "scene": tpl.SceneKey, "creditsUsed": result.CreditsUsed,
	})
	if err := s.activity.Log(ctx, &models.ActivityLog{
		AccountID:      accountID,
		ActionType:     "mockup_generated",
		Module:         models.ModuleMockups,
		Details:        details,
		ReferenceID:    &mockup.ID,
		ReferenceTable: strPtr(models.ReferenceMockups),
	}); err != nil {
		s.logger.Sugar().Warnw("activity log failed", "mockup_id", mockup.ID, "error", err)
	}

	if _, err := s.approvals.Route(ctx, RouteInput{
		AccountID:      accountID,
		ItemType:       "mockup",
		ReferenceID:    mockup.ID,
		ReferenceTable: models.ReferenceMockups,
		Module:         models.ModuleMockups,
		Confidence:     asset.ScoreOverall,
		Payload:        details,
	}); err != nil {
		s.logger.Sugar().Warnw("approval routing failed", "mockup_id", mockup.ID, "error", err)
	}
	return nil
}

// ApplyMockupVerdict is the approval applier for the mockups table. A rejected
// composite is marked failed so it can be retried with another scene.
func (s *MockupService) ApplyMockupVerdict(ctx context.Context, id string, approved bool, at time.Time) error {
	if approved {
		return s.mockups.UpdateStatus(ctx, id, models.MockupStatusApproved, at)
	}
	return s.mockups.MarkFailed(ctx, id, "rejected by reviewer")
}
