package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/mockups"
	"github.com/danvolkens/haven-hub-api/internal/models"
)

type mockupStoreStub struct {
	mockups   map[string]*models.Mockup
	templates []models.SceneTemplate
}

func newMockupStoreStub(templates ...models.SceneTemplate) *mockupStoreStub {
	return &mockupStoreStub{mockups: map[string]*models.Mockup{}, templates: templates}
}

func (m *mockupStoreStub) Create(ctx context.Context, mockup *models.Mockup) error {
	if mockup.ID == "" {
		mockup.ID = uuid.NewString()
	}
	m.mockups[mockup.ID] = mockup
	return nil
}

func (m *mockupStoreStub) GetByID(ctx context.Context, id string) (*models.Mockup, error) {
	mockup, ok := m.mockups[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return mockup, nil
}

func (m *mockupStoreStub) UpdateStatus(ctx context.Context, id string, status models.MockupStatus, at time.Time) error {
	m.mockups[id].Status = status
	return nil
}

func (m *mockupStoreStub) MarkReady(ctx context.Context, id, fileURL string, creditsUsed int) error {
	mockup := m.mockups[id]
	mockup.Status = models.MockupStatusReady
	mockup.FileURL = fileURL
	mockup.CreditsUsed = creditsUsed
	return nil
}

func (m *mockupStoreStub) MarkFailed(ctx context.Context, id, errMessage string) error {
	mockup := m.mockups[id]
	mockup.Status = models.MockupStatusFailed
	mockup.LastError = &errMessage
	return nil
}

func (m *mockupStoreStub) ListSceneTemplates(ctx context.Context, accountID string, sceneKeys []string) ([]models.SceneTemplate, error) {
	return m.templates, nil
}

type assetStoreStub struct {
	assets map[string]*models.Asset
}

func (a *assetStoreStub) Create(ctx context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	a.assets[asset.ID] = asset
	return nil
}

func (a *assetStoreStub) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	asset, ok := a.assets[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return asset, nil
}

func (a *assetStoreStub) ListByIDs(ctx context.Context, accountID string, ids []string) ([]models.Asset, error) {
	var out []models.Asset
	for _, id := range ids {
		if asset, ok := a.assets[id]; ok {
			out = append(out, *asset)
		}
	}
	return out, nil
}

func (a *assetStoreStub) UpdateStatus(ctx context.Context, id string, status models.AssetStatus, at time.Time) error {
	a.assets[id].Status = status
	return nil
}

type sceneRendererStub struct {
	calls   int
	failFor map[string]error
}

func (s *sceneRendererStub) Render(ctx context.Context, req mockups.RenderRequest) (*mockups.RenderResponse, error) {
	s.calls++
	if err, ok := s.failFor[req.TemplateID]; ok {
		return nil, err
	}
	return &mockups.RenderResponse{RenderID: "r-1", ResultURL: "https://renders/" + req.TemplateID + ".png", CreditsUsed: 1}, nil
}

type retryStub struct {
	tasks []models.RetryTask
}

func (r *retryStub) EnqueueRetry(ctx context.Context, task *models.RetryTask) error {
	r.tasks = append(r.tasks, *task)
	return nil
}

type routerStub struct {
	routed []RouteInput
}

func (r *routerStub) Route(ctx context.Context, in RouteInput) (*RouteResult, error) {
	r.routed = append(r.routed, in)
	return &RouteResult{Queued: true}, nil
}

func approvedAsset(id string) *models.Asset {
	return &models.Asset{
		ID:           id,
		AccountID:    "acct-1",
		QuoteID:      "quote-1",
		FileURL:      "https://cdn/" + id + ".png",
		Status:       models.AssetStatusApproved,
		ScoreOverall: 0.9,
	}
}

func sceneTemplate(key string) models.SceneTemplate {
	return models.SceneTemplate{
		ID:          "tpl-" + key,
		SceneKey:    key,
		TemplateID:  "provider-" + key,
		SmartObject: "artwork",
		Width:       1200,
		Height:      900,
		IsActive:    true,
	}
}

func newMockupServiceForTest(store *mockupStoreStub, assets *assetStoreStub, renderer *sceneRendererStub) (*MockupService, *routerStub, *retryStub, *activityStub) {
	router := &routerStub{}
	retries := &retryStub{}
	activity := &activityStub{}
	svc := NewMockupService(store, assets, renderer, router, activity, retries, nil)
	return svc, router, retries, activity
}

func TestGenerateBatchCartesian(t *testing.T) {
	assets := &assetStoreStub{assets: map[string]*models.Asset{
		"asset-1": approvedAsset("asset-1"),
		"asset-2": approvedAsset("asset-2"),
	}}
	store := newMockupStoreStub(sceneTemplate("frame"), sceneTemplate("desk"))
	renderer := &sceneRendererStub{}

	svc, router, _, activity := newMockupServiceForTest(store, assets, renderer)
	resp, err := svc.GenerateBatch(context.Background(), "acct-1", dto.MockupBatchRequest{
		AssetIDs: []string{"asset-1", "asset-2"},
		Scenes:   []string{"frame", "desk"},
	})
	require.NoError(t, err)
	require.Equal(t, 4, resp.Requested)
	require.Equal(t, 4, resp.Succeeded)
	require.Zero(t, resp.Failed)
	require.Equal(t, 4, renderer.calls)
	require.Len(t, router.routed, 4)
	require.Len(t, activity.entries, 4)
	for _, mockup := range store.mockups {
		require.Equal(t, models.MockupStatusReady, mockup.Status)
		require.NotEmpty(t, mockup.FileURL)
	}
}

func TestGenerateBatchPartialFailureQueuesRetryOnce(t *testing.T) {
	assets := &assetStoreStub{assets: map[string]*models.Asset{
		"asset-1": approvedAsset("asset-1"),
	}}
	store := newMockupStoreStub(sceneTemplate("frame"), sceneTemplate("desk"))
	renderer := &sceneRendererStub{failFor: map[string]error{"provider-desk": errors.New("provider timeout")}}

	svc, router, retries, _ := newMockupServiceForTest(store, assets, renderer)
	resp, err := svc.GenerateBatch(context.Background(), "acct-1", dto.MockupBatchRequest{
		AssetIDs: []string{"asset-1"},
		Scenes:   []string{"frame", "desk"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Succeeded)
	require.Equal(t, 1, resp.Failed)

	require.Len(t, retries.tasks, 1)
	task := retries.tasks[0]
	require.Equal(t, "mockup_render", task.OperationType)
	require.Equal(t, "provider timeout", task.LastError)
	require.Contains(t, string(task.Payload), "asset-1")
	require.Contains(t, string(task.Payload), "desk")

	// only the successful pair reaches the approval gate
	require.Len(t, router.routed, 1)

	failed := 0
	for _, mockup := range store.mockups {
		if mockup.Status == models.MockupStatusFailed {
			failed++
			require.NotNil(t, mockup.LastError)
		}
	}
	require.Equal(t, 1, failed)
}

func TestGenerateBatchRejectsUnapprovedAsset(t *testing.T) {
	pending := approvedAsset("asset-1")
	pending.Status = models.AssetStatusPending
	assets := &assetStoreStub{assets: map[string]*models.Asset{"asset-1": pending}}
	store := newMockupStoreStub(sceneTemplate("frame"))

	svc, _, _, _ := newMockupServiceForTest(store, assets, &sceneRendererStub{})
	_, err := svc.GenerateBatch(context.Background(), "acct-1", dto.MockupBatchRequest{
		AssetIDs: []string{"asset-1"},
		Scenes:   []string{"frame"},
	})
	require.Error(t, err)
}

func TestGenerateBatchUnknownSceneFailsPerPair(t *testing.T) {
	assets := &assetStoreStub{assets: map[string]*models.Asset{"asset-1": approvedAsset("asset-1")}}
	store := newMockupStoreStub(sceneTemplate("frame"))
	renderer := &sceneRendererStub{}

	svc, router, retries, _ := newMockupServiceForTest(store, assets, renderer)
	resp, err := svc.GenerateBatch(context.Background(), "acct-1", dto.MockupBatchRequest{
		AssetIDs: []string{"asset-1"},
		Scenes:   []string{"frame", "mantel"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Requested)
	require.Equal(t, 1, resp.Succeeded)
	require.Equal(t, 1, resp.Failed)

	// the known scene still rendered and reached the approval gate
	require.Equal(t, 1, renderer.calls)
	require.Len(t, router.routed, 1)

	require.Len(t, retries.tasks, 1)
	task := retries.tasks[0]
	require.Equal(t, "mockup_render", task.OperationType)
	require.Contains(t, task.LastError, "mantel")
	require.Contains(t, string(task.Payload), "mantel")

	failed := 0
	for _, mockup := range store.mockups {
		if mockup.Status == models.MockupStatusFailed {
			failed++
			require.Equal(t, "mantel", mockup.Scene)
			require.NotNil(t, mockup.LastError)
		}
	}
	require.Equal(t, 1, failed)
}

func TestApplyMockupVerdict(t *testing.T) {
	store := newMockupStoreStub()
	mockup := &models.Mockup{AccountID: "acct-1", AssetID: "asset-1", Scene: "frame", Status: models.MockupStatusReady}
	require.NoError(t, store.Create(context.Background(), mockup))

	assets := &assetStoreStub{assets: map[string]*models.Asset{}}
	svc, _, _, _ := newMockupServiceForTest(store, assets, &sceneRendererStub{})

	require.NoError(t, svc.ApplyMockupVerdict(context.Background(), mockup.ID, true, time.Now().UTC()))
	require.Equal(t, models.MockupStatusApproved, mockup.Status)

	require.NoError(t, svc.ApplyMockupVerdict(context.Background(), mockup.ID, false, time.Now().UTC()))
	require.Equal(t, models.MockupStatusFailed, mockup.Status)
}
