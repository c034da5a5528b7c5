package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/models"
)

type approvalStoreStub struct {
	items map[string]*models.ApprovalItem
}

func newApprovalStoreStub() *approvalStoreStub {
	return &approvalStoreStub{items: map[string]*models.ApprovalItem{}}
}

func (a *approvalStoreStub) Create(ctx context.Context, item *models.ApprovalItem) (bool, error) {
	for _, existing := range a.items {
		if existing.ReferenceTable == item.ReferenceTable &&
			existing.ReferenceID == item.ReferenceID &&
			existing.Status == models.ApprovalStatusPending {
			return false, nil
		}
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.ApprovalStatusPending
	}
	a.items[item.ID] = item
	return true, nil
}

func (a *approvalStoreStub) ListPending(ctx context.Context, accountID string, limit int) ([]models.ApprovalItem, error) {
	var out []models.ApprovalItem
	for _, item := range a.items {
		if item.AccountID == accountID && item.Status == models.ApprovalStatusPending {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (a *approvalStoreStub) Resolve(ctx context.Context, id string, status models.ApprovalStatus, at time.Time) error {
	item := a.items[id]
	item.Status = status
	item.ResolvedAt = &at
	return nil
}

func (a *approvalStoreStub) GetByID(ctx context.Context, id string) (*models.ApprovalItem, error) {
	item, ok := a.items[id]
	if !ok {
		return nil, nil
	}
	return item, nil
}

type verdictRecorder struct {
	applied map[string]bool
}

func (v *verdictRecorder) apply(ctx context.Context, id string, approved bool, at time.Time) error {
	if v.applied == nil {
		v.applied = map[string]bool{}
	}
	v.applied[id] = approved
	return nil
}

func newApprovalServiceForTest(settings *models.OperatorSettings) (*ApprovalService, *approvalStoreStub, *verdictRecorder) {
	store := newApprovalStoreStub()
	verdicts := &verdictRecorder{}
	svc := NewApprovalService(store, &settingsStub{settings: settings}, 0.8, nil)
	svc.RegisterApplier(models.ReferenceAssets, verdicts.apply)
	return svc, store, verdicts
}

func TestRouteAssistedAutoApprovesCleanHighConfidence(t *testing.T) {
	svc, store, verdicts := newApprovalServiceForTest(&models.OperatorSettings{GlobalMode: models.ModeAssisted})

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-1",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.9,
	})
	require.NoError(t, err)
	require.True(t, result.AutoApproved)
	require.False(t, result.Queued)
	require.True(t, verdicts.applied["asset-1"])
	require.Empty(t, store.items)
}

func TestRouteAssistedQueuesFlaggedDespiteConfidence(t *testing.T) {
	svc, store, verdicts := newApprovalServiceForTest(&models.OperatorSettings{GlobalMode: models.ModeAssisted})

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-2",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.95,
		Flags:          []string{"low_contrast"},
	})
	require.NoError(t, err)
	require.True(t, result.Queued)
	require.Empty(t, verdicts.applied)
	require.Len(t, store.items, 1)
	for _, item := range store.items {
		require.Equal(t, 1, item.Priority)
	}
}

func TestRouteAssistedQueuesBelowThreshold(t *testing.T) {
	svc, store, _ := newApprovalServiceForTest(&models.OperatorSettings{GlobalMode: models.ModeAssisted})

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-3",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.7,
	})
	require.NoError(t, err)
	require.True(t, result.Queued)
	require.Len(t, store.items, 1)
	for _, item := range store.items {
		require.Equal(t, 0, item.Priority)
	}
}

func TestRouteManualQueuesEverything(t *testing.T) {
	svc, store, verdicts := newApprovalServiceForTest(&models.OperatorSettings{GlobalMode: models.ModeManual})

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-4",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     1.0,
	})
	require.NoError(t, err)
	require.True(t, result.Queued)
	require.Empty(t, verdicts.applied)
	require.Len(t, store.items, 1)
}

func TestRouteAutonomousApprovesUnconditionally(t *testing.T) {
	svc, store, verdicts := newApprovalServiceForTest(&models.OperatorSettings{GlobalMode: models.ModeAutonomous})

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-5",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.4,
	})
	require.NoError(t, err)
	require.True(t, result.AutoApproved)
	require.True(t, verdicts.applied["asset-5"])

	// even flagged low-confidence artifacts bypass the queue
	result, err = svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-6",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.3,
		Flags:          []string{"low_contrast"},
	})
	require.NoError(t, err)
	require.True(t, result.AutoApproved)
	require.False(t, result.Queued)
	require.True(t, verdicts.applied["asset-6"])
	require.Empty(t, store.items)
}

func TestRouteModuleOverrideBeatsGlobalMode(t *testing.T) {
	svc, store, _ := newApprovalServiceForTest(&models.OperatorSettings{
		GlobalMode:      models.ModeAutonomous,
		ModuleOverrides: []byte(`{"assets":"manual"}`),
	})

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-7",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     1.0,
	})
	require.NoError(t, err)
	require.True(t, result.Queued)
	require.Len(t, store.items, 1)
}

func TestRouteDefaultsToAssistedWithoutSettings(t *testing.T) {
	svc, store, verdicts := newApprovalServiceForTest(nil)

	result, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-8",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.85,
	})
	require.NoError(t, err)
	require.True(t, result.AutoApproved)
	require.True(t, verdicts.applied["asset-8"])
	require.Empty(t, store.items)
}

func TestResolveAppliesVerdictAndClosesItem(t *testing.T) {
	svc, store, verdicts := newApprovalServiceForTest(&models.OperatorSettings{GlobalMode: models.ModeManual})

	_, err := svc.Route(context.Background(), RouteInput{
		AccountID:      "acct-1",
		ItemType:       "asset",
		ReferenceID:    "asset-9",
		ReferenceTable: models.ReferenceAssets,
		Module:         models.ModuleAssets,
		Confidence:     0.9,
	})
	require.NoError(t, err)

	var itemID string
	for id := range store.items {
		itemID = id
	}
	require.NoError(t, svc.Resolve(context.Background(), "acct-1", itemID, dto.ResolveApprovalRequest{Decision: "rejected"}))
	require.False(t, verdicts.applied["asset-9"])
	require.Equal(t, models.ApprovalStatusRejected, store.items[itemID].Status)

	err = svc.Resolve(context.Background(), "acct-1", itemID, dto.ResolveApprovalRequest{Decision: "approved"})
	require.Error(t, err)
}
