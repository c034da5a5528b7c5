package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danvolkens/haven-hub-api/internal/models"
	"github.com/danvolkens/haven-hub-api/internal/pinterest"
)

type pinStoreStub struct {
	pins    map[string]*models.Pin
	history []models.PinScheduleHistory
}

func newPinStoreStub(pins ...*models.Pin) *pinStoreStub {
	stub := &pinStoreStub{pins: map[string]*models.Pin{}}
	for _, pin := range pins {
		stub.pins[pin.ID] = pin
	}
	return stub
}

func (p *pinStoreStub) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	pin, ok := p.pins[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return pin, nil
}

func (p *pinStoreStub) List(ctx context.Context, filter models.PinFilter) ([]models.Pin, error) {
	var out []models.Pin
	for _, pin := range p.pins {
		if pin.AccountID == filter.AccountID {
			out = append(out, *pin)
		}
	}
	return out, nil
}

func (p *pinStoreStub) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Pin, error) {
	var due []models.Pin
	for _, pin := range p.pins {
		if pin.Status == models.PinStatusScheduled && pin.ScheduledFor != nil && !pin.ScheduledFor.After(now) {
			due = append(due, *pin)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (p *pinStoreStub) ListRetryable(ctx context.Context, cutoff time.Time, maxRetries, limit int) ([]models.Pin, error) {
	var out []models.Pin
	for _, pin := range p.pins {
		if pin.Status == models.PinStatusFailed && pin.RetryCount < maxRetries && pin.UpdatedAt.Before(cutoff) {
			out = append(out, *pin)
		}
	}
	return out, nil
}

func (p *pinStoreStub) ClaimForPublishing(ctx context.Context, id string) (bool, error) {
	pin := p.pins[id]
	if pin.Status != models.PinStatusScheduled {
		return false, nil
	}
	pin.Status = models.PinStatusPublishing
	return true, nil
}

func (p *pinStoreStub) MarkPublished(ctx context.Context, id, externalID string, at time.Time) error {
	pin := p.pins[id]
	pin.Status = models.PinStatusPublished
	pin.PinterestPinID = &externalID
	pin.PublishedAt = &at
	pin.LastError = nil
	return nil
}

func (p *pinStoreStub) MarkFailed(ctx context.Context, id, errMessage string) error {
	pin := p.pins[id]
	pin.Status = models.PinStatusFailed
	pin.LastError = &errMessage
	pin.RetryCount++
	pin.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *pinStoreStub) ResetForRetry(ctx context.Context, id string, maxRetries int) (bool, error) {
	pin := p.pins[id]
	if pin.Status != models.PinStatusFailed || pin.RetryCount >= maxRetries {
		return false, nil
	}
	pin.Status = models.PinStatusScheduled
	pin.LastError = nil
	return true, nil
}

func (p *pinStoreStub) AppendHistory(ctx context.Context, entry *models.PinScheduleHistory) error {
	p.history = append(p.history, *entry)
	return nil
}

type integrationStub struct {
	boards      map[string]*models.Board
	credentials map[string]*models.Credential
}

func (i *integrationStub) GetBoard(ctx context.Context, accountID, id string) (*models.Board, error) {
	return i.boards[id], nil
}

func (i *integrationStub) GetCredential(ctx context.Context, accountID, provider, credentialType string) (*models.Credential, error) {
	return i.credentials[accountID], nil
}

type pinCreatorStub struct {
	calls    int
	failFor  map[string]error
	response string
}

func (c *pinCreatorStub) CreatePin(ctx context.Context, accessToken string, req pinterest.CreatePinRequest) (*pinterest.CreatePinResponse, error) {
	c.calls++
	if err, ok := c.failFor[req.Title]; ok {
		return nil, err
	}
	id := c.response
	if id == "" {
		id = "ext-1"
	}
	return &pinterest.CreatePinResponse{ID: id}, nil
}

func scheduledPin(id string, offset time.Duration) *models.Pin {
	at := time.Now().UTC().Add(offset)
	return &models.Pin{
		ID:           id,
		AccountID:    "acct-1",
		BoardID:      "board-1",
		Collection:   models.CollectionCalm,
		ImageURL:     "https://cdn/" + id + ".png",
		Title:        id,
		Status:       models.PinStatusScheduled,
		ScheduledFor: &at,
	}
}

func wiredIntegrations() *integrationStub {
	return &integrationStub{
		boards: map[string]*models.Board{
			"board-1": {ID: "board-1", AccountID: "acct-1", PinterestBoardID: "pb-1"},
		},
		credentials: map[string]*models.Credential{
			"acct-1": {AccountID: "acct-1", Provider: models.ProviderPinterest, CredentialType: models.CredentialAccessToken, Value: "token"},
		},
	}
}

func TestPublishDueRespectsSchedule(t *testing.T) {
	duePin := scheduledPin("pin-due", -time.Hour)
	futurePin := scheduledPin("pin-future", time.Hour)
	store := newPinStoreStub(duePin, futurePin)
	creator := &pinCreatorStub{}

	svc := NewPublisherService(store, wiredIntegrations(), creator, &emitterStub{}, nil, nil, PublisherConfig{})
	resp, err := svc.PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Due)
	require.Equal(t, 1, resp.Published)
	require.Equal(t, models.PinStatusPublished, duePin.Status)
	require.Equal(t, models.PinStatusScheduled, futurePin.Status)
	require.Equal(t, 1, creator.calls)
}

func TestPublishDueFailureDoesNotStopBatch(t *testing.T) {
	bad := scheduledPin("pin-bad", -time.Hour)
	good := scheduledPin("pin-good", -time.Hour)
	store := newPinStoreStub(bad, good)
	creator := &pinCreatorStub{failFor: map[string]error{"pin-bad": errors.New("api error (500)")}}
	emitter := &emitterStub{}

	svc := NewPublisherService(store, wiredIntegrations(), creator, emitter, nil, nil, PublisherConfig{})
	resp, err := svc.PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Published)
	require.Equal(t, 1, resp.Failed)
	require.Equal(t, models.PinStatusFailed, bad.Status)
	require.Equal(t, 1, bad.RetryCount)
	require.NotNil(t, bad.LastError)
	require.Equal(t, models.PinStatusPublished, good.Status)
	require.Len(t, emitter.events, 1)
}

func TestPublishDueMissingCredentialFailsPin(t *testing.T) {
	pin := scheduledPin("pin-1", -time.Minute)
	store := newPinStoreStub(pin)
	integrations := wiredIntegrations()
	integrations.credentials = map[string]*models.Credential{}
	creator := &pinCreatorStub{}

	svc := NewPublisherService(store, integrations, creator, &emitterStub{}, nil, nil, PublisherConfig{})
	resp, err := svc.PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Failed)
	require.Equal(t, models.PinStatusFailed, pin.Status)
	require.Zero(t, creator.calls)
}

func TestPublishDueNeverRepublishesExistingExternalID(t *testing.T) {
	pin := scheduledPin("pin-1", -time.Minute)
	existing := "ext-existing"
	pin.PinterestPinID = &existing
	store := newPinStoreStub(pin)
	creator := &pinCreatorStub{}

	svc := NewPublisherService(store, wiredIntegrations(), creator, &emitterStub{}, nil, nil, PublisherConfig{})
	resp, err := svc.PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Published)
	require.Zero(t, creator.calls)
	require.Equal(t, models.PinStatusPublished, pin.Status)
	require.Equal(t, existing, *pin.PinterestPinID)
}

func TestPublishDueAppendsHistory(t *testing.T) {
	pin := scheduledPin("pin-1", -time.Minute)
	store := newPinStoreStub(pin)

	svc := NewPublisherService(store, wiredIntegrations(), &pinCreatorStub{}, &emitterStub{}, nil, nil, PublisherConfig{})
	_, err := svc.PublishDue(context.Background())
	require.NoError(t, err)
	require.Len(t, store.history, 1)
	require.Equal(t, "publish", store.history[0].Action)
	require.Equal(t, "success", store.history[0].Result)
}

func TestRetrySweepHonorsCooldownAndBudget(t *testing.T) {
	cooled := scheduledPin("pin-cooled", -time.Hour)
	cooled.Status = models.PinStatusFailed
	cooled.RetryCount = 1
	cooled.UpdatedAt = time.Now().UTC().Add(-7 * time.Hour)

	recent := scheduledPin("pin-recent", -time.Hour)
	recent.Status = models.PinStatusFailed
	recent.RetryCount = 1
	recent.UpdatedAt = time.Now().UTC().Add(-time.Hour)

	exhausted := scheduledPin("pin-exhausted", -time.Hour)
	exhausted.Status = models.PinStatusFailed
	exhausted.RetryCount = 3
	exhausted.UpdatedAt = time.Now().UTC().Add(-8 * time.Hour)

	store := newPinStoreStub(cooled, recent, exhausted)
	svc := NewPublisherService(store, wiredIntegrations(), &pinCreatorStub{}, &emitterStub{}, nil, nil, PublisherConfig{
		RetryCooldown: 6 * time.Hour,
		MaxRetries:    3,
	})

	reset, err := svc.RetrySweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, reset)
	require.Equal(t, models.PinStatusScheduled, cooled.Status)
	require.Nil(t, cooled.LastError)
	require.Equal(t, models.PinStatusFailed, recent.Status)
	require.Equal(t, models.PinStatusFailed, exhausted.Status)
}
