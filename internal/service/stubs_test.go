package service

import (
	"context"

	"github.com/danvolkens/haven-hub-api/internal/events"
	"github.com/danvolkens/haven-hub-api/internal/models"
)

type activityStub struct {
	entries []models.ActivityLog
}

func (a *activityStub) Log(ctx context.Context, entry *models.ActivityLog) error {
	a.entries = append(a.entries, *entry)
	return nil
}

type emitterStub struct {
	events []events.Event
}

func (e *emitterStub) Publish(ctx context.Context, event events.Event) {
	e.events = append(e.events, event)
}

type settingsStub struct {
	settings *models.OperatorSettings
	err      error
}

func (s *settingsStub) Get(ctx context.Context, accountID string) (*models.OperatorSettings, error) {
	return s.settings, s.err
}
