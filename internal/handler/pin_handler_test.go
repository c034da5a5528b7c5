package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/models"
)

type publisherServiceMock struct {
	lastFilter models.PinFilter
	publishRun *dto.PublishRunResponse
	sweepCount int
}

func (m *publisherServiceMock) GetPin(ctx context.Context, accountID, id string) (*models.Pin, error) {
	return &models.Pin{ID: id, AccountID: accountID}, nil
}

func (m *publisherServiceMock) ListPins(ctx context.Context, filter models.PinFilter) ([]models.Pin, error) {
	m.lastFilter = filter
	return nil, nil
}

func (m *publisherServiceMock) PublishDue(ctx context.Context) (*dto.PublishRunResponse, error) {
	return m.publishRun, nil
}

func (m *publisherServiceMock) RetrySweep(ctx context.Context) (int, error) {
	return m.sweepCount, nil
}

func TestPinHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &publisherServiceMock{}
	handler := NewPinHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/pins?status=failed&winner=true&limit=10&offset=20", nil)
	req.Header.Set(accountHeader, "acct-1")
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acct-1", mock.lastFilter.AccountID)
	assert.Equal(t, models.PinStatusFailed, mock.lastFilter.Status)
	require.NotNil(t, mock.lastFilter.IsWinner)
	assert.True(t, *mock.lastFilter.IsWinner)
	assert.Equal(t, 10, mock.lastFilter.Limit)
	assert.Equal(t, 20, mock.lastFilter.Offset)
}

func TestPinHandlerListMissingAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPinHandler(&publisherServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/pins", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPinHandlerRetrySweep(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &publisherServiceMock{sweepCount: 4}
	handler := NewPinHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/pins/retry-sweep", nil)
	c.Request = req

	handler.RetrySweep(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rescheduled":4`)
}
