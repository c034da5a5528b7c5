package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/models"
)

type approvalServiceMock struct {
	listResp   []models.ApprovalItem
	resolveErr error
	resolved   []string
}

func (m *approvalServiceMock) ListPending(ctx context.Context, accountID string, limit int) ([]models.ApprovalItem, error) {
	return m.listResp, nil
}

func (m *approvalServiceMock) Resolve(ctx context.Context, accountID, id string, req dto.ResolveApprovalRequest) error {
	if m.resolveErr != nil {
		return m.resolveErr
	}
	m.resolved = append(m.resolved, id)
	return nil
}

func TestApprovalHandlerListMissingAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApprovalHandler(&approvalServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/approvals", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerResolveInvalidDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &approvalServiceMock{}
	handler := NewApprovalHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ResolveApprovalRequest{Decision: "maybe"})
	req, _ := http.NewRequest(http.MethodPost, "/approvals/item-1/resolve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accountHeader, "acct-1")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "item-1"}}

	handler.Resolve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mock.resolved)
}

func TestApprovalHandlerResolveApproved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &approvalServiceMock{}
	handler := NewApprovalHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ResolveApprovalRequest{Decision: "approved"})
	req, _ := http.NewRequest(http.MethodPost, "/approvals/item-1/resolve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(accountHeader, "acct-1")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "item-1"}}

	handler.Resolve(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"item-1"}, mock.resolved)
}
