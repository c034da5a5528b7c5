package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
	"github.com/danvolkens/haven-hub-api/pkg/response"
)

type mockupService interface {
	GenerateBatch(ctx context.Context, accountID string, req dto.MockupBatchRequest) (*dto.MockupBatchResponse, error)
}

// MockupHandler exposes the mockup batch trigger.
type MockupHandler struct {
	service mockupService
}

// NewMockupHandler constructs the handler.
func NewMockupHandler(service mockupService) *MockupHandler {
	return &MockupHandler{service: service}
}

// Generate composites every requested asset-scene pair.
func (h *MockupHandler) Generate(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	var req dto.MockupBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mockup batch payload"))
		return
	}
	resp, err := h.service.GenerateBatch(c.Request.Context(), accountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
