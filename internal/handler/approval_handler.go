package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/models"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
	"github.com/danvolkens/haven-hub-api/pkg/response"
)

type approvalService interface {
	ListPending(ctx context.Context, accountID string, limit int) ([]models.ApprovalItem, error)
	Resolve(ctx context.Context, accountID, id string, req dto.ResolveApprovalRequest) error
}

// ApprovalHandler exposes the human review queue.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// List returns the open queue, flagged items first.
func (h *ApprovalHandler) List(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.service.ListPending(c.Request.Context(), accountID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Resolve records the reviewer's verdict.
func (h *ApprovalHandler) Resolve(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	var req dto.ResolveApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "decision must be approved or rejected"))
		return
	}
	if err := h.service.Resolve(c.Request.Context(), accountID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
