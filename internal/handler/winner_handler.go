package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	"github.com/danvolkens/haven-hub-api/internal/models"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
	"github.com/danvolkens/haven-hub-api/pkg/response"
)

type winnerService interface {
	Refresh(ctx context.Context, accountID string, pinIDs []string) (*dto.WinnerRefreshResponse, error)
	List(ctx context.Context, accountID string) ([]models.Winner, error)
	Export(ctx context.Context, accountID, format string) ([]byte, string, error)
}

// WinnerHandler exposes the engagement ranking.
type WinnerHandler struct {
	service winnerService
}

// NewWinnerHandler constructs the handler.
func NewWinnerHandler(service winnerService) *WinnerHandler {
	return &WinnerHandler{service: service}
}

// Refresh recomputes the ranking for the account.
func (h *WinnerHandler) Refresh(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	var req dto.WinnerRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid refresh payload"))
		return
	}
	resp, err := h.service.Refresh(c.Request.Context(), accountID, req.PinIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// List returns the current ranking grouped by collection.
func (h *WinnerHandler) List(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	winners, err := h.service.List(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, winners, nil)
}

// Export streams the ranking as CSV or PDF.
func (h *WinnerHandler) Export(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.service.Export(c.Request.Context(), accountID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("winners-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
