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

type publisherService interface {
	GetPin(ctx context.Context, accountID, id string) (*models.Pin, error)
	ListPins(ctx context.Context, filter models.PinFilter) ([]models.Pin, error)
	PublishDue(ctx context.Context) (*dto.PublishRunResponse, error)
	RetrySweep(ctx context.Context) (int, error)
}

// PinHandler exposes pin inspection and the manual publish triggers.
type PinHandler struct {
	service publisherService
}

// NewPinHandler constructs the handler.
func NewPinHandler(service publisherService) *PinHandler {
	return &PinHandler{service: service}
}

// List returns pins for the account, optionally filtered by status.
func (h *PinHandler) List(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	filter := models.PinFilter{
		AccountID: accountID,
		Status:    models.PinStatus(c.Query("status")),
	}
	if raw := c.Query("winner"); raw != "" {
		isWinner := raw == "true"
		filter.IsWinner = &isWinner
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	pins, err := h.service.ListPins(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pins, nil)
}

// Get returns one pin.
func (h *PinHandler) Get(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	pin, err := h.service.GetPin(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pin, nil)
}

// PublishDue runs one publish sweep immediately instead of waiting for the
// scheduler tick.
func (h *PinHandler) PublishDue(c *gin.Context) {
	resp, err := h.service.PublishDue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// RetrySweep reschedules cooled-down failed pins immediately.
func (h *PinHandler) RetrySweep(c *gin.Context) {
	reset, err := h.service.RetrySweep(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"rescheduled": reset}, nil)
}
