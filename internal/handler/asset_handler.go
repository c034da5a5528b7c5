package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danvolkens/haven-hub-api/internal/dto"
	appErrors "github.com/danvolkens/haven-hub-api/pkg/errors"
	"github.com/danvolkens/haven-hub-api/pkg/response"
)

type assetService interface {
	GenerateAssets(ctx context.Context, accountID, quoteID string, req dto.GenerateAssetsRequest) (*dto.GenerateAssetsResponse, error)
}

// AssetHandler exposes the asset generation trigger.
type AssetHandler struct {
	service assetService
}

// NewAssetHandler constructs the handler.
func NewAssetHandler(service assetService) *AssetHandler {
	return &AssetHandler{service: service}
}

// Generate queues asset rendering for a quote.
func (h *AssetHandler) Generate(c *gin.Context) {
	accountID := accountFromContext(c)
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
		return
	}
	var req dto.GenerateAssetsRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid generate payload"))
		return
	}
	resp, err := h.service.GenerateAssets(c.Request.Context(), accountID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}
