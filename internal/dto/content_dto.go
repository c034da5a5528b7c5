package dto

import (
	"time"

	"github.com/danvolkens/haven-hub-api/internal/models"
)

// GenerateAssetsRequest triggers rendering for a quote.
type GenerateAssetsRequest struct {
	Formats []string `json:"formats"`
}

// GenerateAssetsResponse acknowledges an accepted render run.
type GenerateAssetsResponse struct {
	QuoteID string `json:"quoteId"`
	Formats int    `json:"formats"`
	Status  string `json:"status"`
}

// MockupBatchRequest triggers compositing for every asset-scene pair.
type MockupBatchRequest struct {
	AssetIDs []string `json:"assetIds" binding:"required,min=1"`
	Scenes   []string `json:"scenes" binding:"required,min=1"`
}

// MockupBatchResponse summarises one compositing run.
type MockupBatchResponse struct {
	Requested int `json:"requested"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ResolveApprovalRequest carries the reviewer's verdict.
type ResolveApprovalRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
}

// WinnerRefreshRequest optionally narrows the ranking run to a pin subset.
type WinnerRefreshRequest struct {
	PinIDs []string `json:"pinIds"`
}

// WinnerRefreshResponse summarises one ranking run.
type WinnerRefreshResponse struct {
	Evaluated   int       `json:"evaluated"`
	Winners     int       `json:"winners"`
	Collections int       `json:"collections"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// PublishRunResponse summarises one publish sweep.
type PublishRunResponse struct {
	Due       int `json:"due"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// WinnerResponse is one ranking row joined with pin metadata.
type WinnerResponse struct {
	Winner models.Winner `json:"winner"`
	Pin    *models.Pin   `json:"pin,omitempty"`
}
