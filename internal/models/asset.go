package models

import (
	"time"

	"github.com/lib/pq"
)

// AssetStatus tracks reviewer state for a rendered asset.
type AssetStatus string

const (
	AssetStatusPending  AssetStatus = "pending"
	AssetStatusApproved AssetStatus = "approved"
	AssetStatusRejected AssetStatus = "rejected"
)

// AssetFormat names a target output size.
type AssetFormat struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DefaultAssetFormats are the sizes generated when a request names none.
var DefaultAssetFormats = []AssetFormat{
	{Name: "pinterest_standard", Width: 1000, Height: 1500},
	{Name: "instagram_square", Width: 1080, Height: 1080},
	{Name: "story", Width: 1080, Height: 1920},
}

// Asset is one rendered image for one quote at one output format.
type Asset struct {
	ID               string         `db:"id" json:"id"`
	AccountID        string         `db:"account_id" json:"accountId"`
	QuoteID          string         `db:"quote_id" json:"quoteId"`
	Format           string         `db:"format" json:"format"`
	Width            int            `db:"width" json:"width"`
	Height           int            `db:"height" json:"height"`
	FileURL          string         `db:"file_url" json:"fileUrl"`
	FileKey          string         `db:"file_key" json:"fileKey"`
	ScoreReadability float64        `db:"score_readability" json:"scoreReadability"`
	ScoreContrast    float64        `db:"score_contrast" json:"scoreContrast"`
	ScoreComposition float64        `db:"score_composition" json:"scoreComposition"`
	ScoreOverall     float64        `db:"score_overall" json:"scoreOverall"`
	Flags            pq.StringArray `db:"flags" json:"flags"`
	FlagReasons      []byte         `db:"flag_reasons" json:"flagReasons,omitempty"`
	Status           AssetStatus    `db:"status" json:"status"`
	ApprovedAt       *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}
