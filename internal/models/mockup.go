package models

import "time"

// MockupStatus tracks an asset composited into a scene.
type MockupStatus string

const (
	MockupStatusPending    MockupStatus = "pending"
	MockupStatusProcessing MockupStatus = "processing"
	MockupStatusReady      MockupStatus = "ready"
	MockupStatusApproved   MockupStatus = "approved"
	MockupStatusFailed     MockupStatus = "failed"
)

// Mockup is one rendered composite of an approved asset onto a scene.
type Mockup struct {
	ID          string       `db:"id" json:"id"`
	AccountID   string       `db:"account_id" json:"accountId"`
	AssetID     string       `db:"asset_id" json:"assetId"`
	QuoteID     *string      `db:"quote_id" json:"quoteId,omitempty"`
	Scene       string       `db:"scene" json:"scene"`
	FileURL     string       `db:"file_url" json:"fileUrl"`
	FileKey     *string      `db:"file_key" json:"fileKey,omitempty"`
	Status      MockupStatus `db:"status" json:"status"`
	CreditsUsed int          `db:"credits_used" json:"creditsUsed"`
	LastError   *string      `db:"last_error" json:"lastError,omitempty"`
	ApprovedAt  *time.Time   `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// SceneTemplate maps a scene key onto the external provider's template.
type SceneTemplate struct {
	ID          string `db:"id" json:"id"`
	AccountID   *string `db:"account_id" json:"accountId,omitempty"`
	SceneKey    string `db:"scene_key" json:"sceneKey"`
	Name        string `db:"name" json:"name"`
	TemplateID  string `db:"template_id" json:"templateId"`
	SmartObject string `db:"smart_object" json:"smartObject"`
	Width       int    `db:"width" json:"width"`
	Height      int    `db:"height" json:"height"`
	IsActive    bool   `db:"is_active" json:"isActive"`
}
