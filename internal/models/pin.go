package models

import "time"

// PinStatus is the publish state machine:
// draft -> scheduled -> publishing -> published, with publishing -> failed on
// error and failed -> scheduled on a bounded retry.
type PinStatus string

const (
	PinStatusDraft      PinStatus = "draft"
	PinStatusScheduled  PinStatus = "scheduled"
	PinStatusPublishing PinStatus = "publishing"
	PinStatusPublished  PinStatus = "published"
	PinStatusFailed     PinStatus = "failed"
)

// Pin is a scheduled publishable unit referencing a board and an asset or mockup.
type Pin struct {
	ID             string     `db:"id" json:"id"`
	AccountID      string     `db:"account_id" json:"accountId"`
	BoardID        string     `db:"board_id" json:"boardId"`
	AssetID        *string    `db:"asset_id" json:"assetId,omitempty"`
	MockupID       *string    `db:"mockup_id" json:"mockupId,omitempty"`
	Collection     Collection `db:"collection" json:"collection"`
	ImageURL       string     `db:"image_url" json:"imageUrl"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description,omitempty"`
	Link           *string    `db:"link" json:"link,omitempty"`
	AltText        *string    `db:"alt_text" json:"altText,omitempty"`
	ScheduledFor   *time.Time `db:"scheduled_for" json:"scheduledFor,omitempty"`
	Status         PinStatus  `db:"status" json:"status"`
	RetryCount     int        `db:"retry_count" json:"retryCount"`
	LastError      *string    `db:"last_error" json:"lastError,omitempty"`
	PinterestPinID *string    `db:"pinterest_pin_id" json:"pinterestPinId,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"publishedAt,omitempty"`
	IsWinner       bool       `db:"is_winner" json:"isWinner"`
	Impressions    int        `db:"impressions" json:"impressions"`
	Saves          int        `db:"saves" json:"saves"`
	Clicks         int        `db:"clicks" json:"clicks"`
	EngagementRate float64    `db:"engagement_rate" json:"engagementRate"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// PinScheduleHistory records every publish attempt outcome for audit.
type PinScheduleHistory struct {
	ID           string    `db:"id" json:"id"`
	PinID        string    `db:"pin_id" json:"pinId"`
	Action       string    `db:"action" json:"action"`
	Result       string    `db:"result" json:"result"`
	ErrorMessage *string   `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Board maps an internal board row onto its external Pinterest identifier.
type Board struct {
	ID               string `db:"id" json:"id"`
	AccountID        string `db:"account_id" json:"accountId"`
	Name             string `db:"name" json:"name"`
	PinterestBoardID string `db:"pinterest_board_id" json:"pinterestBoardId"`
}

// PinFilter constrains pin listing queries.
type PinFilter struct {
	AccountID string
	Status    PinStatus
	IsWinner  *bool
	Limit     int
	Offset    int
}
