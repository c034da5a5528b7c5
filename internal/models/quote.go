package models

import "time"

// QuoteStatus tracks a quote through asset generation.
type QuoteStatus string

const (
	QuoteStatusDraft      QuoteStatus = "draft"
	QuoteStatusGenerating QuoteStatus = "generating"
	QuoteStatusActive     QuoteStatus = "active"
)

// Collection is the closed categorical tag partitioning quotes and pins.
type Collection string

const (
	CollectionGrowth        Collection = "growth"
	CollectionCalm          Collection = "calm"
	CollectionHome          Collection = "home"
	CollectionGratitude     Collection = "gratitude"
	CollectionSeasonal      Collection = "seasonal"
	CollectionUncategorized Collection = "uncategorized"
)

// Quote is the editorial source unit for rendered assets.
type Quote struct {
	ID              string      `db:"id" json:"id"`
	AccountID       string      `db:"account_id" json:"accountId"`
	Text            string      `db:"text" json:"text"`
	Attribution     *string     `db:"attribution" json:"attribution,omitempty"`
	Collection      Collection  `db:"collection" json:"collection"`
	Mood            *string     `db:"mood" json:"mood,omitempty"`
	Status          QuoteStatus `db:"status" json:"status"`
	AssetsGenerated int         `db:"assets_generated" json:"assetsGenerated"`
	MasterImageURL  *string     `db:"master_image_url" json:"masterImageUrl,omitempty"`
	MasterImageKey  *string     `db:"master_image_key" json:"masterImageKey,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updatedAt"`
}
