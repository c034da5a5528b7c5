package models

import "time"

// Winner is a fully recomputed ranking row. Rows for an account are always a
// complete replacement of the previous run.
type Winner struct {
	ID           string     `db:"id" json:"id"`
	AccountID    string     `db:"account_id" json:"accountId"`
	PinID        string     `db:"pin_id" json:"pinId"`
	Collection   Collection `db:"collection" json:"collection"`
	Rank         int        `db:"rank" json:"rank"`
	Score        float64    `db:"score" json:"score"`
	Metrics      []byte     `db:"metrics" json:"metrics,omitempty"`
	CalculatedAt time.Time  `db:"calculated_at" json:"calculatedAt"`
}

// WinnerMetrics is the engagement snapshot stored alongside each winner row.
type WinnerMetrics struct {
	Impressions    int     `json:"impressions"`
	Saves          int     `json:"saves"`
	Clicks         int     `json:"clicks"`
	EngagementRate float64 `json:"engagementRate"`
}
