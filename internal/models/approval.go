package models

import (
	"time"

	"github.com/lib/pq"
)

// ApprovalStatus tracks a human review queue entry.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// Reference tables an approval item may point at.
const (
	ReferenceAssets  = "assets"
	ReferenceMockups = "mockups"
)

// ApprovalItem references exactly one asset or mockup awaiting review.
// Flagged content carries priority 1 so it surfaces first in the queue.
type ApprovalItem struct {
	ID             string         `db:"id" json:"id"`
	AccountID      string         `db:"account_id" json:"accountId"`
	ItemType       string         `db:"item_type" json:"itemType"`
	ReferenceID    string         `db:"reference_id" json:"referenceId"`
	ReferenceTable string         `db:"reference_table" json:"referenceTable"`
	Payload        []byte         `db:"payload" json:"payload,omitempty"`
	Confidence     float64        `db:"confidence_score" json:"confidenceScore"`
	Flags          pq.StringArray `db:"flags" json:"flags"`
	Priority       int            `db:"priority" json:"priority"`
	Status         ApprovalStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	ResolvedAt     *time.Time     `db:"resolved_at" json:"resolvedAt,omitempty"`
}
