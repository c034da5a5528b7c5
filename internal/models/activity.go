package models

import "time"

// ActivityLog is one audit entry emitted by the pipeline.
type ActivityLog struct {
	ID             string    `db:"id" json:"id"`
	AccountID      string    `db:"account_id" json:"accountId"`
	ActionType     string    `db:"action_type" json:"actionType"`
	Details        []byte    `db:"details" json:"details,omitempty"`
	Module         string    `db:"module" json:"module"`
	ReferenceID    *string   `db:"reference_id" json:"referenceId,omitempty"`
	ReferenceTable *string   `db:"reference_table" json:"referenceTable,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// RetryTask is a generic deferred-retry queue entry for failed operations
// outside the pin publish loop (e.g. mockup renders).
type RetryTask struct {
	ID             string    `db:"id" json:"id"`
	AccountID      string    `db:"account_id" json:"accountId"`
	OperationType  string    `db:"operation_type" json:"operationType"`
	Payload        []byte    `db:"payload" json:"payload,omitempty"`
	LastError      string    `db:"last_error" json:"lastError"`
	ReferenceID    string    `db:"reference_id" json:"referenceId"`
	ReferenceTable string    `db:"reference_table" json:"referenceTable"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
