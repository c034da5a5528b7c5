package models

import "time"

// Credential providers and types recognised by the pipeline.
const (
	ProviderPinterest = "pinterest"

	CredentialAccessToken = "access_token"
)

// Credential is a stored third-party secret for an account.
type Credential struct {
	ID             string     `db:"id" json:"id"`
	AccountID      string     `db:"account_id" json:"accountId"`
	Provider       string     `db:"provider" json:"provider"`
	CredentialType string     `db:"credential_type" json:"credentialType"`
	Value          string     `db:"value" json:"-"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}
