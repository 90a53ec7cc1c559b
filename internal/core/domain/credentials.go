package domain

import "time"

// Credential stores a user's provider tokens. At most one record exists per
// user; new exchanges and refreshes upsert into it.
type Credential struct {
	UserID string `json:"user_id"`

	AccessToken  string `json:"-"` // Never serialize
	RefreshToken string `json:"-"` // Never serialize

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialSummary provides a safe view without token material
type CredentialSummary struct {
	UserID          string    `json:"user_id"`
	HasAccessToken  bool      `json:"has_access_token"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToSummary converts a Credential to a CredentialSummary
func (c *Credential) ToSummary() *CredentialSummary {
	return &CredentialSummary{
		UserID:          c.UserID,
		HasAccessToken:  c.AccessToken != "",
		HasRefreshToken: c.RefreshToken != "",
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// CanRefresh reports whether a server-side refresh is possible. Providers only
// issue a refresh token on the first consented authorization; without one the
// user must re-authorize when the access token expires.
func (c *Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}
