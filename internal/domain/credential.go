package domain

import "time"

// DefaultExpirySkew is subtracted from the provider's stated token lifetime so
// that a credential is treated as expired before the provider rejects it.
const DefaultExpirySkew = 60 * time.Second

// TokenSet is a token response from the identity provider.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scopes       []string
	ExpiresIn    time.Duration
}

// Credential holds the OAuth material stored for a user.
// It is always written as a whole, never field by field.
type Credential struct {
	UserID       string    `json:"user_id" db:"user_id"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	TokenType    string    `json:"token_type" db:"token_type"`
	Scopes       []string  `json:"scopes" db:"scope"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewCredential builds the credential to persist for a token response received at now.
func NewCredential(userID string, tokens *TokenSet, now time.Time, skew time.Duration) *Credential {
	lifetime := tokens.ExpiresIn - skew
	if lifetime < 0 {
		lifetime = 0
	}

	return &Credential{
		UserID:       userID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		Scopes:       tokens.Scopes,
		ExpiresAt:    now.Add(lifetime),
		UpdatedAt:    now,
	}
}

// IsExpired reports whether the access token must be refreshed before use.
func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
