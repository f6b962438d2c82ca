// Package auth owns the credential lifecycle for both calendar providers:
// authorization URL construction, authorization-code exchange, silent
// re-authentication at boot and refresh before expiry. Each authenticator
// mirrors its in-memory credential 1:1 into a tokenstore.Store.
package auth

import "time"

// Provider names, also used as tokenstore keys.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
)

// Credential is the in-memory credential record for a provider.
// It is replaced wholesale on every refresh, never partially updated.
type Credential struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is the absolute instant after which the access token must
	// be treated as invalid.
	ExpiresAt time.Time
}

// expiryBuffer is subtracted from ExpiresAt so a refresh happens before the
// provider actually starts rejecting the access token.
const expiryBuffer = 5 * time.Minute

// Valid reports whether the access token may still be used at instant now,
// leaving the expiry buffer intact.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt.Add(-expiryBuffer))
}
