package auth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated means no valid persisted credential exists for the
// provider. Only a manual authorization-code exchange recovers from it.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// ExchangeError is returned when a provider rejects an authorization-code
// exchange. The exchange is not retried.
type ExchangeError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("auth: %s code exchange rejected: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// RefreshError is returned when a refresh-token exchange fails, typically
// because the refresh token expired or was revoked. It is fatal for the
// current request; the authenticator falls back to an unauthenticated state.
type RefreshError struct {
	Provider string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("auth: %s token refresh failed: %v", e.Provider, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
