package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/maxgro/daybrief/internal/tokenstore"
)

const googleCalendarReadonlyScope = "https://www.googleapis.com/auth/calendar.readonly"

// GoogleConfig holds the OAuth client for the consumer provider.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides the Google OAuth endpoints; tests point it at a mock.
	Endpoint oauth2.Endpoint
}

// GoogleAuthenticator drives the consumer provider's credential lifecycle on
// top of golang.org/x/oauth2. Refresh is not triggered by an explicit expiry
// check: the token source silently refreshes on use, and the authenticator
// intercepts every new token to persist the merged credential and notify
// subscribers.
type GoogleAuthenticator struct {
	cfg    *oauth2.Config
	store  tokenstore.Store
	logger *slog.Logger

	mu            sync.Mutex
	token         *oauth2.Token
	source        oauth2.TokenSource
	authenticated bool
	handlers      []func(Credential)
}

// NewGoogleAuthenticator creates the consumer authenticator. It starts
// unauthenticated; call AuthenticateSilent or Exchange to obtain a credential.
func NewGoogleAuthenticator(cfg GoogleConfig, store tokenstore.Store, logger *slog.Logger) *GoogleAuthenticator {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &GoogleAuthenticator{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{googleCalendarReadonlyScope},
			Endpoint:     endpoint,
		},
		store:  store,
		logger: logger,
	}
}

// AuthorizeURL builds the consent URL. Offline access plus a forced consent
// prompt so Google issues a refresh token even on re-authorization.
func (a *GoogleAuthenticator) AuthorizeURL(state string) string {
	return a.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a credential, persists it and
// marks the session authenticated.
func (a *GoogleAuthenticator) Exchange(ctx context.Context, code string) (*Credential, error) {
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &ExchangeError{
				Provider:   ProviderGoogle,
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("google token exchange: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.persistLocked(ctx, tok); err != nil {
		return nil, err
	}
	a.installLocked(tok)
	a.logger.Info("google authorization complete", "expires_at", tok.Expiry)
	cred := credentialFromToken(tok)
	return &cred, nil
}

// AuthenticateSilent loads the persisted credential at boot. The session is
// only marked authenticated when both access and refresh token are present;
// otherwise it logs and leaves the authenticator unauthenticated. It never
// fails, since boot must not depend on prior authorization.
func (a *GoogleAuthenticator) AuthenticateSilent(ctx context.Context) {
	record, err := a.store.Load(ctx, ProviderGoogle)
	if err != nil {
		a.logger.Info("google: no persisted credential, authorize via /authorize/google", "reason", err)
		return
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(record, tok); err != nil || tok.AccessToken == "" || tok.RefreshToken == "" {
		a.logger.Warn("google: persisted credential is malformed, re-authorization required")
		return
	}

	a.mu.Lock()
	a.installLocked(tok)
	a.mu.Unlock()
	a.logger.Info("google: session restored from persisted credential")
}

// OnCredentialRefreshed subscribes a handler invoked synchronously whenever
// the token source silently obtains a new credential. The handler receives
// the merged credential that was just persisted.
func (a *GoogleAuthenticator) OnCredentialRefreshed(handler func(Credential)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, handler)
}

// Authenticated reports whether a credential is currently held.
func (a *GoogleAuthenticator) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

// AccessToken returns a valid access token, letting the token source refresh
// first when the held one is near expiry.
func (a *GoogleAuthenticator) AccessToken(ctx context.Context) (string, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Token returns a valid oauth2 token. The mutex is held across the source
// call, so concurrent callers hitting a near-expired token trigger exactly
// one refresh; any newly issued token is merged with the last-known
// credential and persisted before being handed out.
func (a *GoogleAuthenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.authenticated {
		return nil, ErrNotAuthenticated
	}

	tok, err := a.source.Token()
	if err != nil {
		a.authenticated = false
		a.token = nil
		a.source = nil
		return nil, &RefreshError{Provider: ProviderGoogle, Err: err}
	}

	if tok.AccessToken != a.token.AccessToken || (tok.RefreshToken != "" && tok.RefreshToken != a.token.RefreshToken) {
		merged := mergeTokens(a.token, tok)
		if err := a.persistLocked(ctx, merged); err != nil {
			return nil, err
		}
		a.token = merged
		a.logger.Info("google: refreshed token saved", "expires_at", merged.Expiry)
		cred := credentialFromToken(merged)
		for _, handler := range a.handlers {
			handler(cred)
		}
		return merged, nil
	}

	return tok, nil
}

// Client returns an HTTP client whose transport injects tokens obtained
// through Token, so API calls pick up refreshes and trigger persistence.
func (a *GoogleAuthenticator) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, contextTokenSource{ctx: ctx, auth: a})
}

// installLocked replaces the held token and rebuilds the refreshing source.
func (a *GoogleAuthenticator) installLocked(tok *oauth2.Token) {
	a.token = tok
	a.source = a.cfg.TokenSource(context.Background(), tok)
	a.authenticated = true
}

// persistLocked mirrors the credential to the store in the provider SDK's
// native token shape.
func (a *GoogleAuthenticator) persistLocked(ctx context.Context, tok *oauth2.Token) error {
	record, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal google credential: %w", err)
	}
	if err := a.store.Save(ctx, ProviderGoogle, record); err != nil {
		return fmt.Errorf("persist google credential: %w", err)
	}
	return nil
}

// mergeTokens overlays a freshly issued token on the last-known one: new
// fields win, fields the refresh response omits are preserved.
func mergeTokens(prev, next *oauth2.Token) *oauth2.Token {
	merged := *next
	if merged.RefreshToken == "" {
		merged.RefreshToken = prev.RefreshToken
	}
	if merged.TokenType == "" {
		merged.TokenType = prev.TokenType
	}
	return &merged
}

func credentialFromToken(tok *oauth2.Token) Credential {
	return Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// contextTokenSource adapts GoogleAuthenticator.Token to oauth2.TokenSource
// for a single request context.
type contextTokenSource struct {
	ctx  context.Context
	auth *GoogleAuthenticator
}

func (s contextTokenSource) Token() (*oauth2.Token, error) {
	return s.auth.Token(s.ctx)
}
