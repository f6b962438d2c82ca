package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/maxgro/daybrief/internal/tokenstore"
)

const (
	defaultAuthorityHost = "https://login.microsoftonline.com"
	microsoftScopes      = "offline_access Calendars.Read"
)

// MicrosoftConfig holds the Entra app registration for the enterprise provider.
type MicrosoftConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthorityHost overrides the login authority; tests point it at a mock.
	AuthorityHost string
}

// MicrosoftAuthenticator drives the authorization-code + refresh-token grant
// against the Microsoft identity platform. Refresh is lazy: it happens inside
// AccessToken when the stored credential is inside the expiry buffer, and is
// serialized by a mutex so the refresh token is exchanged exactly once even
// under concurrent callers.
type MicrosoftAuthenticator struct {
	cfg    MicrosoftConfig
	store  tokenstore.Store
	client *http.Client
	logger *slog.Logger

	mu   sync.Mutex
	cred *Credential
}

// microsoftRecord is the persisted token shape; expires_at is Unix milliseconds.
type microsoftRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// tokenResponse is the token endpoint's success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewMicrosoftAuthenticator creates the enterprise authenticator. It starts
// unauthenticated; call AuthenticateSilent or Exchange to obtain a credential.
func NewMicrosoftAuthenticator(cfg MicrosoftConfig, store tokenstore.Store, logger *slog.Logger) *MicrosoftAuthenticator {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = defaultAuthorityHost
	}
	return &MicrosoftAuthenticator{
		cfg:    cfg,
		store:  store,
		client: http.DefaultClient,
		logger: logger,
	}
}

func (a *MicrosoftAuthenticator) authorizeEndpoint() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", a.cfg.AuthorityHost, a.cfg.TenantID)
}

func (a *MicrosoftAuthenticator) tokenEndpoint() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", a.cfg.AuthorityHost, a.cfg.TenantID)
}

// AuthorizeURL builds the consent URL the user is redirected to. It has no
// side effects.
func (a *MicrosoftAuthenticator) AuthorizeURL(state string) string {
	params := url.Values{
		"client_id":     {a.cfg.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {a.cfg.RedirectURL},
		"response_mode": {"query"},
		"scope":         {microsoftScopes},
		"state":         {state},
	}
	return a.authorizeEndpoint() + "?" + params.Encode()
}

// Exchange trades an authorization code for a credential, persists it and
// holds it in memory. A non-2xx token endpoint response surfaces the
// provider's error payload as an ExchangeError.
func (a *MicrosoftAuthenticator) Exchange(ctx context.Context, code string) (*Credential, error) {
	form := url.Values{
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {a.cfg.RedirectURL},
		"grant_type":    {"authorization_code"},
		"scope":         {microsoftScopes},
	}

	tok, status, body, err := a.postTokenForm(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("microsoft token exchange: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &ExchangeError{Provider: ProviderMicrosoft, StatusCode: status, Body: body}
	}

	cred := credentialFromResponse(tok, time.Now())

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.persist(ctx, cred); err != nil {
		return nil, err
	}
	a.cred = &cred
	a.logger.Info("microsoft authorization complete", "expires_at", cred.ExpiresAt)
	return &cred, nil
}

// AuthenticateSilent loads the persisted credential at boot. An absent or
// malformed record leaves the authenticator unauthenticated; it never fails,
// since boot must not depend on prior authorization.
func (a *MicrosoftAuthenticator) AuthenticateSilent(ctx context.Context) {
	record, err := a.store.Load(ctx, ProviderMicrosoft)
	if err != nil {
		a.logger.Info("microsoft: no persisted credential, authorize via /authorize/microsoft", "reason", err)
		return
	}

	var rec microsoftRecord
	if err := json.Unmarshal(record, &rec); err != nil || rec.AccessToken == "" || rec.RefreshToken == "" {
		a.logger.Warn("microsoft: persisted credential is malformed, re-authorization required")
		return
	}

	a.mu.Lock()
	a.cred = &Credential{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    time.UnixMilli(rec.ExpiresAt),
	}
	a.mu.Unlock()
	a.logger.Info("microsoft: session restored from persisted credential")
}

// Authenticated reports whether a credential is currently held.
func (a *MicrosoftAuthenticator) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cred != nil
}

// AccessToken returns a token valid for at least the expiry buffer,
// refreshing first when needed. The mutex is held across the refresh, so
// concurrent callers observing an expired credential trigger exactly one
// refresh-token exchange.
func (a *MicrosoftAuthenticator) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cred == nil {
		return "", ErrNotAuthenticated
	}
	if a.cred.Valid(time.Now()) {
		return a.cred.AccessToken, nil
	}

	cred, err := a.refresh(ctx, a.cred.RefreshToken, a.cred.ExpiresAt)
	if err != nil {
		// Expired or revoked refresh token: fall back to unauthenticated
		// and require manual re-authorization.
		a.cred = nil
		return "", &RefreshError{Provider: ProviderMicrosoft, Err: err}
	}
	if err := a.persist(ctx, cred); err != nil {
		return "", err
	}
	a.cred = &cred
	a.logger.Info("microsoft: refreshed access token", "expires_at", cred.ExpiresAt)
	return cred.AccessToken, nil
}

// refresh exchanges the refresh token for a new credential. The replacement
// must expire strictly later than the credential it replaces.
func (a *MicrosoftAuthenticator) refresh(ctx context.Context, refreshToken string, prevExpiry time.Time) (Credential, error) {
	form := url.Values{
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {microsoftScopes},
	}

	tok, status, body, err := a.postTokenForm(ctx, form)
	if err != nil {
		return Credential{}, err
	}
	if status < 200 || status >= 300 {
		return Credential{}, fmt.Errorf("token endpoint returned HTTP %d: %s", status, body)
	}

	cred := credentialFromResponse(tok, time.Now())
	if !cred.ExpiresAt.After(prevExpiry) {
		return Credential{}, errors.New("refreshed credential does not outlive the expired one")
	}
	return cred, nil
}

func (a *MicrosoftAuthenticator) postTokenForm(ctx context.Context, form url.Values) (tokenResponse, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenEndpoint(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return tokenResponse{}, 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, resp.StatusCode, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenResponse{}, resp.StatusCode, string(body), nil
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return tokenResponse{}, resp.StatusCode, string(body), fmt.Errorf("decode token response: %w", err)
	}
	return tok, resp.StatusCode, string(body), nil
}

// persist mirrors the in-memory credential to the store before it is handed
// out, so a crash cannot leave a newer refresh token in memory than on disk.
func (a *MicrosoftAuthenticator) persist(ctx context.Context, cred Credential) error {
	record, err := json.Marshal(microsoftRecord{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresAt:    cred.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal microsoft credential: %w", err)
	}
	if err := a.store.Save(ctx, ProviderMicrosoft, record); err != nil {
		return fmt.Errorf("persist microsoft credential: %w", err)
	}
	return nil
}

func credentialFromResponse(tok tokenResponse, now time.Time) Credential {
	return Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
}
