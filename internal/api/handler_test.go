package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/maxgro/daybrief/internal/auth"
	"github.com/maxgro/daybrief/internal/calendar"
	"github.com/maxgro/daybrief/internal/summary"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuthenticator implements Authenticator for handler tests.
type stubAuthenticator struct {
	authorizeURLFn  func(state string) string
	exchangeFn      func(ctx context.Context, code string) (*auth.Credential, error)
	authenticatedFn func() bool
}

func (s *stubAuthenticator) AuthorizeURL(state string) string {
	if s.authorizeURLFn != nil {
		return s.authorizeURLFn(state)
	}
	return "https://provider.example/consent?state=" + state
}

func (s *stubAuthenticator) Exchange(ctx context.Context, code string) (*auth.Credential, error) {
	if s.exchangeFn != nil {
		return s.exchangeFn(ctx, code)
	}
	return &auth.Credential{AccessToken: "at"}, nil
}

func (s *stubAuthenticator) Authenticated() bool {
	if s.authenticatedFn != nil {
		return s.authenticatedFn()
	}
	return true
}

// stubLoader returns per-provider events or errors.
type stubLoader struct {
	events map[string][]calendar.Event
	errs   map[string]error
}

func (s *stubLoader) TodaysEvents(_ context.Context, provider string) ([]calendar.Event, error) {
	if err := s.errs[provider]; err != nil {
		return nil, err
	}
	return s.events[provider], nil
}

type stubCompleter struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if s.fn != nil {
		return s.fn(ctx, prompt)
	}
	return "summary text", nil
}

type stubSynthesizer struct {
	fn func(ctx context.Context, text string) (io.ReadCloser, error)
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if s.fn != nil {
		return s.fn(ctx, text)
	}
	return io.NopCloser(strings.NewReader("mp3-bytes")), nil
}

func testHandler(loader *stubLoader) *Handler {
	return NewHandler(
		&stubAuthenticator{}, &stubAuthenticator{},
		loader, &stubCompleter{}, &stubSynthesizer{},
		summary.BuildPrompt,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func ginCtx(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

// --- authorize tests ---

func TestAuthorizeGoogle_RedirectsWithState(t *testing.T) {
	var gotState string
	h := testHandler(&stubLoader{})
	h.google = &stubAuthenticator{
		authorizeURLFn: func(state string) string {
			gotState = state
			return "https://accounts.example/consent?state=" + state
		},
	}

	c, w := ginCtx("GET", "/authorize/google")
	h.AuthorizeGoogle(c)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if gotState == "" {
		t.Fatal("expected a state to be passed to the authorize URL")
	}
	state, err := auth.DecodeState(gotState)
	if err != nil {
		t.Fatalf("state should round-trip: %v", err)
	}
	if state.Provider != auth.ProviderGoogle {
		t.Errorf("expected provider=google in state, got %q", state.Provider)
	}
	if got := w.Header().Get("Location"); !strings.Contains(got, gotState) {
		t.Errorf("redirect location should carry the state, got %q", got)
	}
}

func TestAuthorizeMicrosoft_StateNamesProvider(t *testing.T) {
	var gotState string
	h := testHandler(&stubLoader{})
	h.microsoft = &stubAuthenticator{
		authorizeURLFn: func(state string) string {
			gotState = state
			return "https://login.example/consent?state=" + state
		},
	}

	c, w := ginCtx("GET", "/authorize/microsoft")
	h.AuthorizeMicrosoft(c)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	state, err := auth.DecodeState(gotState)
	if err != nil {
		t.Fatalf("state should round-trip: %v", err)
	}
	if state.Provider != auth.ProviderMicrosoft {
		t.Errorf("expected provider=microsoft in state, got %q", state.Provider)
	}
}

// --- callback tests ---

func TestCallback_MissingCode_Returns400(t *testing.T) {
	h := testHandler(&stubLoader{})

	c, w := ginCtx("GET", "/auth/callback")
	h.GoogleCallback(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCallback_ExchangesCode(t *testing.T) {
	var gotCode string
	h := testHandler(&stubLoader{})
	h.google = &stubAuthenticator{
		exchangeFn: func(_ context.Context, code string) (*auth.Credential, error) {
			gotCode = code
			return &auth.Credential{AccessToken: "at"}, nil
		},
	}

	state, _ := auth.EncodeState(auth.ProviderGoogle)
	c, w := ginCtx("GET", "/auth/callback?code=abc123&state="+state)
	h.GoogleCallback(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotCode != "abc123" {
		t.Errorf("expected code=abc123 to be exchanged, got %q", gotCode)
	}
}

func TestCallback_StateProviderMismatch_Returns400(t *testing.T) {
	h := testHandler(&stubLoader{})

	state, _ := auth.EncodeState(auth.ProviderMicrosoft)
	c, w := ginCtx("GET", "/auth/callback?code=abc123&state="+state)
	h.GoogleCallback(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for mismatched state, got %d", w.Code)
	}
}

func TestCallback_ExchangeError_Returns502(t *testing.T) {
	h := testHandler(&stubLoader{})
	h.microsoft = &stubAuthenticator{
		exchangeFn: func(_ context.Context, _ string) (*auth.Credential, error) {
			return nil, &auth.ExchangeError{Provider: auth.ProviderMicrosoft, StatusCode: 400, Body: "invalid_grant"}
		},
	}

	c, w := ginCtx("GET", "/auth/entra/callback?code=bad")
	h.MicrosoftCallback(c)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// --- events tests ---

func TestEvents_ReturnsCanonicalJSON(t *testing.T) {
	loader := &stubLoader{events: map[string][]calendar.Event{
		auth.ProviderGoogle: {
			{Title: "Standup", Start: "2024-06-01T09:30:00", End: "2024-06-01T09:45:00"},
		},
	}}
	h := testHandler(loader)

	c, w := ginCtx("GET", "/events")
	h.GoogleEvents(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var got []calendar.Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("response should be an event array: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Standup" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestEvents_EmptyDayStillReturns200(t *testing.T) {
	h := testHandler(&stubLoader{events: map[string][]calendar.Event{}})

	c, w := ginCtx("GET", "/events/ms")
	h.MicrosoftEvents(c)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for an empty day, got %d", w.Code)
	}
}

func TestEvents_NotAuthenticated_Returns503WithHint(t *testing.T) {
	loader := &stubLoader{errs: map[string]error{
		auth.ProviderMicrosoft: auth.ErrNotAuthenticated,
	}}
	h := testHandler(loader)

	c, w := ginCtx("GET", "/events/ms")
	h.MicrosoftEvents(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/authorize/microsoft") {
		t.Errorf("error should point at the re-auth route, got %s", w.Body.String())
	}
}

func TestEvents_RefreshError_Returns503(t *testing.T) {
	loader := &stubLoader{errs: map[string]error{
		auth.ProviderGoogle: &auth.RefreshError{Provider: auth.ProviderGoogle, Err: errors.New("invalid_grant")},
	}}
	h := testHandler(loader)

	c, w := ginCtx("GET", "/events")
	h.GoogleEvents(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/authorize/google") {
		t.Errorf("error should point at the re-auth route, got %s", w.Body.String())
	}
}

func TestEvents_UpstreamError_Returns502(t *testing.T) {
	loader := &stubLoader{errs: map[string]error{
		auth.ProviderGoogle: errors.New("calendar API returned 500"),
	}}
	h := testHandler(loader)

	c, w := ginCtx("GET", "/events")
	h.GoogleEvents(c)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// --- prompt tests ---

func TestPrompt_StreamsAudio(t *testing.T) {
	loader := &stubLoader{events: map[string][]calendar.Event{
		auth.ProviderGoogle:    {{Title: "Dentist", Start: "2024-06-01T14:00:00", End: "2024-06-01T15:00:00"}},
		auth.ProviderMicrosoft: {{Title: "Planning", Start: "2024-06-01T10:00:00", End: "2024-06-01T11:00:00"}},
	}}
	h := testHandler(loader)

	var gotPrompt, gotText string
	h.completer = &stubCompleter{fn: func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "Guten Morgen Max", nil
	}}
	h.synthesizer = &stubSynthesizer{fn: func(_ context.Context, text string) (io.ReadCloser, error) {
		gotText = text
		return io.NopCloser(strings.NewReader("mp3-bytes")), nil
	}}

	c, w := ginCtx("GET", "/prompt")
	h.Prompt(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %q", ct)
	}
	if w.Body.String() != "mp3-bytes" {
		t.Errorf("expected audio bytes to be streamed, got %q", w.Body.String())
	}
	if !strings.Contains(gotPrompt, "Dentist") || !strings.Contains(gotPrompt, "Planning") {
		t.Errorf("prompt should contain both calendars' events, got %q", gotPrompt)
	}
	if gotText != "Guten Morgen Max" {
		t.Errorf("synthesizer should receive the completion text, got %q", gotText)
	}
}

func TestPrompt_AnyProviderUnauthenticated_Returns503(t *testing.T) {
	loader := &stubLoader{
		events: map[string][]calendar.Event{auth.ProviderGoogle: {}},
		errs:   map[string]error{auth.ProviderMicrosoft: auth.ErrNotAuthenticated},
	}
	h := testHandler(loader)

	c, w := ginCtx("GET", "/prompt")
	h.Prompt(c)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when one provider is unauthenticated, got %d", w.Code)
	}
}

func TestPrompt_SummarizationError_Returns502(t *testing.T) {
	h := testHandler(&stubLoader{})
	h.completer = &stubCompleter{fn: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("rate limited")
	}}

	c, w := ginCtx("GET", "/prompt")
	h.Prompt(c)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// --- health tests ---

func TestHealth_ReportsCredentialPresence(t *testing.T) {
	h := testHandler(&stubLoader{})
	h.microsoft = &stubAuthenticator{authenticatedFn: func() bool { return false }}

	c, w := ginCtx("GET", "/health")
	h.Health(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["google"] != true {
		t.Errorf("expected google=true, got %v", resp["google"])
	}
	if resp["microsoft"] != false {
		t.Errorf("expected microsoft=false, got %v", resp["microsoft"])
	}
}
