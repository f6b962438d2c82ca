// Package api maps HTTP routes onto the credential lifecycle, event
// aggregation and summarization layers. The mapping is thin: all invariants
// live below it.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxgro/daybrief/internal/auth"
	"github.com/maxgro/daybrief/internal/calendar"
)

// Authenticator is the per-provider credential lifecycle the routes drive.
type Authenticator interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Credential, error)
	Authenticated() bool
}

// EventLoader aggregates today's canonical events for one provider.
type EventLoader interface {
	TodaysEvents(ctx context.Context, provider string) ([]calendar.Event, error)
}

// Completer produces the text summary for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer renders a text summary to audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// PromptBuilder renders both providers' events into the summarization prompt.
type PromptBuilder func(private, work []calendar.Event) string

type Handler struct {
	google      Authenticator
	microsoft   Authenticator
	loader      EventLoader
	completer   Completer
	synthesizer SpeechSynthesizer
	buildPrompt PromptBuilder
	logger      *slog.Logger
}

func NewHandler(google, microsoft Authenticator, loader EventLoader, completer Completer,
	synthesizer SpeechSynthesizer, buildPrompt PromptBuilder, logger *slog.Logger) *Handler {
	return &Handler{
		google:      google,
		microsoft:   microsoft,
		loader:      loader,
		completer:   completer,
		synthesizer: synthesizer,
		buildPrompt: buildPrompt,
		logger:      logger,
	}
}

// AuthorizeGoogle redirects to the consumer provider's consent page.
func (h *Handler) AuthorizeGoogle(c *gin.Context) {
	h.authorize(c, h.google, auth.ProviderGoogle)
}

// AuthorizeMicrosoft redirects to the enterprise provider's consent page.
func (h *Handler) AuthorizeMicrosoft(c *gin.Context) {
	h.authorize(c, h.microsoft, auth.ProviderMicrosoft)
}

func (h *Handler) authorize(c *gin.Context, a Authenticator, provider string) {
	state, err := auth.EncodeState(provider)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	c.Redirect(http.StatusFound, a.AuthorizeURL(state))
}

// GoogleCallback completes the consumer authorization-code exchange.
func (h *Handler) GoogleCallback(c *gin.Context) {
	h.callback(c, h.google, auth.ProviderGoogle, "Authorization successful. You can now call /events")
}

// MicrosoftCallback completes the enterprise authorization-code exchange.
func (h *Handler) MicrosoftCallback(c *gin.Context) {
	h.callback(c, h.microsoft, auth.ProviderMicrosoft, "Authorization successful. You can now call /events/ms")
}

func (h *Handler) callback(c *gin.Context, a Authenticator, provider, successMessage string) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	if stateParam := c.Query("state"); stateParam != "" {
		state, err := auth.DecodeState(stateParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
			return
		}
		if state.Provider != provider {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state provider mismatch"})
			return
		}
	}

	if _, err := a.Exchange(c.Request.Context(), code); err != nil {
		h.logger.Error("authorization code exchange failed", "provider", provider, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to get token"})
		return
	}

	c.String(http.StatusOK, successMessage)
}

// GoogleEvents returns today's consumer events.
func (h *Handler) GoogleEvents(c *gin.Context) {
	h.events(c, auth.ProviderGoogle)
}

// MicrosoftEvents returns today's enterprise events.
func (h *Handler) MicrosoftEvents(c *gin.Context) {
	h.events(c, auth.ProviderMicrosoft)
}

func (h *Handler) events(c *gin.Context, provider string) {
	events, err := h.loader.TodaysEvents(c.Request.Context(), provider)
	if err != nil {
		h.renderFetchError(c, provider, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Prompt summarizes both providers' events and streams the spoken briefing.
// Auth failure on either provider fails the whole request: no partial
// briefing is produced.
func (h *Handler) Prompt(c *gin.Context) {
	ctx := c.Request.Context()

	private, err := h.loader.TodaysEvents(ctx, auth.ProviderGoogle)
	if err != nil {
		h.renderFetchError(c, auth.ProviderGoogle, err)
		return
	}
	work, err := h.loader.TodaysEvents(ctx, auth.ProviderMicrosoft)
	if err != nil {
		h.renderFetchError(c, auth.ProviderMicrosoft, err)
		return
	}

	text, err := h.completer.Complete(ctx, h.buildPrompt(private, work))
	if err != nil {
		h.logger.Error("summarization failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to summarize events"})
		return
	}

	audio, err := h.synthesizer.Synthesize(ctx, text)
	if err != nil {
		h.logger.Error("speech synthesis failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to synthesize speech"})
		return
	}
	defer audio.Close()

	c.Header("Content-Disposition", `attachment; filename="speech.mp3"`)
	c.DataFromReader(http.StatusOK, -1, "audio/mpeg", audio, nil)
}

// Health reports process liveness and per-provider credential presence.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		auth.ProviderGoogle:    h.google.Authenticated(),
		auth.ProviderMicrosoft: h.microsoft.Authenticated(),
	})
}

// renderFetchError maps the auth taxonomy onto service-unavailable style
// responses with a human-readable reason.
func (h *Handler) renderFetchError(c *gin.Context, provider string, err error) {
	var refreshErr *auth.RefreshError
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": provider + " calendar is not authorized; re-authenticate via /authorize/" + provider,
		})
	case errors.As(err, &refreshErr):
		h.logger.Error("token refresh failed", "provider", provider, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": provider + " session expired; re-authenticate via /authorize/" + provider,
		})
	default:
		h.logger.Error("event fetch failed", "provider", provider, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch events"})
	}
}
