package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/maxgro/daybrief/internal/auth"
)

// GraphTokenSource yields a currently valid enterprise access token,
// refreshing first when needed.
type GraphTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// GoogleClientSource yields an HTTP client authorized for the consumer
// calendar API; the client refreshes and persists tokens as a side effect of
// use.
type GoogleClientSource interface {
	Client(ctx context.Context) *http.Client
	Authenticated() bool
}

// LoaderConfig carries the aggregation policy.
type LoaderConfig struct {
	// Location resolves "today" and renders timed events.
	Location *time.Location
	// SelfName is filtered out of enterprise attendee lists.
	SelfName string
	// TitleDenylist lists exact event titles dropped after normalization
	// (operational noise events).
	TitleDenylist []string
	// GraphBaseURL and GoogleEndpoint override the provider APIs in tests.
	GraphBaseURL   string
	GoogleEndpoint string
}

// Loader aggregates one provider's events for the current day: obtain a
// valid credential, fetch the raw day window, normalize, filter.
type Loader struct {
	microsoft GraphTokenSource
	google    GoogleClientSource

	normalizer Normalizer
	denied     map[string]struct{}
	cfg        LoaderConfig

	now func() time.Time
}

// NewLoader wires the aggregator to both providers' authenticators.
func NewLoader(microsoft GraphTokenSource, google GoogleClientSource, cfg LoaderConfig) *Loader {
	denied := make(map[string]struct{}, len(cfg.TitleDenylist))
	for _, title := range cfg.TitleDenylist {
		denied[title] = struct{}{}
	}
	return &Loader{
		microsoft:  microsoft,
		google:     google,
		normalizer: Normalizer{Location: cfg.Location, SelfName: cfg.SelfName},
		denied:     denied,
		cfg:        cfg,
		now:        time.Now,
	}
}

// TodaysEvents returns the canonical events of the named provider for the
// current day, in the provider's own start-time ordering. Auth failures are
// all-or-nothing per provider: no partial list is returned.
func (l *Loader) TodaysEvents(ctx context.Context, provider string) ([]Event, error) {
	switch provider {
	case auth.ProviderGoogle:
		return l.GoogleTodaysEvents(ctx)
	case auth.ProviderMicrosoft:
		return l.MicrosoftTodaysEvents(ctx)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// GoogleTodaysEvents fetches today's consumer events. The day window is
// bounded at UTC midnights, matching the provider query convention.
func (l *Loader) GoogleTodaysEvents(ctx context.Context) ([]Event, error) {
	if !l.google.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}

	now := l.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	client, err := NewGoogleClient(ctx, l.google.Client(ctx), l.cfg.GoogleEndpoint)
	if err != nil {
		return nil, err
	}
	raw, err := client.Events(ctx, start, end)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, l.normalizer.FromGoogle(e))
	}
	return l.filterDenied(events), nil
}

// MicrosoftTodaysEvents fetches today's enterprise events. The day window is
// the local day in the configured timezone, converted to UTC bounds for the
// calendar-view query. Obtaining the access token may trigger a refresh.
func (l *Loader) MicrosoftTodaysEvents(ctx context.Context) ([]Event, error) {
	token, err := l.microsoft.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	now := l.now().In(l.cfg.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.cfg.Location)
	end := start.AddDate(0, 0, 1)

	raw, err := NewGraphClient(token, l.cfg.GraphBaseURL).CalendarView(ctx, start, end)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, l.normalizer.FromGraph(e))
	}
	return l.filterDenied(events), nil
}

func (l *Loader) filterDenied(events []Event) []Event {
	kept := events[:0]
	for _, e := range events {
		if _, drop := l.denied[e.Title]; drop {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
