package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// googleMaxResults caps one events-list call. The provider paginates beyond
// it; this system reads a single page, a known limitation of the day view.
const googleMaxResults = 10

// GoogleClient wraps the Google Calendar API service for the primary
// calendar of the authenticated user.
type GoogleClient struct {
	service *gcal.Service
}

// NewGoogleClient builds a Calendar API client on an authenticated HTTP
// client. An optional endpoint override points it at a mock server in tests.
func NewGoogleClient(ctx context.Context, httpClient *http.Client, endpoint ...string) (*GoogleClient, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &GoogleClient{service: service}, nil
}

// Events lists primary-calendar events within [start, end), recurring events
// expanded, ordered by start time ascending.
func (c *GoogleClient) Events(ctx context.Context, start, end time.Time) ([]*gcal.Event, error) {
	events, err := c.service.Events.List("primary").
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		MaxResults(googleMaxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events: %w", err)
	}
	return events.Items, nil
}
