package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphEvent is the subset of a Microsoft Graph calendar event this system
// reads. Fields are validated at the normalization boundary, not here.
type GraphEvent struct {
	Subject   string          `json:"subject"`
	IsAllDay  bool            `json:"isAllDay"`
	Start     GraphDateTime   `json:"start"`
	End       GraphDateTime   `json:"end"`
	Location  GraphLocation   `json:"location"`
	Attendees []GraphAttendee `json:"attendees"`
}

// GraphDateTime is Graph's zoned wall-clock timestamp.
type GraphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// GraphLocation carries the display name the event's room or place was
// entered under.
type GraphLocation struct {
	DisplayName string `json:"displayName"`
}

// GraphAttendee wraps the attendee's resolved email address entry.
type GraphAttendee struct {
	EmailAddress GraphEmailAddress `json:"emailAddress"`
}

type GraphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// GraphClient is a Microsoft Graph calendar client scoped to one access
// token. Build a fresh one per request from the current valid credential.
type GraphClient struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// NewGraphClient creates a client for the given access token. An optional
// base URL override points it at a mock server in tests.
func NewGraphClient(accessToken string, baseURL ...string) *GraphClient {
	base := defaultGraphBaseURL
	if len(baseURL) > 0 && baseURL[0] != "" {
		base = baseURL[0]
	}
	return &GraphClient{
		accessToken: accessToken,
		baseURL:     base,
		httpClient:  http.DefaultClient,
	}
}

// CalendarView queries /me/calendarview for events within [start, end),
// ordered by start time ascending.
func (c *GraphClient) CalendarView(ctx context.Context, start, end time.Time) ([]GraphEvent, error) {
	params := url.Values{
		"startDateTime": {start.UTC().Format(time.RFC3339)},
		"endDateTime":   {end.UTC().Format(time.RFC3339)},
		"$select":       {"subject,start,end,location,attendees,isAllDay"},
		"$orderby":      {"start/dateTime"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/me/calendarview?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph calendarview request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph calendarview returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		Value []GraphEvent `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("graph calendarview decode: %w", err)
	}
	return body.Value, nil
}
