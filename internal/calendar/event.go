// Package calendar fetches provider-native calendar events and normalizes
// them into one canonical shape for the summarization pipeline.
package calendar

// Event is the provider-agnostic calendar event.
//
// For timed events Start and End are local date-times in the configured
// timezone without a zone suffix ("2006-01-02T15:04:05"); for all-day events
// they are calendar dates ("2006-01-02") with End adjusted from the
// provider's exclusive end-date convention to the inclusive last day.
// Malformed provider fields degrade to placeholder values instead of failing
// the batch.
type Event struct {
	Title     string   `json:"title"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	AllDay    bool     `json:"isAllDay"`
	Location  string   `json:"location,omitempty"`
	Attendees []string `json:"attendees,omitempty"`
}

const (
	localTimeLayout = "2006-01-02T15:04:05"
	dateLayout      = "2006-01-02"

	// missingTitle is the placeholder for events without a summary.
	missingTitle = "(No Title)"
)
