package calendar

import (
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

// Normalizer converts provider-native event records into canonical Events.
// Both conversions are total: malformed fields degrade to placeholders so a
// single bad record never aborts the batch.
type Normalizer struct {
	// Location is the timezone all timed events are rendered in.
	Location *time.Location
	// SelfName is the attendee display name filtered out of enterprise
	// events (the calendar owner shows up as a pseudo-attendee).
	SelfName string
}

// FromGraph converts a Microsoft Graph event.
//
// Instants arrive as UTC wall-clock strings and are converted to the
// configured timezone. All-day detection uses the provider-supplied isAllDay
// flag. Attendees whose display name matches the event's location (rooms
// appear as pseudo-attendees) or the configured self name are dropped.
func (n Normalizer) FromGraph(e GraphEvent) Event {
	location := e.Location.DisplayName

	attendees := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		name := a.EmailAddress.Name
		if name == "" || name == location || name == n.SelfName {
			continue
		}
		attendees = append(attendees, name)
	}

	out := Event{
		Title:     orMissing(e.Subject),
		AllDay:    e.IsAllDay,
		Location:  location,
		Attendees: attendees,
	}

	start, startOK := parseGraphTime(e.Start.DateTime)
	end, endOK := parseGraphTime(e.End.DateTime)

	if e.IsAllDay {
		if startOK {
			out.Start = start.Format(dateLayout)
		}
		if endOK {
			// Graph encodes the end date exclusively; report the last day.
			out.End = end.AddDate(0, 0, -1).Format(dateLayout)
		}
		return out
	}

	if startOK {
		out.Start = start.In(n.Location).Format(localTimeLayout)
	}
	if endOK {
		out.End = end.In(n.Location).Format(localTimeLayout)
	}
	return out
}

// FromGoogle converts a Google Calendar event.
//
// A date-only start field implies an all-day event; its exclusive end date is
// shifted back one day. Timed events are rendered in the configured timezone
// without a zone suffix.
func (n Normalizer) FromGoogle(e *gcal.Event) Event {
	out := Event{Title: orMissing(e.Summary)}

	var startRaw, endRaw string
	if e.Start != nil {
		startRaw = e.Start.DateTime
		if startRaw == "" {
			startRaw = e.Start.Date
			out.AllDay = e.Start.Date != ""
		}
	}
	if e.End != nil {
		endRaw = e.End.DateTime
		if endRaw == "" {
			endRaw = e.End.Date
		}
	}

	if out.AllDay {
		out.Start = startRaw
		if end, err := time.Parse(dateLayout, endRaw); err == nil {
			out.End = end.AddDate(0, 0, -1).Format(dateLayout)
		}
		return out
	}

	if start, err := time.Parse(time.RFC3339, startRaw); err == nil {
		out.Start = start.In(n.Location).Format(localTimeLayout)
	}
	if end, err := time.Parse(time.RFC3339, endRaw); err == nil {
		out.End = end.In(n.Location).Format(localTimeLayout)
	}
	return out
}

// parseGraphTime parses Graph's zone-less UTC wall-clock format, which may
// carry up to seven fractional digits.
func parseGraphTime(raw string) (time.Time, bool) {
	for _, layout := range []string{
		"2006-01-02T15:04:05.9999999",
		"2006-01-02T15:04:05",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func orMissing(title string) string {
	if title == "" {
		return missingTitle
	}
	return title
}
