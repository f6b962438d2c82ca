// Package summary turns the day's canonical events into a spoken briefing:
// a chat-completion summary rendered to speech.
package summary

import (
	"encoding/json"
	"strings"

	"github.com/maxgro/daybrief/internal/calendar"
)

const promptPreamble = "Fasse den heutigen Tag zusammen basierend auf folgende Jsons. " +
	"Formulare den Text so, dass ich ihn einem Text to speech model geben kann. " +
	"Es werden 2 JSONs geliefert. Einer mit privaten Terminen und der andere mit Terminen von der Arbeit. " +
	"Bitte fasse alles in einen Text zusammen. " +
	"Es ist wichtig, dass du zwischen 'kleinem Besprechungzimmer' und 'großem Besprechungzimmer' unterscheidest."

// BuildPrompt renders the summarization prompt from both providers' event
// lists. The events are embedded as JSON; the model reads them directly.
func BuildPrompt(private, work []calendar.Event) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\nPrivat:\n")
	b.Write(mustJSON(private))
	b.WriteString("\nArbeit:\n")
	b.Write(mustJSON(work))
	return b.String()
}

func mustJSON(events []calendar.Event) []byte {
	if events == nil {
		events = []calendar.Event{}
	}
	// calendar.Event contains only marshalable fields.
	data, _ := json.Marshal(events)
	return data
}
