package event

import "strings"

// SourceName identifies the scraped site on every record
const SourceName = "eventbrite"

// Method records which extraction strategy produced an event
type Method string

const (
	MethodEmbeddedState  Method = "embedded-state"
	MethodStructuredData Method = "structured-data"
	MethodMarkup         Method = "markup"
	MethodUnknown        Method = "unknown"
)

// Event is the normalized output record. Empty strings mean "absent".
type Event struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Summary       string `json:"summary,omitempty"`
	URL           string `json:"url,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	IsOnlineEvent bool   `json:"is_online_event"`
	IsFree        bool   `json:"is_free"`
	Price         string `json:"price,omitempty"`
	Category      string `json:"category,omitempty"`
	OrganizerID   string `json:"organizer_id,omitempty"`
	OrganizerName string `json:"organizer_name,omitempty"`
	TicketsURL    string `json:"tickets_url,omitempty"`
	Location      string `json:"location,omitempty"`  // structured-data only
	DateText      string `json:"date_text,omitempty"` // markup only

	Source           string `json:"_source"`
	ExtractionMethod Method `json:"_extraction_method"`
}

// IdentityKey returns the value used to deduplicate the event: its ID,
// else its URL, else its name. Empty when none is known.
func (e *Event) IdentityKey() string {
	if id := strings.TrimSpace(e.ID); id != "" {
		return id
	}
	if u := strings.TrimSpace(e.URL); u != "" {
		return u
	}
	return strings.TrimSpace(e.Name)
}

// Valid reports whether the event has a name or a URL
func (e *Event) Valid() bool {
	return strings.TrimSpace(e.Name) != "" || strings.TrimSpace(e.URL) != ""
}

// Stamp sets the provenance fields on every event in place
func Stamp(events []Event, method Method) {
	for i := range events {
		events[i].Source = SourceName
		events[i].ExtractionMethod = method
	}
}
