package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/logger"
	"github.com/pfrederiksen/eventbrite-events/internal/normalize"
)

const categoryTagPrefix = "EventbriteCategory"

// serverDataPattern finds the state blob assignment. Heuristic: the lazy body
// ends at the first "}" followed by another window assignment, a closing
// script tag or the end of the script.
var serverDataPattern = regexp.MustCompile(`(?s)window\.__SERVER_DATA__\s*=\s*(\{.*?\});?\s*(?:window\.|</script|$)`)

// EmbeddedState extracts events from the window.__SERVER_DATA__ blob
type EmbeddedState struct{}

// Method implements Strategy
func (EmbeddedState) Method() event.Method { return event.MethodEmbeddedState }

// Extract implements Strategy. TotalPages carries pagination.page_count when
// the blob declares it.
func (s EmbeddedState) Extract(doc *goquery.Document) (Batch, bool) {
	state := findServerData(doc)
	if state == nil {
		return Batch{}, false
	}

	events := make([]event.Event, 0, len(state.events))
	for _, raw := range state.events {
		evt := raw.normalize(state.profiles)
		if !evt.Valid() {
			continue
		}
		events = append(events, evt)
	}
	if len(events) == 0 {
		return Batch{}, false
	}

	return Batch{Events: events, TotalPages: state.pageCount}, true
}

// serverState is the located and merged content of one state blob
type serverState struct {
	events    []serverEvent
	profiles  profileTable
	pageCount int
}

type serverDataDoc struct {
	SearchData *struct {
		Events *struct {
			Results         []json.RawMessage         `json:"results"`
			PromotedResults []json.RawMessage         `json:"promoted_results"`
			Pagination      lenient[serverPagination] `json:"pagination"`
		} `json:"events"`
		Profiles profileTable `json:"profiles"`
	} `json:"search_data"`
}

type serverPagination struct {
	PageCount looseInt `json:"page_count"`
}

// findServerData scans inline scripts for the state blob. Scripts whose blob
// fails to parse or lacks search_data.events are skipped.
func findServerData(doc *goquery.Document) *serverState {
	var found *serverState

	doc.Find("script").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		body := sel.Text()
		if !strings.Contains(body, "__SERVER_DATA__") {
			return true
		}

		m := serverDataPattern.FindStringSubmatch(body)
		if m == nil {
			logger.Debug("Server data assignment not matched", logger.Fields{"script": i})
			return true
		}

		payload := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ";"))

		var data serverDataDoc
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			logger.Debug("Failed to parse server data", logger.Fields{
				"strategy": string(event.MethodEmbeddedState),
				"script":   i,
				"error":    err.Error(),
			})
			return true
		}

		if data.SearchData == nil || data.SearchData.Events == nil {
			logger.Debug("Server data has no search_data.events", logger.Fields{
				"strategy": string(event.MethodEmbeddedState),
				"script":   i,
			})
			return true
		}

		evs := data.SearchData.Events
		pagination, _ := evs.Pagination.get()
		found = &serverState{
			events: mergeServerEvents(
				decodeServerEvents(evs.PromotedResults),
				decodeServerEvents(evs.Results),
			),
			profiles:  data.SearchData.Profiles,
			pageCount: int(pagination.PageCount),
		}
		return false
	})

	return found
}

func decodeServerEvents(raws []json.RawMessage) []serverEvent {
	events := make([]serverEvent, 0, len(raws))
	for i, raw := range raws {
		var se serverEvent
		if err := json.Unmarshal(raw, &se); err != nil {
			logger.Debug("Skipping undecodable server event", logger.Fields{"index": i, "error": err.Error()})
			continue
		}
		events = append(events, se)
	}
	return events
}

// mergeServerEvents concatenates promoted and regular results, keeping the
// first occurrence of each ID. Promoted entries come first and therefore win:
// they carry organizer and ticket data the regular list lacks. Entries without
// an ID are dropped.
func mergeServerEvents(promoted, regular []serverEvent) []serverEvent {
	seen := make(map[string]bool, len(promoted)+len(regular))
	merged := make([]serverEvent, 0, len(promoted)+len(regular))

	for _, list := range [][]serverEvent{promoted, regular} {
		for _, se := range list {
			id := se.ID.String()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, se)
		}
	}
	return merged
}

// profileTable maps organizer IDs to profile objects. Entries are decoded on
// lookup so one odd profile cannot fail the whole blob.
type profileTable map[string]json.RawMessage

func (p *profileTable) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		*p = nil
		return nil
	}
	*p = m
	return nil
}

func (p profileTable) organizerName(id string) string {
	if id == "" || p == nil {
		return ""
	}
	raw, ok := p[id]
	if !ok {
		return ""
	}
	var profile struct {
		Name        looseString `json:"name"`
		DisplayName looseString `json:"display_name"`
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return ""
	}
	return firstNonEmpty(profile.Name.String(), profile.DisplayName.String())
}

// serverEvent holds one raw result. Every field decodes tolerantly: a value of
// an unexpected type loses that field, not the whole record.
type serverEvent struct {
	ID      looseString `json:"id"`
	Name    looseString `json:"name"`
	Summary looseString `json:"summary"`
	URL     looseString `json:"url"`

	Image        *imageRef   `json:"image"`
	PrimaryImage *imageRef   `json:"primary_image"`
	ImageURL     looseString `json:"imageUrl"`

	StartDate      looseString `json:"start_date"`
	StartDateCamel looseString `json:"startDate"`
	StartTime      looseString `json:"start_time"`
	StartTimeCamel looseString `json:"startTime"`
	EndDate        looseString `json:"end_date"`
	EndDateCamel   looseString `json:"endDate"`
	EndTime        looseString `json:"end_time"`
	EndTimeCamel   looseString `json:"endTime"`
	Timezone       looseString `json:"timezone"`

	IsOnlineEvent      looseBool `json:"is_online_event"`
	IsOnlineEventCamel looseBool `json:"isOnlineEvent"`
	IsFree             looseBool `json:"is_free"`
	IsFreeCamel        looseBool `json:"isFree"`

	MinPrice           lenient[serverMinPrice]           `json:"minPrice"`
	TicketAvailability lenient[serverTicketAvailability] `json:"ticket_availability"`
	Price              looseString                       `json:"price"`

	Tags serverTags `json:"tags"`

	PrimaryOrganizerID looseString              `json:"primary_organizer_id"`
	PrimaryOrganizer   lenient[serverOrganizer] `json:"primary_organizer"`
	OrganizerName      looseString              `json:"organizerName"`

	TicketsURL looseString `json:"tickets_url"`
}

type serverMinPrice struct {
	MinPriceValue looseFloat  `json:"minPriceValue"`
	Currency      looseString `json:"currency"`
}

type serverTicketAvailability struct {
	IsFree             looseBool                         `json:"is_free"`
	MinimumTicketPrice lenient[serverMinimumTicketPrice] `json:"minimum_ticket_price"`
}

type serverMinimumTicketPrice struct {
	Display  looseString `json:"display"`
	Value    looseFloat  `json:"value"`
	Currency looseString `json:"currency"`
}

type serverOrganizer struct {
	ID   looseString `json:"id"`
	Name looseString `json:"name"`
}

type serverTag struct {
	Prefix      looseString `json:"prefix"`
	DisplayName looseString `json:"display_name"`
}

// serverTags keeps the tags that decode and drops the rest. A tags value
// that is not an array yields no tags.
type serverTags []serverTag

func (t *serverTags) UnmarshalJSON(b []byte) error {
	*t = nil
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil
	}
	tags := make(serverTags, 0, len(raws))
	for _, raw := range raws {
		var tag serverTag
		if err := json.Unmarshal(raw, &tag); err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	*t = tags
	return nil
}

func (se serverEvent) normalize(profiles profileTable) event.Event {
	isFree := bool(se.IsFree || se.IsFreeCamel)
	price := ""

	if ta, ok := se.TicketAvailability.get(); ok {
		mtp, hasMTP := ta.MinimumTicketPrice.get()
		switch {
		case bool(ta.IsFree):
			isFree = true
			price = normalize.FreeLabel
		case hasMTP && mtp.Display.String() != "":
			price = mtp.Display.String()
		case hasMTP && mtp.Value.set:
			price = normalize.FromMinorUnits(mtp.Value.value, mtp.Currency.String())
		}
	}

	if price == "" && !isFree {
		info := normalize.PriceInfo{Price: se.Price.String()}
		if mp, ok := se.MinPrice.get(); ok {
			info.MinPrice = &normalize.MinPrice{Value: mp.MinPriceValue.ptr(), Currency: mp.Currency.String()}
		}
		price = normalize.FormatPrice(info)
	}
	if isFree && price == "" {
		price = normalize.FreeLabel
	}

	return event.Event{
		ID:            se.ID.String(),
		Name:          se.Name.String(),
		Summary:       se.Summary.String(),
		URL:           se.URL.String(),
		ImageURL:      normalize.ImageURL(firstNonEmpty(se.Image.url(), se.PrimaryImage.url(), se.ImageURL.String())),
		StartDate:     firstNonEmpty(se.StartDate.String(), se.StartDateCamel.String()),
		StartTime:     firstNonEmpty(se.StartTime.String(), se.StartTimeCamel.String()),
		EndDate:       firstNonEmpty(se.EndDate.String(), se.EndDateCamel.String()),
		EndTime:       firstNonEmpty(se.EndTime.String(), se.EndTimeCamel.String()),
		Timezone:      se.Timezone.String(),
		IsOnlineEvent: bool(se.IsOnlineEvent || se.IsOnlineEventCamel),
		IsFree:        isFree,
		Price:         price,
		Category:      se.category(),
		OrganizerID:   se.organizerID(),
		OrganizerName: se.organizerName(profiles),
		TicketsURL:    se.TicketsURL.String(),
	}
}

// category is the display name of the first tag that is a category tag or
// has a display name at all
func (se serverEvent) category() string {
	for _, tag := range se.Tags {
		if tag.Prefix.String() == categoryTagPrefix || tag.DisplayName.String() != "" {
			return tag.DisplayName.String()
		}
	}
	return ""
}

func (se serverEvent) organizerID() string {
	if id := se.PrimaryOrganizerID.String(); id != "" {
		return id
	}
	if org, ok := se.PrimaryOrganizer.get(); ok {
		return org.ID.String()
	}
	return ""
}

// organizerName tries the embedded organizer, then the flat field, then the
// profile table
func (se serverEvent) organizerName(profiles profileTable) string {
	if org, ok := se.PrimaryOrganizer.get(); ok {
		if name := org.Name.String(); name != "" {
			return name
		}
	}
	if name := se.OrganizerName.String(); name != "" {
		return name
	}
	return profiles.organizerName(se.PrimaryOrganizerID.String())
}
