package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/logger"
)

const (
	ldTypeEvent           = "Event"
	ldTypeItemList        = "ItemList"
	ldTypeVirtualLocation = "VirtualLocation"
	onlineMarker          = "Online"

	// bounds @graph nesting
	maxLDDepth = 4
)

// StructuredData extracts events from schema.org JSON-LD blocks
type StructuredData struct{}

// Method implements Strategy
func (StructuredData) Method() event.Method { return event.MethodStructuredData }

// Extract implements Strategy. JSON-LD carries no page count.
func (s StructuredData) Extract(doc *goquery.Document) (Batch, bool) {
	var events []event.Event

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		nodes, err := decodeLDBlock(sel.Text())
		if err != nil {
			logger.Debug("Failed to parse JSON-LD", logger.Fields{
				"strategy": string(event.MethodStructuredData),
				"block":    i,
				"error":    err.Error(),
			})
			return
		}
		for _, node := range nodes {
			events = append(events, collectLDEvents(node, 0)...)
		}
	})

	if len(events) == 0 {
		return Batch{}, false
	}
	return Batch{Events: events}, true
}

// ldType accepts "@type" as a string or an array of strings
type ldType []string

func (t *ldType) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = ldType{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*t = many
		return nil
	}
	*t = nil
	return nil
}

func (t ldType) is(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

// isEvent matches Event and its schema.org subtypes (MusicEvent, EducationEvent, ...)
func (t ldType) isEvent() bool {
	for _, v := range t {
		if strings.HasSuffix(v, ldTypeEvent) {
			return true
		}
	}
	return false
}

type ldNode struct {
	Type            ldType            `json:"@type"`
	Graph           []json.RawMessage `json:"@graph"`
	ItemListElement []json.RawMessage `json:"itemListElement"`
	Item            json.RawMessage   `json:"item"`

	Name                looseString     `json:"name"`
	Description         looseString     `json:"description"`
	URL                 looseString     `json:"url"`
	Image               *imageRef       `json:"image"`
	StartDate           string          `json:"startDate"`
	EndDate             string          `json:"endDate"`
	EventAttendanceMode string          `json:"eventAttendanceMode"`
	Location            json.RawMessage `json:"location"`
}

// decodeLDBlock parses one script body into its top-level nodes. A block may
// hold a single object or an array of objects.
func decodeLDBlock(body string) ([]ldNode, error) {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "[") {
		var raws []json.RawMessage
		if err := json.Unmarshal([]byte(body), &raws); err != nil {
			return nil, err
		}
		return decodeLDNodes(raws), nil
	}

	var node ldNode
	if err := json.Unmarshal([]byte(body), &node); err != nil {
		return nil, err
	}
	return []ldNode{node}, nil
}

// decodeLDNodes decodes each raw node on its own; undecodable ones are skipped
func decodeLDNodes(raws []json.RawMessage) []ldNode {
	nodes := make([]ldNode, 0, len(raws))
	for i, raw := range raws {
		var node ldNode
		if err := json.Unmarshal(raw, &node); err != nil {
			logger.Debug("Skipping undecodable JSON-LD node", logger.Fields{"index": i, "error": err.Error()})
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func collectLDEvents(node ldNode, depth int) []event.Event {
	var events []event.Event

	if node.Type.is(ldTypeItemList) {
		for _, element := range decodeLDNodes(node.ItemListElement) {
			entry := element
			if len(bytes.TrimSpace(element.Item)) > 0 {
				var inner ldNode
				if err := json.Unmarshal(element.Item, &inner); err != nil {
					logger.Debug("Skipping undecodable list item", logger.Fields{"error": err.Error()})
					continue
				}
				entry = inner
			}
			if entry.Type.isEvent() {
				if evt := entry.normalize(); evt.Valid() {
					events = append(events, evt)
				}
			}
		}
	}

	if node.Type.isEvent() {
		if evt := node.normalize(); evt.Valid() {
			events = append(events, evt)
		}
	}

	if len(node.Graph) > 0 && depth < maxLDDepth {
		for _, child := range decodeLDNodes(node.Graph) {
			events = append(events, collectLDEvents(child, depth+1)...)
		}
	}

	return events
}

func (n ldNode) normalize() event.Event {
	startDate, startTime := splitDateTime(n.StartDate)
	endDate, endTime := splitDateTime(n.EndDate)

	return event.Event{
		Name:          n.Name.String(),
		Summary:       n.Description.String(),
		URL:           n.URL.String(),
		ImageURL:      n.Image.url(),
		StartDate:     startDate,
		StartTime:     startTime,
		EndDate:       endDate,
		EndTime:       endTime,
		IsOnlineEvent: strings.Contains(n.EventAttendanceMode, onlineMarker),
		Location:      ldLocation(n.Location),
	}
}

// splitDateTime splits "2026-03-15T19:00:00Z" into "2026-03-15" and
// "19:00:00". A trailing UTC marker is dropped; other offsets are kept.
func splitDateTime(ts string) (date, clock string) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "", ""
	}
	date, clock, found := strings.Cut(ts, "T")
	if !found {
		return date, ""
	}
	return date, strings.TrimSuffix(clock, "Z")
}

// ldLocation returns the location name, or "Online" for a virtual location.
// Arrays use their first entry.
func ldLocation(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return ""
		}
		return ldLocation(list[0])
	}

	var loc struct {
		Type ldType      `json:"@type"`
		Name looseString `json:"name"`
	}
	if err := json.Unmarshal(raw, &loc); err != nil {
		return ""
	}
	if name := loc.Name.String(); name != "" {
		return name
	}
	if loc.Type.is(ldTypeVirtualLocation) {
		return onlineMarker
	}
	return ""
}
