package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/eventbrite-events/internal/event"
	"github.com/pfrederiksen/eventbrite-events/internal/logger"
	"github.com/pfrederiksen/eventbrite-events/internal/normalize"
)

// DefaultOrigin qualifies relative event links
const DefaultOrigin = "https://www.eventbrite.com"

// cardSelectors are tried in order; only the first one with matches is used
var cardSelectors = []string{
	`[data-testid="search-event"]`,
	`section.discover-vertical-event-card`,
	`.event-card-link`,
	`[data-event-id]`,
}

const (
	cardLinkSelector  = `a.event-card-link, a[href*="/e/"]`
	cardTitleSelector = `h3, h2, [data-testid="event-title"]`
	cardDateSelector  = `p, time, [data-testid="event-date"]`
)

var (
	freePattern    = regexp.MustCompile(`(?i)free`)
	pricePattern   = regexp.MustCompile(`(?i)(?:from\s*)?[$£€][\d,.]+`)
	eventIDPattern = regexp.MustCompile(`/e/[^/]+-(\d+)`)
)

// Markup scrapes event cards from rendered HTML
type Markup struct {
	// Origin qualifies relative links. Defaults to DefaultOrigin.
	Origin string
}

// Method implements Strategy
func (Markup) Method() event.Method { return event.MethodMarkup }

// Extract implements Strategy. Card listings carry no page count.
func (m Markup) Extract(doc *goquery.Document) (Batch, bool) {
	var cards *goquery.Selection
	var used string
	for _, selector := range cardSelectors {
		if found := doc.Find(selector); found.Length() > 0 {
			cards, used = found, selector
			break
		}
	}
	if cards == nil {
		logger.Debug("No event cards found", logger.Fields{"strategy": string(event.MethodMarkup)})
		return Batch{}, false
	}

	origin := m.Origin
	if origin == "" {
		origin = DefaultOrigin
	}

	var events []event.Event
	cards.Each(func(_ int, card *goquery.Selection) {
		evt := scrapeCard(card).normalize(origin)
		if evt.Valid() {
			events = append(events, evt)
		}
	})

	if len(events) == 0 {
		logger.Debug("Event cards held no usable records", logger.Fields{
			"strategy": string(event.MethodMarkup),
			"selector": used,
			"cards":    cards.Length(),
		})
		return Batch{}, false
	}
	return Batch{Events: events}, true
}

// markupCard is what one card yields before normalization
type markupCard struct {
	href     string
	title    string
	imageSrc string
	dateText string
	text     string
}

func scrapeCard(card *goquery.Selection) markupCard {
	link := card
	if !card.Is("a") {
		link = card.Find(cardLinkSelector).First()
	}
	href, _ := link.Attr("href")

	img := card.Find("img").First()
	src, _ := img.Attr("src")
	if strings.TrimSpace(src) == "" {
		src, _ = img.Attr("data-src")
	}

	return markupCard{
		href:     strings.TrimSpace(href),
		title:    collapseSpace(card.Find(cardTitleSelector).First().Text()),
		imageSrc: src,
		dateText: collapseSpace(card.Find(cardDateSelector).First().Text()),
		text:     card.Text(),
	}
}

func (c markupCard) normalize(origin string) event.Event {
	evt := event.Event{
		Name:     c.title,
		ImageURL: normalize.ImageURL(c.imageSrc),
		DateText: c.dateText,
	}

	if freePattern.MatchString(c.text) {
		evt.IsFree = true
		evt.Price = normalize.FreeLabel
	} else if p := pricePattern.FindString(c.text); p != "" {
		evt.Price = p
	}

	if c.href != "" {
		if m := eventIDPattern.FindStringSubmatch(c.href); m != nil {
			evt.ID = m[1]
		}
		evt.URL = absoluteURL(origin, c.href)
	}

	return evt
}

// absoluteURL qualifies href against origin. Absolute http(s) links are kept.
func absoluteURL(origin, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	base, err := url.Parse(origin)
	if err != nil {
		return strings.TrimRight(origin, "/") + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimRight(origin, "/") + href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
