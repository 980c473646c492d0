package extract

import "testing"

func TestMarkup_Extract(t *testing.T) {
	doc := docFromFixture(t, "cards.html")

	batch, ok := Markup{}.Extract(doc)
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	if len(batch.Events) != 2 {
		t.Fatalf("got %d events, want 2 (first selector tier only): %+v", len(batch.Events), batch.Events)
	}

	pottery := batch.Events[0]
	if pottery.Name != "Pottery Class" {
		t.Errorf("Name = %q, want collapsed whitespace", pottery.Name)
	}
	if pottery.ID != "123456789" {
		t.Errorf("ID = %q, want 123456789", pottery.ID)
	}
	if pottery.URL != "https://www.eventbrite.com/e/pottery-class-tickets-123456789?aff=ebdssbdestsearch" {
		t.Errorf("URL = %q", pottery.URL)
	}
	if pottery.ImageURL != "https://cdn.evbuc.com/images/5/original.jpg" {
		t.Errorf("ImageURL = %q", pottery.ImageURL)
	}
	if pottery.DateText != "Sat, Nov 8, 10:00 AM" {
		t.Errorf("DateText = %q", pottery.DateText)
	}
	if pottery.Price != "From $35.00" || pottery.IsFree {
		t.Errorf("Price/IsFree = %q/%v", pottery.Price, pottery.IsFree)
	}

	run := batch.Events[1]
	if run.Name != "Community Run" || run.ID != "987" {
		t.Errorf("second card = %+v", run)
	}
	if !run.IsFree || run.Price != "Free" {
		t.Errorf("Price/IsFree = %q/%v, want Free/true", run.Price, run.IsFree)
	}
}

func TestMarkup_SelectorTiers(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantNames []string
		wantOK    bool
	}{
		{
			name:      "falls to lower tier when higher has no matches",
			html:      `<section class="discover-vertical-event-card"><h3>Lower</h3><a href="/e/lower-tickets-1">x</a></section>`,
			wantNames: []string{"Lower"},
			wantOK:    true,
		},
		{
			name: "card that is itself a link",
			html: `<a class="event-card-link" href="/e/linked-tickets-55"><h2>Linked</h2><span>€12,50</span></a>`,
			wantNames: []string{"Linked"},
			wantOK:    true,
		},
		{
			name: "no mixing across tiers",
			html: `<div data-testid="search-event"><span>ad</span></div>
				<section class="discover-vertical-event-card"><h3>Ignored</h3></section>`,
			wantOK: false,
		},
		{
			name:   "no cards at all",
			html:   `<div class="other"><h3>Nope</h3></div>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, ok := Markup{}.Extract(docFromString(t, tt.html))
			if ok != tt.wantOK {
				t.Fatalf("Extract() ok = %v, want %v", ok, tt.wantOK)
			}
			if len(batch.Events) != len(tt.wantNames) {
				t.Fatalf("got %d events, want %d", len(batch.Events), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if batch.Events[i].Name != name {
					t.Errorf("event %d name = %q, want %q", i, batch.Events[i].Name, name)
				}
			}
		})
	}
}

func TestMarkup_LinkedCardPrice(t *testing.T) {
	html := `<a class="event-card-link" href="/e/linked-tickets-55"><h2>Linked</h2><span>from £9.99</span></a>`
	batch, ok := Markup{Origin: "https://www.eventbrite.co.uk"}.Extract(docFromString(t, html))
	if !ok {
		t.Fatal("Extract() found nothing")
	}
	evt := batch.Events[0]
	if evt.Price != "from £9.99" {
		t.Errorf("Price = %q, want from £9.99", evt.Price)
	}
	if evt.URL != "https://www.eventbrite.co.uk/e/linked-tickets-55" {
		t.Errorf("URL = %q, want qualified against origin", evt.URL)
	}
	if evt.ID != "55" {
		t.Errorf("ID = %q, want 55", evt.ID)
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		origin, href, want string
	}{
		{"https://www.eventbrite.com", "/e/x-1", "https://www.eventbrite.com/e/x-1"},
		{"https://www.eventbrite.com", "https://other.example/e/y", "https://other.example/e/y"},
		{"https://www.eventbrite.com", "//www.eventbrite.com/e/z-2", "https://www.eventbrite.com/e/z-2"},
		{"https://www.eventbrite.com/", "e/rel-3", "https://www.eventbrite.com/e/rel-3"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			if got := absoluteURL(tt.origin, tt.href); got != tt.want {
				t.Errorf("absoluteURL(%q, %q) = %q, want %q", tt.origin, tt.href, got, tt.want)
			}
		})
	}
}
