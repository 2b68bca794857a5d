// Package event holds the content of the event page: schedule, gallery,
// venue and ticket tiers, plus the instant the countdown runs to.
package event

import "time"

// Event is everything the page renders apart from live state.
type Event struct {
	Name       string      `json:"name"`
	Tagline    string      `json:"tagline"`
	StartsAt   time.Time   `json:"starts_at"`
	Venue      Venue       `json:"venue"`
	Sessions   []Session   `json:"sessions"`
	Highlights []Highlight `json:"highlights"`
	Tickets    []Ticket    `json:"tickets"`
}

// Venue carries what an external map widget needs to drop a pin, plus the
// address block shown next to it.
type Venue struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Zoom          int      `json:"zoom"`
	MarkerTitle   string   `json:"marker_title"`
	Address       []string `json:"address"`
	Phone         string   `json:"phone"`
	DirectionsURL string   `json:"directions_url"`
	Amenities     []string `json:"amenities"`
}

// Session is one slot of the schedule.
type Session struct {
	Time        string   `json:"time"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Highlight is one gallery tile from a previous edition.
type Highlight struct {
	Title       string `json:"title"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Ticket is a price tier offered by the registration form.
type Ticket struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	PriceINR int    `json:"price_inr"`
}

// DefaultStart is the instant the countdown targets when nothing else is configured.
var DefaultStart = time.Date(2026, time.February, 21, 0, 0, 0, 0, time.UTC)

// Default returns the built-in content for TES 4.0.
func Default() Event {
	return Event{
		Name:     "TES 4.0",
		Tagline:  "The Ultimate Tech & Entrepreneurship Summit",
		StartsAt: DefaultStart,
		Venue: Venue{
			Name:        "ABES ENGINEERING COLLEGE",
			Description: "Premier event venue with state-of-the-art facilities, close to major transportation hubs.",
			Latitude:    36.1699,
			Longitude:   -115.1398,
			Zoom:        15,
			MarkerTitle: "ABES ENGINEERING COLLEGE - TES 4.0",
			Address:     []string{"19th KM Stone, NH-09", "Ghaziabad, 201009", "India"},
			Phone:       "+91 (702) 892-3025",
			DirectionsURL: "https://www.google.com/maps/place/Las+Vegas+Convention+Center/@36.1699,-115.1398,15z",
			Amenities: []string{
				"500,000+ sq ft of flexible exhibit space",
				"Multiple conference halls and breakout rooms",
				"High-speed WiFi and AV support throughout",
			},
		},
		Sessions: []Session{
			{
				Time:        "09:00",
				Title:       "Future of Decentralized Markets",
				Description: "Join industry leaders discussing the evolution of blockchain and decentralized finance",
				Tags:        []string{"TECH", "FINANCE"},
			},
			{
				Time:        "11:30",
				Title:       "AI & Emotional Intelligence",
				Description: "Explore how artificial intelligence is transforming human-computer interaction",
				Tags:        []string{"AI", "INNOVATION"},
			},
			{
				Time:        "14:00",
				Title:       "Venture Capital Speed Dating",
				Description: "Connect with venture capitalists and pitch your startup ideas in rapid-fire sessions",
				Tags:        []string{"STARTUP", "FUNDING"},
			},
		},
		Highlights: []Highlight{
			{
				Title:       "Main Stage 2025: The Opening",
				Image:       "https://images.unsplash.com/photo-1459749411175-04bf5292ceea?w=800&h=600&fit=crop",
				Category:    "OPENING",
				Description: "Experience the grand opening of TES 4.0",
			},
			{
				Title:       "Founder Pitches",
				Image:       "https://images.unsplash.com/photo-1552664730-d307ca884978?w=400&h=400&fit=crop",
				Category:    "PITCHES",
				Description: "Hear from innovative founders",
			},
			{
				Title:       "Network Hub",
				Image:       "https://images.unsplash.com/photo-1552664730-d307ca884978?w=400&h=400&fit=crop",
				Category:    "NETWORK",
				Description: "Connect with industry leaders",
			},
			{
				Title:       "Innovation Lab",
				Image:       "https://images.unsplash.com/photo-1552664730-d307ca884978?w=400&h=400&fit=crop",
				Category:    "LAB",
				Description: "Explore cutting-edge technologies",
			},
		},
		Tickets: []Ticket{
			{Type: "standard", Label: "Standard", PriceINR: 999},
			{Type: "vip", Label: "VIP", PriceINR: 2499},
			{Type: "earlybird", Label: "Early Bird", PriceINR: 499},
		},
	}
}
