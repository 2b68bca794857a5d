package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

// ErrStartsAt is returned when an event file carries an unparsable starts_at.
var ErrStartsAt = errors.New("event: starts_at must be RFC3339")

type fileEvent struct {
	Name       string          `hcl:"name,optional"`
	Tagline    string          `hcl:"tagline,optional"`
	StartsAt   string          `hcl:"starts_at,optional"`
	Venue      *fileVenue      `hcl:"venue,block"`
	Sessions   []fileSession   `hcl:"session,block"`
	Highlights []fileHighlight `hcl:"highlight,block"`
	Tickets    []fileTicket    `hcl:"ticket,block"`
}

type fileVenue struct {
	Name          string   `hcl:"name"`
	Description   string   `hcl:"description,optional"`
	Latitude      float64  `hcl:"latitude"`
	Longitude     float64  `hcl:"longitude"`
	Zoom          int      `hcl:"zoom,optional"`
	MarkerTitle   string   `hcl:"marker_title,optional"`
	Address       []string `hcl:"address,optional"`
	Phone         string   `hcl:"phone,optional"`
	DirectionsURL string   `hcl:"directions_url,optional"`
	Amenities     []string `hcl:"amenities,optional"`
}

type fileSession struct {
	Time        string   `hcl:"time,label"`
	Title       string   `hcl:"title"`
	Description string   `hcl:"description,optional"`
	Tags        []string `hcl:"tags,optional"`
}

type fileHighlight struct {
	Title       string `hcl:"title,label"`
	Image       string `hcl:"image"`
	Category    string `hcl:"category,optional"`
	Description string `hcl:"description,optional"`
}

type fileTicket struct {
	Type     string `hcl:"type,label"`
	Label    string `hcl:"label"`
	PriceINR int    `hcl:"price_inr"`
}

// LoadFile decodes an HCL event file and lays it over Default. Attributes
// left out of the file keep their default; a block kind that appears at all
// replaces the whole default list.
func LoadFile(path string) (Event, error) {
	const op = "event.LoadFile"

	base := Default()
	var f fileEvent
	if err := hclsimple.DecodeFile(path, evalContext(base), &f); err != nil {
		return Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return f.merge(base)
}

// evalContext lets a file refer to the built-in values, e.g.
// tagline = "${defaults.tagline}, Delhi edition".
func evalContext(ev Event) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"defaults": cty.ObjectVal(map[string]cty.Value{
				"name":      cty.StringVal(ev.Name),
				"tagline":   cty.StringVal(ev.Tagline),
				"starts_at": cty.StringVal(ev.StartsAt.Format(time.RFC3339)),
				"venue":     cty.StringVal(ev.Venue.Name),
			}),
		},
	}
}

func (f fileEvent) merge(ev Event) (Event, error) {
	if f.Name != "" {
		ev.Name = f.Name
	}
	if f.Tagline != "" {
		ev.Tagline = f.Tagline
	}
	if f.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, f.StartsAt)
		if err != nil {
			return Event{}, fmt.Errorf("%w: %q", ErrStartsAt, f.StartsAt)
		}
		ev.StartsAt = t
	}

	if v := f.Venue; v != nil {
		ev.Venue = Venue{
			Name:          v.Name,
			Description:   v.Description,
			Latitude:      v.Latitude,
			Longitude:     v.Longitude,
			Zoom:          v.Zoom,
			MarkerTitle:   v.MarkerTitle,
			Address:       v.Address,
			Phone:         v.Phone,
			DirectionsURL: v.DirectionsURL,
			Amenities:     v.Amenities,
		}
		if ev.Venue.Zoom == 0 {
			ev.Venue.Zoom = 15
		}
		if ev.Venue.MarkerTitle == "" {
			ev.Venue.MarkerTitle = v.Name
		}
	}

	if len(f.Sessions) > 0 {
		ev.Sessions = make([]Session, 0, len(f.Sessions))
		for _, s := range f.Sessions {
			ev.Sessions = append(ev.Sessions, Session(s))
		}
	}
	if len(f.Highlights) > 0 {
		ev.Highlights = make([]Highlight, 0, len(f.Highlights))
		for _, h := range f.Highlights {
			ev.Highlights = append(ev.Highlights, Highlight(h))
		}
	}
	if len(f.Tickets) > 0 {
		ev.Tickets = make([]Ticket, 0, len(f.Tickets))
		for _, t := range f.Tickets {
			ev.Tickets = append(ev.Tickets, Ticket(t))
		}
	}
	return ev, nil
}

// WithTarget returns a copy whose countdown target is t.
func (e Event) WithTarget(t time.Time) Event {
	e.StartsAt = t
	return e
}

// Ticket returns the tier with the given type.
func (e Event) Ticket(kind string) (Ticket, bool) {
	for _, t := range e.Tickets {
		if t.Type == kind {
			return t, true
		}
	}
	return Ticket{}, false
}
