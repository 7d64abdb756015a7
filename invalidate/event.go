package invalidate

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies what content changed.
type Kind string

const (
	KindDeck        Kind = "deck"
	KindPage        Kind = "page"
	KindProjectPage Kind = "project_page"
	KindBackground  Kind = "background"
)

// Category is one of the two secondary navigation pages of a tenant.
type Category string

const (
	CategoryPageOne Category = "page_one"
	CategoryPageTwo Category = "page_two"
)

// Categories lists every valid Category.
var Categories = []Category{CategoryPageOne, CategoryPageTwo}

// Event is a single "this content changed" notification.
//
// TenantSlug is required for every kind except project_page, where it is
// optional. Category is used by page events, PageID by project_page events.
type Event struct {
	Kind       Kind
	TenantSlug string
	Category   Category
	PageID     int64
}

// Deck returns the event for a tenant's deck (landing page) change.
func Deck(slug string) Event {
	return Event{Kind: KindDeck, TenantSlug: slug}
}

// Background returns the event for a tenant's background change.
func Background(slug string) Event {
	return Event{Kind: KindBackground, TenantSlug: slug}
}

// Page returns the event for a change to one of a tenant's nav pages.
func Page(slug string, category Category) Event {
	return Event{Kind: KindPage, TenantSlug: slug, Category: category}
}

// ProjectPage returns the event for a project page change. slug may be empty.
func ProjectPage(id int64, slug string) Event {
	return Event{Kind: KindProjectPage, PageID: id, TenantSlug: slug}
}

// SlugChanged returns the events needed when a tenant slug is created or
// renamed. The old slug's pages are purged too when it differs from the new one.
func SlugChanged(oldSlug, newSlug string) []Event {
	var events []Event
	if oldSlug != "" && oldSlug != newSlug {
		events = append(events, tenantEvents(oldSlug)...)
	}
	return append(events, tenantEvents(newSlug)...)
}

func tenantEvents(slug string) []Event {
	events := []Event{Deck(slug), Background(slug)}
	for _, cat := range Categories {
		events = append(events, Page(slug, cat))
	}
	return events
}

// Validate checks that the event carries the identifiers its kind requires.
func (e Event) Validate() error {
	switch e.Kind {
	case KindDeck, KindBackground:
		if strings.TrimSpace(e.TenantSlug) == "" {
			return invalid("slug", "required for "+string(e.Kind))
		}
	case KindPage:
		if strings.TrimSpace(e.TenantSlug) == "" {
			return invalid("slug", "required for page")
		}
		if e.Category != CategoryPageOne && e.Category != CategoryPageTwo {
			return invalid("category", "must be page_one or page_two")
		}
	case KindProjectPage:
		if e.PageID <= 0 {
			return invalid("id", "must be a positive integer")
		}
	case "":
		return invalid("kind", "required")
	default:
		return invalid("kind", "unknown kind "+strconv.Quote(string(e.Kind)))
	}
	return nil
}

// Payload is the JSON body of an invalidation request.
type Payload struct {
	Kind     string      `json:"kind"`
	Slug     string      `json:"slug,omitempty"`
	Category string      `json:"category,omitempty"`
	ID       json.Number `json:"id,omitempty"`
}

// ParseEvent validates p and converts it to an Event. The id may be a JSON
// number or a numeric string.
func ParseEvent(p Payload) (Event, error) {
	ev := Event{
		Kind:       Kind(p.Kind),
		TenantSlug: p.Slug,
		Category:   Category(p.Category),
	}

	if ev.Kind == KindProjectPage {
		if p.ID == "" {
			return Event{}, invalid("id", "required for project_page")
		}
		id, err := strconv.ParseInt(p.ID.String(), 10, 64)
		if err != nil {
			return Event{}, invalid("id", "must be numeric")
		}
		ev.PageID = id
	}

	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Payload returns the wire form of the event.
func (e Event) Payload() Payload {
	p := Payload{
		Kind:     string(e.Kind),
		Slug:     e.TenantSlug,
		Category: string(e.Category),
	}
	if e.Kind == KindProjectPage {
		p.ID = json.Number(strconv.FormatInt(e.PageID, 10))
	}
	return p
}
