// Package model defines the value types shared by the session controllers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ElementType is the closed set of searchable element kinds. The wire names
// are what the legacy PHP API expects in its "type" parameter.
type ElementType int

const (
	ElementPosts ElementType = iota
	ElementFriends
	ElementCategories
)

func (t ElementType) String() string {
	switch t {
	case ElementPosts:
		return "posts"
	case ElementFriends:
		return "friends"
	case ElementCategories:
		return "categories"
	default:
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
}

// WireName returns the upstream "type" parameter value for t.
func (t ElementType) WireName() string {
	switch t {
	case ElementFriends:
		return "user"
	case ElementCategories:
		return "event_category"
	default:
		return "post"
	}
}

func ParseElementType(s string) (ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "posts", "post":
		return ElementPosts, nil
	case "friends", "user":
		return ElementFriends, nil
	case "categories", "event_category":
		return ElementCategories, nil
	default:
		return ElementPosts, fmt.Errorf("unknown element type %q", s)
	}
}

// ViewType selects between the list and the map presentation. Map is only
// reachable for posts; the session enforces that.
type ViewType int

const (
	ViewList ViewType = iota
	ViewMap
)

func (v ViewType) String() string {
	if v == ViewMap {
		return "map"
	}
	return "list"
}

func ParseViewType(s string) (ViewType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "list":
		return ViewList, nil
	case "map":
		return ViewMap, nil
	default:
		return ViewList, fmt.Errorf("unknown view type %q", s)
	}
}

// Coordinate is a WGS84 point in floating-point degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) IsZero() bool { return c.Lat == 0 && c.Lon == 0 }

// Valid reports whether c can be placed on a map. The zero coordinate is the
// "unplaced" sentinel used before any data loads and is never valid.
func (c Coordinate) Valid() bool {
	if c.IsZero() {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// PointOfInterest is a geo-located post/event as returned by the events list
// endpoints. Field tags match the legacy JSON schema.
type PointOfInterest struct {
	ID           int     `json:"idPost"`
	Name         string  `json:"postName"`
	EventDate    string  `json:"eventDate"`
	EventTime    string  `json:"eventTime"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"locationName"`
	Description  string  `json:"postDescription"`
	Image        []byte  `json:"image,omitempty"`
}

func (p PointOfInterest) Coordinate() Coordinate {
	return Coordinate{Lat: p.Latitude, Lon: p.Longitude}
}

// ElementList holds the displayed items as three parallel slices indexed
// consistently. Equal length is a structural invariant; use NewElementList to
// normalize untrusted input.
type ElementList struct {
	Items        []string `json:"items"`
	AlreadyAdded []bool   `json:"alreadyAdded"`
	IDs          []int    `json:"ids"`
}

// NewElementList builds an ElementList from possibly skewed upstream slices,
// truncating all three to the shortest length so the index correspondence
// invariant holds.
func NewElementList(items []string, added []bool, ids []int) ElementList {
	n := len(items)
	if len(added) < n {
		n = len(added)
	}
	if len(ids) < n {
		n = len(ids)
	}
	return ElementList{
		Items:        items[:n:n],
		AlreadyAdded: added[:n:n],
		IDs:          ids[:n:n],
	}
}

// ItemsOnlyList builds an ElementList from a bare item slice. The filtered
// search endpoint returns no added flags or ids; defaults keep the parallel
// slices aligned.
func ItemsOnlyList(items []string) ElementList {
	return ElementList{
		Items:        items,
		AlreadyAdded: make([]bool, len(items)),
		IDs:          make([]int, len(items)),
	}
}

func (l ElementList) Len() int { return len(l.Items) }

// Added returns the alreadyAdded flag for the element with the given id.
func (l ElementList) Added(id int) (bool, bool) {
	for i, v := range l.IDs {
		if v == id {
			return l.AlreadyAdded[i], true
		}
	}
	return false, false
}

func (l ElementList) Clone() ElementList {
	out := ElementList{
		Items:        make([]string, len(l.Items)),
		AlreadyAdded: make([]bool, len(l.AlreadyAdded)),
		IDs:          make([]int, len(l.IDs)),
	}
	copy(out.Items, l.Items)
	copy(out.AlreadyAdded, l.AlreadyAdded)
	copy(out.IDs, l.IDs)
	return out
}

// FilterSettings is the committed structured filter. Categories and tags are
// display strings deduplicated by string equality, order preserved.
type FilterSettings struct {
	SelectedDate         time.Time `json:"selectedDate"`
	SelectedTime         time.Time `json:"selectedTime"`
	Categories           []string  `json:"categories"`
	Tags                 []string  `json:"tags"`
	MaxBudget            int       `json:"maxBudget"`
	IncludeFurtherEvents bool      `json:"includeFurtherEvents"`
}

// DefaultFilterSettings mirrors the initial state of the filter workflow:
// date and time set to now, no categories or tags, budget 0, further events
// included.
func DefaultFilterSettings(now time.Time) FilterSettings {
	return FilterSettings{
		SelectedDate:         now,
		SelectedTime:         now,
		IncludeFurtherEvents: true,
	}
}

func (f FilterSettings) Clone() FilterSettings {
	out := f
	out.Categories = append([]string(nil), f.Categories...)
	out.Tags = append([]string(nil), f.Tags...)
	return out
}

// Dedupe returns s with duplicate strings removed, first occurrence wins.
func Dedupe(s []string) []string {
	seen := make(map[string]struct{}, len(s))
	out := s[:0:0]
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
