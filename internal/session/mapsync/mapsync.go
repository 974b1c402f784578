// Package mapsync keeps the displayed map annotations consistent with the
// current point set and search text, and drives viewport recentering.
package mapsync

import (
	"strings"

	"github.com/wowedo/searchsync/internal/location"
	"github.com/wowedo/searchsync/internal/model"
)

// RegionSpanMeters is the fixed viewport span used for every recenter, both
// around the user and around a selected point.
const RegionSpanMeters = 500

type Region struct {
	Center     model.Coordinate `json:"center"`
	SpanMeters float64          `json:"spanMeters"`
}

type Annotation struct {
	Title      string           `json:"title"`
	Coordinate model.Coordinate `json:"coordinate"`
}

// ViewportState tracks the one-shot initial centering:
// Uninitialized → Centering → Idle.
type ViewportState int

const (
	ViewportUninitialized ViewportState = iota
	ViewportCentering
	ViewportIdle
)

type Controller struct {
	points   []model.PointOfInterest
	selected *model.PointOfInterest

	viewport       ViewportState
	shouldRecenter bool
	region         *Region

	auth            location.AuthStatus
	locationEnabled bool
	userCoord       model.Coordinate

	onSelect func(model.PointOfInterest)
}

// New builds a controller. onSelect fires when an annotation tap resolves to
// a point (detail-view navigation); nil disables the callback.
func New(onSelect func(model.PointOfInterest)) *Controller {
	return &Controller{onSelect: onSelect}
}

// SetPoints replaces the point set wholesale. Points come from event-list
// responses; there is no incremental patching.
func (c *Controller) SetPoints(pts []model.PointOfInterest) {
	c.points = pts
}

func (c *Controller) Points() []model.PointOfInterest { return c.points }

// Selected returns a copy of the selected point, if any.
func (c *Controller) Selected() (model.PointOfInterest, bool) {
	if c.selected == nil {
		return model.PointOfInterest{}, false
	}
	return *c.selected, true
}

// RequestRecenter arms the one-shot recenter flag, typically when the map
// becomes visible.
func (c *Controller) RequestRecenter() { c.shouldRecenter = true }

func (c *Controller) ShouldRecenter() bool { return c.shouldRecenter }

func (c *Controller) Viewport() ViewportState { return c.viewport }

// SelectByLocationText selects the first point whose location label contains
// text case-insensitively. This is the map-mode search path: a local select,
// never a remote query.
func (c *Controller) SelectByLocationText(text string) bool {
	if text == "" {
		return false
	}
	needle := strings.ToLower(text)
	for i := range c.points {
		if strings.Contains(strings.ToLower(c.points[i].LocationName), needle) {
			p := c.points[i]
			c.selected = &p
			return true
		}
	}
	return false
}

// ResolveTap maps a tapped annotation title back to a point by exact name
// match, first in sequence order. Selects the point and fires the
// detail-navigation callback.
func (c *Controller) ResolveTap(title string) (model.PointOfInterest, bool) {
	for i := range c.points {
		if c.points[i].Name == title {
			p := c.points[i]
			c.selected = &p
			if c.onSelect != nil {
				c.onSelect(p)
			}
			return p, true
		}
	}
	return model.PointOfInterest{}, false
}

// HandleAuthorization applies an authorization-status change and reports
// whether permission should be requested (again).
func (c *Controller) HandleAuthorization(st location.AuthStatus) bool {
	c.auth = st
	switch st {
	case location.AuthAuthorizedWhenInUse:
		c.locationEnabled = true
		return false
	case location.AuthDenied, location.AuthRestricted:
		c.locationEnabled = false
		return false
	default:
		return true
	}
}

func (c *Controller) LocationEnabled() bool { return c.locationEnabled }

// HandleCoordinate records the latest device coordinate.
func (c *Controller) HandleCoordinate(coord model.Coordinate) {
	c.userCoord = coord
}

// UserLocated reports whether a placeable device coordinate has arrived.
func (c *Controller) UserLocated() bool { return c.userCoord.Valid() }

type RenderPass struct {
	Annotations []Annotation `json:"annotations"`
	Region      *Region      `json:"region,omitempty"`
	Recentered  bool         `json:"recentered"`
}

// Render runs one reconciliation pass: consumes the recenter flag (exactly
// once, even when no coordinate is available yet), rebuilds the full
// annotation set from the search-filtered points, and recenters on the
// selected point if there is one.
func (c *Controller) Render(searchText string) RenderPass {
	recentered := false

	if c.shouldRecenter {
		c.shouldRecenter = false
		if c.viewport == ViewportUninitialized {
			c.viewport = ViewportCentering
			if c.locationEnabled && c.userCoord.Valid() {
				c.region = &Region{Center: c.userCoord, SpanMeters: RegionSpanMeters}
				recentered = true
			}
			// A missed authorization race skips auto-centering for this
			// lifetime; the flag stays consumed on purpose.
		}
		c.viewport = ViewportIdle
	}

	if c.selected != nil {
		c.region = &Region{Center: c.selected.Coordinate(), SpanMeters: RegionSpanMeters}
	}

	pass := RenderPass{
		Annotations: FilterAnnotations(c.points, searchText),
		Recentered:  recentered,
	}
	if c.region != nil {
		r := *c.region
		pass.Region = &r
	}
	return pass
}

// FilterAnnotations builds the annotation set for the points whose name
// contains text case-insensitively; empty text keeps every point.
func FilterAnnotations(points []model.PointOfInterest, text string) []Annotation {
	needle := strings.ToLower(text)
	out := make([]Annotation, 0, len(points))
	for _, p := range points {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		out = append(out, Annotation{Title: p.Name, Coordinate: p.Coordinate()})
	}
	return out
}
