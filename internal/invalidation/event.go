// Package invalidation defines the item-mutation event the legacy backend
// publishes whenever a post, friend or category changes. The consumer turns
// each event into cached-response deletions.
package invalidation

import (
	"fmt"
	"time"

	"github.com/wowedo/searchsync/internal/model"
	"github.com/wowedo/searchsync/internal/upstream"
)

type Event struct {
	Version     int       `json:"version"`
	Op          string    `json:"op"`
	ElementType string    `json:"element_type"`
	ItemID      int       `json:"item_id,omitempty"`
	TS          time.Time `json:"ts"`
	Source      string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("op must be insert|update|delete")
	}
	if _, err := model.ParseElementType(e.ElementType); err != nil {
		return fmt.Errorf("element_type: %w", err)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	if e.ItemID < 0 {
		return fmt.Errorf("item_id must not be negative")
	}
	return nil
}

// Endpoints returns the upstream endpoints whose cached responses the event
// makes stale. Post mutations touch both the element search and the events
// map; category mutations also stale the autocomplete source. The search
// endpoint serves every element type, so every mutation stales it.
func (e Event) Endpoints() []string {
	t, err := model.ParseElementType(e.ElementType)
	if err != nil {
		return nil
	}
	switch t {
	case model.ElementPosts:
		return []string{upstream.EndpointSearch, upstream.EndpointEvents}
	case model.ElementCategories:
		return []string{upstream.EndpointSearch, upstream.EndpointCategories}
	default:
		return []string{upstream.EndpointSearch}
	}
}
