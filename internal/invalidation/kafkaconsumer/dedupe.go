package kafkaconsumer

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wowedo/searchsync/internal/invalidation"
)

// eventDedupe drops redelivered mutations. The topic is at-least-once, so a
// rebalance can replay events already applied; an event is stale when its
// timestamp is not newer than the last one seen for the same item.
type eventDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, time.Time]
}

func newEventDedupe(size int) *eventDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, time.Time](size)
	return &eventDedupe{lru: c}
}

func dedupeKey(ev invalidation.Event) string {
	return fmt.Sprintf("%s:%d", ev.ElementType, ev.ItemID)
}

// shouldApply reports whether ev is newer than the last applied event for its
// item, recording it when so.
func (d *eventDedupe) shouldApply(ev invalidation.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := dedupeKey(ev)
	if last, ok := d.lru.Get(key); ok && !ev.TS.After(last) {
		return false
	}
	d.lru.Add(key, ev.TS)
	return true
}
