package upstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wowedo/searchsync/internal/model"
)

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{m: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = val
	return nil
}

func (c *mapCache) DelByPrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
			n++
		}
	}
	return n, nil
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(slog.Default(), srv.Client(), srv.URL+"/", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearchElements_DecodesAndNormalizes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, EndpointSearch) {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "post" {
			t.Errorf("type=%q want post", got)
		}
		// skewed parallel arrays from upstream
		_ = json.NewEncoder(w).Encode(map[string]any{
			"itemsList":    []string{"Jazz night", "Open mic", "Extra"},
			"alreadyAdded": []bool{true, false},
			"idItemList":   []int{11, 12, 13},
		})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	list, err := c.SearchElements(ctx, "night", model.ElementPosts)
	if err != nil {
		t.Fatalf("SearchElements: %v", err)
	}
	if list.Len() != 2 {
		t.Fatalf("Len=%d want 2 (normalized to shortest)", list.Len())
	}
	if list.Items[0] != "Jazz night" || !list.AlreadyAdded[0] || list.IDs[0] != 11 {
		t.Fatalf("unexpected first row: %+v", list)
	}
}

func TestSearchElementsFiltered_ItemsOnly(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filtered") != "true" {
			t.Errorf("missing filtered=true in %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"itemsList":["A","B"]}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	items, err := c.SearchElementsFiltered(ctx, model.DefaultFilterSettings(time.Now()))
	if err != nil {
		t.Fatalf("SearchElementsFiltered: %v", err)
	}
	if len(items) != 2 || items[0] != "A" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestEventsPage_DecodesPostList(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			t.Errorf("page=%q want 1", r.URL.Query().Get("page"))
		}
		_, _ = w.Write([]byte(`{"postList":[
			{"idPost":5,"postName":"Concert","latitude":59.33,"longitude":18.07,"locationName":"Old Town"}
		]}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	posts, err := c.EventsPage(ctx, 1)
	if err != nil {
		t.Fatalf("EventsPage: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 5 || posts[0].LocationName != "Old Town" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if !posts[0].Coordinate().Valid() {
		t.Fatalf("expected valid coordinate, got %+v", posts[0].Coordinate())
	}
}

func TestGetJSON_UpstreamStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := c.EventsPage(ctx, 1); err == nil {
		t.Fatalf("expected error on upstream 502")
	}
}

func TestGetJSON_DecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := c.SearchElements(ctx, "x", model.ElementPosts); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCache_SecondCallServedFromCache(t *testing.T) {
	var calls int
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		_, _ = w.Write([]byte(`{"postList":[]}`))
	}), WithCache(newMapCache(), time.Minute, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := c.EventsPage(ctx, 1); err != nil {
			t.Fatalf("EventsPage: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("upstream calls=%d want 1 (second served from cache)", calls)
	}
}

func TestCache_ToggleInvalidatesSearchEntries(t *testing.T) {
	var searchCalls int
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, EndpointSearch) {
			mu.Lock()
			searchCalls++
			mu.Unlock()
			_, _ = w.Write([]byte(`{"itemsList":["A"],"alreadyAdded":[false],"idItemList":[1]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}), WithCache(newMapCache(), time.Minute, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := c.SearchElements(ctx, "a", model.ElementPosts); err != nil {
		t.Fatalf("SearchElements: %v", err)
	}
	if err := c.AddOrRemoveItem(ctx, 1, false, model.ElementPosts); err != nil {
		t.Fatalf("AddOrRemoveItem: %v", err)
	}
	if _, err := c.SearchElements(ctx, "a", model.ElementPosts); err != nil {
		t.Fatalf("SearchElements after toggle: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if searchCalls != 2 {
		t.Fatalf("search upstream calls=%d want 2 (toggle must drop cached search)", searchCalls)
	}
}

func TestCache_FilteredQueriesBypassCache(t *testing.T) {
	var calls int
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		_, _ = w.Write([]byte(`{"postList":[]}`))
	}), WithCache(newMapCache(), time.Minute, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	f := model.DefaultFilterSettings(time.Now())
	for i := 0; i < 2; i++ {
		if _, err := c.EventsFiltered(ctx, f); err != nil {
			t.Fatalf("EventsFiltered: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("upstream calls=%d want 2 (filtered bypasses cache)", calls)
	}
}
