// Package upstream issues parameterized GET queries against the legacy PHP
// API and decodes the JSON payloads into model types.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/wowedo/searchsync/internal/model"
	"github.com/wowedo/searchsync/internal/observability"
	"github.com/wowedo/searchsync/internal/upstream/keys"
)

// ResponseCache stores raw GET payloads keyed by normalized query key. A nil
// cache disables caching entirely.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// PrefixDeleter is the optional invalidation surface of a ResponseCache.
// Caches that implement it get their search entries dropped after a
// successful add/remove mutation, so the post-toggle refresh never reads the
// pre-mutation list.
type PrefixDeleter interface {
	DelByPrefix(ctx context.Context, prefix string) (int, error)
}

type Client struct {
	logger    *slog.Logger
	http      *http.Client
	base      *url.URL
	cache     ResponseCache
	ttlSearch time.Duration
	ttlEvents time.Duration
	startNow  func() time.Time // for tests
}

type Option func(*Client)

// WithCache enables response caching for the unfiltered search and events
// queries. Filtered queries always bypass the cache.
func WithCache(cache ResponseCache, searchTTL, eventsTTL time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.ttlSearch = searchTTL
		c.ttlEvents = eventsTTL
	}
}

func New(logger *slog.Logger, hc *http.Client, baseURL string, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if hc == nil {
		hc = NewOutbound()
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	c := &Client{
		logger:   logger,
		http:     hc,
		base:     u,
		startNow: time.Now,
	}
	for _, f := range opts {
		f(c)
	}
	return c, nil
}

// NewOutbound creates the http client used for calls to the legacy API.
func NewOutbound() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   128,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

type elementListPayload struct {
	Items        []string `json:"itemsList"`
	AlreadyAdded []bool   `json:"alreadyAdded"`
	IDs          []int    `json:"idItemList"`
}

type postListPayload struct {
	Posts []model.PointOfInterest `json:"postList"`
}

type ackPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SearchElements runs the unfiltered text search for one element type.
func (c *Client) SearchElements(ctx context.Context, text string, t model.ElementType) (model.ElementList, error) {
	var out elementListPayload
	if err := c.getJSON(ctx, EndpointSearch, SearchParams(text, t), &out, c.ttlSearch); err != nil {
		return model.ElementList{}, err
	}
	return model.NewElementList(out.Items, out.AlreadyAdded, out.IDs), nil
}

// SearchElementsFiltered runs the structured-filter search. The filtered
// endpoint returns itemsList only; added flags and ids are absent by design.
func (c *Client) SearchElementsFiltered(ctx context.Context, f model.FilterSettings) ([]string, error) {
	var out elementListPayload
	if err := c.getJSON(ctx, EndpointSearch, FilteredParams(f), &out, 0); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// AddOrRemoveItem issues the membership mutation for one element and drops
// the cached search responses it just made stale.
func (c *Client) AddOrRemoveItem(ctx context.Context, id int, toDelete bool, t model.ElementType) error {
	var out ackPayload
	if err := c.getJSON(ctx, EndpointToggle, ToggleParams(id, toDelete, t), &out, 0); err != nil {
		return err
	}
	if del, ok := c.cache.(PrefixDeleter); ok {
		if _, err := del.DelByPrefix(ctx, keys.EndpointPrefix(EndpointSearch)); err != nil {
			c.logger.Warn("search cache invalidation failed", "err", err)
		}
	}
	return nil
}

// EventsPage fetches one page of the unfiltered events list.
func (c *Client) EventsPage(ctx context.Context, page int) ([]model.PointOfInterest, error) {
	var out postListPayload
	if err := c.getJSON(ctx, EndpointEvents, EventsPageParams(page), &out, c.ttlEvents); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// EventsFiltered fetches the events list constrained by the committed filter
// settings. Paging does not apply in filtered mode.
func (c *Client) EventsFiltered(ctx context.Context, f model.FilterSettings) ([]model.PointOfInterest, error) {
	var out postListPayload
	if err := c.getJSON(ctx, EndpointEvents, FilteredParams(f), &out, 0); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// PersonalCategories runs the category autocomplete lookup.
func (c *Client) PersonalCategories(ctx context.Context, text string) ([]string, error) {
	var out elementListPayload
	if err := c.getJSON(ctx, EndpointCategories, CategoryLookupParams(text), &out, 0); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, p Params, out any, ttl time.Duration) error {
	rawQuery := p.Encode()

	cacheKey := ""
	if c.cache != nil && ttl > 0 {
		cacheKey = keys.Key(endpoint, rawQuery)
		if b, ok, err := c.cache.Get(ctx, cacheKey); err != nil {
			c.logger.Warn("cache get failed", "endpoint", endpoint, "err", err)
		} else if ok {
			observability.IncCacheHit()
			if err := json.Unmarshal(b, out); err == nil {
				return nil
			}
			// poisoned entry, fall through to upstream
			c.logger.Warn("cached payload undecodable, refetching", "endpoint", endpoint)
		} else {
			observability.IncCacheMiss()
		}
	}

	u := c.base.JoinPath(endpoint)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.startNow()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.IncUpstreamError(endpoint, "transport")
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	observability.ObserveUpstreamLatency(endpoint, time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.IncUpstreamError(endpoint, "status")
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return fmt.Errorf("GET %s: upstream status %d: %s", endpoint, resp.StatusCode, string(b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.IncUpstreamError(endpoint, "transport")
		return fmt.Errorf("GET %s: read body: %w", endpoint, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		observability.IncUpstreamError(endpoint, "decode")
		return fmt.Errorf("GET %s: decode: %w", endpoint, err)
	}

	if cacheKey != "" {
		if err := c.cache.Set(ctx, cacheKey, body, ttl); err != nil {
			c.logger.Warn("cache set failed", "endpoint", endpoint, "err", err)
		}
	}
	return nil
}
