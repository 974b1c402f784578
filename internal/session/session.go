// Package session drives all shared search state from a single goroutine.
// Upstream responses, debounce firings and location events are marshaled
// onto that goroutine as actions; no state bucket is ever touched from
// anywhere else.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/wowedo/searchsync/internal/location"
	"github.com/wowedo/searchsync/internal/model"
	"github.com/wowedo/searchsync/internal/observability"
	"github.com/wowedo/searchsync/internal/session/dispatch"
	"github.com/wowedo/searchsync/internal/session/filterflow"
	"github.com/wowedo/searchsync/internal/session/mapsync"
	"github.com/wowedo/searchsync/internal/session/togglelist"
)

// Querier is the remote query surface the session dispatches against.
// *upstream.Client implements it; tests substitute a fake.
type Querier interface {
	SearchElements(ctx context.Context, text string, t model.ElementType) (model.ElementList, error)
	SearchElementsFiltered(ctx context.Context, f model.FilterSettings) ([]string, error)
	AddOrRemoveItem(ctx context.Context, id int, toDelete bool, t model.ElementType) error
	EventsPage(ctx context.Context, page int) ([]model.PointOfInterest, error)
	EventsFiltered(ctx context.Context, f model.FilterSettings) ([]model.PointOfInterest, error)
	PersonalCategories(ctx context.Context, text string) ([]string, error)
}

type Config struct {
	AutocompleteDebounce time.Duration
	SuggestionCacheSize  int
}

// Snapshot is the immutable view of session state handed to subscribers and
// the gateway after every applied action.
type Snapshot struct {
	ElementType   string                  `json:"elementType"`
	ViewType      string                  `json:"viewType"`
	SearchText    string                  `json:"searchText"`
	List          model.ElementList       `json:"list"`
	Points        []model.PointOfInterest `json:"points"`
	Selected      *model.PointOfInterest  `json:"selected,omitempty"`
	FiltersActive bool                    `json:"filtersActive"`
	Filters       model.FilterSettings    `json:"filters"`
	Suggestions   []string                `json:"suggestions,omitempty"`
	EventsPage    int                     `json:"eventsPage"`

	LocationEnabled bool `json:"locationEnabled"`
	UserLocated     bool `json:"userLocated"`
}

type generations struct {
	list    uint64
	points  uint64
	suggest uint64
}

type Session struct {
	id     string
	logger *slog.Logger
	up     Querier
	loc    location.Provider
	cfg    Config
	now    func() time.Time

	actions chan func()
	quit    chan struct{}
	ctx     context.Context

	// everything below is owned by the Run goroutine
	elementType model.ElementType
	viewType    model.ViewType
	searchText  string
	eventsPage  int
	suggestions []string

	toggles *togglelist.Controller
	mapctl  *mapsync.Controller
	flow    *filterflow.Workflow
	gen     generations

	debounce *time.Timer

	subs    map[int]func(Snapshot)
	nextSub int
}

func New(id string, logger *slog.Logger, up Querier, loc location.Provider, cfg Config) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AutocompleteDebounce <= 0 {
		cfg.AutocompleteDebounce = 200 * time.Millisecond
	}
	now := time.Now
	s := &Session{
		id:         id,
		logger:     logger.With("session_id", id),
		up:         up,
		loc:        loc,
		cfg:        cfg,
		now:        now,
		actions:    make(chan func(), 64),
		quit:       make(chan struct{}),
		eventsPage: 1,
		toggles:    togglelist.New(),
		flow:       filterflow.New(now(), cfg.SuggestionCacheSize),
		subs:       map[int]func(Snapshot){},
	}
	s.mapctl = mapsync.New(func(p model.PointOfInterest) {
		s.logger.Info("detail navigation", "post_id", p.ID, "post_name", p.Name)
	})
	return s
}

// Run executes the ownership loop until ctx is cancelled. The initial search
// dispatch fires immediately, mirroring the view's first appearance.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.quit)

	s.loc.RequestAuthorization()
	s.dispatchSearch(dispatch.TriggerRefresh, s.elementType, s.searchText)

	auths := s.loc.Authorizations()
	coords := s.loc.Coordinates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-s.actions:
			f()
			s.notify()
		case st := <-auths:
			if again := s.mapctl.HandleAuthorization(st); again {
				s.loc.RequestAuthorization()
			}
			s.logger.Info("location authorization changed",
				"status", st.String(), "enabled", s.mapctl.LocationEnabled())
			s.notify()
		case c := <-coords:
			s.mapctl.HandleCoordinate(c)
			s.notify()
		}
	}
}

// post delivers f to the ownership loop. Returns false once the session has
// stopped.
func (s *Session) post(f func()) bool {
	select {
	case s.actions <- f:
		return true
	case <-s.quit:
		return false
	}
}

// call posts f and waits for it to run.
func (s *Session) call(f func()) bool {
	done := make(chan struct{})
	if !s.post(func() {
		f()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Session) notify() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshot()
	for _, fn := range s.subs {
		fn(snap)
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ElementType:   s.elementType.String(),
		ViewType:      s.viewType.String(),
		SearchText:    s.searchText,
		List:          s.toggles.List(),
		Points:        append([]model.PointOfInterest(nil), s.mapctl.Points()...),
		FiltersActive: s.flow.Active(),
		Filters:       s.flow.Committed(),
		Suggestions:   append([]string(nil), s.suggestions...),
		EventsPage:    s.eventsPage,

		LocationEnabled: s.mapctl.LocationEnabled(),
		UserLocated:     s.mapctl.UserLocated(),
	}
	if sel, ok := s.mapctl.Selected(); ok {
		snap.Selected = &sel
	}
	return snap
}

// Subscribe registers a snapshot listener called on the ownership loop after
// every applied action. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	var id int
	s.call(func() {
		id = s.nextSub
		s.nextSub++
		s.subs[id] = fn
	})
	return func() {
		s.post(func() { delete(s.subs, id) })
	}
}

// Snapshot returns the current state, synchronously.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.call(func() { snap = s.snapshot() })
	return snap
}

// SetSearchText applies a search-text edit and dispatches per the plan.
func (s *Session) SetSearchText(text string) {
	s.post(func() {
		s.searchText = text
		s.dispatchSearch(dispatch.TriggerSearchText, s.elementType, text)
	})
}

// SetElementType switches the element kind and re-dispatches with the new
// wire name. Leaving posts forces the list view, since the map is
// posts-only.
func (s *Session) SetElementType(t model.ElementType) {
	s.post(func() {
		s.elementType = t
		if t != model.ElementPosts && s.viewType == model.ViewMap {
			s.viewType = model.ViewList
		}
		s.dispatchSearch(dispatch.TriggerElementType, t, s.searchText)
	})
}

// SetViewType switches between list and map. Map is rejected for non-post
// element types.
func (s *Session) SetViewType(v model.ViewType) {
	s.post(func() {
		if v == model.ViewMap && s.elementType != model.ElementPosts {
			s.logger.Warn("map view requires posts, ignoring",
				"element_type", s.elementType.String())
			return
		}
		s.viewType = v
	})
}

// MapAppeared arms the one-shot recenter and fetches the events list, as the
// map view does on first appearance.
func (s *Session) MapAppeared() {
	s.post(func() {
		s.mapctl.RequestRecenter()
		s.dispatchEvents()
	})
}

// RenderMap runs one annotation reconciliation pass and returns it. The pass
// consumes the recenter flag when armed.
func (s *Session) RenderMap() (mapsync.RenderPass, bool) {
	var pass mapsync.RenderPass
	ok := s.call(func() { pass = s.mapctl.Render(s.searchText) })
	return pass, ok
}

// TapAnnotation resolves an annotation title to its point, selecting it and
// firing detail navigation.
func (s *Session) TapAnnotation(title string) (model.PointOfInterest, bool) {
	var (
		p  model.PointOfInterest
		ok bool
	)
	s.call(func() { p, ok = s.mapctl.ResolveTap(title) })
	return p, ok
}

// NextEventsPage advances the unfiltered events pagination.
func (s *Session) NextEventsPage() {
	s.post(func() {
		s.eventsPage++
		s.dispatchEvents()
	})
}

// Toggle issues the add/remove mutation and, once it succeeds, refreshes
// using the (elementType, searchText) pair captured now.
func (s *Session) Toggle(id int, currentlyAdded bool) {
	s.post(func() {
		tg := s.toggles.BeginToggle(id, currentlyAdded, s.elementType, s.searchText)
		go func() {
			err := s.up.AddOrRemoveItem(s.ctx, tg.ID, tg.Remove, tg.ElementType)
			s.post(func() {
				if err != nil {
					s.logger.Error("toggle mutation failed",
						"id", tg.ID, "remove", tg.Remove, "err", err)
					return
				}
				s.dispatchSearch(dispatch.TriggerRefresh, tg.Refresh.ElementType, tg.Refresh.SearchText)
			})
		}()
	})
}

// OpenFilters presents the filter modal with a fresh draft.
func (s *Session) OpenFilters() {
	s.post(func() { s.flow.Open(s.now()) })
}

// FilterDraft mirrors the modal's in-progress selections as the gateway
// submits them.
type FilterDraft struct {
	SelectedDate         time.Time `json:"selectedDate"`
	MaxBudget            int       `json:"maxBudget"`
	FreeOnly             bool      `json:"freeOnly"`
	IncludeFurtherEvents bool      `json:"includeFurtherEvents"`
	Tags                 []string  `json:"tags"`
	Categories           []string  `json:"categories"`
}

// ApplyFilters commits the draft, marks filters active and re-dispatches
// both the search and the events list on the filtered path.
func (s *Session) ApplyFilters(d FilterDraft) {
	s.post(func() {
		if s.flow.State() != filterflow.StateOpen {
			s.flow.Open(s.now())
		}
		s.flow.SetDate(d.SelectedDate)
		s.flow.SetBudget(d.MaxBudget)
		s.flow.SetFreeOnly(d.FreeOnly)
		s.flow.SetIncludeFurther(d.IncludeFurtherEvents)
		for _, tag := range d.Tags {
			s.flow.AddTag(tag)
		}
		for _, cat := range d.Categories {
			s.flow.AddCategory(cat)
		}
		s.flow.Apply()
		s.dispatchSearch(dispatch.TriggerFilterApply, s.elementType, s.searchText)
		s.dispatchEvents()
	})
}

// ResetFilters discards filters and re-dispatches unfiltered.
func (s *Session) ResetFilters() {
	s.post(func() {
		s.flow.Reset(s.now())
		s.dispatchSearch(dispatch.TriggerFilterReset, s.elementType, s.searchText)
		s.dispatchEvents()
	})
}

// EditCategoryQuery feeds one autocomplete keystroke. The remote lookup is
// debounced; cached prefixes answer immediately.
func (s *Session) EditCategoryQuery(text string) {
	s.post(func() {
		if text == "" {
			s.suggestions = nil
			return
		}
		if cached, ok := s.flow.CachedSuggestions(text); ok {
			s.suggestions = s.flow.FilterSuggestions(cached)
			return
		}
		if s.debounce != nil && s.debounce.Stop() {
			observability.IncDebounce("superseded")
		}
		s.debounce = time.AfterFunc(s.cfg.AutocompleteDebounce, func() {
			observability.IncDebounce("fired")
			s.post(func() { s.lookupCategories(text) })
		})
	})
}

func (s *Session) lookupCategories(text string) {
	s.gen.suggest++
	gen := s.gen.suggest
	go func() {
		items, err := s.up.PersonalCategories(s.ctx, text)
		s.post(func() {
			if gen != s.gen.suggest {
				observability.IncDispatch("autocomplete", "dropped_stale")
				return
			}
			if err != nil {
				observability.IncDispatch("autocomplete", "error")
				s.logger.Error("category lookup failed", "err", err)
				return
			}
			s.flow.StoreSuggestions(text, items)
			s.suggestions = s.flow.FilterSuggestions(items)
			observability.IncDispatch("autocomplete", "applied")
		})
	}()
}

// dispatchSearch issues exactly one list query (or performs the map-local
// select) for the given trigger and pair.
func (s *Session) dispatchSearch(trigger dispatch.Trigger, t model.ElementType, text string) {
	plan := dispatch.PlanSearch(dispatch.Input{
		ElementType:   s.elementType,
		ViewType:      s.viewType,
		SearchText:    text,
		FiltersActive: s.flow.Active(),
		Trigger:       trigger,
	})

	switch plan.Kind {
	case dispatch.QueryLocalSelect:
		observability.IncDispatch("list", "local_select")
		s.mapctl.SelectByLocationText(text)

	case dispatch.QuerySearch:
		s.gen.list++
		gen := s.gen.list
		go func() {
			list, err := s.up.SearchElements(s.ctx, text, t)
			s.post(func() {
				if gen != s.gen.list {
					observability.IncDispatch("list", "dropped_stale")
					return
				}
				if err != nil {
					observability.IncDispatch("list", "error")
					s.logger.Error("search failed",
						"type", t.WireName(), "trigger", trigger.String(), "err", err)
					return
				}
				s.toggles.Replace(list)
				observability.IncDispatch("list", "applied")
			})
		}()

	case dispatch.QuerySearchFiltered:
		s.gen.list++
		gen := s.gen.list
		f := s.flow.Committed()
		go func() {
			items, err := s.up.SearchElementsFiltered(s.ctx, f)
			s.post(func() {
				if gen != s.gen.list {
					observability.IncDispatch("list", "dropped_stale")
					return
				}
				if err != nil {
					observability.IncDispatch("list", "error")
					s.logger.Error("filtered search failed",
						"trigger", trigger.String(), "err", err)
					return
				}
				s.toggles.ReplaceItemsOnly(items)
				observability.IncDispatch("list", "applied")
			})
		}()
	}
}

// dispatchEvents issues one events-list query routing to the point set.
func (s *Session) dispatchEvents() {
	plan := dispatch.PlanEvents(s.flow.Active(), s.eventsPage)

	s.gen.points++
	gen := s.gen.points

	apply := func(points []model.PointOfInterest, err error) {
		s.post(func() {
			if gen != s.gen.points {
				observability.IncDispatch("points", "dropped_stale")
				return
			}
			if err != nil {
				observability.IncDispatch("points", "error")
				s.logger.Error("events list failed", "filtered", plan.Filtered, "err", err)
				return
			}
			s.mapctl.SetPoints(points)
			observability.IncDispatch("points", "applied")
		})
	}

	if plan.Filtered {
		f := s.flow.Committed()
		go func() { apply(s.up.EventsFiltered(s.ctx, f)) }()
		return
	}
	go func() { apply(s.up.EventsPage(s.ctx, plan.Page)) }()
}
