// Package filterflow implements the filter settings modal round trip:
// Closed → Open → {Applied | Reset} → Closed, plus the category autocomplete
// that runs while the modal is open.
package filterflow

import (
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wowedo/searchsync/internal/model"
)

type State int

const (
	StateClosed State = iota
	StateOpen
)

// Draft holds the in-progress selections while the modal is open. Nothing in
// it is visible to dispatch until Apply commits it.
type Draft struct {
	SelectedDate         time.Time
	MaxBudget            int
	FreeOnly             bool
	IncludeFurtherEvents bool
	Tags                 []string
	Categories           []string
}

type Workflow struct {
	state     State
	draft     Draft
	committed model.FilterSettings
	active    bool

	suggestions *lru.Cache[string, []string]
}

func New(now time.Time, suggestionCacheSize int) *Workflow {
	if suggestionCacheSize < 1 {
		suggestionCacheSize = 128
	}
	// error only on non-positive size, which is clamped above
	cache, _ := lru.New[string, []string](suggestionCacheSize)
	return &Workflow{
		committed:   model.DefaultFilterSettings(now),
		suggestions: cache,
	}
}

func (w *Workflow) State() State { return w.state }

// Active reports whether filters have been applied and subsequent dispatches
// should use the filtered query path.
func (w *Workflow) Active() bool { return w.active }

func (w *Workflow) Committed() model.FilterSettings { return w.committed.Clone() }

func (w *Workflow) Draft() Draft {
	d := w.draft
	d.Tags = append([]string(nil), w.draft.Tags...)
	d.Categories = append([]string(nil), w.draft.Categories...)
	return d
}

// Open presents the modal with a fresh draft.
func (w *Workflow) Open(now time.Time) {
	w.state = StateOpen
	w.draft = Draft{SelectedDate: now}
}

func (w *Workflow) SetDate(t time.Time)      { w.draft.SelectedDate = t }
func (w *Workflow) SetBudget(n int)          { w.draft.MaxBudget = n }
func (w *Workflow) SetFreeOnly(b bool)       { w.draft.FreeOnly = b }
func (w *Workflow) SetIncludeFurther(b bool) { w.draft.IncludeFurtherEvents = b }

func (w *Workflow) AddTag(s string) {
	if s == "" || slices.Contains(w.draft.Tags, s) {
		return
	}
	w.draft.Tags = append(w.draft.Tags, s)
}

func (w *Workflow) RemoveTag(s string) {
	w.draft.Tags = slices.DeleteFunc(w.draft.Tags, func(v string) bool { return v == s })
}

func (w *Workflow) AddCategory(s string) {
	if s == "" || slices.Contains(w.draft.Categories, s) {
		return
	}
	w.draft.Categories = append(w.draft.Categories, s)
}

func (w *Workflow) RemoveCategory(s string) {
	w.draft.Categories = slices.DeleteFunc(w.draft.Categories, func(v string) bool { return v == s })
}

// Apply commits the draft into the shared settings, marks filters active and
// closes the modal. Free-only collapses the budget to 0; the draft's single
// date/time selection populates both the date and the time fields.
func (w *Workflow) Apply() model.FilterSettings {
	budget := w.draft.MaxBudget
	if w.draft.FreeOnly {
		budget = 0
	}
	w.committed = model.FilterSettings{
		SelectedDate:         w.draft.SelectedDate,
		SelectedTime:         w.draft.SelectedDate,
		Categories:           model.Dedupe(w.draft.Categories),
		Tags:                 model.Dedupe(w.draft.Tags),
		MaxBudget:            budget,
		IncludeFurtherEvents: w.draft.IncludeFurtherEvents,
	}
	w.active = true
	w.state = StateClosed
	return w.committed.Clone()
}

// Reset discards the draft, restores default settings and clears the
// filters-active flag.
func (w *Workflow) Reset(now time.Time) {
	w.draft = Draft{}
	w.committed = model.DefaultFilterSettings(now)
	w.active = false
	w.state = StateClosed
}

// FilterSuggestions drops lookup results that are already in the draft
// category set.
func (w *Workflow) FilterSuggestions(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if slices.Contains(w.draft.Categories, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// CachedSuggestions returns a previously stored lookup result for a prefix.
func (w *Workflow) CachedSuggestions(prefix string) ([]string, bool) {
	return w.suggestions.Get(prefix)
}

func (w *Workflow) StoreSuggestions(prefix string, items []string) {
	w.suggestions.Add(prefix, items)
}
