// Package dispatch decides, for every user input event, which remote query
// to issue — or that no query is needed because map search is a local select.
package dispatch

import (
	"github.com/wowedo/searchsync/internal/model"
)

// Trigger is the input event that caused a dispatch.
type Trigger int

const (
	TriggerSearchText Trigger = iota
	TriggerElementType
	TriggerFilterApply
	TriggerFilterReset
	TriggerRefresh
)

func (t Trigger) String() string {
	switch t {
	case TriggerSearchText:
		return "search_text"
	case TriggerElementType:
		return "element_type"
	case TriggerFilterApply:
		return "filter_apply"
	case TriggerFilterReset:
		return "filter_reset"
	case TriggerRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

type Input struct {
	ElementType   model.ElementType
	ViewType      model.ViewType
	SearchText    string
	FiltersActive bool
	Trigger       Trigger
}

type QueryKind int

const (
	// QueryLocalSelect means no remote call: scan the in-memory point set
	// for the search text and select the first match.
	QueryLocalSelect QueryKind = iota
	QuerySearch
	QuerySearchFiltered
)

type Plan struct {
	Kind QueryKind
}

// PlanSearch maps an input event to exactly one query plan. Map-view search
// edits never hit the network; every other combination issues one list query,
// filtered when filters are active.
func PlanSearch(in Input) Plan {
	if in.ViewType == model.ViewMap &&
		in.ElementType == model.ElementPosts &&
		in.Trigger == TriggerSearchText {
		return Plan{Kind: QueryLocalSelect}
	}
	if in.FiltersActive {
		return Plan{Kind: QuerySearchFiltered}
	}
	return Plan{Kind: QuerySearch}
}

type EventsPlan struct {
	Filtered bool
	// Page applies only to the unfiltered path; the filtered events query is
	// not paginated.
	Page int
}

// PlanEvents selects the events-list query variant.
func PlanEvents(filtersActive bool, page int) EventsPlan {
	if filtersActive {
		return EventsPlan{Filtered: true}
	}
	if page < 1 {
		page = 1
	}
	return EventsPlan{Page: page}
}
