package upstream

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/wowedo/searchsync/internal/model"
)

// Endpoints of the legacy PHP API, relative to the configured base URL.
const (
	EndpointSearch     = "searchElementList.php"
	EndpointToggle     = "addOrRemoveItem.php"
	EndpointEvents     = "getEventsList.php"
	EndpointCategories = "getPersonalCategoryList.php"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Params is an ordered query-parameter list encoded the way the legacy API
// expects it: insertion order preserved, ':' and ',' left literal. The
// parameter names selectedData, maxBuget and inlcudeFurtherEvents are
// misspelled on the wire; that is the contract, do not fix them.
type Params struct {
	pairs []pair
}

type pair struct {
	key, val string
}

func (p *Params) Add(key, val string) {
	p.pairs = append(p.pairs, pair{key: key, val: val})
}

func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(kv.key)
		b.WriteByte('=')
		b.WriteString(legacyEscape(kv.val))
	}
	return b.String()
}

// legacyEscape percent-encodes a value but keeps ':' and ',' literal, since
// the PHP side parses selectedTime=18:30 and tags=a,b verbatim.
func legacyEscape(s string) string {
	esc := url.QueryEscape(s)
	esc = strings.ReplaceAll(esc, "%3A", ":")
	esc = strings.ReplaceAll(esc, "%2C", ",")
	return esc
}

// SearchParams builds the unfiltered text-search query.
func SearchParams(text string, t model.ElementType) Params {
	var p Params
	p.Add("element", text)
	p.Add("type", t.WireName())
	return p
}

// FilteredParams builds the structured-filter query shared by the filtered
// search and the filtered events list.
func FilteredParams(f model.FilterSettings) Params {
	var p Params
	p.Add("filtered", "true")
	p.Add("selectedData", f.SelectedDate.Format(dateLayout))
	p.Add("selectedTime", f.SelectedTime.Format(timeLayout))
	p.Add("categories", strings.Join(f.Categories, ","))
	p.Add("tags", strings.Join(f.Tags, ","))
	p.Add("maxBuget", strconv.Itoa(f.MaxBudget))
	p.Add("inlcudeFurtherEvents", strconv.FormatBool(f.IncludeFurtherEvents))
	return p
}

// ToggleParams builds the add/remove mutation query. toDelete=true removes
// the element from the user's set.
func ToggleParams(id int, toDelete bool, t model.ElementType) Params {
	var p Params
	p.Add("toDelete", strconv.FormatBool(toDelete))
	p.Add("idElement", strconv.Itoa(id))
	p.Add("type", t.WireName())
	return p
}

// EventsPageParams builds the paginated unfiltered events-list query.
func EventsPageParams(page int) Params {
	var p Params
	p.Add("page", strconv.Itoa(page))
	return p
}

// CategoryLookupParams builds the personal-category autocomplete query.
func CategoryLookupParams(text string) Params {
	var p Params
	p.Add("is_clike", "true")
	p.Add("element", text)
	return p
}
