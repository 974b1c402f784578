package upstream

import (
	"strings"
	"testing"
	"time"

	"github.com/wowedo/searchsync/internal/model"
)

func TestFilteredParams_LegacyWireFormat(t *testing.T) {
	f := model.FilterSettings{
		SelectedDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SelectedTime:         time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC),
		Tags:                 []string{"jazz"},
		Categories:           []string{"music"},
		MaxBudget:            0,
		IncludeFurtherEvents: true,
	}
	q := FilteredParams(f).Encode()

	for _, want := range []string{
		"filtered=true",
		"selectedData=2024-01-01",
		"selectedTime=18:30",
		"tags=jazz",
		"categories=music",
		"maxBuget=0",
		"inlcudeFurtherEvents=true",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query %q missing %q", q, want)
		}
	}
}

func TestFilteredParams_CSVJoinsStayLiteral(t *testing.T) {
	f := model.FilterSettings{
		SelectedDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		SelectedTime: time.Date(2024, 6, 15, 9, 5, 0, 0, time.UTC),
		Tags:         []string{"jazz", "live music"},
		Categories:   []string{"concerts", "festivals"},
		MaxBudget:    50,
	}
	q := FilteredParams(f).Encode()
	if !strings.Contains(q, "tags=jazz,live+music") {
		t.Fatalf("comma must stay literal in CSV joins: %q", q)
	}
	if !strings.Contains(q, "categories=concerts,festivals") {
		t.Fatalf("comma must stay literal in CSV joins: %q", q)
	}
	if !strings.Contains(q, "selectedTime=09:05") {
		t.Fatalf("colon must stay literal in time: %q", q)
	}
}

func TestSearchParams(t *testing.T) {
	q := SearchParams("tennis club", model.ElementCategories).Encode()
	if q != "element=tennis+club&type=event_category" {
		t.Fatalf("unexpected query: %q", q)
	}
}

func TestToggleParams(t *testing.T) {
	q := ToggleParams(42, true, model.ElementFriends).Encode()
	if q != "toDelete=true&idElement=42&type=user" {
		t.Fatalf("unexpected query: %q", q)
	}
	q = ToggleParams(7, false, model.ElementPosts).Encode()
	if q != "toDelete=false&idElement=7&type=post" {
		t.Fatalf("unexpected query: %q", q)
	}
}

func TestCategoryLookupParams(t *testing.T) {
	q := CategoryLookupParams("mus").Encode()
	if q != "is_clike=true&element=mus" {
		t.Fatalf("unexpected query: %q", q)
	}
}

func TestEventsPageParams(t *testing.T) {
	if q := EventsPageParams(3).Encode(); q != "page=3" {
		t.Fatalf("unexpected query: %q", q)
	}
}
