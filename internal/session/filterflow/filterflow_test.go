package filterflow

import (
	"testing"
	"time"
)

var testNow = time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC)

func TestApply_CommitsDraftAndActivates(t *testing.T) {
	w := New(testNow, 16)
	w.Open(testNow)
	w.SetDate(time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC))
	w.AddTag("jazz")
	w.AddCategory("music")
	w.SetBudget(50)
	w.SetIncludeFurther(true)

	got := w.Apply()

	if !w.Active() {
		t.Fatalf("apply must set filters-active")
	}
	if w.State() != StateClosed {
		t.Fatalf("apply must close the modal")
	}
	if got.MaxBudget != 50 || len(got.Tags) != 1 || got.Tags[0] != "jazz" {
		t.Fatalf("unexpected committed settings: %+v", got)
	}
	if !got.SelectedDate.Equal(got.SelectedTime) {
		t.Fatalf("single picker populates both date and time")
	}
	if !got.IncludeFurtherEvents {
		t.Fatalf("include-further flag lost")
	}
}

func TestApply_FreeOnlyCollapsesBudget(t *testing.T) {
	w := New(testNow, 16)
	w.Open(testNow)
	w.SetBudget(100)
	w.SetFreeOnly(true)

	if got := w.Apply(); got.MaxBudget != 0 {
		t.Fatalf("free-only must collapse budget to 0, got %d", got.MaxBudget)
	}
}

func TestReset_ClearsActiveAndRestoresDefaults(t *testing.T) {
	w := New(testNow, 16)
	w.Open(testNow)
	w.AddTag("jazz")
	w.Apply()

	w.Reset(testNow)

	if w.Active() {
		t.Fatalf("reset must clear filters-active")
	}
	if got := w.Committed(); len(got.Tags) != 0 || !got.IncludeFurtherEvents {
		t.Fatalf("reset must restore defaults: %+v", got)
	}
	if w.State() != StateClosed {
		t.Fatalf("reset must close the modal")
	}
}

func TestOpen_FreshDraftEachPresentation(t *testing.T) {
	w := New(testNow, 16)
	w.Open(testNow)
	w.AddTag("jazz")
	w.Apply()

	w.Open(testNow)
	if d := w.Draft(); len(d.Tags) != 0 {
		t.Fatalf("reopening must present a fresh draft: %+v", d)
	}
}

func TestTagAndCategoryDedupe(t *testing.T) {
	w := New(testNow, 16)
	w.Open(testNow)
	w.AddTag("jazz")
	w.AddTag("jazz")
	w.AddCategory("music")
	w.AddCategory("music")

	d := w.Draft()
	if len(d.Tags) != 1 || len(d.Categories) != 1 {
		t.Fatalf("duplicates must be ignored: %+v", d)
	}

	w.RemoveTag("jazz")
	w.RemoveCategory("music")
	d = w.Draft()
	if len(d.Tags) != 0 || len(d.Categories) != 0 {
		t.Fatalf("removal failed: %+v", d)
	}
}

func TestFilterSuggestions_ExcludesDraftCategories(t *testing.T) {
	w := New(testNow, 16)
	w.Open(testNow)
	w.AddCategory("music")

	got := w.FilterSuggestions([]string{"music", "musicals", "museums"})
	if len(got) != 2 {
		t.Fatalf("filtered=%v want 2 entries", got)
	}
	for _, s := range got {
		if s == "music" {
			t.Fatalf("already-selected category must be excluded")
		}
	}
}

func TestSuggestionCache(t *testing.T) {
	w := New(testNow, 2)
	w.StoreSuggestions("mu", []string{"music"})

	got, ok := w.CachedSuggestions("mu")
	if !ok || len(got) != 1 || got[0] != "music" {
		t.Fatalf("cache lookup failed: %v %v", got, ok)
	}
	if _, ok := w.CachedSuggestions("ja"); ok {
		t.Fatalf("unexpected cache hit")
	}

	// bounded: inserting past capacity evicts the oldest prefix
	w.StoreSuggestions("ja", []string{"jazz"})
	w.StoreSuggestions("ro", []string{"rock"})
	if _, ok := w.CachedSuggestions("mu"); ok {
		t.Fatalf("LRU must evict the oldest entry")
	}
}
