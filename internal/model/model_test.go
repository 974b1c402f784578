package model

import (
	"testing"
	"time"
)

func TestElementTypeWireNames(t *testing.T) {
	cases := []struct {
		in   ElementType
		want string
	}{
		{ElementPosts, "post"},
		{ElementFriends, "user"},
		{ElementCategories, "event_category"},
	}
	for _, c := range cases {
		if got := c.in.WireName(); got != c.want {
			t.Fatalf("%s.WireName()=%q want %q", c.in, got, c.want)
		}
	}
}

func TestParseElementType_AcceptsDisplayAndWireNames(t *testing.T) {
	for _, s := range []string{"posts", "post", "Posts"} {
		et, err := ParseElementType(s)
		if err != nil || et != ElementPosts {
			t.Fatalf("ParseElementType(%q)=%v,%v", s, et, err)
		}
	}
	if _, err := ParseElementType("bogus"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestCoordinateValid(t *testing.T) {
	cases := []struct {
		name string
		c    Coordinate
		want bool
	}{
		{"zero sentinel", Coordinate{}, false},
		{"stockholm", Coordinate{Lat: 59.3293, Lon: 18.0686}, true},
		{"lat out of range", Coordinate{Lat: 91, Lon: 0.1}, false},
		{"lon out of range", Coordinate{Lat: 0.1, Lon: -181}, false},
		{"south pole", Coordinate{Lat: -90, Lon: 1}, true},
	}
	for _, c := range cases {
		if got := c.c.Valid(); got != c.want {
			t.Fatalf("%s: Valid()=%v want %v", c.name, got, c.want)
		}
	}
}

func TestNewElementList_TruncatesToShortest(t *testing.T) {
	l := NewElementList(
		[]string{"a", "b", "c"},
		[]bool{true, false},
		[]int{1, 2, 3, 4},
	)
	if l.Len() != 2 {
		t.Fatalf("Len()=%d want 2", l.Len())
	}
	if len(l.Items) != len(l.AlreadyAdded) || len(l.Items) != len(l.IDs) {
		t.Fatalf("parallel slices out of sync: %d/%d/%d",
			len(l.Items), len(l.AlreadyAdded), len(l.IDs))
	}
}

func TestItemsOnlyList_KeepsParallelLengths(t *testing.T) {
	l := ItemsOnlyList([]string{"x", "y"})
	if len(l.Items) != 2 || len(l.AlreadyAdded) != 2 || len(l.IDs) != 2 {
		t.Fatalf("unexpected lengths: %d/%d/%d",
			len(l.Items), len(l.AlreadyAdded), len(l.IDs))
	}
	for _, added := range l.AlreadyAdded {
		if added {
			t.Fatalf("items-only list must default alreadyAdded to false")
		}
	}
}

func TestElementListAdded(t *testing.T) {
	l := NewElementList([]string{"a", "b"}, []bool{false, true}, []int{10, 20})
	added, ok := l.Added(20)
	if !ok || !added {
		t.Fatalf("Added(20)=%v,%v want true,true", added, ok)
	}
	if _, ok := l.Added(99); ok {
		t.Fatalf("Added(99) should not resolve")
	}
}

func TestDefaultFilterSettings(t *testing.T) {
	now := time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC)
	f := DefaultFilterSettings(now)
	if !f.SelectedDate.Equal(now) || !f.SelectedTime.Equal(now) {
		t.Fatalf("date/time not initialized to now")
	}
	if !f.IncludeFurtherEvents {
		t.Fatalf("further events must be included by default")
	}
	if f.MaxBudget != 0 || len(f.Categories) != 0 || len(f.Tags) != 0 {
		t.Fatalf("unexpected defaults: %+v", f)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"jazz", "rock", "jazz", "rock", "pop"})
	want := []string{"jazz", "rock", "pop"}
	if len(got) != len(want) {
		t.Fatalf("Dedupe=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Dedupe=%v want %v", got, want)
		}
	}
}
