package togglelist

import (
	"testing"

	"github.com/wowedo/searchsync/internal/model"
)

func TestBeginToggle_CapturesPairAtToggleTime(t *testing.T) {
	c := New()
	c.Replace(model.NewElementList(
		[]string{"Jazz Night"},
		[]bool{true},
		[]int{11},
	))

	tg := c.BeginToggle(11, true, model.ElementPosts, "jazz")

	if !tg.Remove {
		t.Fatalf("already-added element must toggle to remove")
	}
	if tg.Refresh.ElementType != model.ElementPosts || tg.Refresh.SearchText != "jazz" {
		t.Fatalf("refresh pair not captured: %+v", tg.Refresh)
	}

	// The list is untouched until the refresh response lands.
	added, ok := c.Added(11)
	if !ok || !added {
		t.Fatalf("no optimistic flip expected, got added=%v ok=%v", added, ok)
	}
}

func TestReplace_Wholesale(t *testing.T) {
	c := New()
	c.Replace(model.NewElementList([]string{"a", "b"}, []bool{false, true}, []int{1, 2}))
	c.Replace(model.NewElementList([]string{"c"}, []bool{false}, []int{3}))

	l := c.List()
	if l.Len() != 1 || l.Items[0] != "c" {
		t.Fatalf("replace must be wholesale: %+v", l)
	}
}

func TestReplaceItemsOnly_ParallelInvariantHolds(t *testing.T) {
	c := New()
	c.Replace(model.NewElementList([]string{"a"}, []bool{true}, []int{1}))
	c.ReplaceItemsOnly([]string{"x", "y", "z"})

	l := c.List()
	if l.Len() != 3 {
		t.Fatalf("Len=%d want 3", l.Len())
	}
	if len(l.Items) != len(l.AlreadyAdded) || len(l.Items) != len(l.IDs) {
		t.Fatalf("parallel slices out of sync: %d/%d/%d",
			len(l.Items), len(l.AlreadyAdded), len(l.IDs))
	}
}

func TestList_ReturnsClone(t *testing.T) {
	c := New()
	c.Replace(model.NewElementList([]string{"a"}, []bool{false}, []int{1}))

	l := c.List()
	l.Items[0] = "mutated"

	if got := c.List(); got.Items[0] != "a" {
		t.Fatalf("List must return a copy, internal state was mutated")
	}
}
