// Package togglelist owns the displayed element list and the add/remove
// toggle protocol: mutate upstream, then refresh with the pair captured at
// toggle time.
package togglelist

import (
	"github.com/wowedo/searchsync/internal/model"
)

type Controller struct {
	list model.ElementList
}

func New() *Controller { return &Controller{} }

// Replace installs a full list response wholesale.
func (c *Controller) Replace(l model.ElementList) {
	c.list = l
}

// ReplaceItemsOnly installs a filtered-search response, which carries items
// but no added flags or ids. Flags and ids reset to defaults so the parallel
// slices stay aligned.
func (c *Controller) ReplaceItemsOnly(items []string) {
	c.list = model.ItemsOnlyList(items)
}

func (c *Controller) List() model.ElementList { return c.list.Clone() }

func (c *Controller) Added(id int) (bool, bool) { return c.list.Added(id) }

// Refresh is the (elementType, searchText) pair a post-toggle refresh must
// use: the values active when the toggle was issued, not whatever the user
// typed since.
type Refresh struct {
	ElementType model.ElementType
	SearchText  string
}

// Toggle describes one add/remove mutation. Remove mirrors the flag at
// toggle time: an already-added element gets removed.
type Toggle struct {
	ID          int
	Remove      bool
	ElementType model.ElementType
	Refresh     Refresh
}

// BeginToggle captures the mutation and its refresh pair. The list is not
// optimistically mutated; ground truth arrives with the refresh response.
func (c *Controller) BeginToggle(id int, currentlyAdded bool, t model.ElementType, searchText string) Toggle {
	return Toggle{
		ID:          id,
		Remove:      currentlyAdded,
		ElementType: t,
		Refresh: Refresh{
			ElementType: t,
			SearchText:  searchText,
		},
	}
}
