package state

import (
	"sync"

	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

// EntityState is the shared state shape every entity exposes to readers.
// Items keep server order; Selected mirrors the item last fetched by id or
// last mutated when the identity matches.
type EntityState[T any] struct {
	Items    []T              `json:"items"`
	Selected *T               `json:"selected,omitempty"`
	Count    int              `json:"count"`
	Loading  bool             `json:"loading"`
	Error    *appErrors.Error `json:"error"`
}

// Container holds one entity's state and applies protocol transitions.
// Transitions are serialized by the mutex; readers always get copies, never
// views into the live slices.
type Container[T any] struct {
	mu      sync.RWMutex
	state   EntityState[T]
	keyOf   func(T) string
	prepend bool
}

// NewContainer builds a container with empty defaults. keyOf extracts the
// identity key used for replace/delete by key. prepend switches the insertion
// convention for create from append to front-insert.
func NewContainer[T any](keyOf func(T) string, prepend bool) *Container[T] {
	return &Container[T]{
		state:   EntityState[T]{Items: []T{}},
		keyOf:   keyOf,
		prepend: prepend,
	}
}

// Snapshot returns a copy of the current state.
func (c *Container[T]) Snapshot() EntityState[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyState()
}

// Started marks a new operation in flight and clears any prior error.
func (c *Container[T]) Started() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = true
	c.state.Error = nil
}

// ListSucceeded replaces the item list wholesale. When the upstream supplied
// an explicit total it wins; otherwise the count is derived from the list
// length.
func (c *Container[T]) ListSucceeded(items []T, total *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []T{}
	}
	c.state.Items = items
	if total != nil {
		c.state.Count = *total
	} else {
		c.state.Count = len(items)
	}
	c.terminal()
}

// GetSucceeded records the item fetched by id as selected.
func (c *Container[T]) GetSucceeded(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Selected = &item
	c.terminal()
}

// CreateSucceeded inserts the created item per the entity's convention and
// bumps the count.
func (c *Container[T]) CreateSucceeded(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prepend {
		c.state.Items = append([]T{item}, c.state.Items...)
	} else {
		c.state.Items = append(c.state.Items, item)
	}
	c.state.Count++
	c.terminal()
}

// UpdateSucceeded replaces the entry whose identity key matches, and mirrors
// the change into Selected when its key matches too.
func (c *Container[T]) UpdateSucceeded(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.keyOf(item)
	for i := range c.state.Items {
		if c.keyOf(c.state.Items[i]) == key {
			c.state.Items[i] = item
			break
		}
	}
	if c.state.Selected != nil && c.keyOf(*c.state.Selected) == key {
		c.state.Selected = &item
	}
	c.terminal()
}

// DeleteSucceeded removes the entry matching key. Deleting an absent key is a
// no-op on Items; the count never goes below zero.
func (c *Container[T]) DeleteSucceeded(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	filtered := c.state.Items[:0:0]
	removed := false
	for _, item := range c.state.Items {
		if !removed && c.keyOf(item) == key {
			removed = true
			continue
		}
		filtered = append(filtered, item)
	}
	if filtered == nil {
		filtered = []T{}
	}
	c.state.Items = filtered
	if c.state.Selected != nil && c.keyOf(*c.state.Selected) == key {
		c.state.Selected = nil
	}
	if removed && c.state.Count > 0 {
		c.state.Count--
	}
	c.terminal()
}

// CountSucceeded records an explicit total without touching the items.
func (c *Container[T]) CountSucceeded(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total < 0 {
		total = 0
	}
	c.state.Count = total
	c.terminal()
}

// Failed records a terminal failure. Items, Selected and Count are left
// untouched.
func (c *Container[T]) Failed(err *appErrors.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	c.state.Error = err
}

// Reset restores the empty defaults. Only the auth session uses this; entity
// containers live for the process lifetime.
func (c *Container[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = EntityState[T]{Items: []T{}}
}

// Lookup returns the item with the given identity key, if present.
func (c *Container[T]) Lookup(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.state.Items {
		if c.keyOf(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Container[T]) terminal() {
	c.state.Loading = false
	c.state.Error = nil
}

func (c *Container[T]) copyState() EntityState[T] {
	snapshot := c.state
	snapshot.Items = make([]T, len(c.state.Items))
	copy(snapshot.Items, c.state.Items)
	if c.state.Selected != nil {
		selected := *c.state.Selected
		snapshot.Selected = &selected
	}
	if c.state.Error != nil {
		errCopy := *c.state.Error
		snapshot.Error = &errCopy
	}
	return snapshot
}
