package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

type record struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func newTestContainer(prepend bool) *Container[record] {
	return NewContainer(func(r record) string { return r.ID }, prepend)
}

func TestStartedSetsLoadingAndClearsError(t *testing.T) {
	c := newTestContainer(false)
	c.Failed(appErrors.Transport("boom", 500))
	require.NotNil(t, c.Snapshot().Error)

	c.Started()

	snap := c.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Error)
}

func TestEveryTerminalTransitionClosesLoading(t *testing.T) {
	total := 3
	cases := []struct {
		name  string
		apply func(c *Container[record])
	}{
		{"list", func(c *Container[record]) { c.ListSucceeded([]record{{ID: "a"}}, &total) }},
		{"get", func(c *Container[record]) { c.GetSucceeded(record{ID: "a"}) }},
		{"create", func(c *Container[record]) { c.CreateSucceeded(record{ID: "a"}) }},
		{"update", func(c *Container[record]) { c.UpdateSucceeded(record{ID: "a"}) }},
		{"delete", func(c *Container[record]) { c.DeleteSucceeded("a") }},
		{"count", func(c *Container[record]) { c.CountSucceeded(7) }},
		{"failed", func(c *Container[record]) { c.Failed(appErrors.Transport("down", 502)) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestContainer(false)
			c.Started()
			require.True(t, c.Snapshot().Loading)

			tc.apply(c)
			assert.False(t, c.Snapshot().Loading)
		})
	}
}

func TestErrorClearedByNextStart(t *testing.T) {
	c := newTestContainer(false)
	c.Started()
	c.Failed(appErrors.Transport("not found", 404))

	snap := c.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, 404, snap.Error.Status)

	c.Started()
	assert.Nil(t, c.Snapshot().Error)
}

func TestListReplacementIsTotal(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)
	require.Equal(t, 3, c.Snapshot().Count)

	c.ListSucceeded([]record{{ID: "z"}}, nil)

	snap := c.Snapshot()
	assert.Equal(t, []record{{ID: "z"}}, snap.Items)
	assert.Equal(t, 1, snap.Count)
}

func TestListExplicitTotalWins(t *testing.T) {
	c := newTestContainer(false)
	total := 42
	c.ListSucceeded([]record{{ID: "a"}}, &total)
	assert.Equal(t, 42, c.Snapshot().Count)
}

func TestCreateAppendsByDefault(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}}, nil)
	c.CreateSucceeded(record{ID: "b"})

	snap := c.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "b", snap.Items[1].ID)
	assert.Equal(t, 2, snap.Count)
}

func TestCreatePrependsWhenConfigured(t *testing.T) {
	c := newTestContainer(true)
	c.ListSucceeded([]record{{ID: "old"}}, nil)
	c.CreateSucceeded(record{ID: "new"})

	snap := c.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "new", snap.Items[0].ID)
}

func TestUpdateReplacesByKeyAndMirrorsSelected(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}}, nil)
	c.GetSucceeded(record{ID: "b", Name: "two"})

	c.UpdateSucceeded(record{ID: "b", Name: "renamed"})

	snap := c.Snapshot()
	assert.Equal(t, "renamed", snap.Items[1].Name)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "renamed", snap.Selected.Name)
}

func TestUpdateUnknownKeyLeavesItemsIntact(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a", Name: "one"}}, nil)
	c.UpdateSucceeded(record{ID: "missing", Name: "ghost"})

	snap := c.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "one", snap.Items[0].Name)
}

func TestDeleteIsIdempotentByKey(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}, {ID: "b"}}, nil)

	c.DeleteSucceeded("a")
	first := c.Snapshot()
	require.Len(t, first.Items, 1)
	assert.Equal(t, 1, first.Count)

	c.DeleteSucceeded("a")
	second := c.Snapshot()
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, 1, second.Count)
}

func TestDeleteClearsMatchingSelected(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}}, nil)
	c.GetSucceeded(record{ID: "a"})

	c.DeleteSucceeded("a")
	assert.Nil(t, c.Snapshot().Selected)
}

func TestCountNeverGoesNegative(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}}, nil)
	c.DeleteSucceeded("a")
	c.DeleteSucceeded("a")
	assert.Equal(t, 0, c.Snapshot().Count)

	c.CountSucceeded(-5)
	assert.Equal(t, 0, c.Snapshot().Count)
}

func TestFailurePreservesItems(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}, {ID: "b"}}, nil)
	c.Started()
	c.Failed(appErrors.Transport("not found", 404))

	snap := c.Snapshot()
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 2, snap.Count)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "not found", snap.Error.Message)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a", Name: "one"}}, nil)

	snap := c.Snapshot()
	snap.Items[0].Name = "mutated"

	assert.Equal(t, "one", c.Snapshot().Items[0].Name)
}

func TestResetRestoresDefaults(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a"}}, nil)
	c.GetSucceeded(record{ID: "a"})

	c.Reset()

	snap := c.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.Selected)
	assert.Equal(t, 0, snap.Count)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Error)
}

func TestLookup(t *testing.T) {
	c := newTestContainer(false)
	c.ListSucceeded([]record{{ID: "a", Name: "one"}}, nil)

	item, found := c.Lookup("a")
	require.True(t, found)
	assert.Equal(t, "one", item.Name)

	_, found = c.Lookup("missing")
	assert.False(t, found)
}
