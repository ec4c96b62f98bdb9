package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentNewestFirst(t *testing.T) {
	n := NewNotifier(10, nil)
	n.Success("country", "create", "country created")
	n.Error("country", "hardDelete", "country India cannot be deleted")

	recent := n.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, LevelError, recent[0].Level)
	assert.Equal(t, "hardDelete", recent[0].Op)
	assert.Equal(t, LevelSuccess, recent[1].Level)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].At.IsZero())
}

func TestRetentionBound(t *testing.T) {
	n := NewNotifier(3, nil)
	for i := 0; i < 5; i++ {
		n.Success("blog", "create", fmt.Sprintf("blog %d", i))
	}

	recent := n.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "blog 4", recent[0].Message)
	assert.Equal(t, "blog 2", recent[2].Message)
}

func TestRecentLimit(t *testing.T) {
	n := NewNotifier(10, nil)
	for i := 0; i < 4; i++ {
		n.Success("job", "update", fmt.Sprintf("job %d", i))
	}

	recent := n.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "job 3", recent[0].Message)
	assert.Equal(t, "job 2", recent[1].Message)
}
