package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkCompleted(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	tk := &Task{Title: "Doctor appointment", DueDate: now.Add(2 * time.Hour)}

	tk.MarkCompleted("went well", now)

	assert.True(t, tk.Completed)
	require.NotNil(t, tk.CompletedAt)
	assert.Equal(t, now, *tk.CompletedAt)
	assert.Equal(t, "went well", tk.CompletionNotes)
}

func TestMarkCompletedWithoutNotesKeepsExisting(t *testing.T) {
	now := time.Now().UTC()
	tk := &Task{CompletionNotes: "earlier note"}

	tk.MarkCompleted("", now)

	assert.True(t, tk.Completed)
	assert.Equal(t, "earlier note", tk.CompletionNotes)
}

func TestMarkIncompleteReverts(t *testing.T) {
	now := time.Now().UTC()
	tk := &Task{}
	tk.MarkCompleted("done", now)

	tk.MarkIncomplete()

	assert.False(t, tk.Completed)
	assert.Nil(t, tk.CompletedAt)
	assert.Empty(t, tk.CompletionNotes)
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tk := &Task{DueDate: due}

	assert.False(t, tk.IsOverdue(due.Add(-time.Hour)))
	assert.False(t, tk.IsOverdue(due))
	assert.True(t, tk.IsOverdue(due.Add(time.Minute)))

	tk.MarkCompleted("", due.Add(time.Hour))
	assert.False(t, tk.IsOverdue(due.Add(2*time.Hour)))
}
