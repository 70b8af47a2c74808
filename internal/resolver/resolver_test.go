package resolver

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordflux/wordflux/internal/board"
	"github.com/wordflux/wordflux/internal/legacy"
)

func testSnapshot() *legacy.Snapshot {
	cols := []board.Column{
		{ID: "col-b", Title: "Backlog", Position: 1},
		{ID: "col-w", Title: "Work in progress", Position: 2},
	}
	tasks := []board.Task{
		{ID: "101", Title: "Fix login bug", ColumnID: "col-b", Position: 1, Active: true},
		{ID: "9f2c7e9a-1d5b-4c6f-9a52-1d0a3a6a7e01", Title: "Update onboarding docs", ColumnID: "col-b", Position: 2, Active: true},
		{ID: "task-abc123", Title: "Fix signup bug", ColumnID: "col-w", Position: 1, Active: true},
		{ID: "202", Title: "Ship release", ColumnID: "col-w", Position: 2, Active: true},
	}
	return legacy.Build(cols, tasks)
}

func TestResolveByNumericID(t *testing.T) {
	snap := testSnapshot()

	task, col, err := Resolve(snap, "101", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fix login bug", task.Title)
	assert.Equal(t, "Backlog", col.CanonicalTitle)

	// "#101" is equivalent.
	task, _, err = Resolve(snap, "#101", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fix login bug", task.Title)
}

func TestResolveByLegacyHash(t *testing.T) {
	snap := testSnapshot()
	hashed := snap.Columns[1].Tasks[0].LegacyID

	task, col, err := Resolve(snap, strconv.Itoa(hashed), nil)
	require.NoError(t, err)
	assert.Equal(t, "Fix signup bug", task.Title)
	assert.Equal(t, "Work in progress", col.CanonicalTitle)
}

func TestResolveByUUIDAndSlug(t *testing.T) {
	snap := testSnapshot()

	task, _, err := Resolve(snap, "9f2c7e9a-1d5b-4c6f-9a52-1d0a3a6a7e01", nil)
	require.NoError(t, err)
	assert.Equal(t, "Update onboarding docs", task.Title)

	task, _, err = Resolve(snap, "task-abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fix signup bug", task.Title)
}

func TestResolveOrdinalWithinColumn(t *testing.T) {
	snap := testSnapshot()
	scope, ok := snap.LookupColumn("work in progress")
	require.True(t, ok)

	// A legacy-ID match always wins over the ordinal reading.
	task, _, err := Resolve(snap, "#202", scope)
	require.NoError(t, err)
	assert.Equal(t, "Ship release", task.Title)

	task, _, err = Resolve(snap, "#1", scope)
	require.NoError(t, err)
	assert.Equal(t, "Fix signup bug", task.Title)

	_, _, err = Resolve(snap, "#9", scope)
	assert.ErrorIs(t, err, board.ErrNotFound)
}

func TestResolveByTitle(t *testing.T) {
	snap := testSnapshot()

	task, _, err := Resolve(snap, "ship release", nil)
	require.NoError(t, err)
	assert.Equal(t, "202", task.ID)

	task, _, err = Resolve(snap, "onboarding", nil)
	require.NoError(t, err)
	assert.Equal(t, "Update onboarding docs", task.Title)
}

func TestResolveAmbiguous(t *testing.T) {
	snap := testSnapshot()

	_, _, err := Resolve(snap, "bug", nil)
	require.Error(t, err)

	var amb *board.AmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "bug", amb.Ref)
	assert.Equal(t, 2, amb.Matches)
	require.Len(t, amb.Suggestions, 2)
	for _, s := range amb.Suggestions {
		assert.Positive(t, s.ID)
		assert.NotEmpty(t, s.Hint)
	}
}

func TestResolveSuggestionCap(t *testing.T) {
	cols := []board.Column{{ID: "c", Title: "Backlog", Position: 1}}
	var tasks []board.Task
	for i := 0; i < 8; i++ {
		tasks = append(tasks, board.Task{
			ID:       strconv.Itoa(300 + i),
			Title:    "Repeated chore " + strconv.Itoa(i),
			ColumnID: "c",
			Position: i + 1,
			Active:   true,
		})
	}
	snap := legacy.Build(cols, tasks)

	_, _, err := Resolve(snap, "repeated chore", nil)
	var amb *board.AmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, 8, amb.Matches)
	assert.Len(t, amb.Suggestions, 5)
}

func TestResolveNotFoundAndEmpty(t *testing.T) {
	snap := testSnapshot()

	_, _, err := Resolve(snap, "no such task", nil)
	assert.ErrorIs(t, err, board.ErrNotFound)

	_, _, err = Resolve(snap, "   ", nil)
	assert.ErrorIs(t, err, board.ErrValidation)
}
