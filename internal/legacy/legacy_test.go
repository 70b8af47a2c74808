package legacy

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordflux/wordflux/internal/board"
)

func TestNumericHash(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"plain", "col-abc:0"},
		{"uuid", "9f2c7e9a-1d5b-4c6f-9a52-1d0a3a6a7e01:2"},
		{"unicode", "coluna-ação:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NumericHash(tt.input)
			assert.Positive(t, got, "hash must never be zero or negative")
			assert.Equal(t, got, NumericHash(tt.input), "hash must be deterministic")
		})
	}

	assert.Equal(t, 1, NumericHash(""), "empty input maps to 1")
}

func TestCanonicalTitle(t *testing.T) {
	tests := []struct {
		index  int
		actual string
		want   string
	}{
		{0, "Backlog", "Backlog"},
		{1, "todo", "Ready"},
		{2, "wip", "Work in progress"},
		{2, "In Progress", "Work in progress"},
		{3, "QA", "Review"},
		{4, "finished", "Done"},
		{0, "Sprint 14", "Backlog"},  // unknown title falls back by index
		{7, "Anything", "Done"},      // index past the sequence clamps to last
		{1, "", "Ready"},             // blank title falls back
		{0, "Done", "Backlog"},       // alias disagreeing with position loses
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalTitle(tt.index, tt.actual),
			"CanonicalTitle(%d, %q)", tt.index, tt.actual)
	}
}

func testSnapshot() *Snapshot {
	cols := []board.Column{
		{ID: "col-b", Title: "Backlog", Position: 1},
		{ID: "17", Title: "wip", Position: 2},
		{ID: "col-d", Title: "Done", Position: 3},
	}
	tasks := []board.Task{
		{ID: "t-aaa", Title: "Fix login bug", ColumnID: "col-b", Position: 1, Active: true},
		{ID: "42", Title: "Write docs", ColumnID: "col-b", Position: 2, Active: true},
		{ID: "t-bbb", Title: "Ship release", ColumnID: "17", Position: 1, Active: true},
	}
	return Build(cols, tasks)
}

func TestBuildStableIDs(t *testing.T) {
	snap := testSnapshot()
	again := testSnapshot()

	require.Len(t, snap.Columns, 3)
	for i := range snap.Columns {
		assert.Equal(t, snap.Columns[i].LegacyID, again.Columns[i].LegacyID)
		for j := range snap.Columns[i].Tasks {
			assert.Equal(t, snap.Columns[i].Tasks[j].LegacyID, again.Columns[i].Tasks[j].LegacyID)
		}
	}

	// Numeric native IDs pass through unchanged.
	assert.Equal(t, 17, snap.Columns[1].LegacyID)
	assert.Equal(t, 42, snap.Columns[0].Tasks[1].LegacyID)

	// Non-numeric IDs hash to positive integers.
	assert.Positive(t, snap.Columns[0].LegacyID)
	assert.Positive(t, snap.Columns[0].Tasks[0].LegacyID)

	// Unsorted input produces the same ordering and the same IDs.
	shuffled := Build(
		[]board.Column{
			{ID: "col-d", Title: "Done", Position: 3},
			{ID: "col-b", Title: "Backlog", Position: 1},
			{ID: "17", Title: "wip", Position: 2},
		},
		[]board.Task{
			{ID: "42", Title: "Write docs", ColumnID: "col-b", Position: 2, Active: true},
			{ID: "t-bbb", Title: "Ship release", ColumnID: "17", Position: 1, Active: true},
			{ID: "t-aaa", Title: "Fix login bug", ColumnID: "col-b", Position: 1, Active: true},
		},
	)
	assert.Equal(t, snap.Columns[0].LegacyID, shuffled.Columns[0].LegacyID)
	assert.Equal(t, snap.Columns[0].Tasks[0].LegacyID, shuffled.Columns[0].Tasks[0].LegacyID)
}

func TestResolveColumn(t *testing.T) {
	snap := testSnapshot()

	byNative := snap.ResolveColumn("col-d")
	require.NotNil(t, byNative)
	assert.Equal(t, "Done", byNative.CanonicalTitle)

	byLegacy := snap.ResolveColumn("17")
	require.NotNil(t, byLegacy)
	assert.Equal(t, "Work in progress", byLegacy.CanonicalTitle)

	byAlias := snap.ResolveColumn("doing")
	require.NotNil(t, byAlias)
	assert.Equal(t, "Work in progress", byAlias.CanonicalTitle)

	// Unknown references fall back to the first column rather than failing.
	fallback := snap.ResolveColumn("no such column")
	require.NotNil(t, fallback)
	assert.Equal(t, "Backlog", fallback.CanonicalTitle)

	empty := Build(nil, nil)
	assert.Nil(t, empty.ResolveColumn("anything"))
}

func TestLookupColumnStrict(t *testing.T) {
	snap := testSnapshot()

	col, ok := snap.LookupColumn("done")
	require.True(t, ok)
	assert.Equal(t, "Done", col.CanonicalTitle)

	_, ok = snap.LookupColumn("no such column")
	assert.False(t, ok)
}

func TestResolveTask(t *testing.T) {
	snap := testSnapshot()

	byNative, col := snap.ResolveTask("t-bbb")
	require.NotNil(t, byNative)
	assert.Equal(t, "Ship release", byNative.Title)
	assert.Equal(t, 17, col.LegacyID)

	hashed := snap.Columns[0].Tasks[0].LegacyID
	byLegacy, _ := snap.ResolveTask(strconv.Itoa(hashed))
	require.NotNil(t, byLegacy)
	assert.Equal(t, "Fix login bug", byLegacy.Title)

	byTitle, _ := snap.ResolveTask("write docs")
	require.NotNil(t, byTitle)
	assert.Equal(t, "42", byTitle.ID)

	missing, _ := snap.ResolveTask("nope")
	assert.Nil(t, missing)
}
