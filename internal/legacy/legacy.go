// Package legacy reconciles the remote provider's identifier space with
// the stable numeric ID space that external consumers depend on. Remote
// IDs may be renamed, non-numeric, or change shape between syncs; the
// legacy ID of an entity is a pure function of (remote ID, position
// index), so the same logical entity keeps the same visible ID.
package legacy

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/wordflux/wordflux/internal/board"
)

// FallbackTitles is the canonical column sequence used when a column's
// title has no alias match.
var FallbackTitles = []string{"Backlog", "Ready", "Work in progress", "Review", "Done"}

var titleAliases = map[string]string{
	"backlog":          "Backlog",
	"to-do":            "Ready",
	"todo":             "Ready",
	"ready":            "Ready",
	"queue":            "Ready",
	"queued":           "Ready",
	"in progress":      "Work in progress",
	"work in progress": "Work in progress",
	"wip":              "Work in progress",
	"doing":            "Work in progress",
	"review":           "Review",
	"testing":          "Review",
	"qa":               "Review",
	"approval":         "Review",
	"done":             "Done",
	"complete":         "Done",
	"completed":        "Done",
	"finished":         "Done",
}

// NormalizeTitle lowercases and alias-resolves a column or task reference.
func NormalizeTitle(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := titleAliases[key]; ok {
		return strings.ToLower(alias)
	}
	return key
}

// CanonicalTitle returns the display title for the column at the given
// index: the alias-resolved actual title when it agrees with the fallback
// sequence, otherwise the fallback title for that position.
func CanonicalTitle(index int, actual string) string {
	fallback := FallbackTitles[len(FallbackTitles)-1]
	if index >= 0 && index < len(FallbackTitles) {
		fallback = FallbackTitles[index]
	}
	trimmed := strings.TrimSpace(actual)
	if trimmed == "" {
		return fallback
	}
	lower := strings.ToLower(trimmed)
	if alias, ok := titleAliases[lower]; ok {
		if alias == fallback {
			return alias
		}
		return fallback
	}
	for _, title := range FallbackTitles {
		if strings.ToLower(title) == lower {
			return title
		}
	}
	return fallback
}

// NumericHash folds a string into a positive 32-bit-derived integer using
// a rolling multiply-and-add over UTF-16 code units. Zero is remapped to 1
// so the result is never falsy.
func NumericHash(value string) int {
	if value == "" {
		return 1
	}
	var h int32
	for _, u := range utf16.Encode([]rune(value)) {
		h = (h << 5) - h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	if v == 0 {
		v = 1
	}
	return int(v)
}

// columnLegacyID derives the stable ID for a column at index i.
func columnLegacyID(remoteID string, index int) int {
	if n, err := strconv.Atoi(remoteID); err == nil {
		return n
	}
	return NumericHash(remoteID + ":" + strconv.Itoa(index))
}

// taskLegacyID derives the stable ID for a task at taskIndex within the
// column with the given legacy ID.
func taskLegacyID(remoteID string, columnLegacyID, taskIndex int) int {
	if n, err := strconv.Atoi(remoteID); err == nil {
		return n
	}
	return NumericHash(remoteID + ":" + strconv.Itoa(columnLegacyID) + ":" + strconv.Itoa(taskIndex))
}

// TaskIDForPosition exposes the task derivation for callers that know a
// fresh task's column and position before the next snapshot (a created
// task moved to the top of its column has index 0).
func TaskIDForPosition(remoteID string, columnLegacy, taskIndex int) int {
	return taskLegacyID(remoteID, columnLegacy, taskIndex)
}

// SnapshotTask is a task annotated with its stable identity.
type SnapshotTask struct {
	board.Task
	LegacyID int
	Index    int
}

// SnapshotColumn is a column annotated with its stable identity and its
// tasks in native order.
type SnapshotColumn struct {
	board.Column
	LegacyID       int
	CanonicalTitle string
	Index          int
	Tasks          []SnapshotTask
}

// Snapshot is the reconciled view of a board: columns sorted by native
// position, every entity carrying its legacy ID.
type Snapshot struct {
	Columns []SnapshotColumn
}

// Build reconciles raw provider columns and tasks into a Snapshot.
// Calling Build twice on the same input yields identical legacy IDs.
func Build(columns []board.Column, tasks []board.Task) *Snapshot {
	ordered := append([]board.Column(nil), columns...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	byColumn := make(map[string][]board.Task)
	for _, t := range tasks {
		byColumn[t.ColumnID] = append(byColumn[t.ColumnID], t)
	}
	for id := range byColumn {
		col := byColumn[id]
		sort.SliceStable(col, func(i, j int) bool { return col[i].Position < col[j].Position })
		byColumn[id] = col
	}

	snap := &Snapshot{}
	for i, c := range ordered {
		legacyID := columnLegacyID(c.ID, i)
		sc := SnapshotColumn{
			Column:         c,
			LegacyID:       legacyID,
			CanonicalTitle: CanonicalTitle(i, c.Title),
			Index:          i,
		}
		for j, t := range byColumn[c.ID] {
			sc.Tasks = append(sc.Tasks, SnapshotTask{
				Task:     t,
				LegacyID: taskLegacyID(t.ID, legacyID, j),
				Index:    j,
			})
		}
		snap.Columns = append(snap.Columns, sc)
	}
	return snap
}

// Titles returns the original column titles in board order, for handing to
// the message parser.
func (s *Snapshot) Titles() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, c.Title)
	}
	return out
}

// ResolveColumn resolves a caller-supplied column reference (native ID,
// legacy ID, alias, or title) to a column. The ladder prefers IDs over
// titles and never fails outright: with no match the first column is
// returned, which callers should treat cautiously. Returns nil only when
// the board has no columns.
func (s *Snapshot) ResolveColumn(ref string) *SnapshotColumn {
	if len(s.Columns) == 0 {
		return nil
	}
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return &s.Columns[0]
	}
	lower := strings.ToLower(raw)

	for i := range s.Columns {
		if strings.ToLower(s.Columns[i].ID) == lower {
			return &s.Columns[i]
		}
	}
	if n, err := strconv.Atoi(raw); err == nil {
		for i := range s.Columns {
			if s.Columns[i].LegacyID == n {
				return &s.Columns[i]
			}
		}
	}
	for i := range s.Columns {
		if strings.ToLower(s.Columns[i].Title) == lower {
			return &s.Columns[i]
		}
	}
	normalized := NormalizeTitle(raw)
	for i := range s.Columns {
		if strings.ToLower(s.Columns[i].CanonicalTitle) == normalized {
			return &s.Columns[i]
		}
	}
	return &s.Columns[0]
}

// LookupColumn is the strict variant of ResolveColumn: same ladder, but a
// miss returns ok=false instead of the first-column fallback.
func (s *Snapshot) LookupColumn(ref string) (*SnapshotColumn, bool) {
	if len(s.Columns) == 0 {
		return nil, false
	}
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return nil, false
	}
	lower := strings.ToLower(raw)
	for i := range s.Columns {
		if strings.ToLower(s.Columns[i].ID) == lower {
			return &s.Columns[i], true
		}
	}
	if n, err := strconv.Atoi(raw); err == nil {
		for i := range s.Columns {
			if s.Columns[i].LegacyID == n {
				return &s.Columns[i], true
			}
		}
	}
	for i := range s.Columns {
		if strings.ToLower(s.Columns[i].Title) == lower {
			return &s.Columns[i], true
		}
	}
	normalized := NormalizeTitle(raw)
	for i := range s.Columns {
		if strings.ToLower(s.Columns[i].CanonicalTitle) == normalized {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// ResolveTask resolves a caller-supplied task reference against the
// snapshot: exact native ID, then legacy ID recomputation over the ordered
// list, then alias-normalized title. Returns nil when nothing matches.
func (s *Snapshot) ResolveTask(ref string) (*SnapshotTask, *SnapshotColumn) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return nil, nil
	}

	for i := range s.Columns {
		for j := range s.Columns[i].Tasks {
			if s.Columns[i].Tasks[j].ID == raw {
				return &s.Columns[i].Tasks[j], &s.Columns[i]
			}
		}
	}
	if n, err := strconv.Atoi(raw); err == nil {
		for i := range s.Columns {
			for j := range s.Columns[i].Tasks {
				if s.Columns[i].Tasks[j].LegacyID == n {
					return &s.Columns[i].Tasks[j], &s.Columns[i]
				}
			}
		}
	}
	key := NormalizeTitle(raw)
	for i := range s.Columns {
		for j := range s.Columns[i].Tasks {
			if NormalizeTitle(s.Columns[i].Tasks[j].Title) == key {
				return &s.Columns[i].Tasks[j], &s.Columns[i]
			}
		}
	}
	return nil, nil
}
