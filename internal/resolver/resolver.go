// Package resolver turns user-supplied task references into concrete
// tasks on a board snapshot.
//
// References arrive in many shapes: numeric IDs, backend UUIDs,
// prefixed slugs, "#3"-style ordinals, and free-text titles. The
// resolution ladder tries the cheap exact forms first and only falls
// back to fuzzy title matching when nothing structural fits. Fuzzy
// matches that hit more than one task are reported as ambiguous with
// suggestions rather than silently picking a winner.
package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/wordflux/wordflux/internal/board"
	"github.com/wordflux/wordflux/internal/legacy"
)

const maxSuggestions = 5

var slugRef = regexp.MustCompile(`^[a-z]+-[a-z0-9-]+$`)

type match struct {
	task *legacy.SnapshotTask
	col  *legacy.SnapshotColumn
}

// Resolve finds the task identified by ref. scope, when non-nil, limits
// ordinal references ("#2") to that column; all other forms search the
// whole board.
//
// Exactly one match returns the task and its column. Zero matches
// returns board.ErrNotFound. Multiple title matches return a
// *board.AmbiguousError carrying up to five suggestions.
func Resolve(snap *legacy.Snapshot, ref string, scope *legacy.SnapshotColumn) (*legacy.SnapshotTask, *legacy.SnapshotColumn, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, nil, fmt.Errorf("empty task reference: %w", board.ErrValidation)
	}

	if task, col := byExactID(snap, trimmed); task != nil {
		return task, col, nil
	}
	if task, col, err := byOrdinal(snap, trimmed, scope); err != nil || task != nil {
		return task, col, err
	}
	return byTitle(snap, trimmed)
}

// byExactID handles the structural forms: numeric legacy IDs, backend
// UUIDs, and prefixed slug IDs. These are unique by construction, so
// the first hit wins.
func byExactID(snap *legacy.Snapshot, ref string) (*legacy.SnapshotTask, *legacy.SnapshotColumn) {
	bare := strings.TrimPrefix(ref, "#")

	if n, err := strconv.Atoi(bare); err == nil {
		for ci := range snap.Columns {
			col := &snap.Columns[ci]
			for ti := range col.Tasks {
				task := &col.Tasks[ti]
				if task.LegacyID == n || task.ID == bare {
					return task, col
				}
			}
		}
		return nil, nil
	}

	lower := strings.ToLower(ref)
	if _, err := uuid.Parse(ref); err == nil || slugRef.MatchString(lower) {
		for ci := range snap.Columns {
			col := &snap.Columns[ci]
			for ti := range col.Tasks {
				task := &col.Tasks[ti]
				if strings.EqualFold(task.ID, ref) {
					return task, col
				}
			}
		}
	}
	return nil, nil
}

// byOrdinal resolves "#n" as the n-th task (1-based) of the scope
// column. Without a scope the ordinal already fell through byExactID as
// a legacy-ID lookup, so this only fires when a column is in play.
func byOrdinal(snap *legacy.Snapshot, ref string, scope *legacy.SnapshotColumn) (*legacy.SnapshotTask, *legacy.SnapshotColumn, error) {
	if scope == nil || !strings.HasPrefix(ref, "#") {
		return nil, nil, nil
	}
	n, err := strconv.Atoi(ref[1:])
	if err != nil {
		return nil, nil, nil
	}
	if n < 1 || n > len(scope.Tasks) {
		return nil, nil, fmt.Errorf("no task %s in %s: %w", ref, scope.CanonicalTitle, board.ErrNotFound)
	}
	return &scope.Tasks[n-1], scope, nil
}

func byTitle(snap *legacy.Snapshot, ref string) (*legacy.SnapshotTask, *legacy.SnapshotColumn, error) {
	needle := strings.ToLower(ref)

	var exact, partial []match
	for ci := range snap.Columns {
		col := &snap.Columns[ci]
		for ti := range col.Tasks {
			task := &col.Tasks[ti]
			title := strings.ToLower(task.Title)
			switch {
			case title == needle:
				exact = append(exact, match{task, col})
			case strings.Contains(title, needle):
				partial = append(partial, match{task, col})
			}
		}
	}

	matches := exact
	if len(matches) == 0 {
		matches = partial
	}
	switch len(matches) {
	case 0:
		return nil, nil, fmt.Errorf("no task matches %q: %w", ref, board.ErrNotFound)
	case 1:
		return matches[0].task, matches[0].col, nil
	}
	return nil, nil, ambiguous(ref, matches)
}

func ambiguous(ref string, matches []match) *board.AmbiguousError {
	err := &board.AmbiguousError{Ref: ref, Matches: len(matches)}
	for _, m := range matches {
		if len(err.Suggestions) == maxSuggestions {
			break
		}
		err.Suggestions = append(err.Suggestions, board.Suggestion{
			ID:       m.task.LegacyID,
			Title:    m.task.Title,
			ColumnID: m.col.LegacyID,
			Hint:     fmt.Sprintf("Use %q or be more specific", fmt.Sprintf("#%d", m.task.LegacyID)),
		})
	}
	return err
}
