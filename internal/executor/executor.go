// Package executor performs one typed action at a time against the
// board provider, capturing the reverse steps that make the mutation
// undoable.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wordflux/wordflux/internal/admission"
	"github.com/wordflux/wordflux/internal/autotag"
	"github.com/wordflux/wordflux/internal/board"
	"github.com/wordflux/wordflux/internal/legacy"
	"github.com/wordflux/wordflux/internal/resolver"
	"github.com/wordflux/wordflux/internal/timeparsing"
	"github.com/wordflux/wordflux/internal/undo"
	"github.com/wordflux/wordflux/internal/usercontext"
)

const (
	listCap   = 20
	searchCap = 10
)

// priorities maps the action-level priority names onto the provider's
// numeric scale.
var priorities = map[string]int{"high": 3, "normal": 2, "low": 1}

// readyLike matches column requests that name the "up next" stage.
// Creation remaps these to Backlog; moves remap them to Review. The
// asymmetry is a long-standing product rule, kept as is.
var readyLike = regexp.MustCompile(`(?i)(ready|up next|queued|planned)`)

// Env carries the collaborators one Execute call needs. The orchestrator
// builds one per request, with a snapshot taken at request start.
type Env struct {
	Provider   board.Provider
	Tidier     board.Tidier
	Snapshot   *legacy.Snapshot
	Requester  string
	Users      *usercontext.Tracker
	Gate       *admission.Gate
	Ledger     *undo.Ledger
	SwimlaneID string
	Now        func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// TaskSummary is one row of a list or search result.
type TaskSummary struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	ColumnID int    `json:"column_id"`
}

// Result is the structured outcome of one executed action. Only the
// fields relevant to the action's kind are set.
type Result struct {
	Kind      string            `json:"type"`
	TaskID    int               `json:"taskId,omitempty"`
	Title     string            `json:"title,omitempty"`
	Column    string            `json:"column,omitempty"`
	To        string            `json:"to,omitempty"`
	Updated   []string          `json:"updated,omitempty"`
	Assignee  string            `json:"assignee,omitempty"`
	Added     []string          `json:"added,omitempty"`
	Removed   []string          `json:"removed,omitempty"`
	Count     int               `json:"count,omitempty"`
	Tasks     []TaskSummary     `json:"tasks,omitempty"`
	Due       string            `json:"due,omitempty"`
	DueCount  int               `json:"dueCount,omitempty"`
	Reverted  int               `json:"reverted,omitempty"`
	Report    *board.TidyReport `json:"report,omitempty"`
	Previewed bool              `json:"previewed,omitempty"`
	Planned   []json.RawMessage `json:"actions,omitempty"`
}

// Execute performs act and returns its result plus any reverse steps to
// record for undo. Read-only actions return no steps.
func Execute(ctx context.Context, env *Env, act Action) (*Result, []undo.ReverseStep, error) {
	switch a := act.(type) {
	case CreateTask:
		return execCreate(ctx, env, a)
	case MoveTask:
		return execMove(ctx, env, a)
	case UpdateTask:
		return execUpdate(ctx, env, a)
	case AssignTask:
		return execAssign(ctx, env, a)
	case TagTask:
		return execTag(ctx, env, a)
	case CommentTask:
		return execComment(ctx, env, a)
	case ListTasks:
		return execList(ctx, env, a)
	case SearchTasks:
		return execSearch(ctx, env, a)
	case SetDue:
		return execSetDue(ctx, env, a)
	case TidyBoard:
		return execTidy(ctx, env, "", a.Confirm)
	case TidyColumn:
		return execTidyColumn(ctx, env, a)
	case Undo:
		return execUndo(ctx, env, a.Token)
	case UndoLast:
		return execUndoLast(ctx, env)
	case Preview:
		return &Result{Kind: a.Kind(), Previewed: true, Planned: a.Actions}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown action kind %q: %w", act.Kind(), board.ErrValidation)
}

func execCreate(ctx context.Context, env *Env, a CreateTask) (*Result, []undo.ReverseStep, error) {
	if strings.TrimSpace(a.Title) == "" {
		return nil, nil, fmt.Errorf("task title is required: %w", board.ErrValidation)
	}

	tags := autotag.Detect(a.Title + " " + a.Description)
	title := a.Title
	if len(tags) > 0 {
		emojis := make([]string, len(tags))
		for i, t := range tags {
			emojis[i] = t.Emoji
		}
		title = strings.Join(emojis, " ") + " " + a.Title
	}

	// Creation gets an extra retry envelope on top of the provider's
	// own, so a transient failure does not lose the user's text.
	var taskID string
	err := board.Retry(ctx, board.FastRetryProfile, func() error {
		var err error
		taskID, err = env.Provider.CreateTask(ctx, title, a.Description)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create task: %w", err)
	}

	// Target column: explicit, then the requester's remembered column,
	// then Backlog. Ready-like requests land in Backlog at creation.
	columnName := a.Column
	if columnName == "" && env.Users != nil {
		columnName = env.Users.DefaultColumn(env.Requester)
	}
	if columnName == "" {
		columnName = "Backlog"
	}
	if readyLike.MatchString(columnName) {
		columnName = "Backlog"
	}

	resultColumn := columnName
	var col *legacy.SnapshotColumn
	if c, ok := env.Snapshot.LookupColumn(columnName); ok {
		col = c
		if err := env.Provider.MoveTask(ctx, taskID, col.ID, 1, env.SwimlaneID); err == nil {
			resultColumn = col.CanonicalTitle
			if a.Column != "" && env.Users != nil {
				env.Users.RememberColumn(env.Requester, col.CanonicalTitle)
			}
		}
	}
	if env.Users != nil {
		env.Users.CountTask(env.Requester)
	}

	// Tags, assignee, and priority are follow-ups; their failure does
	// not undo the create.
	if len(tags) > 0 {
		_ = env.Provider.AddComment(ctx, taskID, autotag.CommentText(tags))
	} else if len(a.Tags) > 0 {
		_ = env.Provider.AddComment(ctx, taskID, "🏷 Tags: "+strings.Join(a.Tags, ", "))
	}
	if a.Assignee != "" {
		_ = env.Provider.AddComment(ctx, taskID, "👤 Assigned to: "+a.Assignee)
	}
	if p, ok := priorities[a.Priority]; ok {
		_ = env.Provider.UpdateTask(ctx, taskID, board.TaskUpdates{Priority: &p})
	}

	steps := []undo.ReverseStep{{Type: undo.StepCreate, TaskID: taskID}}
	return &Result{
		Kind:   a.Kind(),
		TaskID: displayIDForNew(env.Snapshot, taskID, col),
		Title:  a.Title,
		Column: resultColumn,
	}, steps, nil
}

func execMove(ctx context.Context, env *Env, a MoveTask) (*Result, []undo.ReverseStep, error) {
	task, fromCol, err := resolver.Resolve(env.Snapshot, a.TaskRef, refScope(env, ""))
	if err != nil {
		return nil, nil, err
	}

	// Moving "to Ready" parks the card in Review instead.
	targetName := a.Column
	if readyLike.MatchString(targetName) {
		targetName = "Review"
	}
	col, ok := env.Snapshot.LookupColumn(targetName)
	if !ok {
		return nil, nil, fmt.Errorf("column %q: %w", a.Column, board.ErrColumnNotFound)
	}

	position := a.Position
	if position < 1 {
		position = 1
	}
	err = board.Retry(ctx, board.FastRetryProfile, func() error {
		return env.Provider.MoveTask(ctx, task.ID, col.ID, position, env.SwimlaneID)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("move task %s: %w", task.ID, err)
	}

	steps := []undo.ReverseStep{{
		Type:       undo.StepMove,
		TaskID:     task.ID,
		ToColumnID: fromCol.ID,
		Position:   task.Position,
		SwimlaneID: env.SwimlaneID,
	}}
	return &Result{
		Kind:   a.Kind(),
		TaskID: task.LegacyID,
		Title:  task.Title,
		To:     col.CanonicalTitle,
	}, steps, nil
}

func execUpdate(ctx context.Context, env *Env, a UpdateTask) (*Result, []undo.ReverseStep, error) {
	task, _, err := resolver.Resolve(env.Snapshot, a.TaskRef, refScope(env, ""))
	if err != nil {
		return nil, nil, err
	}

	priorTitle := task.Title
	priorDescription := task.Description
	priorPriority := task.Priority
	prior := &board.TaskUpdates{
		Title:       &priorTitle,
		Description: &priorDescription,
		Priority:    &priorPriority,
	}

	var updates board.TaskUpdates
	var updated []string
	if a.Title != "" {
		updates.Title = &a.Title
		updated = append(updated, "title")
	}
	if a.Description != "" {
		updates.Description = &a.Description
		updated = append(updated, "description")
	}
	if p, ok := priorities[a.Priority]; ok {
		updates.Priority = &p
		updated = append(updated, "priority")
	}

	if !updates.Empty() {
		if err := env.Provider.UpdateTask(ctx, task.ID, updates); err != nil {
			return nil, nil, fmt.Errorf("update task %s: %w", task.ID, err)
		}
	}
	if len(a.Tags) > 0 {
		_ = env.Provider.AddComment(ctx, task.ID, "🏷 Added tags: "+strings.Join(a.Tags, ", "))
	}

	var steps []undo.ReverseStep
	if !updates.Empty() {
		steps = append(steps, undo.ReverseStep{Type: undo.StepUpdate, TaskID: task.ID, Prior: prior})
	}
	return &Result{Kind: a.Kind(), TaskID: task.LegacyID, Updated: updated}, steps, nil
}

func execAssign(ctx context.Context, env *Env, a AssignTask) (*Result, []undo.ReverseStep, error) {
	task, _, err := resolver.Resolve(env.Snapshot, a.TaskRef, refScope(env, ""))
	if err != nil {
		return nil, nil, err
	}
	if err := env.Provider.AddComment(ctx, task.ID, "👤 Assigned to: "+a.Assignee); err != nil {
		return nil, nil, fmt.Errorf("assign task %s: %w", task.ID, err)
	}
	return &Result{Kind: a.Kind(), TaskID: task.LegacyID, Assignee: a.Assignee}, nil, nil
}

func execTag(ctx context.Context, env *Env, a TagTask) (*Result, []undo.ReverseStep, error) {
	task, _, err := resolver.Resolve(env.Snapshot, a.TaskRef, refScope(env, ""))
	if err != nil {
		return nil, nil, err
	}
	if len(a.Add) > 0 {
		if err := env.Provider.AddComment(ctx, task.ID, "🏷 Added tags: "+strings.Join(a.Add, ", ")); err != nil {
			return nil, nil, fmt.Errorf("tag task %s: %w", task.ID, err)
		}
	}
	if len(a.Remove) > 0 {
		if err := env.Provider.AddComment(ctx, task.ID, "🏷 Removed tags: "+strings.Join(a.Remove, ", ")); err != nil {
			return nil, nil, fmt.Errorf("untag task %s: %w", task.ID, err)
		}
	}
	return &Result{Kind: a.Kind(), TaskID: task.LegacyID, Added: a.Add, Removed: a.Remove}, nil, nil
}

func execComment(ctx context.Context, env *Env, a CommentTask) (*Result, []undo.ReverseStep, error) {
	task, _, err := resolver.Resolve(env.Snapshot, a.TaskRef, refScope(env, ""))
	if err != nil {
		return nil, nil, err
	}
	if err := env.Provider.AddComment(ctx, task.ID, a.Comment); err != nil {
		return nil, nil, fmt.Errorf("comment on task %s: %w", task.ID, err)
	}
	return &Result{Kind: a.Kind(), TaskID: task.LegacyID}, nil, nil
}

func execList(ctx context.Context, env *Env, a ListTasks) (*Result, []undo.ReverseStep, error) {
	var scope *legacy.SnapshotColumn
	if a.Column != "" {
		col, ok := env.Snapshot.LookupColumn(a.Column)
		if !ok {
			return nil, nil, fmt.Errorf("column %q: %w", a.Column, board.ErrColumnNotFound)
		}
		scope = col
	}

	var rows []TaskSummary
	total := 0
	for ci := range env.Snapshot.Columns {
		col := &env.Snapshot.Columns[ci]
		if scope != nil && col.ID != scope.ID {
			continue
		}
		for ti := range col.Tasks {
			task := &col.Tasks[ti]
			if !matchesFilter(&task.Task, a.Filter, env.now()) {
				continue
			}
			total++
			if len(rows) < listCap {
				rows = append(rows, TaskSummary{ID: task.LegacyID, Title: task.Title, ColumnID: col.LegacyID})
			}
		}
	}
	return &Result{Kind: a.Kind(), Count: total, Tasks: rows}, nil, nil
}

func execSearch(ctx context.Context, env *Env, a SearchTasks) (*Result, []undo.ReverseStep, error) {
	tasks, err := env.Provider.SearchTasks(ctx, a.Query)
	if err != nil {
		return nil, nil, fmt.Errorf("search: %w", err)
	}
	rows := make([]TaskSummary, 0, searchCap)
	for _, t := range tasks {
		if len(rows) == searchCap {
			break
		}
		id, colID := displayIDs(env.Snapshot, &t)
		rows = append(rows, TaskSummary{ID: id, Title: t.Title, ColumnID: colID})
	}
	return &Result{Kind: a.Kind(), Count: len(tasks), Tasks: rows}, nil, nil
}

func execSetDue(ctx context.Context, env *Env, a SetDue) (*Result, []undo.ReverseStep, error) {
	due, ok := timeparsing.ParseDue(a.When, env.now())
	if !ok {
		return nil, nil, fmt.Errorf("cannot understand date %q: %w", a.When, board.ErrValidation)
	}

	targets, err := dueTargets(env, a)
	if err != nil {
		return nil, nil, err
	}
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("no tasks to set a due date on: %w", board.ErrNotFound)
	}

	var steps []undo.ReverseStep
	for _, task := range targets {
		priorDue := task.DueDate
		if err := env.Provider.UpdateTask(ctx, task.ID, board.TaskUpdates{DueDate: &due}); err != nil {
			return nil, steps, fmt.Errorf("set due on task %s: %w", task.ID, err)
		}
		prior := priorDue
		steps = append(steps, undo.ReverseStep{
			Type:   undo.StepUpdate,
			TaskID: task.ID,
			Prior:  &board.TaskUpdates{DueDate: &prior},
		})
	}
	return &Result{
		Kind:     a.Kind(),
		Due:      due.Format("Mon Jan 2 15:04"),
		DueCount: len(targets),
	}, steps, nil
}

// dueTargets picks the tasks a set_due applies to: an explicit ref list,
// or the first N cards of a column.
func dueTargets(env *Env, a SetDue) ([]*legacy.SnapshotTask, error) {
	if len(a.TaskRefs) > 0 {
		targets := make([]*legacy.SnapshotTask, 0, len(a.TaskRefs))
		for _, ref := range a.TaskRefs {
			task, _, err := resolver.Resolve(env.Snapshot, ref, refScope(env, a.Column))
			if err != nil {
				return nil, err
			}
			targets = append(targets, task)
		}
		return targets, nil
	}

	if a.Column == "" {
		return nil, fmt.Errorf("set_due needs task ids or a column: %w", board.ErrValidation)
	}
	col, ok := env.Snapshot.LookupColumn(a.Column)
	if !ok {
		return nil, fmt.Errorf("column %q: %w", a.Column, board.ErrColumnNotFound)
	}
	n := a.First
	if n < 1 {
		n = 1
	}
	if n > len(col.Tasks) {
		n = len(col.Tasks)
	}
	targets := make([]*legacy.SnapshotTask, 0, n)
	for i := 0; i < n; i++ {
		targets = append(targets, &col.Tasks[i])
	}
	return targets, nil
}

func execTidyColumn(ctx context.Context, env *Env, a TidyColumn) (*Result, []undo.ReverseStep, error) {
	col, ok := env.Snapshot.LookupColumn(a.Column)
	if !ok {
		return nil, nil, fmt.Errorf("column %q: %w", a.Column, board.ErrColumnNotFound)
	}
	return execTidy(ctx, env, col.ID, a.Confirm)
}

// execTidy routes the destructive bulk cleanup through the admission
// gate: previews are always allowed and stored, confirms must match a
// fresh preview and respect the cooldown.
func execTidy(ctx context.Context, env *Env, columnID string, confirm bool) (*Result, []undo.ReverseStep, error) {
	if env.Tidier == nil {
		return nil, nil, fmt.Errorf("tidy is not available on this board: %w", board.ErrValidation)
	}
	target := "board"
	kind := TidyBoard{}.Kind()
	if columnID != "" {
		kind = TidyColumn{}.Kind()
		if col := env.Snapshot.ResolveColumn(columnID); col != nil {
			target = col.CanonicalTitle
		} else {
			target = columnID
		}
	}

	if !confirm {
		report, err := env.Tidier.PlanTidy(ctx, columnID)
		if err != nil {
			return nil, nil, fmt.Errorf("plan tidy: %w", err)
		}
		env.Gate.Preview(env.Requester, target, *report)
		return &Result{Kind: kind, Report: report, Previewed: true}, nil, nil
	}

	if _, err := env.Gate.Confirm(env.Requester, target); err != nil {
		return nil, nil, err
	}
	report, err := env.Tidier.ApplyTidy(ctx, columnID)
	if err != nil {
		return nil, nil, fmt.Errorf("apply tidy: %w", err)
	}
	return &Result{Kind: kind, Report: report}, nil, nil
}

func execUndo(ctx context.Context, env *Env, token string) (*Result, []undo.ReverseStep, error) {
	reverted, err := env.Ledger.Replay(ctx, token, env.Provider)
	if err != nil {
		return nil, nil, err
	}
	return &Result{Kind: Undo{}.Kind(), Reverted: reverted}, nil, nil
}

func execUndoLast(ctx context.Context, env *Env) (*Result, []undo.ReverseStep, error) {
	reverted, err := env.Ledger.ReplayLast(ctx, env.Requester, env.Provider)
	if err != nil {
		return nil, nil, err
	}
	return &Result{Kind: UndoLast{}.Kind(), Reverted: reverted}, nil, nil
}

// refScope picks the column an ordinal reference like "#3" counts
// within: the action's own column when it names a known one, otherwise
// the requester's remembered column. Nil when neither applies, which
// limits the ladder to ID and title matching.
func refScope(env *Env, column string) *legacy.SnapshotColumn {
	if column != "" {
		if col, ok := env.Snapshot.LookupColumn(column); ok {
			return col
		}
	}
	if env.Users != nil {
		if remembered := env.Users.DefaultColumn(env.Requester); remembered != "" {
			if col, ok := env.Snapshot.LookupColumn(remembered); ok {
				return col
			}
		}
	}
	return nil
}

// matchesFilter applies the list filters. All heuristics run on the
// snapshot, not live provider data.
func matchesFilter(t *board.Task, filter string, now time.Time) bool {
	switch strings.ToLower(filter) {
	case "":
		return true
	case "today":
		if t.DueDate.IsZero() {
			return false
		}
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return !t.DueDate.Before(start) && t.DueDate.Before(start.AddDate(0, 0, 1))
	case "overdue":
		return !t.DueDate.IsZero() && t.DueDate.Before(now) && t.Active
	case "blocked":
		title := strings.ToLower(t.Title)
		if strings.Contains(title, "block") || strings.Contains(title, "stuck") {
			return true
		}
		for _, tag := range t.Tags {
			lower := strings.ToLower(tag)
			if lower == "blocked" || lower == "blocker" {
				return true
			}
		}
		return false
	case "mine":
		return t.Owner != ""
	}
	return true
}

// displayIDForNew derives the visible legacy ID for a just-created task
// that is not in the snapshot yet. Fresh creates land at the top of
// their column.
func displayIDForNew(snap *legacy.Snapshot, taskID string, col *legacy.SnapshotColumn) int {
	if n, err := strconv.Atoi(taskID); err == nil {
		return n
	}
	colLegacy := 0
	if col != nil {
		colLegacy = col.LegacyID
	} else if len(snap.Columns) > 0 {
		colLegacy = snap.Columns[0].LegacyID
	}
	return legacy.TaskIDForPosition(taskID, colLegacy, 0)
}

// displayIDs maps a provider task onto legacy IDs via the snapshot,
// recomputing when the task is not in it.
func displayIDs(snap *legacy.Snapshot, t *board.Task) (taskID, columnID int) {
	if task, col := snap.ResolveTask(t.ID); task != nil {
		return task.LegacyID, col.LegacyID
	}
	col := snap.ResolveColumn(t.ColumnID)
	colLegacy := 0
	if col != nil {
		colLegacy = col.LegacyID
	}
	if n, err := strconv.Atoi(t.ID); err == nil {
		return n, colLegacy
	}
	return legacy.TaskIDForPosition(t.ID, colLegacy, t.Position), colLegacy
}
