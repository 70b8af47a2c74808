package executor

import "encoding/json"

// Action is the closed set of commands the core can execute. The parser
// (or the fallback agent) produces these; Execute consumes them. The
// unexported marker keeps the set closed to this package's types.
type Action interface {
	Kind() string
	isAction()
}

// CreateTask creates a card. Column may be empty, in which case the
// requester's remembered column and then "Backlog" apply.
type CreateTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Column      string   `json:"column,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Priority    string   `json:"priority,omitempty"` // high, normal, low
}

// MoveTask moves a referenced card to a named column.
type MoveTask struct {
	TaskRef  string `json:"task"`
	Column   string `json:"column"`
	Position int    `json:"position,omitempty"`
}

// UpdateTask changes the listed fields; empty fields are untouched.
type UpdateTask struct {
	TaskRef     string   `json:"task"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AssignTask records an assignee. The backend has no native assignee
// field in this mode, so it becomes a comment and is not reversible.
type AssignTask struct {
	TaskRef  string `json:"task"`
	Assignee string `json:"assignee"`
}

// TagTask adds or removes tags, recorded as comments. Not reversible.
type TagTask struct {
	TaskRef string   `json:"task"`
	Add     []string `json:"add,omitempty"`
	Remove  []string `json:"remove,omitempty"`
}

// CommentTask appends a comment. Not reversible.
type CommentTask struct {
	TaskRef string `json:"task"`
	Comment string `json:"comment"`
}

// ListTasks lists cards, optionally restricted to a column and filtered
// by one of: today, overdue, blocked, mine.
type ListTasks struct {
	Column string `json:"column,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// SearchTasks runs a free-text search.
type SearchTasks struct {
	Query string `json:"query"`
}

// SetDue sets a due date on an explicit set of tasks, or on the first
// N cards of a column. When is a natural-language date expression.
type SetDue struct {
	When     string   `json:"when"`
	TaskRefs []string `json:"ids,omitempty"`
	First    int      `json:"first,omitempty"`
	Column   string   `json:"column,omitempty"`
}

// TidyBoard runs the bulk cleanup across the whole board. Confirm false
// previews; Confirm true executes, subject to the admission gate.
type TidyBoard struct {
	Confirm bool `json:"confirm,omitempty"`
}

// TidyColumn runs the bulk cleanup on one column.
type TidyColumn struct {
	Column  string `json:"column"`
	Confirm bool   `json:"confirm,omitempty"`
}

// Undo replays the reverse steps recorded under a token.
type Undo struct {
	Token string `json:"token"`
}

// UndoLast undoes the requester's most recent reversible command.
type UndoLast struct{}

// Preview wraps a batch of actions that must be echoed back as a plan
// without executing. The payloads stay raw: the plan is returned to the
// client verbatim.
type Preview struct {
	Actions []json.RawMessage `json:"actions"`
}

func (CreateTask) Kind() string  { return "create_task" }
func (MoveTask) Kind() string    { return "move_task" }
func (UpdateTask) Kind() string  { return "update_task" }
func (AssignTask) Kind() string  { return "assign_task" }
func (TagTask) Kind() string     { return "tag_task" }
func (CommentTask) Kind() string { return "comment_task" }
func (ListTasks) Kind() string   { return "list_tasks" }
func (SearchTasks) Kind() string { return "search_tasks" }
func (SetDue) Kind() string      { return "set_due" }
func (TidyBoard) Kind() string   { return "tidy_board" }
func (TidyColumn) Kind() string  { return "tidy_column" }
func (Undo) Kind() string        { return "undo" }
func (UndoLast) Kind() string    { return "undo_last" }
func (Preview) Kind() string     { return "preview" }

func (CreateTask) isAction()  {}
func (MoveTask) isAction()    {}
func (UpdateTask) isAction()  {}
func (AssignTask) isAction()  {}
func (TagTask) isAction()     {}
func (CommentTask) isAction() {}
func (ListTasks) isAction()   {}
func (SearchTasks) isAction() {}
func (SetDue) isAction()      {}
func (TidyBoard) isAction()   {}
func (TidyColumn) isAction()  {}
func (Undo) isAction()        {}
func (UndoLast) isAction()    {}
func (Preview) isAction()     {}
