// Package board defines the capability interface for the remote Kanban
// provider, plus the value types and error taxonomy shared by every
// consumer of it.
//
// The concrete transport of the remote system is deliberately opaque: the
// command core only speaks through Provider (and Tidier, for the bulk
// cleanup capability). Decorators in this package add retry and metrics
// around any implementation.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a referenced task does not exist on the board.
var ErrNotFound = errors.New("task not found")

// ErrColumnNotFound is returned when a named column cannot be matched.
var ErrColumnNotFound = errors.New("column not found")

// ErrValidation is returned for structurally invalid input. Never retried.
var ErrValidation = errors.New("invalid request")

// AmbiguousError is returned when a task reference matches more than one
// task. Callers must surface it to the client as a conflict instead of
// guessing; it is never retried.
type AmbiguousError struct {
	Ref         string
	Matches     int
	Suggestions []Suggestion
}

// Suggestion is one disambiguation candidate, capped at 5 per error.
type Suggestion struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	ColumnID int    `json:"column_id"`
	Hint     string `json:"hint"`
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("found %d tasks matching %q; use an explicit #id", e.Matches, e.Ref)
}

// Column is a column as reported by the remote provider. ID is the
// provider's native identifier and may be non-numeric; Position is the
// native ordering key.
type Column struct {
	ID       string
	Title    string
	Position int
}

// Task is a card as reported by the remote provider. SwimlaneID is passed
// through opaquely.
type Task struct {
	ID          string
	Title       string
	Description string
	ColumnID    string
	SwimlaneID  string
	Position    int
	Priority    int
	Owner       string
	Tags        []string
	DueDate     time.Time
	Active      bool
}

// TaskUpdates is a partial update; nil fields are left unchanged.
type TaskUpdates struct {
	Title       *string
	Description *string
	Priority    *int
	DueDate     *time.Time
	Active      *bool
}

// Empty reports whether the update would change nothing.
func (u TaskUpdates) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.DueDate == nil && u.Active == nil
}

// Provider is the capability interface for the remote board backend.
// Consumers depend on this interface rather than a concrete client so that
// decorators (retry, metrics) and fakes can be substituted.
type Provider interface {
	GetColumns(ctx context.Context) ([]Column, error)
	ListTasks(ctx context.Context) ([]Task, error)
	SearchTasks(ctx context.Context, query string) ([]Task, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	CreateTask(ctx context.Context, title, description string) (string, error)
	MoveTask(ctx context.Context, taskID, columnID string, position int, swimlaneID string) error
	UpdateTask(ctx context.Context, taskID string, updates TaskUpdates) error
	AddComment(ctx context.Context, taskID, comment string) error
	DeactivateTask(ctx context.Context, taskID string) error
}

// TidyReport describes what a tidy pass would do (plan) or did (apply).
type TidyReport struct {
	Target  string   `json:"target"`
	Actions []string `json:"actions"`
	Summary string   `json:"summary"`
}

// Tidier is the opaque bulk-cleanup capability. An empty columnID targets
// the whole board. PlanTidy must not mutate anything.
type Tidier interface {
	PlanTidy(ctx context.Context, columnID string) (*TidyReport, error)
	ApplyTidy(ctx context.Context, columnID string) (*TidyReport, error)
}
