package board

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryProvider is an in-process Provider and Tidier. It backs the demo
// serve mode and the package tests; real deployments inject their own
// Provider implementation.
type MemoryProvider struct {
	mu       sync.Mutex
	columns  []Column
	tasks    map[string]*Task
	comments map[string][]string
	nextID   int

	// FailNext makes the next n mutating/reading calls return an error,
	// for exercising the retry decorator in tests.
	FailNext int
	Calls    int
}

// NewMemoryProvider seeds a provider with the given columns.
func NewMemoryProvider(columns ...Column) *MemoryProvider {
	return &MemoryProvider{
		columns:  columns,
		tasks:    make(map[string]*Task),
		comments: make(map[string][]string),
		nextID:   1,
	}
}

// Seed inserts a task directly, preserving its ID. Test helper.
func (m *MemoryProvider) Seed(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := t
	if cp.Position == 0 {
		cp.Position = m.columnLen(cp.ColumnID) + 1
	}
	cp.Active = true
	m.tasks[cp.ID] = &cp
}

// Comments returns the comments recorded for a task. Test helper.
func (m *MemoryProvider) Comments(taskID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.comments[taskID]...)
}

func (m *MemoryProvider) columnLen(columnID string) int {
	n := 0
	for _, t := range m.tasks {
		if t.ColumnID == columnID && t.Active {
			n++
		}
	}
	return n
}

func (m *MemoryProvider) fail() error {
	m.Calls++
	if m.FailNext > 0 {
		m.FailNext--
		return fmt.Errorf("provider unavailable")
	}
	return nil
}

func (m *MemoryProvider) GetColumns(ctx context.Context) ([]Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	cols := append([]Column(nil), m.columns...)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	return cols, nil
}

func (m *MemoryProvider) ListTasks(ctx context.Context) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []Task
	for _, t := range m.tasks {
		if t.Active {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ColumnID != out[j].ColumnID {
			return out[i].ColumnID < out[j].ColumnID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *MemoryProvider) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	tasks, err := m.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []Task
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryProvider) GetTask(ctx context.Context, taskID string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryProvider) CreateTask(ctx context.Context, title, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", err
	}
	if title == "" {
		return "", fmt.Errorf("title required: %w", ErrValidation)
	}
	id := fmt.Sprintf("%d", m.nextID)
	m.nextID++
	columnID := ""
	if len(m.columns) > 0 {
		columnID = m.columns[0].ID
	}
	m.tasks[id] = &Task{
		ID:          id,
		Title:       title,
		Description: description,
		ColumnID:    columnID,
		Position:    m.columnLen(columnID) + 1,
		Active:      true,
	}
	return id, nil
}

func (m *MemoryProvider) MoveTask(ctx context.Context, taskID, columnID string, position int, swimlaneID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	t.ColumnID = columnID
	t.Position = position
	if swimlaneID != "" {
		t.SwimlaneID = swimlaneID
	}
	return nil
}

func (m *MemoryProvider) UpdateTask(ctx context.Context, taskID string, updates TaskUpdates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if updates.Title != nil {
		t.Title = *updates.Title
	}
	if updates.Description != nil {
		t.Description = *updates.Description
	}
	if updates.Priority != nil {
		t.Priority = *updates.Priority
	}
	if updates.DueDate != nil {
		t.DueDate = *updates.DueDate
	}
	if updates.Active != nil {
		t.Active = *updates.Active
	}
	return nil
}

func (m *MemoryProvider) AddComment(ctx context.Context, taskID, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if _, ok := m.tasks[taskID]; !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	m.comments[taskID] = append(m.comments[taskID], comment)
	return nil
}

func (m *MemoryProvider) DeactivateTask(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	t.Active = false
	return nil
}

// tidyCandidates returns the inactive-leaning cleanup set: tasks in the
// target column (or anywhere, for the board) whose column is the last one.
func (m *MemoryProvider) tidyCandidates(columnID string) []*Task {
	var lastCol string
	if len(m.columns) > 0 {
		lastCol = m.columns[len(m.columns)-1].ID
	}
	var out []*Task
	for _, t := range m.tasks {
		if !t.Active {
			continue
		}
		if columnID != "" && t.ColumnID != columnID {
			continue
		}
		if columnID == "" && t.ColumnID != lastCol {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *MemoryProvider) PlanTidy(ctx context.Context, columnID string) (*TidyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	target := "board"
	if columnID != "" {
		target = columnID
	}
	report := &TidyReport{Target: target}
	for _, t := range m.tidyCandidates(columnID) {
		report.Actions = append(report.Actions, fmt.Sprintf("archive #%s %q", t.ID, t.Title))
	}
	report.Summary = fmt.Sprintf("%d task(s) would be archived", len(report.Actions))
	return report, nil
}

func (m *MemoryProvider) ApplyTidy(ctx context.Context, columnID string) (*TidyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	target := "board"
	if columnID != "" {
		target = columnID
	}
	report := &TidyReport{Target: target}
	for _, t := range m.tidyCandidates(columnID) {
		t.Active = false
		report.Actions = append(report.Actions, fmt.Sprintf("archived #%s %q", t.ID, t.Title))
	}
	report.Summary = fmt.Sprintf("%d task(s) archived", len(report.Actions))
	return report, nil
}
