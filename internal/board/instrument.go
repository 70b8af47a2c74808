package board

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wordflux/wordflux/internal/telemetry"
)

const providerScopeName = "github.com/wordflux/wordflux/board"

// InstrumentedProvider wraps a Provider with OTel metrics. Every call is
// counted and timed under wf.provider.*. Use Instrument to create one; it
// returns the provider unchanged when telemetry is disabled.
type InstrumentedProvider struct {
	inner Provider
	ops   metric.Int64Counter
	dur   metric.Float64Histogram
	errs  metric.Int64Counter
}

// Instrument returns p decorated with OTel instrumentation, or p itself
// when telemetry is disabled.
func Instrument(p Provider) Provider {
	if !telemetry.Enabled() {
		return p
	}
	m := telemetry.Meter(providerScopeName)
	ops, _ := m.Int64Counter("wf.provider.operations",
		metric.WithDescription("Total provider operations executed"),
	)
	dur, _ := m.Float64Histogram("wf.provider.operation.duration",
		metric.WithDescription("Provider operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("wf.provider.errors",
		metric.WithDescription("Total provider operation errors"),
	)
	return &InstrumentedProvider{inner: p, ops: ops, dur: dur, errs: errs}
}

func (p *InstrumentedProvider) record(ctx context.Context, name string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("provider.operation", name))
	p.ops.Add(ctx, 1, attrs)
	p.dur.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), attrs)
	if err != nil {
		p.errs.Add(ctx, 1, attrs)
	}
}

func (p *InstrumentedProvider) GetColumns(ctx context.Context) ([]Column, error) {
	start := time.Now()
	cols, err := p.inner.GetColumns(ctx)
	p.record(ctx, "get_columns", start, err)
	return cols, err
}

func (p *InstrumentedProvider) ListTasks(ctx context.Context) ([]Task, error) {
	start := time.Now()
	tasks, err := p.inner.ListTasks(ctx)
	p.record(ctx, "list_tasks", start, err)
	return tasks, err
}

func (p *InstrumentedProvider) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	start := time.Now()
	tasks, err := p.inner.SearchTasks(ctx, query)
	p.record(ctx, "search_tasks", start, err)
	return tasks, err
}

func (p *InstrumentedProvider) GetTask(ctx context.Context, taskID string) (*Task, error) {
	start := time.Now()
	task, err := p.inner.GetTask(ctx, taskID)
	p.record(ctx, "get_task", start, err)
	return task, err
}

func (p *InstrumentedProvider) CreateTask(ctx context.Context, title, description string) (string, error) {
	start := time.Now()
	id, err := p.inner.CreateTask(ctx, title, description)
	p.record(ctx, "create_task", start, err)
	return id, err
}

func (p *InstrumentedProvider) MoveTask(ctx context.Context, taskID, columnID string, position int, swimlaneID string) error {
	start := time.Now()
	err := p.inner.MoveTask(ctx, taskID, columnID, position, swimlaneID)
	p.record(ctx, "move_task", start, err)
	return err
}

func (p *InstrumentedProvider) UpdateTask(ctx context.Context, taskID string, updates TaskUpdates) error {
	start := time.Now()
	err := p.inner.UpdateTask(ctx, taskID, updates)
	p.record(ctx, "update_task", start, err)
	return err
}

func (p *InstrumentedProvider) AddComment(ctx context.Context, taskID, comment string) error {
	start := time.Now()
	err := p.inner.AddComment(ctx, taskID, comment)
	p.record(ctx, "add_comment", start, err)
	return err
}

func (p *InstrumentedProvider) DeactivateTask(ctx context.Context, taskID string) error {
	start := time.Now()
	err := p.inner.DeactivateTask(ctx, taskID)
	p.record(ctx, "deactivate_task", start, err)
	return err
}
