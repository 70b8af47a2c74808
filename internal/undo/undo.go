// Package undo keeps a short-lived ledger of reverse steps for executed
// commands.
//
// Every mutating command records the steps that would put the board
// back the way it was. Replay applies them newest-first and is
// best-effort: a step that fails (the task may have been archived or
// moved again by someone else) is logged and skipped rather than
// aborting the rest. Records expire after an hour.
package undo

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/wordflux/wordflux/internal/board"
)

// ErrTokenNotFound reports an unknown or expired undo token.
var ErrTokenNotFound = errors.New("undo token not found or expired")

const (
	retention     = time.Hour
	sweepInterval = 10 * time.Minute
)

// Step kinds.
const (
	StepCreate = "create" // undone by deactivating the created task
	StepMove   = "move"   // undone by moving back to the recorded slot
	StepUpdate = "update" // undone by restoring the prior field values
)

// ReverseStep is one inverse operation. Which fields matter depends on
// Type.
type ReverseStep struct {
	Type       string
	TaskID     string
	ToColumnID string
	Position   int
	SwimlaneID string
	Prior      *board.TaskUpdates
}

type record struct {
	requester string
	steps     []ReverseStep
	createdAt time.Time
}

// Ledger stores undo records by token. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*record
	order   []string // tokens oldest-first, for per-requester lookup
	now     func() time.Time
	done    chan struct{}
	stop    sync.Once
}

func NewLedger() *Ledger {
	l := &Ledger{
		records: make(map[string]*record),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Stop terminates the background sweeper.
func (l *Ledger) Stop() {
	l.stop.Do(func() { close(l.done) })
}

func (l *Ledger) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.done:
			return
		}
	}
}

func (l *Ledger) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-retention)
	kept := l.order[:0]
	for _, token := range l.order {
		rec, ok := l.records[token]
		if !ok {
			continue
		}
		if rec.createdAt.Before(cutoff) {
			delete(l.records, token)
			continue
		}
		kept = append(kept, token)
	}
	l.order = kept
}

// Record stores the reverse steps for a command under token. Commands
// with no reversible effect should not be recorded at all.
func (l *Ledger) Record(requester, token string, steps []ReverseStep) {
	if len(steps) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[token] = &record{requester: requester, steps: steps, createdAt: l.now()}
	l.order = append(l.order, token)
}

// Replay applies the record's steps in reverse order against p and
// removes the record, whether or not every step succeeded. It returns
// how many steps applied cleanly.
func (l *Ledger) Replay(ctx context.Context, token string, p board.Provider) (int, error) {
	rec, err := l.take(token)
	if err != nil {
		return 0, err
	}
	return replaySteps(ctx, token, rec.steps, p), nil
}

// ReplayLast undoes the requester's most recent recorded command.
func (l *Ledger) ReplayLast(ctx context.Context, requester string, p board.Provider) (int, error) {
	token, ok := l.lastToken(requester)
	if !ok {
		return 0, ErrTokenNotFound
	}
	return l.Replay(ctx, token, p)
}

func (l *Ledger) take(token string) (*record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[token]
	if !ok || l.now().Sub(rec.createdAt) > retention {
		delete(l.records, token)
		return nil, ErrTokenNotFound
	}
	delete(l.records, token)
	return rec, nil
}

func (l *Ledger) lastToken(requester string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-retention)
	for i := len(l.order) - 1; i >= 0; i-- {
		token := l.order[i]
		rec, ok := l.records[token]
		if !ok || rec.createdAt.Before(cutoff) {
			continue
		}
		if rec.requester == requester {
			return token, true
		}
	}
	return "", false
}

func replaySteps(ctx context.Context, token string, steps []ReverseStep, p board.Provider) int {
	applied := 0
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		var err error
		switch step.Type {
		case StepCreate:
			err = p.DeactivateTask(ctx, step.TaskID)
		case StepMove:
			err = p.MoveTask(ctx, step.TaskID, step.ToColumnID, step.Position, step.SwimlaneID)
		case StepUpdate:
			if step.Prior != nil {
				err = p.UpdateTask(ctx, step.TaskID, *step.Prior)
			}
		default:
			log.Printf("undo %s: skipping unknown step type %q", token, step.Type)
			continue
		}
		if err != nil {
			log.Printf("undo %s: step %s on task %s failed: %v", token, step.Type, step.TaskID, err)
			continue
		}
		applied++
	}
	return applied
}
