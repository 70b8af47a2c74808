// Package usercontext remembers short-lived per-requester state so that
// follow-up commands can omit the column ("add another one there").
package usercontext

import (
	"strings"
	"sync"
	"time"
)

const (
	// MemoryDuration is how long a remembered column stays usable.
	MemoryDuration = time.Hour
	sweepInterval  = 10 * time.Minute
)

// rememberedColumns are the only titles worth carrying between
// commands; transient or unknown columns are not remembered.
var rememberedColumns = []string{"backlog", "ready", "work in progress", "done"}

type entry struct {
	lastColumn string
	lastUsedAt time.Time
	taskCount  int
}

// Stats summarizes a requester's remembered state.
type Stats struct {
	TasksCreated    int
	DefaultColumn   string
	MemoryExpiresIn time.Duration
}

// Tracker holds per-requester context, keyed by the requester string
// the HTTP layer derives from client headers. Entries expire after
// MemoryDuration and are swept in the background.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	done    chan struct{}
	stop    sync.Once
}

func NewTracker() *Tracker {
	t := &Tracker{
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Stop terminates the background sweeper.
func (t *Tracker) Stop() {
	t.stop.Do(func() { close(t.done) })
}

func (t *Tracker) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.done:
			return
		}
	}
}

func (t *Tracker) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for key, e := range t.entries {
		if now.Sub(e.lastUsedAt) > MemoryDuration {
			delete(t.entries, key)
		}
	}
}

// get inserts an entry when missing. Only write paths may call it;
// read paths use lookup so that probing requester keys cannot grow the
// map.
func (t *Tracker) get(requester string) *entry {
	e, ok := t.entries[requester]
	if !ok {
		e = &entry{}
		t.entries[requester] = e
	}
	return e
}

func (t *Tracker) lookup(requester string) *entry {
	return t.entries[requester]
}

// RememberColumn records the column a requester just worked in, if it
// is one of the canonical columns.
func (t *Tracker) RememberColumn(requester, column string) {
	lower := strings.ToLower(column)
	remembered := false
	for _, valid := range rememberedColumns {
		if strings.Contains(lower, valid) {
			remembered = true
			break
		}
	}
	if !remembered {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.get(requester)
	e.lastColumn = column
	e.lastUsedAt = t.now()
}

// DefaultColumn returns the requester's remembered column, or "" when
// nothing is remembered or the memory has expired.
func (t *Tracker) DefaultColumn(requester string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.lookup(requester)
	if e == nil || e.lastColumn == "" {
		return ""
	}
	if t.now().Sub(e.lastUsedAt) >= MemoryDuration {
		e.lastColumn = ""
		e.lastUsedAt = time.Time{}
		return ""
	}
	return e.lastColumn
}

// CountTask bumps the requester's created-task counter.
func (t *Tracker) CountTask(requester string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.get(requester)
	e.taskCount++
	e.lastUsedAt = t.now()
}

// StatsFor reports the requester's task count and, when still valid,
// the remembered column and its remaining lifetime.
func (t *Tracker) StatsFor(requester string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.lookup(requester)
	if e == nil {
		return Stats{}
	}
	stats := Stats{TasksCreated: e.taskCount}
	if e.lastColumn != "" {
		if left := MemoryDuration - t.now().Sub(e.lastUsedAt); left > 0 {
			stats.DefaultColumn = e.lastColumn
			stats.MemoryExpiresIn = left
		}
	}
	return stats
}
