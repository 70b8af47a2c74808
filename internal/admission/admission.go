// Package admission gates destructive bulk operations behind an
// explicit preview step and a per-requester cooldown.
//
// A tidy run must first be previewed. The preview is stored per
// (requester, target) and stays confirmable for a TTL; confirming
// consumes it, executes for real, and starts a cooldown during which
// the same requester cannot confirm another run against the same
// target. The errors are instructional on purpose: the caller relays
// them verbatim to the user, who needs to know what to do next.
package admission

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wordflux/wordflux/internal/board"
)

const (
	// PreviewTTL is how long a stored preview stays confirmable.
	PreviewTTL = 30 * time.Minute
	// Cooldown is the gap enforced between confirmed executions for
	// the same (requester, target).
	Cooldown = time.Hour
)

var (
	ErrNoPreview = errors.New("nothing to confirm: run the tidy as a preview first, then confirm within 30 minutes")
	ErrExpired   = errors.New("that preview has expired: run the tidy as a preview again, then confirm within 30 minutes")
)

// CooldownError reports a confirm attempt inside the cooldown window.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("a tidy was confirmed recently: wait about %d minutes before confirming another one",
		int(e.Remaining.Round(time.Minute)/time.Minute))
}

type gateKey struct {
	requester string
	target    string // "board" or a column name
}

type previewRecord struct {
	report   board.TidyReport
	storedAt time.Time
}

// Gate tracks previews and cooldown marks. Safe for concurrent use.
type Gate struct {
	mu        sync.Mutex
	previews  map[gateKey]previewRecord
	cooldowns map[gateKey]time.Time
	now       func() time.Time
}

func NewGate() *Gate {
	return &Gate{
		previews:  make(map[gateKey]previewRecord),
		cooldowns: make(map[gateKey]time.Time),
		now:       time.Now,
	}
}

// Preview stores report for a later confirm by the same requester
// against the same target. Always allowed; a newer preview replaces an
// older one.
func (g *Gate) Preview(requester, target string, report board.TidyReport) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked()
	g.previews[gateKey{requester, target}] = previewRecord{report: report, storedAt: g.now()}
}

// Confirm admits the real execution if an unexpired preview exists and
// the requester is outside the cooldown window, returning the
// previewed report. The preview is consumed and a cooldown mark
// written.
func (g *Gate) Confirm(requester, target string) (board.TidyReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	key := gateKey{requester, target}

	rec, ok := g.previews[key]
	if !ok {
		return board.TidyReport{}, ErrNoPreview
	}
	if now.Sub(rec.storedAt) > PreviewTTL {
		delete(g.previews, key)
		return board.TidyReport{}, ErrExpired
	}
	if mark, ok := g.cooldowns[key]; ok {
		if elapsed := now.Sub(mark); elapsed < Cooldown {
			return board.TidyReport{}, &CooldownError{Remaining: Cooldown - elapsed}
		}
	}

	delete(g.previews, key)
	g.cooldowns[key] = now
	return rec.report, nil
}

// sweepLocked drops expired previews and stale cooldown marks.
func (g *Gate) sweepLocked() {
	now := g.now()
	for key, rec := range g.previews {
		if now.Sub(rec.storedAt) > PreviewTTL {
			delete(g.previews, key)
		}
	}
	for key, mark := range g.cooldowns {
		if now.Sub(mark) >= Cooldown {
			delete(g.cooldowns, key)
		}
	}
}
