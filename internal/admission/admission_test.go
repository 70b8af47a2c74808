package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordflux/wordflux/internal/board"
)

func newTestGate(start time.Time) (*Gate, *time.Time) {
	clock := start
	g := NewGate()
	g.now = func() time.Time { return clock }
	return g, &clock
}

func testReport() board.TidyReport {
	return board.TidyReport{
		Target:  "board",
		Actions: []string{"archive(#12)", "archive(#15)"},
		Summary: "2 cards would be archived",
	}
}

func TestConfirmWithoutPreview(t *testing.T) {
	g, _ := newTestGate(time.Now())
	_, err := g.Confirm("alice", "board")
	assert.ErrorIs(t, err, ErrNoPreview)
}

func TestPreviewThenConfirm(t *testing.T) {
	g, _ := newTestGate(time.Now())

	g.Preview("alice", "board", testReport())
	report, err := g.Confirm("alice", "board")
	require.NoError(t, err)
	assert.Equal(t, "2 cards would be archived", report.Summary)

	// The preview is consumed; confirming again needs a new one.
	_, err = g.Confirm("alice", "board")
	assert.ErrorIs(t, err, ErrNoPreview)
}

func TestConfirmAfterTTL(t *testing.T) {
	g, clock := newTestGate(time.Now())

	g.Preview("alice", "board", testReport())
	*clock = clock.Add(31 * time.Minute)

	_, err := g.Confirm("alice", "board")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCooldownBlocksSecondConfirm(t *testing.T) {
	g, clock := newTestGate(time.Now())

	g.Preview("alice", "board", testReport())
	_, err := g.Confirm("alice", "board")
	require.NoError(t, err)

	// Even a fresh preview cannot be confirmed inside the cooldown.
	g.Preview("alice", "board", testReport())
	*clock = clock.Add(20 * time.Minute)
	_, err = g.Confirm("alice", "board")

	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.InDelta(t, 40, int(cooldown.Remaining/time.Minute), 1)
	assert.Contains(t, cooldown.Error(), "wait about")

	// After the cooldown the stored preview has expired too, so the
	// requester starts over.
	*clock = clock.Add(50 * time.Minute)
	_, err = g.Confirm("alice", "board")
	assert.ErrorIs(t, err, ErrExpired)

	g.Preview("alice", "board", testReport())
	_, err = g.Confirm("alice", "board")
	assert.NoError(t, err)
}

func TestKeysAreIndependent(t *testing.T) {
	g, _ := newTestGate(time.Now())

	g.Preview("alice", "board", testReport())
	g.Preview("alice", "Done", board.TidyReport{Target: "Done", Summary: "1 card"})
	g.Preview("bob", "board", testReport())

	_, err := g.Confirm("alice", "board")
	require.NoError(t, err)

	// alice's cooldown on "board" does not touch her "Done" preview
	// or bob's "board" preview.
	report, err := g.Confirm("alice", "Done")
	require.NoError(t, err)
	assert.Equal(t, "1 card", report.Summary)

	_, err = g.Confirm("bob", "board")
	assert.NoError(t, err)
}

func TestSweepDropsStaleState(t *testing.T) {
	g, clock := newTestGate(time.Now())

	g.Preview("alice", "board", testReport())
	_, err := g.Confirm("alice", "board")
	require.NoError(t, err)
	g.Preview("bob", "board", testReport())

	*clock = clock.Add(2 * time.Hour)
	g.Preview("carol", "board", testReport())

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Len(t, g.previews, 1, "only carol's fresh preview survives")
	assert.Empty(t, g.cooldowns)
}
