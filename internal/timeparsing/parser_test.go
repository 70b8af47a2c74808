package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, 17 June 2026, 10:00 local.
var testNow = time.Date(2026, 6, 17, 10, 0, 0, 0, time.Local)

func TestParseDueExplicitFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2026-07-01T09:30:00Z", time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)},
		{"date with time", "2026-07-01 09:30", time.Date(2026, 7, 1, 9, 30, 0, 0, time.Local)},
		{"date only", "2026-07-01", time.Date(2026, 7, 1, 17, 0, 0, 0, time.Local)},
		{"brazilian date", "01/07/2026", time.Date(2026, 7, 1, 17, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDue(tt.input, testNow)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseDueRelativeVocabulary(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"today", "today", time.Date(2026, 6, 17, 17, 0, 0, 0, time.Local)},
		{"hoje", "hoje", time.Date(2026, 6, 17, 17, 0, 0, 0, time.Local)},
		{"tomorrow", "tomorrow", time.Date(2026, 6, 18, 17, 0, 0, 0, time.Local)},
		{"amanha accented", "amanhã", time.Date(2026, 6, 18, 17, 0, 0, 0, time.Local)},
		{"tomorrow with time", "tomorrow at 9", time.Date(2026, 6, 18, 9, 0, 0, 0, time.Local)},
		{"amanha with time", "amanhã às 14h", time.Date(2026, 6, 18, 14, 0, 0, 0, time.Local)},
		{"pm clock", "today at 5:30pm", time.Date(2026, 6, 17, 17, 30, 0, 0, time.Local)},
		{"next friday", "friday", time.Date(2026, 6, 19, 17, 0, 0, 0, time.Local)},
		{"sexta", "sexta às 14h", time.Date(2026, 6, 19, 14, 0, 0, 0, time.Local)},
		{"same weekday rolls a week", "wednesday", time.Date(2026, 6, 24, 17, 0, 0, 0, time.Local)},
		{"in n days", "in 3 days", time.Date(2026, 6, 20, 17, 0, 0, 0, time.Local)},
		{"em n dias", "em 3 dias", time.Date(2026, 6, 20, 17, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDue(tt.input, testNow)
			require.True(t, ok, "expected %q to parse", tt.input)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseDueFallbackEngine(t *testing.T) {
	// Forms outside the built-in vocabulary reach the rule engine.
	got, ok := ParseDue("in 5 hours", testNow)
	require.True(t, ok)
	assert.True(t, testNow.Add(5*time.Hour).Equal(got), "got %v", got)
}

func TestParseDueUnrecognized(t *testing.T) {
	for _, input := range []string{"", "   ", "whenever you feel like it"} {
		_, ok := ParseDue(input, testNow)
		assert.False(t, ok, "input %q", input)
	}
}
