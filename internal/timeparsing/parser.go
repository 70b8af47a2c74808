// Package timeparsing extracts due dates from chat text.
//
// Wordflux users write dates the way they talk: "tomorrow", "sexta às
// 14h", "2026-03-01". Parsing runs in layers, explicit machine formats
// first, then a small bilingual (English/Portuguese) vocabulary for the
// common relative forms, then the olebedev/when rule engine as a
// catch-all. Dates without an explicit time of day land on 17:00.
package timeparsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/br"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DefaultHour is the time of day assumed when the user names a date but
// no time.
const DefaultHour = 17

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(br.All...)
	w.Add(common.All...)
	return w
}

// explicitLayouts are tried verbatim before any natural-language
// handling. Layouts without a time component get DefaultHour.
var explicitLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
	{"02/01/2006", false}, // Brazilian day-first convention
}

var (
	// "at 9", "at 9:30pm", "às 14h", "as 14hs"
	clockRe = regexp.MustCompile(`(?i)(?:\bat\b|às|\bas\b)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm|h|hs)?\b`)
	inDaysRe = regexp.MustCompile(`(?i)(?:\bin\b|\bem\b|\bdaqui a\b)\s+(\d+)\s+(?:days?|dias?)`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "segunda": time.Monday,
	"tuesday": time.Tuesday, "terça": time.Tuesday, "terca": time.Tuesday,
	"wednesday": time.Wednesday, "quarta": time.Wednesday,
	"thursday": time.Thursday, "quinta": time.Thursday,
	"friday": time.Friday, "sexta": time.Friday,
	"saturday": time.Saturday, "sábado": time.Saturday, "sabado": time.Saturday,
}

// ParseDue extracts a due date from text relative to now. The second
// return is false when no date could be recognized.
func ParseDue(text string, now time.Time) (time.Time, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, false
	}

	for _, l := range explicitLayouts {
		parsed, err := time.ParseInLocation(l.layout, trimmed, now.Location())
		if err != nil {
			continue
		}
		if !l.hasTime {
			parsed = at(parsed, DefaultHour, 0)
		}
		return parsed, true
	}

	if due, ok := parseRelative(trimmed, now); ok {
		return due, true
	}

	if result, err := parser.Parse(trimmed, now); err == nil && result != nil {
		return result.Time, true
	}
	return time.Time{}, false
}

// parseRelative covers the bilingual vocabulary: today/hoje,
// tomorrow/amanhã, bare weekday names, and "in N days". The clock part,
// when present, applies to whichever day form matched.
func parseRelative(text string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(text)
	hour, minute := clockOf(lower)

	day, ok := dayOf(lower, now)
	if !ok {
		return time.Time{}, false
	}
	return at(day, hour, minute), true
}

func dayOf(lower string, now time.Time) (time.Time, bool) {
	switch {
	case containsWord(lower, "today"), containsWord(lower, "hoje"):
		return now, true
	case containsWord(lower, "tomorrow"), containsWord(lower, "amanhã"), containsWord(lower, "amanha"):
		return now.AddDate(0, 0, 1), true
	}

	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return now.AddDate(0, 0, n), true
		}
	}

	for name, wd := range weekdays {
		if !containsWord(lower, name) {
			continue
		}
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7 // a bare weekday means the next one, not today
		}
		return now.AddDate(0, 0, delta), true
	}
	return time.Time{}, false
}

// clockOf finds an explicit time of day, defaulting to DefaultHour.
func clockOf(lower string) (hour, minute int) {
	hour = DefaultHour
	m := clockRe.FindStringSubmatch(lower)
	if m == nil {
		return hour, 0
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h > 23 {
		return hour, 0
	}
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if h < 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	}
	return h, minute
}

func containsWord(haystack, word string) bool {
	idx := strings.Index(haystack, word)
	if idx < 0 {
		return false
	}
	before := idx == 0 || boundary(rune(haystack[idx-1]))
	end := idx + len(word)
	after := end == len(haystack) || boundary(rune(haystack[end]))
	return before && after
}

func boundary(r rune) bool {
	return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
