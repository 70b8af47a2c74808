// Package autotag derives labels from task text by keyword matching.
package autotag

import (
	"regexp"
	"strings"
)

// Tag is a label detected in task text, with the emoji used in board
// comments and the priority it implies.
type Tag struct {
	Emoji    string
	Label    string
	Priority string
}

type rule struct {
	tag      Tag
	keywords []string
}

var rules = []rule{
	{Tag{"🐛", "bug", "high"}, []string{"bug", "fix", "issue", "broken", "error", "crash", "problem"}},
	{Tag{"✨", "feature", "medium"}, []string{"feature", "add", "new", "implement", "create", "enhancement"}},
	{Tag{"🔥", "urgent", "urgent"}, []string{"urgent", "asap", "critical", "emergency", "immediately", "now"}},
	{Tag{"🚀", "deploy", "high"}, []string{"deploy", "release", "ship", "launch", "production", "rollout"}},
	{Tag{"🔧", "refactor", "low"}, []string{"refactor", "cleanup", "optimize", "improve", "restructure"}},
	{Tag{"📝", "docs", "low"}, []string{"docs", "documentation", "readme", "document", "guide"}},
	{Tag{"✅", "test", "medium"}, []string{"test", "testing", "spec", "unit", "integration", "e2e"}},
	{Tag{"🔒", "security", "urgent"}, []string{"security", "vulnerability", "auth", "permission", "exploit", "xss", "csrf"}},
	{Tag{"⚡", "performance", "medium"}, []string{"performance", "slow", "optimize", "speed", "fast", "latency"}},
	{Tag{"💡", "idea", "low"}, []string{"idea", "suggestion", "proposal", "consider", "maybe", "could"}},
}

var keywordRes = compileKeywords()

func compileKeywords() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if _, ok := res[kw]; !ok {
				res[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
		}
	}
	return res
}

// Detect returns the tags whose keywords appear as whole words in text,
// in rule order, each label at most once.
func Detect(text string) []Tag {
	lower := strings.ToLower(text)
	var tags []Tag
	for _, r := range rules {
		for _, kw := range r.keywords {
			if keywordRes[kw].MatchString(lower) {
				tags = append(tags, r.tag)
				break
			}
		}
	}
	return tags
}

// HighestPriority returns the strongest priority among tags, or ""
// when tags is empty.
func HighestPriority(tags []Tag) string {
	for _, p := range []string{"urgent", "high", "medium", "low"} {
		for _, t := range tags {
			if t.Priority == p {
				return p
			}
		}
	}
	return ""
}

// CommentText formats detected tags for a board comment, e.g.
// "Auto-tagged: 🐛 bug, 🔥 urgent | Priority: urgent".
func CommentText(tags []Tag) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Emoji + " " + t.Label
	}
	comment := "Auto-tagged: " + strings.Join(parts, ", ")
	if p := HighestPriority(tags); p != "" {
		comment += " | Priority: " + p
	}
	return comment
}
