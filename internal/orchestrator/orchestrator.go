// Package orchestrator turns one chat request into executed board
// actions and a human-readable reply.
//
// It owns the request lifecycle: take a board snapshot, parse the
// message into typed actions, run them in order through the executor,
// aggregate the confirmation messages, and mint an undo token when
// anything reversible happened. The natural-language parser is an
// injected collaborator; when it produces nothing, the response signals
// the caller to fall back to the conversational agent.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wordflux/wordflux/internal/admission"
	"github.com/wordflux/wordflux/internal/board"
	"github.com/wordflux/wordflux/internal/executor"
	"github.com/wordflux/wordflux/internal/legacy"
	"github.com/wordflux/wordflux/internal/undo"
	"github.com/wordflux/wordflux/internal/usercontext"
)

// Parser converts free text into actions. A nil or empty action list
// means the deterministic grammar cannot handle the message and the
// caller should fall back to the conversational agent.
type Parser interface {
	Parse(message string, columns []string) ([]executor.Action, error)
}

// DefaultSnapshotTimeout bounds the board-state fetch; on timeout the
// request proceeds against an empty snapshot rather than failing.
const DefaultSnapshotTimeout = 3 * time.Second

// Request is one chat command.
type Request struct {
	Message        string `json:"message"`
	Preview        bool   `json:"preview,omitempty"`
	Requester      string `json:"-"`
	AcceptLanguage string `json:"-"`
}

// ActionView serializes an action with its kind tag alongside the
// action's own fields, matching the wire shape clients expect.
type ActionView struct {
	Action executor.Action
}

func (v ActionView) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(v.Action)
	if err != nil {
		return nil, err
	}
	tag := fmt.Sprintf(`{"type":%q`, v.Action.Kind())
	if len(body) <= 2 { // "{}"
		return []byte(tag + "}"), nil
	}
	return append([]byte(tag+","), body[1:]...), nil
}

func viewActions(actions []executor.Action) []ActionView {
	views := make([]ActionView, len(actions))
	for i, a := range actions {
		views[i] = ActionView{Action: a}
	}
	return views
}

// ActionResult records the outcome of one action: either its result or
// its error message, never both.
type ActionResult struct {
	Type   string           `json:"type"`
	Result *executor.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Metrics is attached to every response.
type Metrics struct {
	Deterministic bool  `json:"deterministic"`
	DurationMS    int64 `json:"duration_ms"`
}

// Response is the chat endpoint payload. Status carries the HTTP
// status the transport should use; it is not serialized.
type Response struct {
	OK          bool               `json:"ok"`
	Message     string             `json:"message"`
	Actions     []ActionView       `json:"actions"`
	Results     []ActionResult     `json:"results"`
	UndoToken   string             `json:"undoToken,omitempty"`
	Metrics     Metrics            `json:"metrics"`
	Error       string             `json:"error,omitempty"`
	Suggestions []board.Suggestion `json:"suggestions,omitempty"`
	Preview     bool               `json:"preview,omitempty"`
	Plan        []ActionView       `json:"plan,omitempty"`
	Fallback    bool               `json:"fallback,omitempty"`

	Status int `json:"-"`
}

// Orchestrator wires the command core together. Construct with New and
// share one instance across requests.
type Orchestrator struct {
	provider board.Provider
	tidier   board.Tidier
	parser   Parser
	users    *usercontext.Tracker
	ledger   *undo.Ledger
	gate     *admission.Gate

	swimlaneID      string
	snapshotTimeout time.Duration
	now             func() time.Time
	group           singleflight.Group
}

// Options tunes optional orchestrator behavior.
type Options struct {
	SwimlaneID      string
	SnapshotTimeout time.Duration
}

func New(provider board.Provider, tidier board.Tidier, parser Parser, opts Options) *Orchestrator {
	timeout := opts.SnapshotTimeout
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	return &Orchestrator{
		provider:        provider,
		tidier:          tidier,
		parser:          parser,
		users:           usercontext.NewTracker(),
		ledger:          undo.NewLedger(),
		gate:            admission.NewGate(),
		swimlaneID:      opts.SwimlaneID,
		snapshotTimeout: timeout,
		now:             time.Now,
	}
}

// Close stops the background sweepers.
func (o *Orchestrator) Close() {
	o.users.Stop()
	o.ledger.Stop()
}

// Process handles one chat request end to end.
func (o *Orchestrator) Process(ctx context.Context, req Request) *Response {
	start := o.now()
	finish := func(r *Response) *Response {
		r.Metrics = Metrics{Deterministic: true, DurationMS: o.now().Sub(start).Milliseconds()}
		if r.Status == 0 {
			r.Status = 200
		}
		if r.Actions == nil {
			r.Actions = []ActionView{}
		}
		if r.Results == nil {
			r.Results = []ActionResult{}
		}
		return r
	}

	if strings.TrimSpace(req.Message) == "" {
		return finish(&Response{
			OK:      false,
			Status:  400,
			Error:   "Message is required",
			Message: "Please provide a message",
		})
	}

	snap := o.snapshot(ctx)
	actions, err := o.parser.Parse(req.Message, snap.Titles())
	if err != nil {
		return finish(&Response{
			OK:      false,
			Status:  400,
			Error:   err.Error(),
			Message: err.Error(),
		})
	}
	if len(actions) == 0 {
		return finish(&Response{
			OK:       false,
			Fallback: true,
			Message:  "Command not recognized. Try using AI mode.",
		})
	}

	if req.Preview {
		return finish(&Response{
			OK:      true,
			Message: fmt.Sprintf("Preview: %d action(s) planned", len(actions)),
			Actions: viewActions(actions),
			Preview: true,
			Plan:    viewActions(actions),
		})
	}

	env := &executor.Env{
		Provider:   o.provider,
		Tidier:     o.tidier,
		Snapshot:   snap,
		Requester:  req.Requester,
		Users:      o.users,
		Gate:       o.gate,
		Ledger:     o.ledger,
		SwimlaneID: o.swimlaneID,
		Now:        o.now,
	}

	var (
		results  []ActionResult
		messages []string
		steps    []undo.ReverseStep
	)
	for _, action := range actions {
		res, actionSteps, err := executor.Execute(ctx, env, action)
		if err != nil {
			var amb *board.AmbiguousError
			if errors.As(err, &amb) {
				return finish(&Response{
					OK:          false,
					Status:      409,
					Error:       "Ambiguous Request",
					Message:     ambiguousMessage(amb),
					Results:     results,
					Actions:     viewActions(actions),
					Suggestions: amb.Suggestions,
				})
			}
			messages = append(messages, err.Error())
			results = append(results, ActionResult{Type: action.Kind(), Error: err.Error()})
			continue
		}
		steps = append(steps, actionSteps...)
		results = append(results, ActionResult{Type: action.Kind(), Result: res})
		messages = append(messages, confirmation(res)...)
	}

	if allLists(actions) {
		messages = append([]string{boardSummary(snap, req.AcceptLanguage, o.now())}, messages...)
	}

	resp := &Response{
		OK:      true,
		Message: strings.Join(messages, "\n"),
		Actions: viewActions(actions),
		Results: results,
	}
	if len(steps) > 0 {
		token := ulid.Make().String()
		o.ledger.Record(req.Requester, token, steps)
		resp.UndoToken = token
	}
	return finish(resp)
}

// snapshot fetches board state, deduplicating concurrent fetches and
// treating a slow provider as an empty board rather than an error.
func (o *Orchestrator) snapshot(ctx context.Context) *legacy.Snapshot {
	ch := o.group.DoChan("snapshot", func() (interface{}, error) {
		cols, err := o.provider.GetColumns(ctx)
		if err != nil {
			return nil, err
		}
		tasks, err := o.provider.ListTasks(ctx)
		if err != nil {
			return nil, err
		}
		return legacy.Build(cols, tasks), nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			log.Printf("orchestrator: board snapshot failed: %v", res.Err)
			return legacy.Build(nil, nil)
		}
		return res.Val.(*legacy.Snapshot)
	case <-time.After(o.snapshotTimeout):
		log.Printf("orchestrator: board snapshot timed out after %s", o.snapshotTimeout)
		return legacy.Build(nil, nil)
	}
}

func allLists(actions []executor.Action) bool {
	for _, a := range actions {
		if _, ok := a.(executor.ListTasks); !ok {
			return false
		}
	}
	return len(actions) > 0
}

func ambiguousMessage(amb *board.AmbiguousError) string {
	lines := []string{fmt.Sprintf("Found %d tasks matching %q. Did you mean:", amb.Matches, amb.Ref)}
	for _, s := range amb.Suggestions {
		lines = append(lines, fmt.Sprintf("  #%d %q", s.ID, s.Title))
	}
	return strings.Join(lines, "\n")
}

// confirmation renders the past-tense reply lines for one result.
func confirmation(res *executor.Result) []string {
	switch res.Kind {
	case "create_task":
		return []string{fmt.Sprintf("Created #%d %q in %s.", res.TaskID, res.Title, res.Column)}
	case "move_task":
		return []string{fmt.Sprintf("Moved #%d to %s.", res.TaskID, res.To)}
	case "update_task":
		return []string{fmt.Sprintf("Updated #%d.", res.TaskID)}
	case "assign_task":
		return []string{fmt.Sprintf("Assigned #%d to %s.", res.TaskID, res.Assignee)}
	case "tag_task":
		var lines []string
		if len(res.Added) > 0 {
			lines = append(lines, fmt.Sprintf("Tagged #%d: %s.", res.TaskID, strings.Join(res.Added, ", ")))
		}
		if len(res.Removed) > 0 {
			lines = append(lines, fmt.Sprintf("Untagged #%d: %s.", res.TaskID, strings.Join(res.Removed, ", ")))
		}
		return lines
	case "comment_task":
		return []string{fmt.Sprintf("Commented on #%d.", res.TaskID)}
	case "list_tasks":
		return listingLines(res, "task", "tasks")
	case "search_tasks":
		return listingLines(res, "match", "matches")
	case "set_due":
		noun := "tasks"
		if res.DueCount == 1 {
			noun = "task"
		}
		return []string{fmt.Sprintf("Set due date to %s for %d %s.", res.Due, res.DueCount, noun)}
	case "tidy_board", "tidy_column":
		if res.Report == nil {
			return nil
		}
		if res.Previewed {
			return []string{fmt.Sprintf("Tidy preview for %s: %s. Confirm to apply.", res.Report.Target, res.Report.Summary)}
		}
		return []string{fmt.Sprintf("Tidied %s: %s.", res.Report.Target, res.Report.Summary)}
	case "preview":
		return []string{fmt.Sprintf("Preview: %d action(s) planned", len(res.Planned))}
	case "undo", "undo_last":
		noun := "actions"
		if res.Reverted == 1 {
			noun = "action"
		}
		return []string{fmt.Sprintf("Reverted %d %s.", res.Reverted, noun)}
	}
	return nil
}

func listingLines(res *executor.Result, singular, plural string) []string {
	noun := plural
	if res.Count == 1 {
		noun = singular
	}
	lines := []string{fmt.Sprintf("%d %s:", res.Count, noun)}
	if len(res.Tasks) > 0 {
		rows := make([]string, len(res.Tasks))
		for i, t := range res.Tasks {
			rows[i] = fmt.Sprintf("#%d %s", t.ID, t.Title)
		}
		lines = append(lines, strings.Join(rows, "; "))
	}
	return lines
}

// boardSummary prefixes list-only replies with per-stage counts, in
// Portuguese when the client asks for it.
func boardSummary(snap *legacy.Snapshot, acceptLanguage string, now time.Time) string {
	var ready, wip, done, overdue int
	for ci := range snap.Columns {
		col := &snap.Columns[ci]
		for ti := range col.Tasks {
			task := &col.Tasks[ti]
			switch col.CanonicalTitle {
			case "Ready":
				ready++
			case "Work in progress":
				wip++
			case "Done":
				done++
			}
			if !task.DueDate.IsZero() && task.DueDate.Before(now) && task.Active {
				overdue++
			}
		}
	}

	if strings.HasPrefix(strings.ToLower(acceptLanguage), "pt") {
		return fmt.Sprintf("Resumo — Prontas %d • Em Progresso %d • Concluídas %d • Atrasadas %d",
			ready, wip, done, overdue)
	}
	return fmt.Sprintf("Summary — Ready %d • In Progress %d • Done %d • Overdue %d",
		ready, wip, done, overdue)
}
