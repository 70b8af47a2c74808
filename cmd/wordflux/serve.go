package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/wordflux/wordflux/internal/board"
	"github.com/wordflux/wordflux/internal/config"
	"github.com/wordflux/wordflux/internal/executor"
	"github.com/wordflux/wordflux/internal/orchestrator"
	"github.com/wordflux/wordflux/internal/server"
	"github.com/wordflux/wordflux/internal/telemetry"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP chat endpoint",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx := cmd.Context()
	if cfg.Telemetry {
		if err := telemetry.Init(ctx); err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			defer func() { _ = telemetry.Shutdown(ctx) }()
		}
	}

	provider, tidier := buildProvider(cfg)
	provider = board.WithRetryProfile(provider, board.RetryProfile{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBase,
	})
	provider = board.Instrument(provider)

	orch := orchestrator.New(provider, tidier, actionListParser{}, orchestrator.Options{
		SwimlaneID:      cfg.SwimlaneID,
		SnapshotTimeout: cfg.SnapshotTimeout,
	})
	defer orch.Close()

	srv := server.New(orch, cfg.ListenAddr)
	log.Printf("wordflux %s listening on %s", Version, cfg.ListenAddr)
	return srv.Start(ctx)
}

// buildProvider connects to the configured remote board, or falls back
// to the seeded in-memory demo board when none is configured.
func buildProvider(cfg *config.Config) (board.Provider, board.Tidier) {
	if cfg.ProviderURL != "" {
		// The remote transport ships separately; until it is linked in,
		// a configured URL still gets the demo board, loudly.
		log.Printf("provider-url %q configured but no remote transport is linked; using the demo board", cfg.ProviderURL)
	}
	mem := board.NewMemoryProvider(
		board.Column{ID: "1", Title: "Backlog", Position: 1},
		board.Column{ID: "2", Title: "Ready", Position: 2},
		board.Column{ID: "3", Title: "Work in progress", Position: 3},
		board.Column{ID: "4", Title: "Review", Position: 4},
		board.Column{ID: "5", Title: "Done", Position: 5},
	)
	mem.Seed(board.Task{ID: "1", Title: "Welcome to wordflux", ColumnID: "1", Position: 1})
	return mem, mem
}

// actionListParser accepts messages that are literal JSON action arrays,
// e.g. [{"type":"create_task","title":"Fix login"}]. Free-text parsing
// is the conversational agent's job; anything that is not an action
// array signals fallback by returning no actions.
type actionListParser struct{}

func (actionListParser) Parse(message string, columns []string) ([]executor.Action, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(message), &raw); err != nil {
		return nil, nil
	}
	actions := make([]executor.Action, 0, len(raw))
	for _, item := range raw {
		action, err := decodeAction(item)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func decodeAction(raw json.RawMessage) (executor.Action, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	var action executor.Action
	switch head.Type {
	case "create_task":
		action = &executor.CreateTask{}
	case "move_task":
		action = &executor.MoveTask{}
	case "update_task":
		action = &executor.UpdateTask{}
	case "assign_task":
		action = &executor.AssignTask{}
	case "tag_task":
		action = &executor.TagTask{}
	case "comment_task":
		action = &executor.CommentTask{}
	case "list_tasks":
		action = &executor.ListTasks{}
	case "search_tasks":
		action = &executor.SearchTasks{}
	case "set_due":
		action = &executor.SetDue{}
	case "tidy_board":
		action = &executor.TidyBoard{}
	case "tidy_column":
		action = &executor.TidyColumn{}
	case "undo":
		action = &executor.Undo{}
	case "preview":
		action = &executor.Preview{}
	case "undo_last":
		return executor.UndoLast{}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", head.Type)
	}
	if err := json.Unmarshal(raw, action); err != nil {
		return nil, err
	}
	return deref(action), nil
}

// deref returns the value form of a decoded action pointer so that the
// executor's type switch sees the same concrete types the tests use.
func deref(a executor.Action) executor.Action {
	switch v := a.(type) {
	case *executor.CreateTask:
		return *v
	case *executor.MoveTask:
		return *v
	case *executor.UpdateTask:
		return *v
	case *executor.AssignTask:
		return *v
	case *executor.TagTask:
		return *v
	case *executor.CommentTask:
		return *v
	case *executor.ListTasks:
		return *v
	case *executor.SearchTasks:
		return *v
	case *executor.SetDue:
		return *v
	case *executor.TidyBoard:
		return *v
	case *executor.TidyColumn:
		return *v
	case *executor.Undo:
		return *v
	case *executor.Preview:
		return *v
	}
	return a
}
