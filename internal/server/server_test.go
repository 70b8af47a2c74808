package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordflux/wordflux/internal/board"
	"github.com/wordflux/wordflux/internal/executor"
	"github.com/wordflux/wordflux/internal/orchestrator"
)

type parserFunc func(message string, columns []string) ([]executor.Action, error)

func (f parserFunc) Parse(message string, columns []string) ([]executor.Action, error) {
	return f(message, columns)
}

func newTestServer(t *testing.T, parse parserFunc) (*Server, *board.MemoryProvider) {
	t.Helper()
	mem := board.NewMemoryProvider(
		board.Column{ID: "1", Title: "Backlog", Position: 1},
		board.Column{ID: "2", Title: "Done", Position: 2},
	)
	mem.Seed(board.Task{ID: "10", Title: "Existing card", ColumnID: "1", Position: 1})

	orch := orchestrator.New(mem, mem, parse, orchestrator.Options{SwimlaneID: "1"})
	t.Cleanup(orch.Close)
	return New(orch, "127.0.0.1:0"), mem
}

func postChat(t *testing.T, s *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handleChat(rec, req)
	return rec
}

func TestChatBlankMessage(t *testing.T) {
	s, _ := newTestServer(t, func(string, []string) ([]executor.Action, error) {
		return nil, nil
	})

	rec := postChat(t, s, `{"message":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "Message is required", resp["error"])
}

func TestChatInvalidBody(t *testing.T) {
	s, _ := newTestServer(t, func(string, []string) ([]executor.Action, error) {
		return nil, nil
	})

	rec := postChat(t, s, `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, func(string, []string) ([]executor.Action, error) {
		return nil, nil
	})
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	s.handleChat(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatAmbiguous409(t *testing.T) {
	s, mem := newTestServer(t, func(string, []string) ([]executor.Action, error) {
		return []executor.Action{executor.MoveTask{TaskRef: "card", Column: "Done"}}, nil
	})
	mem.Seed(board.Task{ID: "11", Title: "Another card", ColumnID: "1", Position: 2})

	rec := postChat(t, s, `{"message":"move card to Done"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error       string `json:"error"`
		Suggestions []struct {
			ID   int    `json:"id"`
			Hint string `json:"hint"`
		} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Ambiguous Request", resp.Error)
	require.NotEmpty(t, resp.Suggestions)
	assert.NotEmpty(t, resp.Suggestions[0].Hint)
}

func TestIdempotencyReplay(t *testing.T) {
	calls := 0
	s, _ := newTestServer(t, func(string, []string) ([]executor.Action, error) {
		calls++
		return []executor.Action{executor.CreateTask{Title: "Once only"}}, nil
	})

	headers := map[string]string{"Idempotency-Key": "abc-123"}
	first := postChat(t, s, `{"message":"create once"}`, headers)
	assert.Equal(t, "MISS", first.Header().Get("X-Idempotency"))
	require.Equal(t, http.StatusOK, first.Code)

	second := postChat(t, s, `{"message":"create once"}`, headers)
	assert.Equal(t, "HIT", second.Header().Get("X-Idempotency"))
	assert.Equal(t, first.Body.String(), second.Body.String(), "replay is byte-identical")
	assert.Equal(t, 1, calls, "the command ran once")

	third := postChat(t, s, `{"message":"create once"}`, nil)
	assert.Equal(t, "OFF", third.Header().Get("X-Idempotency"))
	assert.Equal(t, 2, calls, "no key disables dedup")
}

func TestRequesterKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "10.1.2.3, 10.0.0.1"}, "10.1.2.3"},
		{"real ip", map[string]string{"X-Real-IP": "10.9.8.7"}, "10.9.8.7"},
		{"neither", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, requesterKey(req))
		})
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, func(string, []string) ([]executor.Action, error) {
		return nil, nil
	})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
