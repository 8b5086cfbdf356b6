package mcpserver

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/TheHaywire/solid-fortnight/internal/agents"
	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
)

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, memory.Store) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	store := memory.NewFileStore(filepath.Join(t.TempDir(), "memory.json"))
	o, err := orchestrator.New(orchestrator.Config{
		Capabilities: agents.NewSet(&llm.MockClient{}, nil, logger),
		Store:        store,
		Options:      orchestrator.DefaultOptions(2),
		Logger:       logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return o, store
}

func TestDefinitions(t *testing.T) {
	o, store := newTestOrchestrator(t)
	for name, def := range map[string]mcp.Tool{
		"run_goal":       NewRunGoalTool(o).Definition(),
		"recall_subtask": NewRecallTool(store).Definition(),
		"list_memory":    NewListMemoryTool(store).Definition(),
	} {
		if def.Name != name {
			t.Errorf("Definition name = %q, want %q", def.Name, name)
		}
	}
	if New(o, store) == nil {
		t.Fatal("New returned nil")
	}
}

func TestRunGoalThenRecall(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator(t)

	res, err := NewRunGoalTool(o).Handle(ctx, makeReq(map[string]interface{}{"goal": "build a CSV parser"}))
	if err != nil || res.IsError {
		t.Fatalf("run_goal = %v, %v", resultText(res), err)
	}
	if text := resultText(res); !strings.Contains(text, `"status": "complete"`) {
		t.Fatalf("report = %s", text)
	}

	res, _ = NewRecallTool(store).Handle(ctx, makeReq(map[string]interface{}{"subtask": "build a CSV parser"}))
	if res.IsError || !strings.Contains(resultText(res), `"code"`) {
		t.Errorf("recall = %s", resultText(res))
	}
	res, _ = NewRecallTool(store).Handle(ctx, makeReq(map[string]interface{}{"subtask": "unknown"}))
	if !strings.Contains(resultText(res), "No memory") {
		t.Errorf("recall unknown = %s", resultText(res))
	}

	res, _ = NewListMemoryTool(store).Handle(ctx, makeReq(map[string]interface{}{"contains": "csv"}))
	if !strings.Contains(resultText(res), "1. build a CSV parser") {
		t.Errorf("list = %s", resultText(res))
	}
}

func TestRunGoal_WithPlan(t *testing.T) {
	o, store := newTestOrchestrator(t)
	res, _ := NewRunGoalTool(o).Handle(context.Background(), makeReq(map[string]interface{}{
		"goal": "g",
		"plan": []interface{}{"first step", "second step"},
	}))
	if res.IsError {
		t.Fatalf("run_goal = %s", resultText(res))
	}
	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if keys := snap.Keys(); len(keys) != 2 || keys[0] != "first step" || keys[1] != "second step" {
		t.Errorf("memory keys = %v", keys)
	}
}

func TestHandlers_RequireArguments(t *testing.T) {
	o, store := newTestOrchestrator(t)
	ctx := context.Background()
	if res, _ := NewRunGoalTool(o).Handle(ctx, makeReq(map[string]interface{}{"goal": "  "})); !res.IsError {
		t.Error("run_goal without goal should fail")
	}
	if res, _ := NewRecallTool(store).Handle(ctx, makeReq(nil)); !res.IsError {
		t.Error("recall_subtask without subtask should fail")
	}
	if res, _ := NewListMemoryTool(store).Handle(ctx, makeReq(nil)); !strings.Contains(resultText(res), "No persisted") {
		t.Errorf("empty list = %s", resultText(res))
	}
}
