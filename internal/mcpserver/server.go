// Package mcpserver exposes the orchestrator as MCP tools over stdio.
//
// Each tool follows the same shape: a struct holding its dependencies,
// Definition() returning the mcp.Tool schema and Handle() serving calls.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
)

const Version = "0.1.0"

// New builds an MCP server with the run_goal, recall_subtask and
// list_memory tools.
func New(orch *orchestrator.Orchestrator, store memory.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"solid-fortnight",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Run goals through the plan/generate/validate/repair pipeline and recall artifacts persisted by earlier runs."),
	)
	run := NewRunGoalTool(orch)
	s.AddTool(run.Definition(), run.Handle)
	recall := NewRecallTool(store)
	s.AddTool(recall.Definition(), recall.Handle)
	list := NewListMemoryTool(store)
	s.AddTool(list.Definition(), list.Handle)
	return s
}

// RunGoalTool handles run_goal. Runs are auto-approved at both checkpoints.
type RunGoalTool struct {
	orch *orchestrator.Orchestrator
}

func NewRunGoalTool(orch *orchestrator.Orchestrator) *RunGoalTool {
	return &RunGoalTool{orch: orch}
}

func (t *RunGoalTool) Definition() mcp.Tool {
	return mcp.NewTool("run_goal",
		mcp.WithDescription(
			"Plan a goal into subtasks, then generate, validate, repair and document each one. "+
				"Returns the final report as JSON, including failures.",
		),
		mcp.WithString("goal",
			mcp.Required(),
			mcp.Description("What to build, in natural language"),
		),
		mcp.WithArray("plan",
			mcp.Description("Optional subtasks to use instead of planning"),
			mcp.WithStringItems(),
		),
	)
}

func (t *RunGoalTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal := strings.TrimSpace(req.GetString("goal", ""))
	if goal == "" {
		return mcp.NewToolResultError("'goal' is required"), nil
	}
	var opts []orchestrator.RunOption
	if plan := req.GetStringSlice("plan", nil); len(plan) > 0 {
		opts = append(opts, orchestrator.WithPlan(plan))
	}
	report := t.orch.Run(ctx, goal, opts...)
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding report failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// RecallTool handles recall_subtask.
type RecallTool struct {
	store memory.Store
}

func NewRecallTool(store memory.Store) *RecallTool {
	return &RecallTool{store: store}
}

func (t *RecallTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_subtask",
		mcp.WithDescription("Return the persisted artifact, validation, review and docs for a subtask completed by an earlier run."),
		mcp.WithString("subtask",
			mcp.Required(),
			mcp.Description("Exact subtask description"),
		),
	)
}

func (t *RecallTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	subtask := req.GetString("subtask", "")
	if subtask == "" {
		return mcp.NewToolResultError("'subtask' is required"), nil
	}
	snap, err := t.store.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading memory failed: %v", err)), nil
	}
	rec, ok := snap.Get(subtask)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("No memory for subtask %q.", subtask)), nil
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding record failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// ListMemoryTool handles list_memory.
type ListMemoryTool struct {
	store memory.Store
}

func NewListMemoryTool(store memory.Store) *ListMemoryTool {
	return &ListMemoryTool{store: store}
}

func (t *ListMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("list_memory",
		mcp.WithDescription("List the subtasks with persisted results, oldest first."),
		mcp.WithString("contains",
			mcp.Description("Only list subtasks containing this text (case-insensitive)"),
		),
	)
}

func (t *ListMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := t.store.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading memory failed: %v", err)), nil
	}
	filter := strings.ToLower(req.GetString("contains", ""))
	var b strings.Builder
	n := 0
	for _, k := range snap.Keys() {
		if filter != "" && !strings.Contains(strings.ToLower(k), filter) {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n", n, k)
	}
	if n == 0 {
		return mcp.NewToolResultText("No persisted subtasks."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d subtasks:\n\n%s", n, b.String())), nil
}
