package main

import (
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatal(err)
	}
	return &cli, kctx
}

func TestRunCmd_Defaults(t *testing.T) {
	cli, kctx := parse(t, "run", "build", "a", "CSV", "parser")
	if kctx.Command() != "run <goal>" {
		t.Errorf("command = %q", kctx.Command())
	}
	if strings.Join(cli.Run.Goal, " ") != "build a CSV parser" {
		t.Errorf("goal = %v", cli.Run.Goal)
	}
	if cli.Run.MaxDepth != 0 || cli.Run.Yes || cli.Run.Width != 100 || cli.LogLevel != "info" {
		t.Errorf("defaults = %+v log=%q", cli.Run, cli.LogLevel)
	}
	if opts := cli.Run.runOptions(); len(opts) != 1 {
		t.Errorf("options = %d, want terminal prompter only", len(opts))
	}
}

func TestRunCmd_Flags(t *testing.T) {
	cli, _ := parse(t, "-c", "orch.toml", "--log-level", "debug", "run", "--max-depth=-1", "-y", "--json", "--plan", "a, b", "goal")
	if cli.Run.MaxDepth != -1 || !cli.Run.Yes || !cli.Run.JSON || cli.LogLevel != "debug" {
		t.Errorf("flags = %+v", cli.Run)
	}
	if !strings.HasSuffix(cli.Config, "orch.toml") {
		t.Errorf("config = %q", cli.Config)
	}
	if opts := cli.Run.runOptions(); len(opts) != 1 {
		t.Errorf("options = %d, want plan only", len(opts))
	}
}

func TestRunCmd_RequiresGoal(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"run"}); err == nil {
		t.Error("expected error without goal")
	}
	if _, err := parser.Parse([]string{"--log-level", "loud", "version"}); err == nil {
		t.Error("expected enum error")
	}
}

func TestMemoryCmds(t *testing.T) {
	_, kctx := parse(t, "memory")
	if kctx.Command() != "memory list" {
		t.Errorf("default memory command = %q", kctx.Command())
	}
	cli, kctx := parse(t, "memory", "show", "parse", "rows")
	if kctx.Command() != "memory show <subtask>" || strings.Join(cli.Memory.Show.Subtask, " ") != "parse rows" {
		t.Errorf("command = %q subtask = %v", kctx.Command(), cli.Memory.Show.Subtask)
	}
}

func TestRenderReport(t *testing.T) {
	r := &models.FinalReport{
		RunID:  "run-1",
		Goal:   "build a CSV parser",
		Plan:   []string{"parse header", "parse rows"},
		Status: models.StatusFailed,
		Results: []*models.SubtaskResult{{
			Subtask: "parse header", Depth: 0, Attempts: 2, Repairs: 1, Regenerated: true, Documentation: "Splits the first line.",
		}},
		Logs: []*models.FailureLog{{
			Subtask: "parse rows", FailureHistory: []string{"quotes", "escapes", "newlines"},
			Suggestion: "give up", Reason: models.ReasonGaveUp,
		}},
		Warnings: []models.Warning{{Subtask: "parse header", Kind: models.WarningPersistence, Message: "disk full"}},
	}
	out := renderReport(r, 80)
	for _, want := range []string{
		"run-1", "failed", "1. parse header", "2. parse rows",
		"2 attempt(s), 1 repair(s), regenerated after review", "Splits the first line.",
		models.ReasonGaveUp, "- escapes", "suggestion: give up",
		"parse header - persistence: disk full",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMemory(t *testing.T) {
	snap := memory.NewSnapshot()
	if !strings.Contains(renderMemoryList(snap), "memory is empty") {
		t.Error("empty memory not reported")
	}
	rec := memory.Record{
		Artifact:      "func Parse() {}",
		Validation:    models.ValidationOutcome{Passed: true, Detail: "ok"},
		Review:        &models.ReviewOutcome{Rating: "9/10", Suggestions: "add docs"},
		Documentation: "Parses CSV.",
		UpdatedAt:     time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}
	snap.Put("parse", rec)
	if list := renderMemoryList(snap); !strings.Contains(list, "1. ") || !strings.Contains(list, "parse") || !strings.Contains(list, "2026-01-02 03:04") {
		t.Errorf("list = %q", list)
	}
	out := renderRecord("parse", rec, 80)
	for _, want := range []string{"func Parse() {}", "passed: true", "9/10", "suggestions: add docs", "Parses CSV."} {
		if !strings.Contains(out, want) {
			t.Errorf("record missing %q:\n%s", want, out)
		}
	}
}
