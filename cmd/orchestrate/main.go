// Command orchestrate runs goals from the terminal and inspects memory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheHaywire/solid-fortnight/internal/app"
	"github.com/TheHaywire/solid-fortnight/internal/checkpoint"
	"github.com/TheHaywire/solid-fortnight/internal/config"
	"github.com/TheHaywire/solid-fortnight/internal/mcpserver"
	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/models"
	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

// runEnv is passed to every command's Run method.
type runEnv struct {
	ctx context.Context
	cli *CLI
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("orchestrate"),
		kong.Description("Plan, generate, validate and repair work for a goal."),
		kong.UsageOnError(),
		kongVars(),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := kctx.Run(&runEnv{ctx: ctx, cli: &cli})
	kctx.FatalIfErrorf(err)
}

func loadConfig(cli *CLI) (*config.Config, error) {
	return config.Load(cli.Config)
}

func (c *RunCmd) Run(env *runEnv) error {
	cfg, err := loadConfig(env.cli)
	if err != nil {
		return err
	}
	if c.MaxDepth != 0 {
		cfg.SetMaxDepth(c.MaxDepth)
	}
	if c.Parallelism > 0 {
		cfg.Engine.Parallelism = c.Parallelism
	}
	// Logs go to stderr so the report can be piped.
	a, err := app.Build(env.ctx, cfg, app.NewLogger(os.Stderr, env.cli.LogLevel))
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Orchestrator.Run(env.ctx, strings.Join(c.Goal, " "), c.runOptions()...)
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Print(renderReport(report, c.Width))
	}
	if report.Status != models.StatusComplete {
		return fmt.Errorf("run %s", report.Status)
	}
	return nil
}

func (c *RunCmd) runOptions() []orchestrator.RunOption {
	var opts []orchestrator.RunOption
	if !c.Yes {
		opts = append(opts, orchestrator.WithPrompter(checkpoint.NewTerminalPrompter()))
	}
	if plan := checkpoint.ParsePlanEdit(c.Plan); len(plan) > 0 {
		opts = append(opts, orchestrator.WithPlan(plan))
	}
	return opts
}

func openStore(cli *CLI) (memory.Store, func() error, error) {
	cfg, err := loadConfig(cli)
	if err != nil {
		return nil, nil, err
	}
	return memory.Open(cfg.Memory.Backend, cfg.Memory.Path)
}

func (c *MemoryListCmd) Run(env *runEnv) error {
	store, closeStore, err := openStore(env.cli)
	if err != nil {
		return err
	}
	defer closeStore()
	snap, err := store.Load(env.ctx)
	if err != nil {
		return err
	}
	fmt.Print(renderMemoryList(snap))
	return nil
}

func (c *MemoryShowCmd) Run(env *runEnv) error {
	store, closeStore, err := openStore(env.cli)
	if err != nil {
		return err
	}
	defer closeStore()
	snap, err := store.Load(env.ctx)
	if err != nil {
		return err
	}
	subtask := strings.Join(c.Subtask, " ")
	rec, ok := snap.Get(subtask)
	if !ok {
		return fmt.Errorf("no memory for subtask %q", subtask)
	}
	fmt.Print(renderRecord(subtask, rec, 100))
	return nil
}

func (c *MCPCmd) Run(env *runEnv) error {
	cfg, err := loadConfig(env.cli)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol; logs must stay on stderr.
	a, err := app.Build(env.ctx, cfg, app.NewLogger(os.Stderr, env.cli.LogLevel))
	if err != nil {
		return err
	}
	defer a.Close()
	return server.ServeStdio(mcpserver.New(a.Orchestrator, a.Store))
}

func (c *VersionCmd) Run(env *runEnv) error {
	fmt.Printf("orchestrate %s (%s)\n", version, commit)
	return nil
}
