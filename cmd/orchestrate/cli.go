// Package main defines the orchestrate CLI using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Config   string `short:"c" help:"Config file path (TOML)" type:"path"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Log level"`

	Run     RunCmd     `cmd:"" help:"Plan and execute a goal"`
	Memory  MemoryCmd  `cmd:"" help:"Inspect persisted subtask results"`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve the orchestrator as MCP tools over stdio"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// RunCmd executes a goal with terminal checkpoints.
type RunCmd struct {
	Goal        []string `arg:"" help:"Goal to build"`
	MaxDepth    int      `help:"Decomposition depth limit; -1 for unbounded, 0 uses the config" default:"0"`
	Parallelism int      `help:"Top-level subtasks to run at once; 0 uses the config" default:"0"`
	Plan        string   `help:"Comma-separated subtasks to use instead of planning"`
	Yes         bool     `short:"y" help:"Approve both checkpoints without prompting"`
	JSON        bool     `name:"json" help:"Print the final report as JSON"`
	Width       int      `default:"100" help:"Wrap width for the rendered report"`
}

type MemoryCmd struct {
	List MemoryListCmd `cmd:"" default:"withargs" help:"List remembered subtasks"`
	Show MemoryShowCmd `cmd:"" help:"Show the record for one subtask"`
}

type MemoryListCmd struct{}

type MemoryShowCmd struct {
	Subtask []string `arg:"" help:"Subtask description"`
}

type MCPCmd struct{}

type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
