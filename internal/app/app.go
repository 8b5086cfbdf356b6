// Package app wires configuration into a ready orchestrator for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/agents"
	"github.com/TheHaywire/solid-fortnight/internal/config"
	"github.com/TheHaywire/solid-fortnight/internal/eventbus"
	"github.com/TheHaywire/solid-fortnight/internal/memory"
	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
	"github.com/TheHaywire/solid-fortnight/internal/providers/llm"
	"github.com/TheHaywire/solid-fortnight/internal/tools"
)

type App struct {
	Orchestrator *orchestrator.Orchestrator
	Store        memory.Store
	Client       llm.Client

	closers []func() error
}

// Build creates the provider client, tools, capabilities, memory store and
// event sinks described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	a := &App{}

	client, err := llm.New(ctx, cfg.LLMSettings())
	if err != nil {
		return nil, err
	}
	a.Client = client
	if c, ok := client.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	logger.Info("llm provider ready", "client", fmt.Sprintf("%T", client))

	store, closeStore, err := memory.Open(cfg.Memory.Backend, cfg.Memory.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	var sinks []orchestrator.EventSink
	if cfg.Events.NATSURL != "" {
		ns, err := eventbus.DialNATS(cfg.Events.NATSURL, cfg.Events.NATSSubject, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		sinks = append(sinks, ns)
		a.closers = append(a.closers, ns.Close)
	}
	if cfg.Events.WebhookURL != "" {
		ws := eventbus.NewWebhookSink(cfg.Events.WebhookURL, 10*time.Second, logger)
		sinks = append(sinks, ws)
		a.closers = append(a.closers, ws.Close)
	}

	registry := tools.NewResearchRegistry(client, cfg.ResearchTools())
	caps := agents.NewSet(client, registry, logger)
	if r, ok := caps.Researcher.(*agents.LLMResearcher); ok {
		r.MaxSources = cfg.Research.MaxSources
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Capabilities:    caps,
		Store:           store,
		Options:         opts,
		Logger:          logger,
		Sinks:           sinks,
		PreviewMaxBytes: cfg.Server.PreviewMaxBytes,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Orchestrator = orch
	return a, nil
}

// Close releases everything Build opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger returns a text slog logger at the given level name.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
