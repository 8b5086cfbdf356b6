// Command server exposes the orchestrator over HTTP.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/TheHaywire/solid-fortnight/internal/api"
	"github.com/TheHaywire/solid-fortnight/internal/app"
	"github.com/TheHaywire/solid-fortnight/internal/config"
)

type cli struct {
	Config   string `short:"c" help:"Config file path (TOML)" type:"path"`
	Addr     string `help:"Listen address; overrides config and PORT"`
	MaxDepth int    `help:"Decomposition depth limit; -1 for unbounded, 0 uses the config" default:"0"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Log level"`
}

func main() {
	var c cli
	kong.Parse(&c, kong.Name("server"), kong.Description("Serve the orchestrator over HTTP."))

	cfg, err := config.Load(c.Config)
	if err != nil {
		log.Fatal(err)
	}
	if c.MaxDepth != 0 {
		cfg.SetMaxDepth(c.MaxDepth)
	}
	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(os.Stderr, c.LogLevel)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	apiServer := api.NewServer(ctx, a.Orchestrator, logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	// Cancelled runs still publish their final events; the sinks close after.
	apiServer.Wait()
}
