package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheHaywire/solid-fortnight/internal/orchestrator"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orchestrator.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFile(t *testing.T) {
	path := writeTOML(t, `
[llm]
provider = "anthropic"
timeout_ms = 1500

[engine]
max_depth = 2
max_width = 4
parallelism = 3
cancel_on_failure = true

[memory]
backend = "sqlite"
path = "mem.db"

[research]
search_url = "https://html.duckduckgo.com/html/?q=%s"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		t.Fatal(err)
	}
	want := orchestrator.Options{MaxAttempts: 3, MaxDepth: 2, MaxWidth: 4, Parallelism: 3, CancelOnFailure: true}
	if opts != want {
		t.Errorf("options = %+v, want %+v", opts, want)
	}
	s := cfg.LLMSettings()
	if s.Provider != "anthropic" || s.Timeout != 1500*time.Millisecond {
		t.Errorf("llm settings = %+v", s)
	}
	if cfg.Memory.Backend != "sqlite" || cfg.Memory.Path != "mem.db" {
		t.Errorf("memory = %+v", cfg.Memory)
	}
	if rc := cfg.ResearchTools(); rc.SearchURL == "" || rc.MaxPages != 20 {
		t.Errorf("research = %+v", rc)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(writeTOML(t, "[engine]\nmax_depht = 2\n")); err == nil {
		t.Error("expected unknown key error")
	}
	if _, err := LoadFile(writeTOML(t, "[engine\n")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected missing file error")
	}
}

func TestEngineOptions_RequiresMaxDepth(t *testing.T) {
	cfg, err := LoadFile(writeTOML(t, "[engine]\nmax_width = 2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.EngineOptions(); !errors.Is(err, ErrMaxDepthUnset) {
		t.Fatalf("err = %v, want ErrMaxDepthUnset", err)
	}

	// An explicit zero is set but invalid.
	cfg, _ = LoadFile(writeTOML(t, "[engine]\nmax_depth = 0\n"))
	if _, err := cfg.EngineOptions(); !errors.Is(err, orchestrator.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}

	cfg = New()
	cfg.SetMaxDepth(orchestrator.Unbounded)
	if opts, err := cfg.EngineOptions(); err != nil || opts.MaxDepth != orchestrator.Unbounded {
		t.Fatalf("opts = %+v, err = %v", opts, err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := New()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"LLM_PROVIDER":        "openai",
		"OPENAI_API_KEY":      "sk-1",
		"GEMINI_API_KEY":      "g-1",
		"LLM_HTTP_TIMEOUT_MS": "2000",
		"PORT":                "9090",
		"ORCH_MEMORY_PATH":    "/tmp/mem.json",
		"ORCH_MAX_DEPTH":      "-1",
	}))
	if err != nil {
		t.Fatal(err)
	}
	s := cfg.LLMSettings()
	if s.Provider != "openai" || s.OpenAIKey != "sk-1" || s.GoogleKey != "g-1" || s.Timeout != 2*time.Second {
		t.Errorf("settings = %+v", s)
	}
	if cfg.Server.Addr != ":9090" || cfg.Memory.Path != "/tmp/mem.json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if opts, err := cfg.EngineOptions(); err != nil || opts.MaxDepth != orchestrator.Unbounded {
		t.Errorf("opts = %+v, err = %v", opts, err)
	}

	if err := New().ApplyEnv(envMap(map[string]string{"ORCH_MAX_DEPTH": "deep"})); err == nil {
		t.Error("expected error for non-integer depth")
	}
}
