package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CLIPFORGE_MODEL", "")
	t.Setenv("CLIPFORGE_SCRATCH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CLIPFORGE_MODEL", "")
	t.Setenv("CLIPFORGE_SCRATCH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  model: gpt-4o-mini
  base_url: https://example.invalid/v1
  timeout: 45s
execution:
  retries: 5
  timeout: 30s
  scratch_dir: /tmp/forge
logging:
  debug_mode: true
  level: debug
  categories:
    exec: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM config not parsed: %+v", cfg.LLM)
	}
	if cfg.Execution.Retries != 5 {
		t.Errorf("Retries = %d, want 5", cfg.Execution.Retries)
	}
	if cfg.Execution.ScratchDir != "/tmp/forge" {
		t.Errorf("ScratchDir = %q", cfg.Execution.ScratchDir)
	}
	if !cfg.Logging.DebugMode || !cfg.Logging.Categories["exec"] {
		t.Errorf("Logging config not parsed: %+v", cfg.Logging)
	}
	if got := cfg.GetLLMTimeout(); got != 45*time.Second {
		t.Errorf("GetLLMTimeout() = %v, want 45s", got)
	}
	if got := cfg.GetExecutionTimeout(); got != 30*time.Second {
		t.Errorf("GetExecutionTimeout() = %v, want 30s", got)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oai-key")
	t.Setenv("CLIPFORGE_MODEL", "gemini-2.5-pro")
	t.Setenv("CLIPFORGE_SCRATCH", "/var/forge")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// Gemini key wins when both are set.
	if cfg.LLM.APIKey != "gem-key" || cfg.LLM.Provider != "gemini" {
		t.Errorf("env override: got provider=%q key=%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.Execution.ScratchDir != "/var/forge" {
		t.Errorf("ScratchDir = %q", cfg.Execution.ScratchDir)
	}
}

func TestOpenAIKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "oai-key")
	t.Setenv("CLIPFORGE_MODEL", "")
	t.Setenv("CLIPFORGE_SCRATCH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.APIKey != "oai-key" {
		t.Errorf("fallback: got provider=%q key=%q", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CLIPFORGE_MODEL", "")
	t.Setenv("CLIPFORGE_SCRATCH", "")

	path := filepath.Join(t.TempDir(), ".clipforge", "config.yaml")
	want := DefaultConfig()
	want.Execution.Retries = 4
	if err := want.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
