package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points every variable Load reads at a clean state
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TFTRIVALS_API_KEY", "")
	t.Setenv("RIOT_API_KEY", "")
	t.Setenv("TFTRIVALS_API_KEY_FILE", filepath.Join(dir, "API_KEY.txt"))
	return dir
}

func TestLoad_KeyFileWins(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TFTRIVALS_API_KEY", "RGAPI-from-env")
	if err := os.WriteFile(filepath.Join(dir, "API_KEY.txt"), []byte("  RGAPI-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "RGAPI-from-file" {
		t.Errorf("Expected key from file, got %q", cfg.APIKey)
	}
}

func TestLoad_EmptyKeyFileIsFatal(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TFTRIVALS_API_KEY", "RGAPI-from-env")
	if err := os.WriteFile(filepath.Join(dir, "API_KEY.txt"), []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); !errors.Is(err, ErrEmptyAPIKey) {
		t.Errorf("Expected ErrEmptyAPIKey, got %v", err)
	}
}

func TestLoad_FallsBackToEnv(t *testing.T) {
	isolate(t)
	t.Setenv("TFTRIVALS_API_KEY", "\"RGAPI-quoted\"")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "RGAPI-quoted" {
		t.Errorf("Expected quotes to be stripped, got %q", cfg.APIKey)
	}
}

func TestLoad_RiotAPIKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("RIOT_API_KEY", "RGAPI-riot")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "RGAPI-riot" {
		t.Errorf("Expected RIOT_API_KEY fallback, got %q", cfg.APIKey)
	}
}

func TestLoad_MissingKey(t *testing.T) {
	isolate(t)

	if _, err := Load(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoad_RetryDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("TFTRIVALS_API_KEY", "RGAPI-x")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	policy := cfg.RetryPolicy()
	if policy.InitialWait != 120*time.Second {
		t.Errorf("Expected default retry wait 120s, got %v", policy.InitialWait)
	}
	if policy.MaxAttempts != 5 {
		t.Errorf("Expected default max attempts 5, got %d", policy.MaxAttempts)
	}
}

func TestLoad_RetryOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TFTRIVALS_API_KEY", "RGAPI-x")
	t.Setenv("TFTRIVALS_RETRY_WAIT", "5s")
	t.Setenv("TFTRIVALS_RETRY_MAX_ATTEMPTS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RetryWait != 5*time.Second || cfg.RetryMaxAttempts != 0 {
		t.Errorf("Expected overrides to apply, got wait=%v attempts=%d", cfg.RetryWait, cfg.RetryMaxAttempts)
	}
}
