package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Addr    string        `env:"PUNCHD_TEST_ADDR" envDefault:":8080"`
	Workers int           `env:"PUNCHD_TEST_WORKERS" envDefault:"4"`
	Timeout time.Duration `env:"PUNCHD_TEST_TIMEOUT" envDefault:"5s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.Workers != 4 {
		t.Fatalf("expected default workers 4, got %d", cfg.Workers)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("expected default timeout 5s, got %s", cfg.Timeout)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("PUNCHD_TEST_WORKERS", "9")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Workers != 9 {
		t.Fatalf("expected env override 9, got %d", cfg.Workers)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("PUNCHD_TEST_WORKERS", "not-an-int")

	var cfg envTestConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
