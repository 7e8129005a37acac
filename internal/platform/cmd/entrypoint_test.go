package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Addr    string `env:"CMD_TEST_ADDR" envDefault:"127.0.0.1:8080"`
	DBPath  string `env:"CMD_TEST_DB_PATH" envDefault:"data/test.db"`
	Workers int    `env:"CMD_TEST_WORKERS" envDefault:"4"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDR", "env:9000")
	t.Setenv("CMD_TEST_DB_PATH", "env.db")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "addr")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "db path")

	if err := ParseArgs(fs, []string{"-addr", "flag:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Addr != "flag:9001" {
		t.Fatalf("expected flag value for addr, got %q", cfg.Addr)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("expected env value for db path, got %q", cfg.DBPath)
	}
	if cfg.Workers != 4 {
		t.Fatalf("expected default workers, got %d", cfg.Workers)
	}
}

func TestParseConfigFromArgsReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDR", "configarg:9000")

	cfg := testConfig{}
	fs := flag.NewFlagSet("configargs", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", "", "addr")
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-addr", "flag:9002"}); err != nil {
		t.Fatalf("parse config and args: %v", err)
	}
	if cfg.Addr != "flag:9002" {
		t.Fatalf("expected parsed flag addr, got %q", cfg.Addr)
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(nil, "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(nil, ServiceAttendance, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryPropagatesRunError(t *testing.T) {
	t.Setenv("PUNCHD_OTEL_ENDPOINT", "")

	wantErr := errors.New("run failed")
	err := RunWithTelemetry(context.Background(), ServiceAttendance, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected run error, got %v", err)
	}
}
