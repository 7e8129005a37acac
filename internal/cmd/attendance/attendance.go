// Package attendance parses attendance command flags and launches the
// service runtime.
package attendance

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/punchd/punchd/internal/platform/cmd"
	attendanceserver "github.com/punchd/punchd/internal/services/attendance/app"
)

// Config holds attendance command configuration.
type Config struct {
	HTTPAddr        string        `env:"PUNCHD_HTTP_ADDR" envDefault:":8080"`
	HealthGRPCPort  int           `env:"PUNCHD_HEALTH_GRPC_PORT" envDefault:"0"`
	DBPath          string        `env:"PUNCHD_DB_PATH" envDefault:"data/attendance.db"`
	Workers         int           `env:"PUNCHD_WORKERS" envDefault:"4"`
	QueueSize       int           `env:"PUNCHD_QUEUE_SIZE" envDefault:"64"`
	LogReadCommands bool          `env:"PUNCHD_LOG_READ_COMMANDS" envDefault:"false"`
	CallbackTimeout time.Duration `env:"PUNCHD_CALLBACK_TIMEOUT" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The webhook HTTP listen address")
	fs.IntVar(&cfg.HealthGRPCPort, "health-grpc-port", cfg.HealthGRPCPort, "The gRPC health probe port (0 disables)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The attendance SQLite database path")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Background command worker count")
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Pending command queue capacity")
	fs.BoolVar(&cfg.LogReadCommands, "log-read-commands", cfg.LogReadCommands, "Record read-only commands as informational events")
	fs.DurationVar(&cfg.CallbackTimeout, "callback-timeout", cfg.CallbackTimeout, "Per-delivery callback timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the attendance runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAttendance, func(context.Context) error {
		return attendanceserver.Run(ctx, attendanceserver.RuntimeConfig{
			HTTPAddr:        cfg.HTTPAddr,
			HealthGRPCPort:  cfg.HealthGRPCPort,
			DBPath:          cfg.DBPath,
			Workers:         cfg.Workers,
			QueueSize:       cfg.QueueSize,
			LogReadCommands: cfg.LogReadCommands,
			CallbackTimeout: cfg.CallbackTimeout,
		})
	})
}
