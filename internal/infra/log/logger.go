package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"marketplace/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params defines the parameters required for the logger
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
}

// New creates and initializes slog.Logger
func New(params Params) (*slog.Logger, error) {
	logCfg := params.Config.Env.Log

	// Parse log level from config
	level, err := parseLogLevel(logCfg.Level)
	if err != nil {
		return nil, err
	}

	var output io.Writer = os.Stdout
	if logCfg.File != "" {
		rotated := newRotatingFile(logCfg)
		output = io.MultiWriter(os.Stdout, rotated)

		params.Lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return errors.WithStack(rotated.Close())
			},
		})
	}

	return newLogger(output, level, logCfg.Pretty), nil
}

func newLogger(output io.Writer, level slog.Level, pretty bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if pretty {
		return slog.New(slog.NewTextHandler(output, opts))
	}

	return slog.New(slog.NewJSONHandler(output, opts))
}

// newRotatingFile sizes the rotated log file, keeping lumberjack's
// defaults for anything left unset.
func newRotatingFile(cfg config.Log) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
	}
}
