package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	coreconfig "github.com/m3rciful/copperbot/core/config"
)

type options struct {
	format    logFormat
	keyOrder  []string
	level     slog.Level
	profile   string
	sampleNum int
	sampleDen int
	dir       string
	file      string
}

func optionsFrom(cfg *coreconfig.Config) options {
	opts := options{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return opts
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		opts.profile = p
	}
	opts.format = parseFormat(lc.Format, opts.profile)
	opts.level = parseLevel(lc.Level)
	if order := parseKeyOrder(lc.KeysOrder); len(order) > 0 {
		opts.keyOrder = order
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		switch {
		case num == 0 && den == 0:
			opts.sampleNum, opts.sampleDen = 0, 0
		case num > 0 && den > 0:
			opts.sampleNum, opts.sampleDen = num, den
		}
	}
	opts.dir = strings.TrimSpace(lc.Dir)
	opts.file = strings.TrimSpace(lc.BotFile)
	return opts
}

func parseFormat(raw, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if profile == "debug" || profile == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			order = append(order, p)
		}
	}
	return order
}

// openOutputs always writes to stdout and additionally to dir/file when both are set.
func openOutputs(opts options) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	if opts.dir == "" || opts.file == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", opts.dir, err)
	}
	path := filepath.Join(opts.dir, opts.file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	return append(writers, f), []io.Closer{f}, nil
}

func detectTraceFlag() bool {
	return isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
