// Package logging configures process-wide structured logging for a composed
// ledger service. One JSON line per record on stdout; the host's log
// collector owns routing and retention.
package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// Environments that log at debug level. Anything else runs at info.
var debugEnvs = map[string]bool{
	"dev":   true,
	"local": true,
	"test":  true,
}

func levelFor(env string) slog.Level {
	if debugEnvs[strings.ToLower(strings.TrimSpace(env))] {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// renameAttr maps slog's default keys onto the field names the log collector
// expects: timestamp, severity, message.
func renameAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "timestamp"
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		attr.Key = "message"
	}
	return attr
}

// Setup installs the service-wide logger and returns it. Every record carries
// the service name, and the environment when one is configured; env also
// selects the level. The standard library logger is redirected into the same
// stream so third-party packages logging through it keep working, and the
// returned logger becomes the slog default for components constructed without
// an explicit one.
func Setup(service, env string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       levelFor(env),
		ReplaceAttr: renameAttr,
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	tagged := handler.WithAttrs(attrs)
	base := slog.New(tagged)
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(tagged, slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)

	return base
}
