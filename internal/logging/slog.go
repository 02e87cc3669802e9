package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Options selects the sinks of a SlogManager. Nil fields are skipped.
type Options struct {
	// File receives text logs. When nil, logs go to stdout instead.
	File  io.Writer
	Level string
	// Provider enables the OpenTelemetry bridge.
	Provider *sdklog.LoggerProvider
	// Gelf receives JSON logs for Graylog.
	Gelf io.Writer
	// Run stamps every record with the simulation state.
	Run RunContext
}

// SlogManager manages slog-based logging with optional OTel and GELF sinks.
type SlogManager struct {
	logger *slog.Logger
	zlog   zerolog.Logger
	level  slog.LevelVar

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{zlog: zerolog.Nop()}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level <= slog.LevelDebug:
		return zerolog.DebugLevel
	case level <= slog.LevelInfo:
		return zerolog.InfoLevel
	case level <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Setup initializes the logging system. Calling it again replaces every sink.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(parseLevel(opts.Level))
	m.logProvider = opts.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var out io.Writer = os.Stdout
	if opts.File != nil {
		out = opts.File
	}

	handlers := []slog.Handler{slog.NewTextHandler(out, handlerOpts)}
	if opts.Gelf != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.Gelf, handlerOpts))
	}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler("platoonsim", otelslog.WithLoggerProvider(opts.Provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if opts.Run != nil {
		handler = NewContextHandler(handler, opts.Run)
	}

	m.logger = slog.New(handler)
	zerolog.SetGlobalLevel(zerologLevel(m.level.Level()))
	m.zlog = zerolog.New(out).With().Timestamp().Logger()
	m.logger.Info("Logging initialized", "level", opts.Level)
}

// SetLevel changes the minimum level at runtime. Zerolog loggers already
// handed out follow through the global level.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(parseLevel(level))
	zerolog.SetGlobalLevel(zerologLevel(m.level.Level()))
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog.Logger writing to the same primary sink, for
// the database and InfluxDB layers.
func (m *SlogManager) Zerolog(component string) zerolog.Logger {
	return m.zlog.With().Str("component", component).Logger()
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
