package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/internal/logging"
	intOtel "github.com/zkplatoon/platoon/internal/otel"
)

var gelfCloser io.Closer

// initLogging opens the session log file, builds the OTel provider on top of
// it and routes every slog sink through SlogManager.
func initLogging(mode string) error {
	var err error

	LogFile, err = logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	LogFilePath = LogFile.Name()

	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    LogFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	opts := logging.Options{
		File:     LogFile,
		Level:    config.GetString("logLevel"),
		Provider: OTelProvider.LoggerProvider(),
		Run:      state,
	}

	graylog := config.GetGraylogConfig()
	if graylog.Enabled {
		w, err := logging.NewGelfWriter(graylog.Address, AppName)
		if err != nil {
			fmt.Fprintf(LogFile, "graylog disabled: %v\n", err)
		} else {
			opts.Gelf = w
			gelfCloser = w
		}
	}

	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	if mode == "run" {
		fmt.Printf("Logging to %s\n", LogFilePath)
	}
	return nil
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	Logger.Info("Shutting down")
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OpenTelemetry", "error", err)
		}
	}
	if gelfCloser != nil {
		_ = gelfCloser.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}
