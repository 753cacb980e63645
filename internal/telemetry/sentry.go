// Package telemetry initializes Sentry error reporting for the dossier service.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/logger"
)

// flushTimeout bounds how long shutdown waits for queued events.
const flushTimeout = 2 * time.Second

func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry configures the Sentry client and installs it as the error
// reporter. It returns a flush function for shutdown; when Sentry is disabled
// both the flush function and the reporter are no-ops.
func InitSentry(settings *conf.Settings, version string) (func(), error) {
	if !settings.Sentry.Enabled || settings.Sentry.DSN == "" {
		errors.SetTelemetryReporter(nil)
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment(settings),
		ServerName:       "",
		Release:          "bpi@" + version,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	GetLogger().Info("error telemetry enabled", logger.String("release", "bpi@"+version))

	return func() {
		if !sentry.Flush(flushTimeout) {
			GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
		}
	}, nil
}

func environment(settings *conf.Settings) string {
	if settings.Main.Debug {
		return "development"
	}
	return "production"
}

// scrubEvent drops request, user and host data and scrubs free text before
// an event leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil {
		return nil
	}
	event.ServerName = ""
	event.Request = nil
	event.User = sentry.User{}
	event.Modules = nil
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
