// Package serve runs the dossier web service.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/peepybureau/bpi/internal/bureau"
	"github.com/peepybureau/bpi/internal/conf"
	"github.com/peepybureau/bpi/internal/datastore"
	"github.com/peepybureau/bpi/internal/errors"
	"github.com/peepybureau/bpi/internal/httpcontroller"
	"github.com/peepybureau/bpi/internal/imageupload"
	"github.com/peepybureau/bpi/internal/logger"
	"github.com/peepybureau/bpi/internal/observability"
	"github.com/peepybureau/bpi/internal/security"
	"github.com/peepybureau/bpi/internal/telemetry"
	"github.com/peepybureau/bpi/internal/workspace"
)

// shutdownTimeout bounds the graceful shutdown of open requests and streams.
const shutdownTimeout = 10 * time.Second

func GetLogger() logger.Logger {
	return logger.Global().Module("main")
}

// Command creates the serve command.
func Command(settings *conf.Settings, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dossier web server",
		Long:  "Serve the public gallery, the dossier pages, the admin terminal and the JSON API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, version)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags binds the listener flags over the configuration file values.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address, empty for all interfaces")
	cmd.Flags().StringP("port", "p", "", "Listen port")

	for key, flag := range map[string]string{
		"webserver.listen": "listen",
		"webserver.port":   "port",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

// Run wires the service and blocks until ctx ends or the listener fails.
func Run(ctx context.Context, settings *conf.Settings, version string) error {
	log := GetLogger()

	flush, err := telemetry.InitSentry(settings, version)
	if err != nil {
		log.Warn("error telemetry unavailable", logger.Error(err))
	} else {
		defer flush()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	store, err := datastore.New(settings, metrics.Datastore)
	if err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close datastore", logger.Error(err))
		}
	}()

	opts := []httpcontroller.Option{httpcontroller.WithMetrics(metrics)}
	uploader, err := imageupload.New(ctx, settings, metrics.ImageUpload)
	switch {
	case err == nil:
		opts = append(opts, httpcontroller.WithUploader(uploader))
	case errors.Is(err, imageupload.ErrNotConfigured):
		// uploads answer 503 until a provider is configured
	default:
		return err
	}

	svc := bureau.New(store, bureau.Options{
		AssociateTTL: settings.Cache.AssociateTTL,
		Metrics:      metrics.Bureau,
	})
	go svc.Watch(ctx)

	registry := workspace.NewRegistry(svc, settings.Cache.WorkspaceTTL)

	security.InitializeGoth(settings)
	authorizer := security.NewAuthorizer(svc, settings.Security.InitialAdmins, metrics.HTTP)
	if err := authorizer.Seed(ctx); err != nil {
		return err
	}

	server := httpcontroller.New(settings, svc, registry, authorizer, opts...)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting web server",
			logger.String("address", settings.ListenAddress()),
			logger.String("version", version))
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown incomplete", logger.Error(err))
	}
	return nil
}
