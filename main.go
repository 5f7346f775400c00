package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb7/webserver/catalog"
	"github.com/freekieb7/webserver/config"
	"github.com/freekieb7/webserver/filesystem"
	"github.com/freekieb7/webserver/http"
	"github.com/freekieb7/webserver/schedule"
	"github.com/freekieb7/webserver/telemetry"
)

const (
	name            = "github.com/freekieb7/webserver"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, cfg config.Config) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "webserver",
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, otelShutdown(shutdownCtx))
	}()

	logger := telemetry.NewLogger(os.Stderr, name, cfg.LogLevel, cfg.OTLPEndpoint != "")
	slog.SetDefault(logger)

	fsys := filesystem.NewLocalFileSystem()

	source, err := newSource(ctx, cfg, fsys, logger)
	if err != nil {
		return err
	}

	server := http.NewServer(http.Config{
		Name:        cfg.Name,
		MaxSessions: cfg.MaxSessions,
		Root:        cfg.Root,
		Filesystem:  fsys,
		Source:      source,
		Logger:      logger,
	})

	// only the plaintext listener takes the whole server down
	serverErrCh := make(chan error, 1)
	listen := func(kind string, fatal bool, serve func() error) {
		go func() {
			err := serve()
			if err == nil || errors.Is(err, http.ErrServerClosed) || ctx.Err() != nil {
				return
			}
			if fatal {
				serverErrCh <- fmt.Errorf("%s listener: %w", kind, err)
				return
			}
			logger.Error("listener stopped", "listener", kind, "error", err)
		}()
	}

	listen("plaintext", true, func() error {
		return server.ListenAndServe(ctx, cfg.ServerAddr())
	})

	tlsConfig, tlsErr := cfg.TLSConfig()
	if tlsErr != nil {
		logger.Error("secure listeners disabled", "error", tlsErr)
	} else {
		listen("tls", false, func() error {
			return server.ListenAndServeTLS(ctx, cfg.SSLAddr(), tlsConfig)
		})
		if cfg.QUICPort > 0 {
			listen("quic", false, func() error {
				return server.ListenAndServeQUIC(ctx, cfg.QUICAddr(), tlsConfig)
			})
		}
	}

	select {
	case err = <-serverErrCh:
		logger.Error("listener failed", "error", err)
	case <-ctx.Done():
		stop()
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, server.Shutdown(shutdownCtx))
}

func newSource(ctx context.Context, cfg config.Config, fsys filesystem.Filesystem, logger *slog.Logger) (catalog.Source, error) {
	switch {
	case cfg.CatalogPerSession:
		return catalog.NewPerSession(fsys, cfg.Root, cfg.Redirects), nil
	case cfg.CatalogRefresh > 0:
		source, err := catalog.NewReloading(fsys, cfg.Root, cfg.Redirects)
		if err != nil {
			return nil, err
		}

		scheduler := schedule.NewScheduler(logger)
		job := schedule.NewJob().
			WithName("catalog-reload").
			WithInterval(cfg.CatalogRefresh).
			WithTimeout(cfg.CatalogRefresh).
			WithTasks(source.Reload)
		if err := scheduler.AddJob(job); err != nil {
			return nil, err
		}
		go scheduler.Run(ctx)

		logSnapshot(logger, cfg, source)
		return source, nil
	default:
		source, err := catalog.NewStatic(fsys, cfg.Root, cfg.Redirects)
		if err != nil {
			return nil, err
		}
		logSnapshot(logger, cfg, source)
		return source, nil
	}
}

func logSnapshot(logger *slog.Logger, cfg config.Config, source catalog.Source) {
	snapshot, err := source.Snapshot()
	if err != nil {
		return
	}
	logger.Info("catalog loaded", "root", cfg.Root, "files", snapshot.Files.Len(), "redirects", len(snapshot.Redirects))
}
