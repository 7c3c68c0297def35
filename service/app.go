package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"crudapp/app/media"
	"crudapp/app/routes"
	"crudapp/config"
)

// RunServer opens storage, builds the handler and serves on cfg.Addr until
// ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}()

	files, err := media.NewLocalStorage(cfg.Media.Root, log)
	if err != nil {
		return err
	}

	handler, err := routes.Setup(routes.Deps{Config: cfg, Store: store, Media: files, Log: log})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	log.Info("starting server",
		zap.String("addr", ln.Addr().String()),
		zap.String("driver", cfg.Storage.Driver),
	)
	return serve(ctx, ln, handler, cfg.ShutdownTimeout, log)
}

// serve runs an HTTP server on ln and shuts it down gracefully once ctx is
// done, waiting at most shutdownTimeout for in-flight requests.
func serve(ctx context.Context, ln net.Listener, handler http.Handler, shutdownTimeout time.Duration, log *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log.With(zap.String("component", "http"))),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("server stopped")
	return nil
}
