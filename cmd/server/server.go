package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run starts the background components and serves HTTP until ctx is
// canceled or a component fails. Cleanup runs before it returns.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	if app.processor != nil {
		if err := app.processor.Start(); err != nil {
			return fmt.Errorf("failed to start dispatch processor: %w", err)
		}
	}
	app.queue.Recover(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.serveHTTP(gctx, app.setupRouter())
	})
	if app.gateway != nil {
		g.Go(func() error {
			return app.gateway.Run(gctx)
		})
	}
	return g.Wait()
}

// serveHTTP runs the HTTP server and shuts it down gracefully when ctx ends.
func (app *application) serveHTTP(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	app.logger.Info("server shutdown completed")
	return nil
}
