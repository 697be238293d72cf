package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/girlpunk/ytsm/internal/server"
	"github.com/girlpunk/ytsm/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP API server and the background worker pool, running
// until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := r.defaultUser(a); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.queue.Start(ctx)
	a.engine.SetResync(func(subscriptionID string) {
		a.queue.Enqueue(tasks.TaskSynchronize, subscriptionID, func(ctx context.Context) error {
			return a.engine.Synchronize(ctx, subscriptionID)
		})
	})

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(server.NewAPIHandler(
		a.users, a.folders, a.subs, a.videos,
		a.registry, a.engine, a.queue,
		defaultUsername, r.logger,
	))

	host := r.config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.Int("port") != 0 {
		port = cmd.Int("port")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("shutdown error", "error", err)
	}

	a.queue.Wait()
	return nil
}
