package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"trucking-dispatch-core/internal/logx"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the HTTP API
type Runner struct {
	runFn func(*dig.Container) error
	exit  func(int)
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run, exit: os.Exit}
}

// MustRun starts the HTTP server using the provided DI container and exits the
// process on any failure other than a requested shutdown.
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}

	logger := loggerFrom(container)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		logger.Error("run error", logx.Err(err))
		if r.exit != nil {
			r.exit(1)
		}
	}
}

// loggerFrom resolves the container logger; config errors leave only a stderr fallback.
func loggerFrom(container *dig.Container) logx.Logger {
	var logger logx.Logger
	if err := container.Invoke(func(l logx.Logger) { logger = l }); err != nil || logger == nil {
		return logx.NewJSON(os.Stderr, slog.LevelInfo, "")
	}
	return logger
}

type apiIn struct {
	dig.In

	Ctx         context.Context
	Server      *http.Server
	Debug       *http.Server `name:"pprof_server" optional:"true"`
	Schema      schemaReady
	Pool        *pgxpool.Pool
	Logger      logx.Logger
	FleetCloser fleetConnCloser
	RedisCloser redisCloser
}

func run(container *dig.Container) error {
	return container.Invoke(apiRun)
}

func apiRun(in apiIn) error {
	defer closeResources(in.Pool, in.Logger, in.FleetCloser, in.RedisCloser)

	serveErr := make(chan error, 2)
	startServer(in.Server, in.Logger, "dispatch api", serveErr)
	if in.Debug != nil {
		startServer(in.Debug, in.Logger, "debug server", serveErr)
	}

	var err error
	select {
	case <-in.Ctx.Done():
		in.Logger.Info("shutting down dispatch api...")
		err = in.Ctx.Err()
	case err = <-serveErr:
	}

	gracefulShutdown(in.Server, in.Logger, shutdownTimeout)
	if in.Debug != nil {
		gracefulShutdown(in.Debug, in.Logger, shutdownTimeout)
	}
	return err
}

func startServer(server *http.Server, logger logx.Logger, name string, errs chan<- error) {
	go func() {
		logger.Info(name+" listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("%s listen: %w", name, err)
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.String("addr", srv.Addr), logx.Err(err))
	}
}

func closeResources(pool *pgxpool.Pool, logger logx.Logger, closers ...func() error) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			logger.Error("close error", logx.Err(err))
		}
	}
	if pool != nil {
		pool.Close()
	}
}
