package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/notify"
	"trucking-dispatch-core/internal/transport/kafka"
)

// errNothingToRun is returned when neither Kafka nor a notify backend is configured.
var errNothingToRun = errors.New("worker has nothing to run: kafka consumer is nil and notify backend is none")

// WorkerRunner runs the status event consumer and the outbox relay
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun runs the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

type workerIn struct {
	dig.In

	Ctx             context.Context
	Pool            *pgxpool.Pool
	Logger          logx.Logger
	Consumer        *kafka.Consumer
	Relay           *notify.Relay
	FleetCloser     fleetConnCloser
	RedisCloser     redisCloser
	PublisherCloser publisherCloser
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(in workerIn) error {
	if in.Consumer == nil && in.Relay == nil {
		return errNothingToRun
	}
	defer closeWorker(in)

	g, ctx := errgroup.WithContext(in.Ctx)
	if in.Consumer != nil {
		g.Go(func() error { return in.Consumer.Run(ctx) })
	}
	if in.Relay != nil {
		g.Go(func() error { return in.Relay.Run(ctx) })
	}

	in.Logger.Info("dispatch worker started",
		logx.Bool("consumer", in.Consumer != nil),
		logx.Bool("relay", in.Relay != nil),
	)
	return g.Wait()
}

func closeWorker(in workerIn) {
	if in.Consumer != nil {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Error("kafka close error", logx.Err(err))
		}
	}
	closeResources(in.Pool, in.Logger, in.PublisherCloser, in.FleetCloser, in.RedisCloser)
}
