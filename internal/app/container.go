package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"trucking-dispatch-core/internal/cache"
	"trucking-dispatch-core/internal/config"
	"trucking-dispatch-core/internal/gateway/fleet"
	"trucking-dispatch-core/internal/http/handlers"
	"trucking-dispatch-core/internal/http/middleware"
	"trucking-dispatch-core/internal/http/middleware/ratelimit"
	"trucking-dispatch-core/internal/http/pprofserver"
	"trucking-dispatch-core/internal/http/router"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
	"trucking-dispatch-core/internal/repository"
	"trucking-dispatch-core/internal/service/dispatch"
	"trucking-dispatch-core/internal/service/history"
	"trucking-dispatch-core/internal/service/reconcile"
	"trucking-dispatch-core/internal/service/resourcelock"
	"trucking-dispatch-core/internal/service/statussync"
)

// Service names used as the "service" log field.
const (
	ServiceAPI    = "dispatch-api"
	ServiceWorker = "dispatch-worker"
	ServiceHealth = "dispatch-health"
)

type dbConnectFunc func(ctx context.Context, logger logx.Logger, db config.DB, retries int, delay time.Duration) (*pgxpool.Pool, error)

// fleetConnCloser closes the fleet gRPC connection; a no-op when the local fleet tables are used.
type fleetConnCloser func() error

// redisCloser closes the report cache client; a no-op when the cache is disabled.
type redisCloser func() error

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	service    string
	loadConfig func() (*config.Config, error)
	dbConnect  dbConnectFunc
	logFatalf  func(string, ...interface{})
	logOutput  io.Writer
}

// NewContainerBuilder returns a new dig container builder for the named binary.
func NewContainerBuilder(service string) *ContainerBuilder {
	return &ContainerBuilder{
		service:    service,
		loadConfig: config.Load,
		dbConnect:  connectDbWithRetry,
		logFatalf:  log.Fatalf,
		logOutput:  os.Stdout,
	}
}

// WithConfigLoader sets how the configuration is loaded
func (b *ContainerBuilder) WithConfigLoader(fn func() (*config.Config, error)) *ContainerBuilder {
	if fn != nil {
		b.loadConfig = fn
	}
	return b
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogOutput sets where the JSON logs go
func (b *ContainerBuilder) WithLogOutput(w io.Writer) *ContainerBuilder {
	if w != nil {
		b.logOutput = w
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds the API container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	return b.must(b.build(ctx))
}

// MustBuildWorker builds the worker container
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	return b.must(b.buildWorker(ctx))
}

// MustBuildHealth builds the container behind the health CLI
func (b *ContainerBuilder) MustBuildHealth(ctx context.Context) *dig.Container {
	return b.must(b.buildHealth(ctx))
}

func (b *ContainerBuilder) must(container *dig.Container, err error) *dig.Container {
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// base registers everything the three binaries share.
func (b *ContainerBuilder) base(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.service, b.logOutput, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) buildWorker(ctx context.Context) (*dig.Container, error) {
	container, err := b.base(ctx)
	if err != nil {
		return nil, err
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

func (b *ContainerBuilder) buildHealth(ctx context.Context) (*dig.Container, error) {
	return b.base(ctx)
}

// MustBuildContainer builds the API container with the default builder
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder(ServiceAPI).MustBuild(ctx)
}

// MustBuildWorkerContainer builds the worker container with the default builder
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder(ServiceWorker).MustBuildWorker(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

type counters struct {
	dig.Out
	RateLimitExceededTotal prometheus.Counter `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal    prometheus.Counter `name:"gateway_retries_total"`
}

func registerCore(
	container *dig.Container,
	ctx context.Context,
	service string,
	logOutput io.Writer,
	load func() (*config.Config, error),
) error {
	return provideAll(container,
		func() context.Context { return ctx },
		load,
		func(cfg *config.Config) (logx.Logger, error) {
			return NewLogger(logOutput, cfg.LogLevel, service)
		},
		newRegistry,
		func(reg *prometheus.Registry) (*metrics.Dispatch, error) {
			m := metrics.NewDispatch()
			if err := m.Register(reg); err != nil {
				return nil, fmt.Errorf("register dispatch metrics: %w", err)
			}
			return m, nil
		},
		func(reg *prometheus.Registry) (counters, error) { return provideMetrics(reg) },
	)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// provideMetrics registers the standalone counters, reusing ones already registered.
func provideMetrics(reg prometheus.Registerer) (counters, error) {
	rl, err := registerCounter(reg, metrics.NewRateLimitExceededTotal())
	if err != nil {
		return counters{}, fmt.Errorf("register rate_limit_exceeded_total: %w", err)
	}
	gr, err := registerCounter(reg, metrics.NewGatewayRetriesTotal())
	if err != nil {
		return counters{}, fmt.Errorf("register gateway_retries_total: %w", err)
	}
	return counters{RateLimitExceededTotal: rl, GatewayRetriesTotal: gr}, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerDb(container *dig.Container, dbConnect dbConnectFunc) error {
	providerDB := func(ctx context.Context, logger logx.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, logger, cfg.DB, 10, time.Second)
	}
	return provideAll(container,
		providerDB,
		func(pool *pgxpool.Pool, cfg *config.Config) *repository.Store {
			return repository.NewStore(pool, cfg.DB.LockTimeout)
		},
		repository.NewFleetRepo,
		migrateSchema,
	)
}

// schemaReady marks that the schema migration ran against the pool.
type schemaReady struct{}

func migrateSchema(ctx context.Context, pool *pgxpool.Pool) (schemaReady, error) {
	if err := repository.Migrate(ctx, pool); err != nil {
		return schemaReady{}, fmt.Errorf("migrate: %w", err)
	}
	return schemaReady{}, nil
}

type qualifierIn struct {
	dig.In
	Config  *config.Config
	Logger  logx.Logger
	Fleet   *repository.FleetRepo
	Retries prometheus.Counter `name:"gateway_retries_total"`
}

type qualifierOut struct {
	dig.Out
	Qualifier resourcelock.Qualifier
	Closer    fleetConnCloser
}

// newQualifier answers qualification from the local fleet tables unless a fleet service host is configured.
func newQualifier(in qualifierIn) (qualifierOut, error) {
	gw := in.Config.FleetGateway
	if gw.Host == "" {
		return qualifierOut{Qualifier: in.Fleet, Closer: func() error { return nil }}, nil
	}

	conn, err := fleet.Dial(gw.Host)
	if err != nil {
		return qualifierOut{}, err
	}
	retrying := fleet.NewRetryingGateway(fleet.NewGRPCGateway(conn), in.Logger, in.Retries, fleet.RetryConfig{
		MaxAttempts: gw.MaxAttempts,
		BaseDelay:   gw.BaseDelay,
		MaxDelay:    gw.MaxDelay,
	})
	in.Logger.Info("fleet qualification via gRPC", logx.String("host", gw.Host))
	return qualifierOut{Qualifier: retrying, Closer: conn.Close}, nil
}

type redisOut struct {
	dig.Out
	Client *redis.Client
	Closer redisCloser
}

func newRedis(ctx context.Context, cfg *config.Config) (redisOut, error) {
	client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		return redisOut{}, err
	}
	if client == nil {
		return redisOut{Closer: func() error { return nil }}, nil
	}
	return redisOut{Client: client, Closer: client.Close}, nil
}

type reconcileIn struct {
	dig.In
	Config  *config.Config
	Store   *repository.Store
	Engine  *statussync.Engine
	Logger  logx.Logger
	Metrics *metrics.Dispatch
	Redis   *redis.Client
}

// ReconcileFactory builds a reconciliation service for a conflict policy.
type ReconcileFactory func(policy reconcile.Policy) *reconcile.Service

func newReconcileFactory(in reconcileIn) ReconcileFactory {
	var opts []reconcile.Option
	// nil *cache.Reports нельзя класть в интерфейс
	if in.Redis != nil {
		opts = append(opts, reconcile.WithCache(cache.NewReports(in.Redis, in.Config.Redis.ReportTTL)))
	}
	return func(policy reconcile.Policy) *reconcile.Service {
		o := append([]reconcile.Option{reconcile.WithPolicy(policy)}, opts...)
		return reconcile.NewService(in.Store, in.Store, in.Engine, in.Logger, in.Metrics, o...)
	}
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		newQualifier,
		history.NewRecorder,
		resourcelock.NewManager,
		func(rec *history.Recorder, locks *resourcelock.Manager, logger logx.Logger, m *metrics.Dispatch) *statussync.Engine {
			return statussync.NewEngine(rec, locks, logger, m)
		},
		func(
			cfg *config.Config,
			store *repository.Store,
			locks *resourcelock.Manager,
			engine *statussync.Engine,
			logger logx.Logger,
			m *metrics.Dispatch,
		) *dispatch.Service {
			return dispatch.NewService(store, locks, engine, cfg.OperationTimeout, logger, m)
		},
		newRedis,
		newReconcileFactory,
		func(cfg *config.Config, factory ReconcileFactory) (*reconcile.Service, error) {
			policy, err := reconcile.ParsePolicy(cfg.Reconcile.ConflictPolicy)
			if err != nil {
				return nil, err
			}
			return factory(policy), nil
		},
	)
}

type debugServerOut struct {
	dig.Out
	Server *http.Server `name:"pprof_server"`
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	debugServerProvider := func(cfg *config.Config, reg *prometheus.Registry) debugServerOut {
		return debugServerOut{Server: pprofserver.NewServer(pprofserver.Config{
			Port: cfg.Debug.Port,
			User: cfg.Debug.User,
			Pass: cfg.Debug.Pass,
		}, reg)}
	}
	httpMetricsProvider := func(reg *prometheus.Registry) (*middleware.HTTPMetrics, error) {
		hm := middleware.NewHTTPMetrics()
		if err := hm.Register(reg); err != nil {
			return nil, fmt.Errorf("register http metrics: %w", err)
		}
		return hm, nil
	}
	middlewaresProvider := func(logger logx.Logger, hm *middleware.HTTPMetrics, rl *ratelimit.Middleware) router.Middlewares {
		return router.Middlewares{middleware.Observability(logger, hm), rl.Handler()}
	}
	baseHandlersProvider := func(logger logx.Logger, pool *pgxpool.Pool) *handlers.Handlers {
		return handlers.New(logger).WithReadiness(pool.Ping)
	}
	return provideAll(container,
		baseHandlersProvider,
		handlers.NewDispatchUsecase,
		handlers.NewDispatchHandler,
		handlers.NewReconcileUsecase,
		handlers.NewReconcileHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		httpMetricsProvider,
		middlewaresProvider,
		router.New,
		serverProvider,
		debugServerProvider,
	)
}
