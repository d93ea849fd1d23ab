package app

import (
	"context"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"trucking-dispatch-core/internal/cli"
	"trucking-dispatch-core/internal/config"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/service/reconcile"
)

// MustBuildHealthContainer builds the health CLI container. Its config comes
// from the environment only; the command line belongs to cobra. Logs go to
// stderr so stdout stays machine readable.
func MustBuildHealthContainer(ctx context.Context, loadConfig func() (*config.Config, error)) *dig.Container {
	return NewContainerBuilder(ServiceHealth).WithConfigLoader(loadConfig).
		WithLogOutput(os.Stderr).
		MustBuildHealth(ctx)
}

// RunHealth executes the dispatch-health command. The container is resolved
// only once flags are valid, so usage errors never dial the database.
func RunHealth(ctx context.Context, container *dig.Container, args []string, out io.Writer) error {
	resolved := false
	factory := func(policy reconcile.Policy) (cli.Reconciler, error) {
		var svc *reconcile.Service
		err := container.Invoke(func(f ReconcileFactory) { svc = f(policy) })
		if err != nil {
			return nil, err
		}
		resolved = true
		return svc, nil
	}

	cmd := cli.NewHealthCommand(factory)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	err := cmd.ExecuteContext(ctx)

	if resolved {
		_ = container.Invoke(func(pool *pgxpool.Pool, logger logx.Logger, fc fleetConnCloser, rc redisCloser) {
			closeResources(pool, logger, fc, rc)
		})
	}
	return err
}
