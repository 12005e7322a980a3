// Package executor runs rewritten units against their data sources.
package executor

//go:generate mockgen -source=executor.go -destination=../mock/executor/executor_mock.go -package=mock_executor

import (
	"context"
	"database/sql/driver"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/rewrite"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

var ErrNoExecutor = pipeerror.New(pipeerror.PIPE_CONFIG_ERROR, "no executor configured")

// Result is the outcome of one unit. Rows is nil for statements that do
// not return rows.
type Result struct {
	Rows        resultset.QueryResult
	UpdateCount int64
}

type Executor interface {
	// Execute runs units concurrently and returns results aligned with
	// units. query tells whether units return rows.
	Execute(ctx context.Context, units []rewrite.Unit, query bool) ([]Result, error)
	Close() error
}

// Backend talks to data sources by name. SQL uses ? markers.
type Backend interface {
	Query(ctx context.Context, ds string, sql string, params []any) (resultset.QueryResult, error)
	Exec(ctx context.Context, ds string, sql string, params []any) (int64, error)
	Close() error
}

type ScatterExecutor struct {
	backend     Backend
	maxParallel int
	maxRetries  uint64
	retryBase   time.Duration
}

var _ Executor = &ScatterExecutor{}

func NewScatterExecutor(backend Backend, cfg config.ExecutorCfg) *ScatterExecutor {
	if cfg.RetryBaseMs <= 0 {
		cfg.RetryBaseMs = config.DefaultRetryBaseMs
	}
	return &ScatterExecutor{
		backend:     backend,
		maxParallel: cfg.MaxParallel,
		maxRetries:  cfg.MaxRetries,
		retryBase:   time.Duration(cfg.RetryBaseMs) * time.Millisecond,
	}
}

// NewExecutor opens the configured backend.
func NewExecutor(ctx context.Context, cfg *config.PipelineCfg) (*ScatterExecutor, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Executor.Backend {
	case config.ExecutorBackendPgx, "":
		b, err = NewPgxBackend(ctx, cfg.DataSources)
	case config.ExecutorBackendSqlx:
		b, err = NewSqlxBackend(cfg.DataSources)
	default:
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "unknown executor backend \"%s\"", cfg.Executor.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewScatterExecutor(b, cfg.Executor), nil
}

// retryable reports whether err happened before the statement reached
// the server.
func retryable(err error) bool {
	return pgconn.SafeToRetry(err) || errors.Is(err, driver.ErrBadConn)
}

func (e *ScatterExecutor) run(ctx context.Context, u *rewrite.Unit, query bool) (Result, error) {
	ds := u.RouteUnit.DataSource.Actual
	var res Result

	backoff := retry.WithMaxRetries(e.maxRetries, retry.NewFibonacci(e.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		if query {
			res.Rows, err = e.backend.Query(ctx, ds, u.SQL, u.Params)
		} else {
			res.UpdateCount, err = e.backend.Exec(ctx, ds, u.SQL, u.Params)
		}
		if err != nil && retryable(err) {
			shardlog.Zero.Debug().Err(err).Str("data source", ds).Msg("retrying statement")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return Result{}, &pipeerror.PipeError{
			Err:       errors.Wrapf(err, "data source %s", ds),
			ErrorCode: pipeerror.PIPE_EXECUTION_ERROR,
		}
	}
	return res, nil
}

func (e *ScatterExecutor) Execute(ctx context.Context, units []rewrite.Unit, query bool) ([]Result, error) {
	results := make([]Result, len(units))
	eg, ctx := errgroup.WithContext(ctx)
	if e.maxParallel > 0 {
		eg.SetLimit(e.maxParallel)
	}

	for i := range units {
		i := i
		eg.Go(func() error {
			r, err := e.run(ctx, &units[i], query)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, r := range results {
			if r.Rows != nil {
				_ = r.Rows.Close()
			}
		}
		return nil, err
	}

	shardlog.Zero.Debug().Int("units", len(units)).Bool("query", query).Msg("executed units")
	return results, nil
}

func (e *ScatterExecutor) Close() error {
	return e.backend.Close()
}
