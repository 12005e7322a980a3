package executor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pkg/errors"
)

// PgxBackend keeps one pgx pool per data source.
type PgxBackend struct {
	pools map[string]*pgxpool.Pool
}

var _ Backend = &PgxBackend{}

func NewPgxBackend(ctx context.Context, dataSources []config.DataSourceCfg) (*PgxBackend, error) {
	b := &PgxBackend{pools: map[string]*pgxpool.Pool{}}
	for _, ds := range dataSources {
		pool, err := pgxpool.New(ctx, ds.ConnString)
		if err != nil {
			b.Close()
			return nil, errors.Wrapf(err, "failed to open pool for data source %s", ds.Name)
		}
		b.pools[ds.Name] = pool
		shardlog.Zero.Debug().Str("data source", ds.Name).Msg("pgx pool opened")
	}
	return b, nil
}

func (b *PgxBackend) pool(ds string) (*pgxpool.Pool, error) {
	p, ok := b.pools[ds]
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_EXECUTION_ERROR, "data source \"%s\" is not configured", ds)
	}
	return p, nil
}

func (b *PgxBackend) Query(ctx context.Context, ds string, sql string, params []any) (resultset.QueryResult, error) {
	p, err := b.pool(ds)
	if err != nil {
		return nil, err
	}
	rows, err := p.Query(ctx, sqlx.Rebind(sqlx.DOLLAR, sql), params...)
	if err != nil {
		return nil, err
	}
	return resultset.FromPgxRows(rows)
}

func (b *PgxBackend) Exec(ctx context.Context, ds string, sql string, params []any) (int64, error) {
	p, err := b.pool(ds)
	if err != nil {
		return 0, err
	}
	tag, err := p.Exec(ctx, sqlx.Rebind(sqlx.DOLLAR, sql), params...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (b *PgxBackend) Close() error {
	for _, p := range b.pools {
		p.Close()
	}
	return nil
}
