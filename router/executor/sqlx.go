package executor

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pkg/errors"
)

// SqlxBackend runs statements through database/sql with lib/pq.
type SqlxBackend struct {
	dbs map[string]*sqlx.DB
}

var _ Backend = &SqlxBackend{}

func NewSqlxBackend(dataSources []config.DataSourceCfg) (*SqlxBackend, error) {
	b := &SqlxBackend{dbs: map[string]*sqlx.DB{}}
	for _, ds := range dataSources {
		db, err := sqlx.Open("postgres", ds.ConnString)
		if err != nil {
			_ = b.Close()
			return nil, errors.Wrapf(err, "failed to open data source %s", ds.Name)
		}
		b.dbs[ds.Name] = db
	}
	return b, nil
}

func (b *SqlxBackend) db(ds string) (*sqlx.DB, error) {
	db, ok := b.dbs[ds]
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_EXECUTION_ERROR, "data source \"%s\" is not configured", ds)
	}
	return db, nil
}

func (b *SqlxBackend) Query(ctx context.Context, ds string, sql string, params []any) (resultset.QueryResult, error) {
	db, err := b.db(ds)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryxContext(ctx, db.Rebind(sql), params...)
	if err != nil {
		return nil, err
	}
	return resultset.FromSqlxRows(rows)
}

func (b *SqlxBackend) Exec(ctx context.Context, ds string, sql string, params []any) (int64, error) {
	db, err := b.db(ds)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(sql), params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (b *SqlxBackend) Close() error {
	var first error
	for _, db := range b.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
