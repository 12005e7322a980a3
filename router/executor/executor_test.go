package executor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pg-sharding/shardpipe/router/executor"
	"github.com/pg-sharding/shardpipe/router/rewrite"
	"github.com/pg-sharding/shardpipe/router/route"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mockexec "github.com/pg-sharding/shardpipe/router/mock/executor"
)

type unsentError struct{}

func (unsentError) Error() string     { return "connection reset before send" }
func (unsentError) SafeToRetry() bool { return true }

func testCfg() config.ExecutorCfg {
	return config.ExecutorCfg{MaxParallel: 2, MaxRetries: 2, RetryBaseMs: 1}
}

func unit(ds, sql string, params ...any) rewrite.Unit {
	return rewrite.Unit{RouteUnit: route.NewRouteUnit(ds), SQL: sql, Params: params}
}

func TestExecuteQueryAlignsResults(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	b := mockexec.NewMockBackend(ctrl)

	units := []rewrite.Unit{
		unit("ds_0", "SELECT id FROM t_order_0"),
		unit("ds_1", "SELECT id FROM t_order_1"),
		unit("ds_0", "SELECT id FROM t_order_1"),
	}
	for i, u := range units {
		b.EXPECT().Query(gomock.Any(), u.RouteUnit.DataSource.Actual, u.SQL, gomock.Any()).
			Return(resultset.NewMemoryResult([]string{"id"}, []any{i}), nil)
	}

	e := executor.NewScatterExecutor(b, testCfg())
	res, err := e.Execute(context.Background(), units, true)
	assert.NoError(err)
	assert.Len(res, 3)
	for i, r := range res {
		ok, err := r.Rows.Next()
		assert.NoError(err)
		assert.True(ok)
		assert.Equal([]any{i}, r.Rows.Row())
	}
}

func TestExecuteUpdateCounts(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	b := mockexec.NewMockBackend(ctrl)

	b.EXPECT().Exec(gomock.Any(), "ds_0", "DELETE FROM t_order_0", []any{1}).Return(int64(2), nil)
	b.EXPECT().Exec(gomock.Any(), "ds_1", "DELETE FROM t_order_1", []any{1}).Return(int64(5), nil)

	e := executor.NewScatterExecutor(b, testCfg())
	res, err := e.Execute(context.Background(), []rewrite.Unit{
		unit("ds_0", "DELETE FROM t_order_0", 1),
		unit("ds_1", "DELETE FROM t_order_1", 1),
	}, false)
	assert.NoError(err)
	assert.Equal(int64(2), res[0].UpdateCount)
	assert.Equal(int64(5), res[1].UpdateCount)
	assert.Nil(res[0].Rows)
}

func TestExecuteRetriesUnsentStatement(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	b := mockexec.NewMockBackend(ctrl)

	gomock.InOrder(
		b.EXPECT().Exec(gomock.Any(), "ds_0", gomock.Any(), gomock.Any()).Return(int64(0), unsentError{}),
		b.EXPECT().Exec(gomock.Any(), "ds_0", gomock.Any(), gomock.Any()).Return(int64(1), nil),
	)

	e := executor.NewScatterExecutor(b, testCfg())
	res, err := e.Execute(context.Background(), []rewrite.Unit{unit("ds_0", "UPDATE t SET a = 1")}, false)
	assert.NoError(err)
	assert.Equal(int64(1), res[0].UpdateCount)
}

func TestExecuteDoesNotRetrySentStatement(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	b := mockexec.NewMockBackend(ctrl)

	b.EXPECT().Exec(gomock.Any(), "ds_1", gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("duplicate key value")).Times(1)

	e := executor.NewScatterExecutor(b, testCfg())
	_, err := e.Execute(context.Background(), []rewrite.Unit{unit("ds_1", "INSERT INTO t VALUES (1)")}, false)
	assert.Error(err)
	assert.Equal(pipeerror.PIPE_EXECUTION_ERROR, pipeerror.Code(err))
	assert.Contains(err.Error(), "ds_1")
	assert.Contains(err.Error(), "duplicate key value")
}

func TestExecuteClosesRowsOnFailure(t *testing.T) {
	assert := assert.New(t)
	ctrl := gomock.NewController(t)
	b := mockexec.NewMockBackend(ctrl)

	ok := resultset.NewMemoryResult([]string{"id"}, []any{1})
	b.EXPECT().Query(gomock.Any(), "ds_0", gomock.Any(), gomock.Any()).Return(ok, nil)
	b.EXPECT().Query(gomock.Any(), "ds_1", gomock.Any(), gomock.Any()).Return(nil, errors.New("relation does not exist"))

	e := executor.NewScatterExecutor(b, config.ExecutorCfg{MaxParallel: 1, RetryBaseMs: 1})
	_, err := e.Execute(context.Background(), []rewrite.Unit{
		unit("ds_0", "SELECT 1"),
		unit("ds_1", "SELECT 1"),
	}, true)
	assert.Error(err)

	next, err := ok.Next()
	assert.NoError(err)
	assert.False(next)
}

type countingBackend struct {
	mu      sync.Mutex
	running int
	peak    int
}

func (c *countingBackend) Query(ctx context.Context, ds, sql string, params []any) (resultset.QueryResult, error) {
	return nil, nil
}

func (c *countingBackend) Exec(ctx context.Context, ds, sql string, params []any) (int64, error) {
	c.mu.Lock()
	c.running++
	c.peak = max(c.peak, c.running)
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.running--
	c.mu.Unlock()
	return 1, nil
}

func (c *countingBackend) Close() error { return nil }

func TestExecuteRespectsParallelLimit(t *testing.T) {
	assert := assert.New(t)
	b := &countingBackend{}

	units := make([]rewrite.Unit, 10)
	for i := range units {
		units[i] = unit("ds_0", "UPDATE t SET a = 1")
	}

	e := executor.NewScatterExecutor(b, config.ExecutorCfg{MaxParallel: 3, RetryBaseMs: 1})
	res, err := e.Execute(context.Background(), units, false)
	assert.NoError(err)
	assert.Len(res, 10)
	assert.LessOrEqual(b.peak, 3)
}

func TestCloseClosesBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mockexec.NewMockBackend(ctrl)
	b.EXPECT().Close().Return(nil)

	assert.NoError(t, executor.NewScatterExecutor(b, testCfg()).Close())
}
