// Package kernel runs a bound statement through the routing, rewrite,
// execution and merge stages.
package kernel

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/condition"
	"github.com/pg-sharding/shardpipe/router/executor"
	"github.com/pg-sharding/shardpipe/router/hint"
	"github.com/pg-sharding/shardpipe/router/keygen"
	"github.com/pg-sharding/shardpipe/router/merge"
	"github.com/pg-sharding/shardpipe/router/rewrite"
	"github.com/pg-sharding/shardpipe/router/route"
	"github.com/pg-sharding/shardpipe/router/session"
	"github.com/pg-sharding/shardpipe/router/statistics"
	"github.com/pg-sharding/shardpipe/router/tracing"
)

// Plan is everything decided before a statement touches a data source.
type Plan struct {
	Hints        *hint.Hints          `json:"hints,omitempty"`
	GeneratedKey *keygen.GeneratedKey `json:"generated_key,omitempty"`
	Route        *route.RouteContext  `json:"route"`
	Rewrite      *rewrite.Result      `json:"rewrite"`
}

type Response struct {
	// Merged is nil for statements that return no rows.
	Merged        merge.MergedResult
	UpdateCount   int64
	GeneratedKeys []any
}

type Kernel struct {
	rule     *rule.ShardingRule
	keys     *keygen.Engine
	router   *route.Engine
	rewriter *rewrite.Engine
	exec     executor.Executor
	stats    *statistics.Collector
	stmtLog  *shardlog.StmtLogger
}

type Option func(k *Kernel)

func WithRewriteEngine(e *rewrite.Engine) Option {
	return func(k *Kernel) {
		k.rewriter = e
	}
}

// WithStatementLog logs statements running at least d. A negative d
// disables it.
func WithStatementLog(d time.Duration) Option {
	return func(k *Kernel) {
		k.stmtLog = shardlog.NewStmtLogger(d)
	}
}

// NewKernel wires the stages. keys and exec may be nil, the kernel then
// generates no keys and can only preview.
func NewKernel(r *rule.ShardingRule, keys *keygen.Engine, exec executor.Executor, stats *statistics.Collector, opts ...Option) *Kernel {
	k := &Kernel{
		rule:     r,
		keys:     keys,
		router:   route.NewEngine(r),
		rewriter: rewrite.NewEngine(),
		exec:     exec,
		stats:    stats,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Kernel) Rule() *rule.ShardingRule {
	return k.rule
}

var stmtStages = map[statistics.StatisticsType]shardlog.StmtStage{
	statistics.StatisticsTypeRoute:     shardlog.StmtStageRoute,
	statistics.StatisticsTypeRewrite:   shardlog.StmtStageRewrite,
	statistics.StatisticsTypeExecute:   shardlog.StmtStageExecute,
	statistics.StatisticsTypeMerge:     shardlog.StmtStageMerge,
	statistics.StatisticsTypeStatement: shardlog.StmtStageTotal,
}

// stage opens a span and starts the clock of st. The returned func
// closes both.
func (k *Kernel) stage(ctx context.Context, sess *session.Session, stmt *statement.Context, st statistics.StatisticsType) (context.Context, func()) {
	span, ctx := tracing.StartStage(ctx, string(st))
	started := time.Now()
	if k.stats != nil {
		k.stats.RecordStartTime(st, started, sess.Stats())
	}
	return ctx, func() {
		finished := time.Now()
		if k.stats != nil {
			if st == statistics.StatisticsTypeStatement {
				k.stats.RecordFinishedStatement(finished, sess.Stats())
			} else {
				k.stats.RecordFinished(st, finished, sess.Stats())
			}
		}
		k.stmtLog.ReportStatement(stmtStages[st], stmt.SQL, finished.Sub(started))
		span.Finish()
	}
}

func statementHints(stmt *statement.Context, sess *session.Session) (*hint.Hints, error) {
	h, err := hint.Parse(stmt.Comment)
	if err != nil {
		return nil, err
	}
	return h.Merge(sess.Hints()), nil
}

// Preview routes and rewrites stmt without executing it. Keys are still
// allocated so the rewritten SQL is what Execute would send.
func (k *Kernel) Preview(ctx context.Context, sess *session.Session, stmt *statement.Context, params []any) (*Plan, error) {
	h, err := statementHints(stmt, sess)
	if err != nil {
		return nil, err
	}
	p := &Plan{Hints: h}

	if k.keys != nil {
		if p.GeneratedKey, err = k.keys.Generate(ctx, stmt); err != nil {
			return nil, err
		}
	}

	conds, err := condition.Extract(stmt, params, k.rule, p.GeneratedKey, h)
	if err != nil {
		return nil, err
	}

	_, done := k.stage(ctx, sess, stmt, statistics.StatisticsTypeRoute)
	p.Route, err = k.router.Route(stmt, conds, sess)
	done()
	if err != nil {
		return nil, err
	}

	_, done = k.stage(ctx, sess, stmt, statistics.StatisticsTypeRewrite)
	defer done()
	if h.SkipRewrite {
		p.Rewrite = k.rewriter.Passthrough(stmt, params, p.Route)
		return p, nil
	}
	if p.Rewrite, err = k.rewriter.Rewrite(stmt, params, p.Route, p.GeneratedKey); err != nil {
		return nil, err
	}
	return p, nil
}

func returnsRows(stmt *statement.Context) bool {
	switch stmt.Kind {
	case statement.KindSelect:
		return true
	case statement.KindDAL:
		return stmt.DAL == statement.DALShow || stmt.DAL == statement.DALShowDatabases
	}
	return false
}

func closeAll(results []executor.Result) {
	for _, r := range results {
		if r.Rows != nil {
			_ = r.Rows.Close()
		}
	}
}

// Execute runs stmt end to end. The caller closes Response.Merged.
func (k *Kernel) Execute(ctx context.Context, sess *session.Session, stmt *statement.Context, params []any) (*Response, error) {
	if k.exec == nil {
		return nil, executor.ErrNoExecutor
	}
	ctx, done := k.stage(ctx, sess, stmt, statistics.StatisticsTypeStatement)
	defer done()
	span := opentracing.SpanFromContext(ctx)
	span.SetTag("kind", stmt.Kind.String())

	p, err := k.Preview(ctx, sess, stmt, params)
	if err != nil {
		span.SetTag("error", true)
		return nil, err
	}
	span.SetTag("route", string(p.Route.Type))

	resp := &Response{}
	if p.GeneratedKey != nil {
		resp.GeneratedKeys = p.GeneratedKey.Values
	}

	query := returnsRows(stmt)
	ectx, edone := k.stage(ctx, sess, stmt, statistics.StatisticsTypeExecute)
	results, err := k.exec.Execute(ectx, p.Rewrite.Units, query)
	edone()
	if err != nil {
		span.SetTag("error", true)
		return nil, err
	}

	if !query {
		for _, r := range results {
			resp.UpdateCount += r.UpdateCount
		}
		return resp, nil
	}

	if resp.Merged, err = k.merge(ctx, sess, stmt, params, results); err != nil {
		closeAll(results)
		span.SetTag("error", true)
		return nil, err
	}
	return resp, nil
}

func (k *Kernel) merge(ctx context.Context, sess *session.Session, stmt *statement.Context, params []any, results []executor.Result) (merge.MergedResult, error) {
	_, done := k.stage(ctx, sess, stmt, statistics.StatisticsTypeMerge)
	defer done()

	rows := make([]resultset.QueryResult, len(results))
	for i, r := range results {
		rows[i] = r.Rows
	}
	mctx, err := merge.NewContext(stmt, len(rows), params)
	if err != nil {
		return nil, err
	}
	return merge.Merge(rows, mctx)
}
