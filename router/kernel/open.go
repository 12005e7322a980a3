package kernel

import (
	"context"
	"io"
	"time"

	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	modelkeygen "github.com/pg-sharding/shardpipe/pkg/models/keygen"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/qdb"
	"github.com/pg-sharding/shardpipe/router/executor"
	"github.com/pg-sharding/shardpipe/router/keygen"
	"github.com/pg-sharding/shardpipe/router/statistics"
	"github.com/pg-sharding/shardpipe/router/tracing"
	"github.com/prometheus/client_golang/prometheus"
)

type closers []io.Closer

func (c closers) Close() error {
	var first error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenOptions controls what Open connects to.
type OpenOptions struct {
	// Execute opens the executor backend. Previews do not need it.
	Execute  bool
	Registry prometheus.Registerer
}

// Open builds a kernel from cfg. The returned closer releases the
// sequence store, the executor and the tracer.
func Open(ctx context.Context, cfg *config.PipelineCfg, opts OpenOptions) (*Kernel, qdb.QDB, io.Closer, error) {
	var cl closers

	tracer, err := tracing.InitJaegerTracer(cfg.Jaeger)
	if err != nil {
		return nil, nil, nil, err
	}
	cl = append(cl, tracer)

	r, err := rule.Build(&cfg.Rules, cfg.DataSourceNames(), algorithm.NewDefaultRegistry())
	if err != nil {
		_ = cl.Close()
		return nil, nil, nil, err
	}

	db, err := qdb.NewQDB(&cfg.Sequencer)
	if err != nil {
		_ = cl.Close()
		return nil, nil, nil, err
	}
	if c, ok := db.(io.Closer); ok {
		cl = append(cl, c)
	}

	cache := keygen.NewIdentityCache(cfg.Sequencer.IdRangeSize, db)
	keys, err := keygen.NewEngine(r, cfg.Rules.KeyGenerators, modelkeygen.NewDefaultRegistry(cache))
	if err != nil {
		_ = cl.Close()
		return nil, nil, nil, err
	}

	var exec executor.Executor
	if opts.Execute {
		se, err := executor.NewExecutor(ctx, cfg)
		if err != nil {
			_ = cl.Close()
			return nil, nil, nil, err
		}
		exec = se
		cl = append(cl, se)
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	stats := statistics.NewCollector(reg, cfg.Statistics.Quantiles)

	k := NewKernel(r, keys, exec, stats,
		WithStatementLog(time.Duration(cfg.LogMinDurationStatementMs)*time.Millisecond))

	shardlog.Zero.Info().
		Strs("data sources", cfg.DataSourceNames()).
		Str("sequencer", cfg.Sequencer.Type).
		Bool("execute", opts.Execute).
		Msg("pipeline kernel opened")
	return k, db, cl, nil
}
