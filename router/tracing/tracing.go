// Package tracing sets up the global opentracing tracer.
package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"github.com/uber/jaeger-lib/metrics"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// zeroLogger sends jaeger client messages to shardlog.
type zeroLogger struct{}

func (zeroLogger) Error(msg string) {
	shardlog.Zero.Error().Str("component", "jaeger").Msg(msg)
}

func (zeroLogger) Infof(msg string, args ...any) {
	shardlog.Zero.Debug().Str("component", "jaeger").Msg(fmt.Sprintf(msg, args...))
}

// InitJaegerTracer installs a jaeger tracer as the global tracer. With
// tracing disabled the global noop tracer stays in place.
func InitJaegerTracer(cfg config.JaegerCfg) (io.Closer, error) {
	if !cfg.Enabled {
		return nopCloser{}, nil
	}
	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:              "const",
			Param:             1,
			SamplingServerURL: cfg.JaegerUrl,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans: false,
		},
		Gen128Bit: true,
		Tags: []opentracing.Tag{
			{Key: "span.kind", Value: "server"},
		},
	}

	closer, err := jcfg.InitGlobalTracer(
		cfg.ServiceName,
		jaegercfg.Logger(zeroLogger{}),
		jaegercfg.Metrics(metrics.NullFactory),
	)
	if err != nil {
		return nil, fmt.Errorf("could not initialize jaeger tracer: %s", err.Error())
	}
	shardlog.Zero.Info().Str("service", cfg.ServiceName).Str("url", cfg.JaegerUrl).Msg("jaeger tracer initialized")
	return closer, nil
}

// StartStage opens a span for one pipeline stage under the span of ctx.
func StartStage(ctx context.Context, stage string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, stage)
}
