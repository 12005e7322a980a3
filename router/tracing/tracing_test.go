package tracing_test

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/router/tracing"
	"github.com/stretchr/testify/assert"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	assert := assert.New(t)

	closer, err := tracing.InitJaegerTracer(config.JaegerCfg{Enabled: false})
	assert.NoError(err)
	assert.NoError(closer.Close())
}

func TestStagesNestUnderStatement(t *testing.T) {
	assert := assert.New(t)

	tracer := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(prev)

	root, ctx := tracing.StartStage(context.Background(), "statement")
	span, _ := tracing.StartStage(ctx, "route")
	span.Finish()
	root.Finish()

	spans := tracer.FinishedSpans()
	assert.Len(spans, 2)
	assert.Equal("route", spans[0].OperationName)
	assert.Equal(spans[1].SpanContext.SpanID, spans[0].ParentID)
}
