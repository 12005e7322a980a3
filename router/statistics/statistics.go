// Package statistics keeps latency quantiles of pipeline stages per
// session and in total, and exports them as prometheus histograms.
package statistics

//go:generate mockgen -source=stat_holder.go -destination=../mock/statistics/stat_holder_mock.go -package=mock_statistics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/caio/go-tdigest"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
)

type StatisticsType string

const (
	StatisticsTypeStatement = StatisticsType("statement")
	StatisticsTypeRoute     = StatisticsType("route")
	StatisticsTypeRewrite   = StatisticsType("rewrite")
	StatisticsTypeExecute   = StatisticsType("execute")
	StatisticsTypeMerge     = StatisticsType("merge")
)

var Stages = []StatisticsType{
	StatisticsTypeRoute,
	StatisticsTypeRewrite,
	StatisticsTypeExecute,
	StatisticsTypeMerge,
	StatisticsTypeStatement,
}

type Collector struct {
	quantiles []float64
	enabled   atomic.Bool

	mu    sync.Mutex
	total map[StatisticsType]*tdigest.TDigest

	duration   *prometheus.HistogramVec
	statements prometheus.Counter
}

// NewCollector registers the pipeline metrics in reg. Quantiles are kept
// only when some are configured.
func NewCollector(reg prometheus.Registerer, quantiles []float64) *Collector {
	f := promauto.With(reg)
	c := &Collector{
		quantiles: quantiles,
		total:     map[StatisticsType]*tdigest.TDigest{},
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "shardpipe_stage_duration_seconds",
			Help: "Pipeline stage duration in seconds",
			Buckets: []float64{
				0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0,
			},
		}, []string{"stage"}),
		statements: f.NewCounter(prometheus.CounterOpts{
			Name: "shardpipe_statements_total",
			Help: "Total number of statements run through the pipeline",
		}),
	}
	c.enabled.Store(len(quantiles) > 0)
	return c
}

// ParseQuantiles parses quantiles given as strings.
func ParseQuantiles(q []string) ([]float64, error) {
	res := make([]float64, len(q))
	for i, qStr := range q {
		var err error
		res[i], err = strconv.ParseFloat(qStr, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse time quantile to float: \"%s\"", qStr)
		}
	}
	return res, nil
}

func (c *Collector) Quantiles() []float64 {
	return c.quantiles
}

func (c *Collector) RecordStartTime(statType StatisticsType, t time.Time, h StatHolder) {
	if h == nil {
		return
	}
	h.RecordStartTime(statType, t)
}

// RecordFinished closes statType at t for h.
func (c *Collector) RecordFinished(statType StatisticsType, t time.Time, h StatHolder) {
	if h == nil {
		return
	}
	st := h.GetTimeData()
	if st == nil {
		return
	}
	start := st.Get(statType)
	if start.IsZero() {
		return
	}
	d := t.Sub(start)
	c.duration.WithLabelValues(string(statType)).Observe(d.Seconds())

	if !c.enabled.Load() {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	if err := h.Add(statType, ms); err != nil {
		shardlog.Zero.Error().Err(err).Str("stage", string(statType)).Msg("failed to record stage time")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	td, ok := c.total[statType]
	if !ok {
		td, _ = tdigest.New()
		c.total[statType] = td
	}
	_ = td.Add(ms)
}

// RecordFinishedStatement closes the whole statement at t.
func (c *Collector) RecordFinishedStatement(t time.Time, h StatHolder) {
	c.RecordFinished(StatisticsTypeStatement, t, h)
	c.statements.Inc()
}

func (c *Collector) GetTimeQuantile(statType StatisticsType, q float64, h StatHolder) float64 {
	if !c.enabled.Load() || h == nil {
		return 0
	}
	return h.GetTimeQuantile(statType, q)
}

func (c *Collector) GetTotalTimeQuantile(statType StatisticsType, q float64) float64 {
	if !c.enabled.Load() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	td, ok := c.total[statType]
	if !ok {
		return 0
	}
	return td.Quantile(q)
}
