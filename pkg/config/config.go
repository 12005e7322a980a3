package config

import (
	"encoding/json"
	"os"

	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pkg/errors"
)

const (
	SequencerTypeMem   = "mem"
	SequencerTypeEtcd  = "etcd"
	SequencerTypeRedis = "redis"

	ExecutorBackendPgx  = "pgx"
	ExecutorBackendSqlx = "sqlx"

	DefaultIdRangeSize   = uint64(1)
	DefaultMaxParallel   = 8
	DefaultMaxRetries    = uint64(3)
	DefaultRetryBaseMs   = 50
	DefaultLogMinStmtDur = int64(-1)
)

type PipelineCfg struct {
	LogLevel                  string `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFileName               string `json:"log_filename" toml:"log_filename" yaml:"log_filename"`
	PrettyLogging             bool   `json:"pretty_logging" toml:"pretty_logging" yaml:"pretty_logging"`
	LogMinDurationStatementMs int64  `json:"log_min_duration_statement_ms" toml:"log_min_duration_statement_ms" yaml:"log_min_duration_statement_ms"`

	DataSources []DataSourceCfg `json:"data_sources" toml:"data_sources" yaml:"data_sources"`
	Rules       ShardingRuleCfg `json:"rules" toml:"rules" yaml:"rules"`

	Sequencer  SequencerCfg  `json:"sequencer" toml:"sequencer" yaml:"sequencer"`
	Executor   ExecutorCfg   `json:"executor" toml:"executor" yaml:"executor"`
	Statistics StatisticsCfg `json:"statistics" toml:"statistics" yaml:"statistics"`
	Jaeger     JaegerCfg     `json:"jaeger" toml:"jaeger" yaml:"jaeger"`
}

type DataSourceCfg struct {
	Name       string `json:"name" toml:"name" yaml:"name"`
	ConnString string `json:"conn_string" toml:"conn_string" yaml:"conn_string"`
}

type SequencerCfg struct {
	Type             string `json:"type" toml:"type" yaml:"type"`
	MemqdbBackupPath string `json:"memqdb_backup_path" toml:"memqdb_backup_path" yaml:"memqdb_backup_path"`
	EtcdAddr         string `json:"etcd_addr" toml:"etcd_addr" yaml:"etcd_addr"`
	RedisAddr        string `json:"redis_addr" toml:"redis_addr" yaml:"redis_addr"`
	IdRangeSize      uint64 `json:"id_range_size" toml:"id_range_size" yaml:"id_range_size"`
}

type ExecutorCfg struct {
	Backend     string `json:"backend" toml:"backend" yaml:"backend"`
	MaxParallel int    `json:"max_parallel" toml:"max_parallel" yaml:"max_parallel"`
	MaxRetries  uint64 `json:"max_retries" toml:"max_retries" yaml:"max_retries"`
	RetryBaseMs int    `json:"retry_base_ms" toml:"retry_base_ms" yaml:"retry_base_ms"`
}

type StatisticsCfg struct {
	Quantiles []float64 `json:"quantiles" toml:"quantiles" yaml:"quantiles"`
}

type JaegerCfg struct {
	Enabled     bool   `json:"enabled" toml:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" toml:"service_name" yaml:"service_name"`
	JaegerUrl   string `json:"jaeger_url" toml:"jaeger_url" yaml:"jaeger_url"`
}

// DataSourceNames returns the configured data source names in file order.
func (c *PipelineCfg) DataSourceNames() []string {
	res := make([]string, 0, len(c.DataSources))
	for _, ds := range c.DataSources {
		res = append(res, ds.Name)
	}
	return res
}

func (c *PipelineCfg) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMinDurationStatementMs == 0 {
		c.LogMinDurationStatementMs = DefaultLogMinStmtDur
	}
	if c.Sequencer.Type == "" {
		c.Sequencer.Type = SequencerTypeMem
	}
	if c.Sequencer.IdRangeSize == 0 {
		c.Sequencer.IdRangeSize = DefaultIdRangeSize
	}
	if c.Executor.Backend == "" {
		c.Executor.Backend = ExecutorBackendPgx
	}
	if c.Executor.MaxParallel <= 0 {
		c.Executor.MaxParallel = DefaultMaxParallel
	}
	if c.Executor.MaxRetries == 0 {
		c.Executor.MaxRetries = DefaultMaxRetries
	}
	if c.Executor.RetryBaseMs <= 0 {
		c.Executor.RetryBaseMs = DefaultRetryBaseMs
	}
	if len(c.Statistics.Quantiles) == 0 {
		c.Statistics.Quantiles = []float64{0.5, 0.99}
	}
	if c.Jaeger.ServiceName == "" {
		c.Jaeger.ServiceName = "shardpipe"
	}
}

// LoadPipelineCfg reads the pipeline config, fills defaults and logs
// the running config.
func LoadPipelineCfg(cfgPath string) (*PipelineCfg, error) {
	file, err := os.Open(cfgPath)
	if err != nil {
		return nil, err
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			shardlog.Zero.Error().Err(err).Msg("failed to close config file")
		}
	}(file)

	cfg := &PipelineCfg{}
	if err := initConfig(file, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config %s", cfgPath)
	}
	cfg.applyDefaults()

	configBytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	shardlog.Zero.Info().Str("path", cfgPath).RawJSON("config", configBytes).Msg("running config")

	return cfg, nil
}
