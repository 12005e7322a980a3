package rule_test

import (
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/rule/ruletest"
	"github.com/pg-sharding/shardpipe/pkg/models/strategy"
	"github.com/stretchr/testify/assert"
)

func TestBuildOrderRule(t *testing.T) {
	assert := assert.New(t)

	r := ruletest.OrderRule()

	tr, ok := r.TableRule("T_ORDER")
	assert.True(ok)
	assert.Equal([]string{"ds_0", "ds_1"}, tr.DataSourceNames())
	assert.Equal([]string{"t_order_0", "t_order_1"}, tr.ActualTables("ds_1"))
	assert.Equal(1, tr.ActualTableIndex("ds_1", "t_order_1"))
	assert.Equal(-1, tr.ActualTableIndex("ds_1", "t_order_7"))
	assert.Equal([]string{"user_id", "order_id"}, tr.ShardingColumns())
	assert.Equal(strategy.TypeStandard, tr.DatabaseStrategy.Type())
	assert.Equal(&rule.KeyGenerateStrategy{Column: "order_id", Generator: "snowflake"}, r.KeyGenerate("t_order"))
	assert.Nil(r.KeyGenerate("t_order_item"))
	assert.Nil(r.KeyGenerate("t_config"))

	assert.True(r.IsShardingColumn("t_order_item", "ORDER_ID"))
	assert.False(r.IsShardingColumn("t_order_item", "status"))
	assert.False(r.IsShardingColumn("t_config", "user_id"))

	assert.Equal([]string{"t_order", "t_order_item"}, r.LogicTables())
	assert.Equal([]string{"t_config"}, r.BroadcastTables())
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	cfg := ruletest.OrderRuleCfg()
	cfg.Tables = append(cfg.Tables, config.TableRuleCfg{
		LogicTable:      "t_log",
		ActualDataNodes: "ds_0.t_log_0",
	})
	r, err := rule.Build(cfg, ruletest.DataSources, algorithm.NewDefaultRegistry())
	assert.NoError(err)

	type tcase struct {
		table string
		exp   rule.TableClass
	}

	for _, tt := range []tcase{
		{table: "t_order", exp: rule.BindingTable},
		{table: "t_order_item", exp: rule.BindingTable},
		{table: "t_log", exp: rule.ShardingTable},
		{table: "t_config", exp: rule.BroadcastTable},
		{table: "t_user", exp: rule.SingleTable},
		{table: "t_unknown", exp: rule.SingleTable},
	} {
		assert.Equal(tt.exp, r.Classify(tt.table), tt.table)
	}

	assert.True(r.InSameBindingGroup([]string{"t_order", "t_order_item"}))
	assert.True(r.InSameBindingGroup([]string{"t_log"}))
	assert.False(r.InSameBindingGroup([]string{"t_order", "t_log"}))
	assert.False(r.InSameBindingGroup([]string{"t_config"}))

	assert.Equal([]string{"ds_1"}, r.SingleDataSources("t_user"))
	assert.Equal([]string{"ds_0"}, r.SingleDataSources("t_unknown"))
}

func TestBuildRejectsMisconfiguration(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		name   string
		mutate func(cfg *config.ShardingRuleCfg)
		ds     []string
	}

	for _, tt := range []tcase{
		{
			name:   "no data sources",
			mutate: func(cfg *config.ShardingRuleCfg) {},
			ds:     []string{},
		},
		{
			name: "unknown algorithm type",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Algorithms["table_mod"] = config.AlgorithmCfg{Type: "NO_SUCH"}
			},
		},
		{
			name: "bad algorithm property",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Algorithms["table_mod"] = config.AlgorithmCfg{Type: algorithm.TypeMod, Props: map[string]string{"sharding-count": "x"}}
			},
		},
		{
			name: "strategy refers to unknown algorithm",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables[0].TableStrategy.Algorithm = "missing"
			},
		},
		{
			name: "data node on unknown data source",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables[0].ActualDataNodes = "ds_${0..2}.t_order_${0..1}"
			},
		},
		{
			name: "binding member without table rule",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.BindingTables = []string{"t_order, t_missing"}
			},
		},
		{
			name: "binding members with different topology",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables[1].ActualDataNodes = "ds_${0..1}.t_order_item_${0..2}"
			},
		},
		{
			name: "table both broadcast and sharded",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.BroadcastTables = append(cfg.BroadcastTables, "t_order")
			},
		},
		{
			name: "standard strategy without sharding column",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables[0].TableStrategy.ShardingColumn = ""
			},
		},
		{
			name: "complex algorithm in standard strategy",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Algorithms["table_mod"] = config.AlgorithmCfg{
					Type:  algorithm.TypeComplexInline,
					Props: map[string]string{"algorithm-expression": "t_order_${order_id % 2}"},
				}
			},
		},
		{
			name: "unknown strategy type",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables[0].TableStrategy.Type = "fancy"
			},
		},
		{
			name: "unknown key generator",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables[0].KeyGenerate.Generator = "missing"
			},
		},
		{
			name: "duplicate table rule",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.Tables = append(cfg.Tables, cfg.Tables[1])
			},
		},
		{
			name: "single table on unknown data source",
			mutate: func(cfg *config.ShardingRuleCfg) {
				cfg.SingleTables[0].DataSources = []string{"ds_9"}
			},
		},
	} {
		cfg := ruletest.OrderRuleCfg()
		tt.mutate(cfg)
		ds := tt.ds
		if ds == nil {
			ds = ruletest.DataSources
		}
		_, err := rule.Build(cfg, ds, algorithm.NewDefaultRegistry())
		assert.Error(err, tt.name)
		assert.Equal(pipeerror.PIPE_CONFIG_ERROR, pipeerror.Code(err), tt.name)
	}
}

func TestBuildDefaultDataNodes(t *testing.T) {
	assert := assert.New(t)

	cfg := &config.ShardingRuleCfg{
		Tables: []config.TableRuleCfg{{LogicTable: "t_event"}},
	}
	r, err := rule.Build(cfg, []string{"a", "b"}, algorithm.NewDefaultRegistry())
	assert.NoError(err)

	tr, ok := r.TableRule("t_event")
	assert.True(ok)
	assert.Equal([]rule.DataNode{{DataSource: "a", Table: "t_event"}, {DataSource: "b", Table: "t_event"}}, tr.DataNodes)
	assert.Equal(strategy.TypeNone, tr.DatabaseStrategy.Type())
	assert.Equal(strategy.TypeNone, tr.TableStrategy.Type())
}
