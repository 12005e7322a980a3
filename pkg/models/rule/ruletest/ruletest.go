// Package ruletest builds the order/order_item rule shared by pipeline tests.
package ruletest

import (
	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
)

var DataSources = []string{"ds_0", "ds_1"}

// OrderRuleCfg shards t_order and t_order_item over ds_${0..1} by user_id and
// over t_*_${0..1} by order_id. t_config is broadcast, t_user lives on ds_1.
func OrderRuleCfg() *config.ShardingRuleCfg {
	return &config.ShardingRuleCfg{
		Tables: []config.TableRuleCfg{
			{
				LogicTable:      "t_order",
				ActualDataNodes: "ds_${0..1}.t_order_${0..1}",
				TableStrategy: &config.StrategyCfg{
					Type:           config.StrategyTypeStandard,
					ShardingColumn: "order_id",
					Algorithm:      "table_mod",
				},
				KeyGenerate: &config.KeyGenerateCfg{
					Column:    "order_id",
					Generator: "snowflake",
				},
			},
			{
				LogicTable:      "t_order_item",
				ActualDataNodes: "ds_${0..1}.t_order_item_${0..1}",
				TableStrategy: &config.StrategyCfg{
					Type:           config.StrategyTypeStandard,
					ShardingColumn: "order_id",
					Algorithm:      "table_mod",
				},
			},
		},
		BindingTables:   []string{"t_order, t_order_item"},
		BroadcastTables: []string{"t_config"},
		SingleTables: []config.SingleTableCfg{
			{Table: "t_user", DataSources: []string{"ds_1"}},
		},
		DefaultDatabaseStrategy: &config.StrategyCfg{
			Type:           config.StrategyTypeStandard,
			ShardingColumn: "user_id",
			Algorithm:      "database_mod",
		},
		Algorithms: map[string]config.AlgorithmCfg{
			"database_mod": {Type: algorithm.TypeMod, Props: map[string]string{"sharding-count": "2"}},
			"table_mod":    {Type: algorithm.TypeMod, Props: map[string]string{"sharding-count": "2"}},
		},
		KeyGenerators: map[string]config.AlgorithmCfg{
			"snowflake": {Type: "SNOWFLAKE", Props: map[string]string{"worker-id": "1"}},
		},
	}
}

// OrderRule builds OrderRuleCfg and panics on error.
func OrderRule() *rule.ShardingRule {
	r, err := rule.Build(OrderRuleCfg(), DataSources, algorithm.NewDefaultRegistry())
	if err != nil {
		panic(err)
	}
	return r
}
