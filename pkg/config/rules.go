package config

const (
	StrategyTypeStandard = "standard"
	StrategyTypeComplex  = "complex"
	StrategyTypeHint     = "hint"
	StrategyTypeNone     = "none"
)

// ShardingRuleCfg is the raw rule description; it is validated and turned
// into a rule.ShardingRule by rule.Build.
type ShardingRuleCfg struct {
	Tables          []TableRuleCfg   `json:"tables" toml:"tables" yaml:"tables"`
	BindingTables   []string         `json:"binding_tables" toml:"binding_tables" yaml:"binding_tables"`
	BroadcastTables []string         `json:"broadcast_tables" toml:"broadcast_tables" yaml:"broadcast_tables"`
	SingleTables    []SingleTableCfg `json:"single_tables" toml:"single_tables" yaml:"single_tables"`

	DefaultDatabaseStrategy *StrategyCfg    `json:"default_database_strategy" toml:"default_database_strategy" yaml:"default_database_strategy"`
	DefaultTableStrategy    *StrategyCfg    `json:"default_table_strategy" toml:"default_table_strategy" yaml:"default_table_strategy"`
	DefaultKeyGenerate      *KeyGenerateCfg `json:"default_key_generate" toml:"default_key_generate" yaml:"default_key_generate"`

	Algorithms    map[string]AlgorithmCfg `json:"algorithms" toml:"algorithms" yaml:"algorithms"`
	KeyGenerators map[string]AlgorithmCfg `json:"key_generators" toml:"key_generators" yaml:"key_generators"`
}

type TableRuleCfg struct {
	LogicTable       string          `json:"logic_table" toml:"logic_table" yaml:"logic_table"`
	ActualDataNodes  string          `json:"actual_data_nodes" toml:"actual_data_nodes" yaml:"actual_data_nodes"`
	DatabaseStrategy *StrategyCfg    `json:"database_strategy" toml:"database_strategy" yaml:"database_strategy"`
	TableStrategy    *StrategyCfg    `json:"table_strategy" toml:"table_strategy" yaml:"table_strategy"`
	KeyGenerate      *KeyGenerateCfg `json:"key_generate" toml:"key_generate" yaml:"key_generate"`
}

type SingleTableCfg struct {
	Table       string   `json:"table" toml:"table" yaml:"table"`
	DataSources []string `json:"data_sources" toml:"data_sources" yaml:"data_sources"`
}

type StrategyCfg struct {
	Type            string `json:"type" toml:"type" yaml:"type"`
	ShardingColumn  string `json:"sharding_column" toml:"sharding_column" yaml:"sharding_column"`
	ShardingColumns string `json:"sharding_columns" toml:"sharding_columns" yaml:"sharding_columns"`
	Algorithm       string `json:"algorithm" toml:"algorithm" yaml:"algorithm"`
}

// Columns returns the sharding columns of the strategy in config order.
func (s *StrategyCfg) Columns() []string {
	if s.ShardingColumn != "" {
		return []string{s.ShardingColumn}
	}
	return splitList(s.ShardingColumns)
}

type KeyGenerateCfg struct {
	Column    string `json:"column" toml:"column" yaml:"column"`
	Generator string `json:"generator" toml:"generator" yaml:"generator"`
}

type AlgorithmCfg struct {
	Type  string            `json:"type" toml:"type" yaml:"type"`
	Props map[string]string `json:"props" toml:"props" yaml:"props"`
}

// BindingGroups returns binding table groups, one slice per configured line.
func (c *ShardingRuleCfg) BindingGroups() [][]string {
	var res [][]string
	for _, line := range c.BindingTables {
		if group := splitList(line); len(group) > 0 {
			res = append(res, group)
		}
	}
	return res
}
