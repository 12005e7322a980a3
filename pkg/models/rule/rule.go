package rule

import (
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/strategy"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type TableClass int

const (
	ShardingTable TableClass = iota
	BindingTable
	BroadcastTable
	SingleTable
)

func (c TableClass) String() string {
	switch c {
	case ShardingTable:
		return "sharding"
	case BindingTable:
		return "binding"
	case BroadcastTable:
		return "broadcast"
	case SingleTable:
		return "single"
	default:
		return "unknown"
	}
}

// KeyGenerateStrategy names the generator filling Column on insert.
type KeyGenerateStrategy struct {
	Column    string
	Generator string
}

type TableRule struct {
	LogicTable       string
	DataNodes        []DataNode
	DatabaseStrategy strategy.Strategy
	TableStrategy    strategy.Strategy
	KeyGenerate      *KeyGenerateStrategy
}

// DataSourceNames returns data sources of the table in data node order.
func (tr *TableRule) DataSourceNames() []string {
	var res []string
	for _, n := range tr.DataNodes {
		if !slices.Contains(res, n.DataSource) {
			res = append(res, n.DataSource)
		}
	}
	return res
}

// ActualTables returns physical tables of the table on ds in data node order.
func (tr *TableRule) ActualTables(ds string) []string {
	var res []string
	for _, n := range tr.DataNodes {
		if n.DataSource == ds {
			res = append(res, n.Table)
		}
	}
	return res
}

// ActualTableIndex is the position of table among ActualTables(ds), or -1.
func (tr *TableRule) ActualTableIndex(ds, table string) int {
	return slices.IndexFunc(tr.ActualTables(ds), func(t string) bool {
		return strings.EqualFold(t, table)
	})
}

// ShardingColumns returns columns of both strategies, database first.
func (tr *TableRule) ShardingColumns() []string {
	var res []string
	for _, s := range []strategy.Strategy{tr.DatabaseStrategy, tr.TableStrategy} {
		for _, c := range s.Columns() {
			if !slices.Contains(res, c) {
				res = append(res, c)
			}
		}
	}
	return res
}

func (tr *TableRule) IsShardingColumn(column string) bool {
	return slices.ContainsFunc(tr.ShardingColumns(), func(c string) bool {
		return strings.EqualFold(c, column)
	})
}

type ShardingRule struct {
	DataSources   []string
	Tables        map[string]*TableRule
	BindingGroups [][]string
	Broadcast     map[string]struct{}
	Single        map[string][]string

	DefaultDatabaseStrategy strategy.Strategy
	DefaultTableStrategy    strategy.Strategy
	DefaultKeyGenerate      *KeyGenerateStrategy

	bindingIndex map[string]int
}

func key(table string) string {
	return strings.ToLower(table)
}

// Classify places table into exactly one class. Tables the rule does not
// know about are single tables.
func (r *ShardingRule) Classify(table string) TableClass {
	k := key(table)
	if _, ok := r.Tables[k]; ok {
		if _, ok := r.bindingIndex[k]; ok {
			return BindingTable
		}
		return ShardingTable
	}
	if _, ok := r.Broadcast[k]; ok {
		return BroadcastTable
	}
	return SingleTable
}

func (r *ShardingRule) TableRule(table string) (*TableRule, bool) {
	tr, ok := r.Tables[key(table)]
	return tr, ok
}

func (r *ShardingRule) IsSharded(table string) bool {
	c := r.Classify(table)
	return c == ShardingTable || c == BindingTable
}

// BindingGroup returns the group table belongs to.
func (r *ShardingRule) BindingGroup(table string) ([]string, bool) {
	idx, ok := r.bindingIndex[key(table)]
	if !ok {
		return nil, false
	}
	return r.BindingGroups[idx], true
}

// InSameBindingGroup reports whether all tables are members of one binding
// group. A single sharded table is trivially bound to itself.
func (r *ShardingRule) InSameBindingGroup(tables []string) bool {
	if len(tables) == 0 {
		return false
	}
	if len(tables) == 1 {
		return r.IsSharded(tables[0])
	}
	first, ok := r.bindingIndex[key(tables[0])]
	if !ok {
		return false
	}
	for _, t := range tables[1:] {
		if idx, ok := r.bindingIndex[key(t)]; !ok || idx != first {
			return false
		}
	}
	return true
}

// SingleDataSources returns data sources holding a single table. Unknown
// tables live on the first data source.
func (r *ShardingRule) SingleDataSources(table string) []string {
	if ds, ok := r.Single[key(table)]; ok {
		return ds
	}
	return r.DataSources[:1]
}

// IsShardingColumn reports whether column drives any strategy of table.
func (r *ShardingRule) IsShardingColumn(table, column string) bool {
	tr, ok := r.TableRule(table)
	return ok && tr.IsShardingColumn(column)
}

// KeyGenerate returns the key generation strategy of a sharded table,
// falling back to the default one.
func (r *ShardingRule) KeyGenerate(table string) *KeyGenerateStrategy {
	tr, ok := r.TableRule(table)
	if !ok {
		return nil
	}
	if tr.KeyGenerate != nil {
		return tr.KeyGenerate
	}
	return r.DefaultKeyGenerate
}

// LogicTables returns configured sharded tables, sorted.
func (r *ShardingRule) LogicTables() []string {
	res := make([]string, 0, len(r.Tables))
	for _, tr := range r.Tables {
		res = append(res, tr.LogicTable)
	}
	slices.Sort(res)
	return res
}

// BroadcastTables returns broadcast tables, sorted.
func (r *ShardingRule) BroadcastTables() []string {
	res := maps.Keys(r.Broadcast)
	slices.Sort(res)
	return res
}
