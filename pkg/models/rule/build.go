package rule

import (
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/strategy"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"golang.org/x/exp/slices"
)

type builder struct {
	cfg        *config.ShardingRuleCfg
	registry   *algorithm.Registry
	algorithms map[string]any
}

// Build validates cfg against dataSources and produces an immutable rule.
// Every configuration error is reported with PIPEC.
func Build(cfg *config.ShardingRuleCfg, dataSources []string, registry *algorithm.Registry) (*ShardingRule, error) {
	if len(dataSources) == 0 {
		return nil, pipeerror.New(pipeerror.PIPE_CONFIG_ERROR, "no data sources configured")
	}
	b := &builder{cfg: cfg, registry: registry, algorithms: map[string]any{}}

	r := &ShardingRule{
		DataSources:  dataSources,
		Tables:       map[string]*TableRule{},
		Broadcast:    map[string]struct{}{},
		Single:       map[string][]string{},
		bindingIndex: map[string]int{},
	}

	var err error
	if r.DefaultDatabaseStrategy, err = b.strategy("<default>", cfg.DefaultDatabaseStrategy); err != nil {
		return nil, err
	}
	if r.DefaultTableStrategy, err = b.strategy("<default>", cfg.DefaultTableStrategy); err != nil {
		return nil, err
	}
	if r.DefaultKeyGenerate, err = b.keyGenerate("<default>", cfg.DefaultKeyGenerate); err != nil {
		return nil, err
	}

	for i := range cfg.Tables {
		tr, err := b.tableRule(&cfg.Tables[i], dataSources, r)
		if err != nil {
			return nil, err
		}
		if _, ok := r.Tables[key(tr.LogicTable)]; ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\" is configured twice", tr.LogicTable)
		}
		r.Tables[key(tr.LogicTable)] = tr
	}

	for _, t := range cfg.BroadcastTables {
		if _, ok := r.Tables[key(t)]; ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\" is both broadcast and sharded", t)
		}
		r.Broadcast[key(t)] = struct{}{}
	}

	for idx, group := range cfg.BindingGroups() {
		if err := b.bindingGroup(r, idx, group); err != nil {
			return nil, err
		}
		r.BindingGroups = append(r.BindingGroups, group)
	}

	for _, st := range cfg.SingleTables {
		k := key(st.Table)
		if _, ok := r.Tables[k]; ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\" is both single and sharded", st.Table)
		}
		if _, ok := r.Broadcast[k]; ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\" is both single and broadcast", st.Table)
		}
		ds := st.DataSources
		if len(ds) == 0 {
			ds = dataSources[:1]
		}
		for _, d := range ds {
			if !slices.Contains(dataSources, d) {
				return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "single table \"%s\" refers to unknown data source \"%s\"", st.Table, d)
			}
		}
		r.Single[k] = ds
	}

	shardlog.Zero.Debug().
		Strs("data sources", dataSources).
		Strs("sharding tables", r.LogicTables()).
		Strs("broadcast tables", r.BroadcastTables()).
		Int("binding groups", len(r.BindingGroups)).
		Msg("sharding rule built")
	return r, nil
}

func (b *builder) algorithm(name string) (any, error) {
	if alg, ok := b.algorithms[name]; ok {
		return alg, nil
	}
	acfg, ok := b.cfg.Algorithms[name]
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "unknown sharding algorithm \"%s\"", name)
	}
	alg, err := b.registry.New(acfg.Type, acfg.Props)
	if err != nil {
		return nil, err
	}
	b.algorithms[name] = alg
	return alg, nil
}

func (b *builder) strategy(table string, scfg *config.StrategyCfg) (strategy.Strategy, error) {
	if scfg == nil {
		return nil, nil
	}
	typ := strings.ToLower(scfg.Type)
	if typ == "" {
		typ = config.StrategyTypeStandard
	}
	if typ == config.StrategyTypeNone {
		return strategy.None{}, nil
	}

	alg, err := b.algorithm(scfg.Algorithm)
	if err != nil {
		return nil, err
	}
	cols := scfg.Columns()

	switch typ {
	case config.StrategyTypeStandard:
		if len(cols) != 1 {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "standard strategy of table \"%s\" needs exactly one sharding column", table)
		}
		sa, ok := alg.(algorithm.StandardAlgorithm)
		if !ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "algorithm \"%s\" cannot serve a standard strategy", scfg.Algorithm)
		}
		return strategy.NewStandard(cols[0], sa), nil
	case config.StrategyTypeComplex:
		if len(cols) == 0 {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "complex strategy of table \"%s\" needs sharding columns", table)
		}
		ca, ok := alg.(algorithm.ComplexAlgorithm)
		if !ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "algorithm \"%s\" cannot serve a complex strategy", scfg.Algorithm)
		}
		return strategy.NewComplex(cols, ca), nil
	case config.StrategyTypeHint:
		ha, ok := alg.(algorithm.HintAlgorithm)
		if !ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "algorithm \"%s\" cannot serve a hint strategy", scfg.Algorithm)
		}
		return strategy.NewHint(ha), nil
	default:
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "unknown strategy type \"%s\" for table \"%s\"", scfg.Type, table)
	}
}

func (b *builder) keyGenerate(table string, kcfg *config.KeyGenerateCfg) (*KeyGenerateStrategy, error) {
	if kcfg == nil {
		return nil, nil
	}
	if kcfg.Column == "" {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "key generate strategy of table \"%s\" has no column", table)
	}
	if _, ok := b.cfg.KeyGenerators[kcfg.Generator]; !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "unknown key generator \"%s\" for table \"%s\"", kcfg.Generator, table)
	}
	return &KeyGenerateStrategy{Column: kcfg.Column, Generator: kcfg.Generator}, nil
}

func (b *builder) tableRule(tcfg *config.TableRuleCfg, dataSources []string, r *ShardingRule) (*TableRule, error) {
	if tcfg.LogicTable == "" {
		return nil, pipeerror.New(pipeerror.PIPE_CONFIG_ERROR, "table rule without logic table")
	}
	tr := &TableRule{LogicTable: tcfg.LogicTable}

	if strings.TrimSpace(tcfg.ActualDataNodes) == "" {
		for _, ds := range dataSources {
			tr.DataNodes = append(tr.DataNodes, DataNode{DataSource: ds, Table: tcfg.LogicTable})
		}
	} else {
		nodes, err := ExpandInline(tcfg.ActualDataNodes)
		if err != nil {
			return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\": %s", tcfg.LogicTable, err)
		}
		for _, n := range nodes {
			dn, err := ParseDataNode(n)
			if err != nil {
				return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\": %s", tcfg.LogicTable, err)
			}
			if !slices.Contains(dataSources, dn.DataSource) {
				return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\": data node \"%s\" refers to unknown data source", tcfg.LogicTable, n)
			}
			if slices.Contains(tr.DataNodes, dn) {
				return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "table \"%s\": duplicate data node \"%s\"", tcfg.LogicTable, n)
			}
			tr.DataNodes = append(tr.DataNodes, dn)
		}
	}

	var err error
	if tr.DatabaseStrategy, err = b.strategy(tcfg.LogicTable, tcfg.DatabaseStrategy); err != nil {
		return nil, err
	}
	if tr.DatabaseStrategy == nil {
		tr.DatabaseStrategy = r.DefaultDatabaseStrategy
	}
	if tr.DatabaseStrategy == nil {
		tr.DatabaseStrategy = strategy.None{}
	}
	if tr.TableStrategy, err = b.strategy(tcfg.LogicTable, tcfg.TableStrategy); err != nil {
		return nil, err
	}
	if tr.TableStrategy == nil {
		tr.TableStrategy = r.DefaultTableStrategy
	}
	if tr.TableStrategy == nil {
		tr.TableStrategy = strategy.None{}
	}
	if tr.KeyGenerate, err = b.keyGenerate(tcfg.LogicTable, tcfg.KeyGenerate); err != nil {
		return nil, err
	}
	return tr, nil
}

func (b *builder) bindingGroup(r *ShardingRule, idx int, group []string) error {
	var leader *TableRule
	for _, t := range group {
		tr, ok := r.Tables[key(t)]
		if !ok {
			return pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "binding table \"%s\" has no table rule", t)
		}
		if prev, ok := r.bindingIndex[key(t)]; ok && prev != idx {
			return pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "binding table \"%s\" belongs to two binding groups", t)
		}
		r.bindingIndex[key(t)] = idx

		if leader == nil {
			leader = tr
			continue
		}
		if !sameTopology(leader, tr) {
			return pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR,
				"binding tables \"%s\" and \"%s\" have different data node topology", leader.LogicTable, tr.LogicTable)
		}
	}
	return nil
}

func sameTopology(l, r *TableRule) bool {
	lds, rds := l.DataSourceNames(), r.DataSourceNames()
	if !slices.Equal(lds, rds) {
		return false
	}
	for _, ds := range lds {
		if len(l.ActualTables(ds)) != len(r.ActualTables(ds)) {
			return false
		}
	}
	return true
}
