package route

import (
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/router/condition"
	"github.com/pg-sharding/shardpipe/router/session"
	"golang.org/x/exp/slices"
)

type routingEngine interface {
	route(r *rule.ShardingRule, sess *session.Session) (*RouteContext, error)
}

type databaseBroadcastEngine struct{}

func (databaseBroadcastEngine) route(r *rule.ShardingRule, _ *session.Session) (*RouteContext, error) {
	rc := NewRouteContext(RouteTypeDatabaseBroadcast)
	for _, ds := range r.DataSources {
		rc.Add(NewRouteUnit(ds))
	}
	return rc, nil
}

// tableBroadcastEngine sends the statement to every data node of the tables.
type tableBroadcastEngine struct {
	tables []string
}

func (e tableBroadcastEngine) route(r *rule.ShardingRule, _ *session.Session) (*RouteContext, error) {
	rc := NewRouteContext(RouteTypeTableBroadcast)
	for _, t := range e.tables {
		tr, ok := r.TableRule(t)
		if !ok {
			return nil, pipeerror.Newf(pipeerror.PIPE_UNEXPECTED, "table \"%s\" has no table rule", t)
		}
		for _, n := range tr.DataNodes {
			rc.Add(NewRouteUnit(n.DataSource, RouteMapper{Logic: t, Actual: n.Table}))
		}
	}
	return rc, nil
}

// unicastEngine picks exactly one data source: the session's sticky one
// when it can serve the tables, the first candidate otherwise.
type unicastEngine struct {
	tables []string
	bind   bool
}

func (e unicastEngine) route(r *rule.ShardingRule, sess *session.Session) (*RouteContext, error) {
	candidates := r.DataSources
	for _, t := range e.tables {
		var holders []string
		switch r.Classify(t) {
		case rule.ShardingTable, rule.BindingTable:
			tr, _ := r.TableRule(t)
			holders = tr.DataSourceNames()
		case rule.SingleTable:
			holders = r.SingleDataSources(t)
		default:
			continue
		}
		candidates = intersect(candidates, holders)
	}
	if len(candidates) == 0 {
		return nil, pipeerror.Newf(pipeerror.PIPE_ROUTING_ERROR, "tables %s share no data source", strings.Join(e.tables, ", "))
	}

	ds := candidates[0]
	if sticky, ok := sess.StickyDataSource(); ok {
		if slices.Contains(candidates, sticky) {
			ds = sticky
		}
	} else if e.bind {
		ds = sess.BindDataSource(ds)
	}

	unit := NewRouteUnit(ds)
	for _, t := range e.tables {
		if tr, ok := r.TableRule(t); ok {
			unit.Tables = append(unit.Tables, RouteMapper{Logic: t, Actual: tr.ActualTables(ds)[0]})
		}
	}
	rc := NewRouteContext(RouteTypeUnicast)
	rc.Add(unit)
	return rc, nil
}

// singleEngine routes statements over unsharded tables to the data sources
// holding them. Reads need only one of them.
type singleEngine struct {
	tables   []string
	readOnly bool
}

func (e singleEngine) route(r *rule.ShardingRule, sess *session.Session) (*RouteContext, error) {
	candidates := r.SingleDataSources(e.tables[0])
	for _, t := range e.tables[1:] {
		candidates = intersect(candidates, r.SingleDataSources(t))
	}
	if len(candidates) == 0 {
		return nil, pipeerror.Newf(pipeerror.PIPE_MIXED_TABLES,
			"single tables %s live on different data sources", strings.Join(e.tables, ", "))
	}

	rc := NewRouteContext(RouteTypeSingle)
	if e.readOnly {
		ds := candidates[0]
		if sticky, ok := sess.StickyDataSource(); ok && slices.Contains(candidates, sticky) {
			ds = sticky
		}
		rc.Add(NewRouteUnit(ds))
		return rc, nil
	}
	for _, ds := range candidates {
		rc.Add(NewRouteUnit(ds))
	}
	return rc, nil
}

type ignoreEngine struct{}

func (ignoreEngine) route(*rule.ShardingRule, *session.Session) (*RouteContext, error) {
	return NewRouteContext(RouteTypeIgnore), nil
}

// hintEngine sends the statement to the data source named by a hint.
type hintEngine struct {
	dataSource string
}

func (e hintEngine) route(r *rule.ShardingRule, _ *session.Session) (*RouteContext, error) {
	if !slices.Contains(r.DataSources, e.dataSource) {
		return nil, pipeerror.Newf(pipeerror.PIPE_HINT_ERROR, "hinted data source \"%s\" does not exist", e.dataSource)
	}
	rc := NewRouteContext(RouteTypeHint)
	rc.Add(NewRouteUnit(e.dataSource))
	return rc, nil
}

// standardEngine routes one sharded table, or tables of one binding group:
// the leader is routed by its strategies, the others follow it.
type standardEngine struct {
	tables []string
	conds  *condition.Conditions
}

func routeTable(r *rule.ShardingRule, table string, conds *condition.Conditions) ([]rule.DataNode, error) {
	tr, ok := r.TableRule(table)
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_UNEXPECTED, "table \"%s\" has no table rule", table)
	}
	dss, err := tr.DatabaseStrategy.Route(table, tr.DataSourceNames(), conds.DatabaseValues(table))
	if err != nil {
		return nil, err
	}
	var nodes []rule.DataNode
	for _, ds := range dss {
		tables, err := tr.TableStrategy.Route(table, tr.ActualTables(ds), conds.TableValues(table))
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			nodes = append(nodes, rule.DataNode{DataSource: ds, Table: t})
		}
	}
	return nodes, nil
}

// leader is the first table with extracted values, or the first table.
func (e standardEngine) leader() string {
	for _, t := range e.tables {
		if len(e.conds.ByTable[t]) > 0 {
			return t
		}
	}
	return e.tables[0]
}

func (e standardEngine) route(r *rule.ShardingRule, _ *session.Session) (*RouteContext, error) {
	if e.conds.IsInsert() {
		return e.routeInsert(r)
	}

	leader := e.leader()
	ltr, _ := r.TableRule(leader)
	nodes, err := routeTable(r, leader, e.conds)
	if err != nil {
		return nil, err
	}

	rc := NewRouteContext(RouteTypeStandard)
	for _, n := range nodes {
		idx := ltr.ActualTableIndex(n.DataSource, n.Table)
		unit := NewRouteUnit(n.DataSource)
		for _, t := range e.tables {
			if t == leader {
				unit.Tables = append(unit.Tables, RouteMapper{Logic: t, Actual: n.Table})
				continue
			}
			ftr, ok := r.TableRule(t)
			if !ok {
				return nil, pipeerror.Newf(pipeerror.PIPE_UNEXPECTED, "table \"%s\" has no table rule", t)
			}
			actual := ftr.ActualTables(n.DataSource)
			if idx < 0 || idx >= len(actual) {
				return nil, pipeerror.Newf(pipeerror.PIPE_ROUTING_ERROR,
					"binding table \"%s\" has no data node matching %s", t, n)
			}
			unit.Tables = append(unit.Tables, RouteMapper{Logic: t, Actual: actual[idx]})
		}
		rc.Add(unit)
	}
	return rc, nil
}

// routeInsert routes each VALUES row on its own. A row must land on
// exactly one data node.
func (e standardEngine) routeInsert(r *rule.ShardingRule) (*RouteContext, error) {
	table := e.tables[0]
	tr, ok := r.TableRule(table)
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_UNEXPECTED, "table \"%s\" has no table rule", table)
	}

	rc := NewRouteContext(RouteTypeStandard)
	for i := range e.conds.InsertRows {
		dss, err := tr.DatabaseStrategy.Route(table, tr.DataSourceNames(), e.conds.RowValues(i, true))
		if err != nil {
			return nil, err
		}
		var nodes []rule.DataNode
		for _, ds := range dss {
			tables, err := tr.TableStrategy.Route(table, tr.ActualTables(ds), e.conds.RowValues(i, false))
			if err != nil {
				return nil, err
			}
			for _, t := range tables {
				nodes = append(nodes, rule.DataNode{DataSource: ds, Table: t})
			}
		}
		if len(nodes) != 1 {
			return nil, pipeerror.Newf(pipeerror.PIPE_ROUTING_ERROR,
				"insert row %d of table \"%s\" routes to %d data nodes, sharding values are missing", i+1, table, len(nodes))
		}
		rc.OriginalDataNodes = append(rc.OriginalDataNodes, nodes)
		rc.Add(NewRouteUnit(nodes[0].DataSource, RouteMapper{Logic: table, Actual: nodes[0].Table}))
	}
	return rc, nil
}

// complexEngine routes independently sharded tables (or binding groups)
// one by one and combines them per data source as a cartesian product.
type complexEngine struct {
	tables []string
	conds  *condition.Conditions
}

func (e complexEngine) route(r *rule.ShardingRule, sess *session.Session) (*RouteContext, error) {
	var groups [][]string
	groupOf := map[int]int{}
	for _, t := range e.tables {
		if _, ok := r.BindingGroup(t); ok {
			gi := bindingIndex(r, t)
			if idx, ok := groupOf[gi]; ok {
				groups[idx] = append(groups[idx], t)
				continue
			}
			groupOf[gi] = len(groups)
		}
		groups = append(groups, []string{t})
	}

	var routed []*RouteContext
	for _, g := range groups {
		rc, err := standardEngine{tables: g, conds: e.conds}.route(r, sess)
		if err != nil {
			return nil, err
		}
		routed = append(routed, rc)
	}

	rc := NewRouteContext(RouteTypeComplex)
	for _, ds := range routed[0].DataSourceNames() {
		combos := [][]RouteMapper{nil}
		for _, sub := range routed {
			var next [][]RouteMapper
			for _, c := range combos {
				for _, u := range sub.Units {
					if u.DataSource.Actual != ds {
						continue
					}
					merged := append(append([]RouteMapper{}, c...), u.Tables...)
					next = append(next, merged)
				}
			}
			combos = next
		}
		for _, c := range combos {
			rc.Add(NewRouteUnit(ds, c...))
		}
	}
	if len(rc.Units) == 0 {
		return nil, pipeerror.Newf(pipeerror.PIPE_ROUTING_ERROR,
			"tables %s are routed to disjoint data sources", strings.Join(e.tables, ", "))
	}
	return rc, nil
}

func bindingIndex(r *rule.ShardingRule, table string) int {
	group, _ := r.BindingGroup(table)
	for i, g := range r.BindingGroups {
		if slices.Equal(g, group) {
			return i
		}
	}
	return -1
}

func intersect(l, r []string) []string {
	var res []string
	for _, x := range l {
		if slices.Contains(r, x) {
			res = append(res, x)
		}
	}
	return res
}
