package route_test

import (
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/rule/ruletest"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/router/condition"
	"github.com/pg-sharding/shardpipe/router/route"
	"github.com/pg-sharding/shardpipe/router/session"
	"github.com/stretchr/testify/assert"
)

func eq(table, col, val string) statement.Predicate {
	return statement.Predicate{
		Column:   statement.Column{Name: col, Table: table},
		Op:       statement.OpEqual,
		Operands: []statement.Operand{statement.Literal(val)},
	}
}

func orderJoin(where ...statement.Predicate) *statement.Context {
	return &statement.Context{
		Kind: statement.KindSelect,
		Tables: []statement.TableSegment{
			{Name: "t_order", Alias: "o"},
			{Name: "t_order_item", Alias: "i"},
		},
		Where: where,
	}
}

func routeStmt(t *testing.T, r *rule.ShardingRule, stmt *statement.Context, sess *session.Session) (*route.RouteContext, error) {
	conds, err := condition.Extract(stmt, nil, r, nil, nil)
	assert.NoError(t, err)
	return route.NewEngine(r).Route(stmt, conds, sess)
}

func TestBindingTablesFollowLeader(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()

	rc, err := routeStmt(t, r, orderJoin(eq("o", "user_id", "1"), eq("o", "order_id", "1")), nil)
	assert.NoError(err)
	assert.Equal(route.RouteTypeStandard, rc.Type)
	assert.Equal([]route.RouteUnit{
		route.NewRouteUnit("ds_1",
			route.RouteMapper{Logic: "t_order", Actual: "t_order_1"},
			route.RouteMapper{Logic: "t_order_item", Actual: "t_order_item_1"},
		),
	}, rc.Units)

	// conditions on the second table make it the leader
	rc, err = routeStmt(t, r, orderJoin(eq("i", "user_id", "0"), eq("i", "order_id", "2")), nil)
	assert.NoError(err)
	assert.Equal([]route.RouteUnit{
		route.NewRouteUnit("ds_0",
			route.RouteMapper{Logic: "t_order", Actual: "t_order_0"},
			route.RouteMapper{Logic: "t_order_item", Actual: "t_order_item_0"},
		),
	}, rc.Units)
}

func TestStandardRoutingIsDeterministic(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()
	stmt := &statement.Context{
		Kind:   statement.KindSelect,
		Tables: []statement.TableSegment{{Name: "t_order"}},
	}

	first, err := routeStmt(t, r, stmt, nil)
	assert.NoError(err)
	assert.Len(first.Units, 4)
	assert.Equal([]string{"ds_0", "ds_1"}, first.DataSourceNames())

	for i := 0; i < 10; i++ {
		rc, err := routeStmt(t, r, stmt, nil)
		assert.NoError(err)
		assert.Equal(first.Units, rc.Units)
	}
}

func TestComplexRoutingCartesianProduct(t *testing.T) {
	assert := assert.New(t)
	cfg := ruletest.OrderRuleCfg()
	cfg.BindingTables = nil
	r, err := rule.Build(cfg, ruletest.DataSources, algorithm.NewDefaultRegistry())
	assert.NoError(err)

	rc, err := routeStmt(t, r, orderJoin(eq("o", "user_id", "1")), nil)
	assert.NoError(err)
	assert.Equal(route.RouteTypeComplex, rc.Type)

	var exp []route.RouteUnit
	for _, o := range []string{"t_order_0", "t_order_1"} {
		for _, i := range []string{"t_order_item_0", "t_order_item_1"} {
			exp = append(exp, route.NewRouteUnit("ds_1",
				route.RouteMapper{Logic: "t_order", Actual: o},
				route.RouteMapper{Logic: "t_order_item", Actual: i},
			))
		}
	}
	assert.Equal(exp, rc.Units)
}

func TestInsertRoutesEachRow(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()

	stmt := &statement.Context{
		Kind:   statement.KindInsert,
		Tables: []statement.TableSegment{{Name: "t_order"}},
		Insert: &statement.InsertClause{
			Columns: []string{"user_id", "order_id"},
			Rows: []statement.InsertRow{
				{Values: []statement.Operand{statement.Literal("1"), statement.Literal("2")}},
				{Values: []statement.Operand{statement.Param(0), statement.Param(1)}},
				{Values: []statement.Operand{statement.Literal("3"), statement.Literal("4")}},
			},
		},
	}
	conds, err := condition.Extract(stmt, []any{int64(0), int64(3)}, r, nil, nil)
	assert.NoError(err)

	rc, err := route.NewEngine(r).Route(stmt, conds, nil)
	assert.NoError(err)
	assert.Equal([][]rule.DataNode{
		{{DataSource: "ds_1", Table: "t_order_0"}},
		{{DataSource: "ds_0", Table: "t_order_1"}},
		{{DataSource: "ds_1", Table: "t_order_0"}},
	}, rc.OriginalDataNodes)
	assert.Equal([]route.RouteUnit{
		route.NewRouteUnit("ds_1", route.RouteMapper{Logic: "t_order", Actual: "t_order_0"}),
		route.NewRouteUnit("ds_0", route.RouteMapper{Logic: "t_order", Actual: "t_order_1"}),
	}, rc.Units)
}

func TestInsertWithoutShardingValueFails(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()

	stmt := &statement.Context{
		Kind:   statement.KindInsert,
		Tables: []statement.TableSegment{{Name: "t_order"}},
		Insert: &statement.InsertClause{
			Columns: []string{"order_id"},
			Rows:    []statement.InsertRow{{Values: []statement.Operand{statement.Literal("2")}}},
		},
	}
	_, err := routeStmt(t, r, stmt, nil)
	assert.Error(err)
	assert.Equal(pipeerror.PIPE_ROUTING_ERROR, pipeerror.Code(err))
}

func TestRouteByTableClass(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()

	type tcase struct {
		name  string
		stmt  *statement.Context
		typ   route.RouteType
		units []route.RouteUnit
		code  string
	}

	tables := func(names ...string) []statement.TableSegment {
		var res []statement.TableSegment
		for _, n := range names {
			res = append(res, statement.TableSegment{Name: n})
		}
		return res
	}

	for _, tt := range []tcase{
		{
			name:  "select broadcast table goes to one data source",
			stmt:  &statement.Context{Kind: statement.KindSelect, Tables: tables("t_config")},
			typ:   route.RouteTypeUnicast,
			units: []route.RouteUnit{route.NewRouteUnit("ds_0")},
		},
		{
			name:  "update broadcast table goes everywhere",
			stmt:  &statement.Context{Kind: statement.KindUpdate, Tables: tables("t_config")},
			typ:   route.RouteTypeDatabaseBroadcast,
			units: []route.RouteUnit{route.NewRouteUnit("ds_0"), route.NewRouteUnit("ds_1")},
		},
		{
			name:  "single table",
			stmt:  &statement.Context{Kind: statement.KindDelete, Tables: tables("t_user")},
			typ:   route.RouteTypeSingle,
			units: []route.RouteUnit{route.NewRouteUnit("ds_1")},
		},
		{
			name:  "unknown table is single on the first data source",
			stmt:  &statement.Context{Kind: statement.KindSelect, Tables: tables("t_log")},
			typ:   route.RouteTypeSingle,
			units: []route.RouteUnit{route.NewRouteUnit("ds_0")},
		},
		{
			name: "single tables on different data sources",
			stmt: &statement.Context{Kind: statement.KindSelect, Tables: tables("t_user", "t_log")},
			code: pipeerror.PIPE_MIXED_TABLES,
		},
		{
			name: "sharding and broadcast tables mixed",
			stmt: &statement.Context{Kind: statement.KindSelect, Tables: tables("t_order", "t_config")},
			code: pipeerror.PIPE_MIXED_TABLES,
		},
		{
			name:  "transaction control",
			stmt:  &statement.Context{Kind: statement.KindTCL},
			typ:   route.RouteTypeDatabaseBroadcast,
			units: []route.RouteUnit{route.NewRouteUnit("ds_0"), route.NewRouteUnit("ds_1")},
		},
		{
			name: "use is ignored",
			stmt: &statement.Context{Kind: statement.KindDAL, DAL: statement.DALUse},
			typ:  route.RouteTypeIgnore,
		},
		{
			name: "create index on sharding table",
			stmt: &statement.Context{
				Kind:    statement.KindDDL,
				DDL:     statement.DDLIndex,
				Indexes: []statement.IndexSegment{{Name: "idx_status", Table: "t_order"}},
			},
			typ: route.RouteTypeTableBroadcast,
			units: []route.RouteUnit{
				route.NewRouteUnit("ds_0", route.RouteMapper{Logic: "t_order", Actual: "t_order_0"}),
				route.NewRouteUnit("ds_0", route.RouteMapper{Logic: "t_order", Actual: "t_order_1"}),
				route.NewRouteUnit("ds_1", route.RouteMapper{Logic: "t_order", Actual: "t_order_0"}),
				route.NewRouteUnit("ds_1", route.RouteMapper{Logic: "t_order", Actual: "t_order_1"}),
			},
		},
		{
			name: "contradicting predicates",
			stmt: &statement.Context{
				Kind:   statement.KindSelect,
				Tables: tables("t_order"),
				Where:  []statement.Predicate{eq("", "order_id", "1"), eq("", "order_id", "2")},
			},
			typ:   route.RouteTypeUnicast,
			units: []route.RouteUnit{route.NewRouteUnit("ds_0", route.RouteMapper{Logic: "t_order", Actual: "t_order_0"})},
		},
	} {
		rc, err := routeStmt(t, r, tt.stmt, nil)
		if tt.code != "" {
			assert.Error(err, tt.name)
			assert.Equal(tt.code, pipeerror.Code(err), tt.name)
			continue
		}
		assert.NoError(err, tt.name)
		assert.Equal(tt.typ, rc.Type, tt.name)
		assert.Equal(tt.units, rc.Units, tt.name)
	}
}

func TestUnicastSticksToSession(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()
	sess := session.NewSession()

	show := &statement.Context{Kind: statement.KindDAL, DAL: statement.DALShow}
	rc, err := routeStmt(t, r, show, sess)
	assert.NoError(err)
	assert.Equal([]string{"ds_0"}, rc.DataSourceNames())

	ds, ok := sess.StickyDataSource()
	assert.True(ok)
	assert.Equal("ds_0", ds)

	sess.Unbind()
	sess.BindDataSource("ds_1")
	for i := 0; i < 5; i++ {
		rc, err = routeStmt(t, r, show, sess)
		assert.NoError(err)
		assert.Equal([]string{"ds_1"}, rc.DataSourceNames())

		rc, err = routeStmt(t, r, &statement.Context{
			Kind:   statement.KindSelect,
			Tables: []statement.TableSegment{{Name: "t_config"}},
		}, sess)
		assert.NoError(err)
		assert.Equal([]string{"ds_1"}, rc.DataSourceNames())
	}
}

func TestHintedDataSource(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()
	stmt := &statement.Context{
		Kind:   statement.KindSelect,
		Tables: []statement.TableSegment{{Name: "t_order"}},
	}

	rc, err := route.NewEngine(r).Route(stmt, &condition.Conditions{DataSource: "ds_1"}, nil)
	assert.NoError(err)
	assert.Equal(route.RouteTypeHint, rc.Type)
	assert.Equal([]route.RouteUnit{route.NewRouteUnit("ds_1")}, rc.Units)

	_, err = route.NewEngine(r).Route(stmt, &condition.Conditions{DataSource: "ds_9"}, nil)
	assert.Error(err)
	assert.Equal(pipeerror.PIPE_HINT_ERROR, pipeerror.Code(err))
}
