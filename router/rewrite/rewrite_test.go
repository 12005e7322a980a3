package rewrite_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/rule/ruletest"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/router/condition"
	"github.com/pg-sharding/shardpipe/router/keygen"
	"github.com/pg-sharding/shardpipe/router/rewrite"
	"github.com/pg-sharding/shardpipe/router/route"
	"github.com/stretchr/testify/assert"
	"github.com/xwb1989/sqlparser"
)

func orderUnit(ds, table string) route.RouteUnit {
	return route.NewRouteUnit(ds, route.RouteMapper{Logic: "t_order", Actual: table})
}

func routeContext(units ...route.RouteUnit) *route.RouteContext {
	rc := route.NewRouteContext(route.RouteTypeStandard)
	for _, u := range units {
		rc.Add(u)
	}
	return rc
}

func TestRenderCollapsesDuplicateSpans(t *testing.T) {
	assert := assert.New(t)

	sql := "SELECT * FROM tbl WHERE id=?"
	tokens := []rewrite.Token{
		rewrite.NewLiteralToken(14, 16, "XXX"),
		rewrite.NewLiteralToken(14, 16, "YYY"),
	}
	assert.Equal("SELECT * FROM XXX WHERE id=?", rewrite.Render(sql, tokens, nil))
	assert.Len(rewrite.SortTokens(tokens), 1)
}

func TestRenderTableToken(t *testing.T) {
	assert := assert.New(t)

	sql := "SELECT * FROM tbl WHERE id=?"
	tokens := []rewrite.Token{rewrite.NewTableToken(14, 16, "tbl")}

	unit := route.NewRouteUnit("ds_0", route.RouteMapper{Logic: "tbl", Actual: "tbl_0"})
	assert.Equal("SELECT * FROM tbl_0 WHERE id=?", rewrite.Render(sql, tokens, &unit))

	other := route.NewRouteUnit("ds_1")
	assert.Equal(sql, rewrite.Render(sql, tokens, &other))
}

func TestRenderKeepsGapsAndOrder(t *testing.T) {
	assert := assert.New(t)

	sql := "SELECT a FROM t1 JOIN t2"
	tokens := []rewrite.Token{
		rewrite.NewLiteralToken(22, 23, "y"),
		rewrite.NewLiteralToken(14, 15, "x"),
		rewrite.NewLiteralToken(8, 7, ", b"),
	}
	assert.Equal("SELECT a, b FROM x JOIN y", rewrite.Render(sql, tokens, nil))
}

func TestRenderSkipsTokensPastEnd(t *testing.T) {
	assert := assert.New(t)

	sql := "SELECT * FROM tbl"
	unit := route.NewRouteUnit("ds_0", route.RouteMapper{Logic: "tbl", Actual: "tbl_0"})

	type tcase struct {
		tokens []rewrite.Token
		exp    string
	}
	for _, tt := range []tcase{
		{tokens: []rewrite.Token{rewrite.NewTableToken(14, 20, "tbl")}, exp: sql},
		{tokens: []rewrite.Token{rewrite.NewTableToken(14, 17, "tbl")}, exp: sql},
		{tokens: []rewrite.Token{rewrite.NewTableToken(14, 16, "tbl")}, exp: "SELECT * FROM tbl_0"},
		{tokens: []rewrite.Token{rewrite.NewLiteralToken(17, 16, " LIMIT 1")}, exp: "SELECT * FROM tbl LIMIT 1"},
		{tokens: []rewrite.Token{rewrite.NewTableToken(14, 16, "tbl"), rewrite.NewLiteralToken(15, 30, "x")}, exp: "SELECT * FROM tbl_0"},
	} {
		assert.NotPanics(func() {
			assert.Equal(tt.exp, rewrite.Render(sql, tt.tokens, &unit))
		})
	}
}

func aggregateSelect() *statement.Context {
	return &statement.Context{
		Kind:   statement.KindSelect,
		SQL:    "SELECT user_id, AVG(price) FROM t_order GROUP BY user_id ORDER BY created_at LIMIT 10 OFFSET 5",
		Tables: []statement.TableSegment{{Name: "t_order", Start: 32, Stop: 38}},
		Projections: []statement.Projection{
			{Expression: "user_id", Start: 7, Stop: 13},
			{Expression: "AVG(price)", Aggregation: statement.AggregationAvg, Argument: "price", Start: 16, Stop: 25},
		},
		ProjectionsStop: 25,
		GroupBy:         []statement.OrderByItem{{Expression: "user_id", Index: 0}},
		OrderBy:         []statement.OrderByItem{{Expression: "created_at", Index: -1}},
		Pagination: &statement.Pagination{
			RowCount: &statement.PaginationValue{Literal: 10, Start: 83, Stop: 84},
			Offset:   &statement.PaginationValue{Literal: 5, Start: 93, Stop: 93},
		},
	}
}

func TestRewriteMultiUnitSelect(t *testing.T) {
	assert := assert.New(t)
	stmt := aggregateSelect()

	res, err := rewrite.NewEngine().Rewrite(stmt, nil, routeContext(orderUnit("ds_0", "t_order_0"), orderUnit("ds_1", "t_order_1")), nil)
	assert.NoError(err)
	assert.Len(res.Units, 2)

	derived := "COUNT(price) AS AVG_DERIVED_COUNT_0, SUM(price) AS AVG_DERIVED_SUM_0, created_at AS ORDER_BY_DERIVED_0"
	limit := strconv.FormatInt(math.MaxInt64, 10)
	assert.Equal("SELECT user_id, AVG(price), "+derived+" FROM t_order_0 GROUP BY user_id ORDER BY created_at LIMIT "+limit+" OFFSET 0", res.Units[0].SQL)
	assert.Equal("SELECT user_id, AVG(price), "+derived+" FROM t_order_1 GROUP BY user_id ORDER BY created_at LIMIT "+limit+" OFFSET 0", res.Units[1].SQL)
	assert.Equal("ds_1", res.Units[1].RouteUnit.DataSource.Actual)

	for _, u := range res.Units {
		_, err := sqlparser.Parse(u.SQL)
		assert.NoError(err, u.SQL)
	}
}

func TestRewriteSingleUnitKeepsPagination(t *testing.T) {
	assert := assert.New(t)
	stmt := aggregateSelect()

	res, err := rewrite.NewEngine().Rewrite(stmt, nil, routeContext(orderUnit("ds_0", "t_order_0")), nil)
	assert.NoError(err)
	assert.Equal([]rewrite.Unit{{
		RouteUnit: orderUnit("ds_0", "t_order_0"),
		SQL:       "SELECT user_id, AVG(price) FROM t_order_0 GROUP BY user_id ORDER BY created_at LIMIT 10 OFFSET 5",
		Params:    []any{},
	}}, res.Units)
}

func TestRewritePaginationParameters(t *testing.T) {
	assert := assert.New(t)

	stmt := &statement.Context{
		Kind:            statement.KindSelect,
		SQL:             "SELECT * FROM t_order o WHERE o.user_id = ? ORDER BY order_id LIMIT ? OFFSET ?",
		Tables:          []statement.TableSegment{{Name: "t_order", Alias: "o", Start: 14, Stop: 20}},
		Projections:     []statement.Projection{{Expression: "*", Start: 7, Stop: 7}},
		ProjectionsStop: 7,
		OrderBy:         []statement.OrderByItem{{Expression: "order_id", Index: 0}},
		Pagination: &statement.Pagination{
			RowCount: &statement.PaginationValue{IsParam: true, Param: 1},
			Offset:   &statement.PaginationValue{IsParam: true, Param: 2},
		},
	}
	params := []any{int64(7), 10, 5}

	res, err := rewrite.NewEngine().Rewrite(stmt, params, routeContext(orderUnit("ds_1", "t_order_0"), orderUnit("ds_1", "t_order_1")), nil)
	assert.NoError(err)
	for i, u := range res.Units {
		assert.Equal("SELECT * FROM t_order_"+strconv.Itoa(i)+" o WHERE o.user_id = ? ORDER BY order_id LIMIT ? OFFSET ?", u.SQL)
		assert.Equal([]any{int64(7), int64(15), int64(0)}, u.Params)
	}
	assert.Equal([]any{int64(7), 10, 5}, params, "original parameters are untouched")

	_, err = rewrite.NewEngine().Rewrite(stmt, []any{int64(7), "ten", 5}, routeContext(orderUnit("ds_1", "t_order_0"), orderUnit("ds_1", "t_order_1")), nil)
	assert.Error(err)
	assert.Equal(pipeerror.PIPE_INVALID_REQUEST, pipeerror.Code(err))
}

func TestRewriteInsertWithGeneratedKeys(t *testing.T) {
	assert := assert.New(t)
	r := ruletest.OrderRule()

	stmt := &statement.Context{
		Kind:   statement.KindInsert,
		SQL:    "INSERT INTO t_order (user_id, status) VALUES (?, ?), (?, 'b'), (?, ?)",
		Tables: []statement.TableSegment{{Name: "t_order", Start: 12, Stop: 18}},
		Insert: &statement.InsertClause{
			Columns:     []string{"user_id", "status"},
			ColumnsStop: 35,
			Rows: []statement.InsertRow{
				{Start: 45, Stop: 50, Values: []statement.Operand{statement.Param(0), statement.Param(1)}},
				{Start: 53, Stop: 60, Values: []statement.Operand{statement.Param(2), statement.Literal("'b'")}},
				{Start: 63, Stop: 68, Values: []statement.Operand{statement.Param(3), statement.Param(4)}},
			},
		},
	}
	params := []any{int64(1), "a", int64(1), int64(2), "c"}
	key := &keygen.GeneratedKey{Column: "order_id", Values: []any{int64(10), int64(11), int64(12)}, Generated: true}

	conds, err := condition.Extract(stmt, params, r, key, nil)
	assert.NoError(err)
	rc, err := route.NewEngine(r).Route(stmt, conds, nil)
	assert.NoError(err)

	res, err := rewrite.NewEngine().Rewrite(stmt, params, rc, key)
	assert.NoError(err)
	assert.Equal([]rewrite.Unit{
		{
			RouteUnit: orderUnit("ds_1", "t_order_0"),
			SQL:       "INSERT INTO t_order_0 (user_id, status, order_id) VALUES (?, ?, ?)",
			Params:    []any{int64(1), "a", int64(10)},
		},
		{
			RouteUnit: orderUnit("ds_1", "t_order_1"),
			SQL:       "INSERT INTO t_order_1 (user_id, status, order_id) VALUES (?, 'b', ?)",
			Params:    []any{int64(1), int64(11)},
		},
		{
			RouteUnit: orderUnit("ds_0", "t_order_0"),
			SQL:       "INSERT INTO t_order_0 (user_id, status, order_id) VALUES (?, ?, ?)",
			Params:    []any{int64(2), "c", int64(12)},
		},
	}, res.Units)

	for _, u := range res.Units {
		_, err := sqlparser.Parse(u.SQL)
		assert.NoError(err, u.SQL)
	}
}

func TestRewriteInsertLiteralsPerUnit(t *testing.T) {
	assert := assert.New(t)

	stmt := &statement.Context{
		Kind:   statement.KindInsert,
		SQL:    "INSERT INTO t_order (user_id) VALUES (1), (2)",
		Tables: []statement.TableSegment{{Name: "t_order", Start: 12, Stop: 18}},
		Insert: &statement.InsertClause{
			Columns:     []string{"user_id"},
			ColumnsStop: 27,
			Rows: []statement.InsertRow{
				{Start: 37, Stop: 39, Values: []statement.Operand{statement.Literal("1")}},
				{Start: 42, Stop: 44, Values: []statement.Operand{statement.Literal("2")}},
			},
		},
	}
	key := &keygen.GeneratedKey{Column: "order_id", Values: []any{int64(7), "k'8"}, Generated: true}

	rc := routeContext(orderUnit("ds_1", "t_order_1"), orderUnit("ds_0", "t_order_0"))
	rc.OriginalDataNodes = [][]rule.DataNode{
		{{DataSource: "ds_1", Table: "t_order_1"}},
		{{DataSource: "ds_0", Table: "t_order_0"}},
	}

	res, err := rewrite.NewEngine().Rewrite(stmt, nil, rc, key)
	assert.NoError(err)
	assert.Equal("INSERT INTO t_order_1 (user_id, order_id) VALUES (1, 7)", res.Units[0].SQL)
	assert.Equal("INSERT INTO t_order_0 (user_id, order_id) VALUES (2, 'k''8')", res.Units[1].SQL)
	assert.Empty(res.Units[0].Params)

	stmt.Insert.Columns = nil
	_, err = rewrite.NewEngine().Rewrite(stmt, nil, rc, key)
	assert.Error(err)
	assert.Equal(pipeerror.PIPE_NOT_IMPLEMENTED, pipeerror.Code(err))
}

func TestRewriteIndexName(t *testing.T) {
	assert := assert.New(t)

	stmt := &statement.Context{
		Kind:    statement.KindDDL,
		DDL:     statement.DDLIndex,
		SQL:     "CREATE INDEX idx_status ON t_order (status)",
		Tables:  []statement.TableSegment{{Name: "t_order", Start: 27, Stop: 33}},
		Indexes: []statement.IndexSegment{{Name: "idx_status", Table: "t_order", Start: 13, Stop: 22}},
	}
	res, err := rewrite.NewEngine().Rewrite(stmt, nil, routeContext(orderUnit("ds_0", "t_order_1")), nil)
	assert.NoError(err)
	assert.Equal("CREATE INDEX idx_status_t_order_1 ON t_order_1 (status)", res.Units[0].SQL)
}

func TestPassthrough(t *testing.T) {
	assert := assert.New(t)
	stmt := aggregateSelect()
	params := []any{1}

	res := rewrite.NewEngine().Passthrough(stmt, params, routeContext(orderUnit("ds_0", "t_order_0"), orderUnit("ds_1", "t_order_1")))
	assert.Len(res.Units, 2)
	for _, u := range res.Units {
		assert.Equal(stmt.SQL, u.SQL)
		assert.Equal(params, u.Params)
	}
	res.Units[0].Params[0] = 2
	assert.Equal(1, params[0])
}
