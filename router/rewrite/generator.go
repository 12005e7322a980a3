package rewrite

import (
	"math"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/router/keygen"
	"github.com/pg-sharding/shardpipe/router/route"
)

// Context is the read-only input of token generators.
type Context struct {
	Stmt   *statement.Context
	Params []any
	Route  *route.RouteContext
	Key    *keygen.GeneratedKey
}

func (c *Context) multiUnit() bool {
	return c.Route != nil && len(c.Route.Units) > 1
}

func (c *Context) generatedKey() bool {
	return c.Key != nil && c.Key.Generated && c.Stmt.Insert != nil
}

// Generator returns the tokens of one rewrite concern.
type Generator func(ctx *Context) ([]Token, error)

// DefaultGenerators lists generators in the order their tokens win on
// identical spans.
func DefaultGenerators() []Generator {
	return []Generator{
		tableTokens,
		indexTokens,
		projectionsTokens,
		offsetTokens,
		rowCountTokens,
		generatedKeyColumnTokens,
		insertValuesTokens,
	}
}

func tableTokens(ctx *Context) ([]Token, error) {
	var res []Token
	for _, t := range ctx.Stmt.Tables {
		res = append(res, NewTableToken(t.Start, t.Stop, t.Name))
	}
	return res, nil
}

func indexTokens(ctx *Context) ([]Token, error) {
	var res []Token
	for _, idx := range ctx.Stmt.Indexes {
		if idx.Table == "" {
			continue
		}
		res = append(res, NewIndexToken(idx.Start, idx.Stop, idx.Name, idx.Table))
	}
	return res, nil
}

func projectionsTokens(ctx *Context) ([]Token, error) {
	if !ctx.multiUnit() || ctx.Stmt.Kind != statement.KindSelect {
		return nil, nil
	}
	derived := ctx.Stmt.DerivedProjections()
	if len(derived) == 0 {
		return nil, nil
	}
	items := make([]string, 0, len(derived))
	for _, d := range derived {
		items = append(items, d.String())
	}
	return []Token{&ProjectionsToken{span: insertAt(ctx.Stmt.ProjectionsStop + 1), Items: items}}, nil
}

// unitRowCount is the row count every unit has to return for the merged
// result to be paginated correctly.
func unitRowCount(stmt *statement.Context, params []any) (int64, error) {
	if (len(stmt.GroupBy) > 0 || stmt.HasAggregation()) && !stmt.SameGroupByAndOrderBy() {
		return math.MaxInt64, nil
	}
	offset, err := stmt.Pagination.Offset.Resolve(params)
	if err != nil {
		return 0, err
	}
	rowCount, err := stmt.Pagination.RowCount.Resolve(params)
	if err != nil {
		return 0, err
	}
	if offset > math.MaxInt64-rowCount {
		return math.MaxInt64, nil
	}
	return offset + rowCount, nil
}

func offsetTokens(ctx *Context) ([]Token, error) {
	p := ctx.Stmt.Pagination
	if !ctx.multiUnit() || p == nil || p.Offset == nil || p.Offset.IsParam {
		return nil, nil
	}
	return []Token{&OffsetToken{span: span{p.Offset.Start, p.Offset.Stop}, Value: 0}}, nil
}

func rowCountTokens(ctx *Context) ([]Token, error) {
	p := ctx.Stmt.Pagination
	if !ctx.multiUnit() || p == nil || p.RowCount == nil || p.RowCount.IsParam {
		return nil, nil
	}
	n, err := unitRowCount(ctx.Stmt, ctx.Params)
	if err != nil {
		return nil, err
	}
	return []Token{&RowCountToken{span: span{p.RowCount.Start, p.RowCount.Stop}, Value: n}}, nil
}

func generatedKeyColumnTokens(ctx *Context) ([]Token, error) {
	if !ctx.generatedKey() {
		return nil, nil
	}
	if len(ctx.Stmt.Insert.Columns) == 0 {
		return nil, pipeerror.Newf(pipeerror.PIPE_NOT_IMPLEMENTED,
			"insert without column list cannot get generated column \"%s\"", ctx.Key.Column)
	}
	return []Token{&GeneratedKeyColumnToken{span: insertAt(ctx.Stmt.Insert.ColumnsStop + 1), Column: ctx.Key.Column}}, nil
}

func insertValuesTokens(ctx *Context) ([]Token, error) {
	ins := ctx.Stmt.Insert
	if ctx.Stmt.Kind != statement.KindInsert || ins == nil || len(ins.Rows) == 0 {
		return nil, nil
	}
	if !ctx.generatedKey() && !ctx.multiUnit() {
		return nil, nil
	}

	tok := &InsertValuesToken{span: span{ins.Rows[0].Start, ins.Rows[len(ins.Rows)-1].Stop}}
	for i, row := range ins.Rows {
		v := InsertValue{
			Text:      ctx.Stmt.SQL[row.Start : row.Stop+1],
			HasParams: row.HasParams(),
		}
		if ctx.generatedKey() && i < len(ctx.Key.Values) {
			v.Key = ctx.Key.Values[i]
		}
		if ctx.Route != nil && i < len(ctx.Route.OriginalDataNodes) {
			v.Nodes = ctx.Route.OriginalDataNodes[i]
		}
		tok.Rows = append(tok.Rows, v)
	}
	return []Token{tok}, nil
}
