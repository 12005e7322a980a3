// Package rewrite renders the SQL and parameters each route unit runs.
package rewrite

import (
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/keygen"
	"github.com/pg-sharding/shardpipe/router/route"
)

// Unit is the SQL one route unit executes.
type Unit struct {
	RouteUnit route.RouteUnit `json:"route_unit"`
	SQL       string          `json:"sql"`
	Params    []any           `json:"params,omitempty"`
}

type Result struct {
	Units []Unit `json:"units"`
}

type Engine struct {
	generators []Generator
}

func NewEngine(generators ...Generator) *Engine {
	if len(generators) == 0 {
		generators = DefaultGenerators()
	}
	return &Engine{generators: generators}
}

// BuildTokens runs every generator in registration order and returns the
// tokens sorted for rendering.
func (e *Engine) BuildTokens(ctx *Context) ([]Token, error) {
	var tokens []Token
	for _, g := range e.generators {
		toks, err := g(ctx)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, toks...)
	}
	return SortTokens(tokens), nil
}

// Rewrite renders stmt for every unit of rc, in route order.
func (e *Engine) Rewrite(stmt *statement.Context, params []any, rc *route.RouteContext, key *keygen.GeneratedKey) (*Result, error) {
	ctx := &Context{Stmt: stmt, Params: params, Route: rc, Key: key}
	tokens, err := e.BuildTokens(ctx)
	if err != nil {
		return nil, err
	}
	pb, err := newParameterBuilder(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Units: make([]Unit, 0, len(rc.Units))}
	for i := range rc.Units {
		u := &rc.Units[i]
		sql := Render(stmt.SQL, tokens, u)
		res.Units = append(res.Units, Unit{RouteUnit: *u, SQL: sql, Params: pb.Build(u)})

		shardlog.Zero.Debug().
			Str("data source", u.DataSource.Actual).
			Str("sql", sql).
			Msg("rewritten statement")
	}
	return res, nil
}

// Passthrough sends the original statement to every unit unchanged.
func (e *Engine) Passthrough(stmt *statement.Context, params []any, rc *route.RouteContext) *Result {
	res := &Result{Units: make([]Unit, 0, len(rc.Units))}
	for _, u := range rc.Units {
		p := make([]any, len(params))
		copy(p, params)
		res.Units = append(res.Units, Unit{RouteUnit: u, SQL: stmt.SQL, Params: p})
	}
	return res
}
