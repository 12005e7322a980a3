package rewrite

import (
	"math"

	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/router/route"
)

// ParameterBuilder returns the parameters of one unit. Every call returns
// a fresh slice.
type ParameterBuilder interface {
	Build(unit *route.RouteUnit) []any
}

// StandardParameterBuilder copies the original parameters and applies
// replacements by index.
type StandardParameterBuilder struct {
	params       []any
	replacements map[int]any
}

var _ ParameterBuilder = &StandardParameterBuilder{}

func NewStandardParameterBuilder(params []any) *StandardParameterBuilder {
	return &StandardParameterBuilder{params: params, replacements: map[int]any{}}
}

func (b *StandardParameterBuilder) Replace(idx int, v any) {
	b.replacements[idx] = v
}

func (b *StandardParameterBuilder) Build(*route.RouteUnit) []any {
	res := make([]any, len(b.params))
	copy(res, b.params)
	for idx, v := range b.replacements {
		if idx >= 0 && idx < len(res) {
			res[idx] = v
		}
	}
	return res
}

// ParameterGroup holds the parameters of one VALUES row.
type ParameterGroup struct {
	Params []any
	Key    any
	HasKey bool
	Nodes  []rule.DataNode
}

// GroupedParameterBuilder keeps only the rows a unit inserts, each
// followed by its generated key.
type GroupedParameterBuilder struct {
	Before []any
	Groups []ParameterGroup
	After  []any
}

var _ ParameterBuilder = &GroupedParameterBuilder{}

func (b *GroupedParameterBuilder) Build(unit *route.RouteUnit) []any {
	res := make([]any, 0, len(b.Before)+len(b.After)+len(b.Groups))
	res = append(res, b.Before...)
	for _, g := range b.Groups {
		v := InsertValue{Nodes: g.Nodes}
		if !v.belongsTo(unit) {
			continue
		}
		res = append(res, g.Params...)
		if g.HasKey {
			res = append(res, g.Key)
		}
	}
	return append(res, b.After...)
}

func newParameterBuilder(ctx *Context) (ParameterBuilder, error) {
	if ins := ctx.Stmt.Insert; ctx.Stmt.Kind == statement.KindInsert && ins != nil && len(ins.Rows) > 0 {
		return newGroupedParameterBuilder(ctx), nil
	}

	b := NewStandardParameterBuilder(ctx.Params)
	p := ctx.Stmt.Pagination
	if !ctx.multiUnit() || p == nil {
		return b, nil
	}
	if p.Offset != nil && p.Offset.IsParam {
		b.Replace(p.Offset.Param, int64(0))
	}
	if p.RowCount != nil && p.RowCount.IsParam {
		n, err := unitRowCount(ctx.Stmt, ctx.Params)
		if err != nil {
			return nil, err
		}
		b.Replace(p.RowCount.Param, n)
	}
	return b, nil
}

func newGroupedParameterBuilder(ctx *Context) *GroupedParameterBuilder {
	ins := ctx.Stmt.Insert
	inRows := map[int]struct{}{}
	first := math.MaxInt
	b := &GroupedParameterBuilder{}

	for i, row := range ins.Rows {
		g := ParameterGroup{}
		for _, op := range row.Values {
			if op.Kind != statement.OperandParam {
				continue
			}
			inRows[op.Index] = struct{}{}
			first = min(first, op.Index)
			if op.Index < len(ctx.Params) {
				g.Params = append(g.Params, ctx.Params[op.Index])
			}
		}
		if ctx.generatedKey() && row.HasParams() && i < len(ctx.Key.Values) {
			g.Key = ctx.Key.Values[i]
			g.HasKey = true
		}
		if ctx.Route != nil && i < len(ctx.Route.OriginalDataNodes) {
			g.Nodes = ctx.Route.OriginalDataNodes[i]
		}
		b.Groups = append(b.Groups, g)
	}

	for i, p := range ctx.Params {
		if _, ok := inRows[i]; ok {
			continue
		}
		if i < first {
			b.Before = append(b.Before, p)
		} else {
			b.After = append(b.After, p)
		}
	}
	return b
}
