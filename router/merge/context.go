package merge

import (
	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
)

// Context is what merging needs to know about the query beyond its rows.
type Context struct {
	Stmt      *statement.Context
	UnitCount int

	// Derived lists columns appended by rewrite, they follow the visible ones.
	Derived []statement.DerivedProjection

	Paginated bool
	Offset    int64
	RowCount  int64
	// Unbounded is set when the query has OFFSET but no LIMIT.
	Unbounded bool
}

func NewContext(stmt *statement.Context, unitCount int, params []any) (*Context, error) {
	c := &Context{Stmt: stmt, UnitCount: unitCount}
	if unitCount <= 1 || stmt.Kind != statement.KindSelect {
		return c, nil
	}

	for _, p := range stmt.Projections {
		if p.Aggregation != statement.AggregationNone && p.Distinct {
			return nil, pipeerror.Newf(pipeerror.PIPE_NOT_IMPLEMENTED,
				"%s over %d data nodes cannot be merged", p.Expression, unitCount)
		}
	}
	c.Derived = stmt.DerivedProjections()

	if p := stmt.Pagination; p != nil && (p.Offset != nil || p.RowCount != nil) {
		var err error
		c.Paginated = true
		if c.Offset, err = p.Offset.Resolve(params); err != nil {
			return nil, err
		}
		if c.RowCount, err = p.RowCount.Resolve(params); err != nil {
			return nil, err
		}
		c.Unbounded = p.RowCount == nil
	}
	return c, nil
}

func (c *Context) grouped() bool {
	return len(c.Stmt.GroupBy) > 0 || c.Stmt.HasAggregation()
}

// visible returns how many leading columns of a unit row the client sees.
func (c *Context) visible(cols []string) int {
	n := len(cols) - len(c.Derived)
	if n < 0 {
		return len(cols)
	}
	return n
}

func (c *Context) itemIndex(item statement.OrderByItem, visible int) (int, error) {
	if item.Index >= 0 {
		return item.Index, nil
	}
	if d := statement.DerivedIndex(c.Derived, item.Expression); d >= 0 {
		return visible + d, nil
	}
	return 0, pipeerror.Newf(pipeerror.PIPE_MERGE_ERROR, "column \"%s\" is missing in the result", item.Expression)
}

func (c *Context) orderKeys(visible int) ([]engine.SortKey, error) {
	keys := make([]engine.SortKey, 0, len(c.Stmt.OrderBy))
	for _, o := range c.Stmt.OrderBy {
		idx, err := c.itemIndex(o, visible)
		if err != nil {
			return nil, err
		}
		keys = append(keys, engine.SortKey{Index: idx, Desc: o.Desc, NullsFirst: o.NullsFirst})
	}
	return keys, nil
}

func (c *Context) groupIndexes(visible int) ([]int, error) {
	res := make([]int, 0, len(c.Stmt.GroupBy))
	for _, g := range c.Stmt.GroupBy {
		idx, err := c.itemIndex(g, visible)
		if err != nil {
			return nil, err
		}
		res = append(res, idx)
	}
	return res, nil
}

func (c *Context) derivedColumn(kind statement.DerivedKind, source, visible int) int {
	for i, d := range c.Derived {
		if d.Kind == kind && d.Source == source {
			return visible + i
		}
	}
	return -1
}
