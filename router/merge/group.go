package merge

import (
	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
)

type aggregateColumn struct {
	typ   statement.AggregationType
	index int
	// AVG is computed from the derived count and sum columns.
	countIndex int
	sumIndex   int
}

type group struct {
	row        []any
	aggregates []aggregator
}

// groupSource buffers every unit row, folds rows into groups in order of
// first appearance and sorts the groups by ORDER BY.
type groupSource struct {
	rows [][]any
	pos  int
}

func newGroupSource(results []resultset.QueryResult, mctx *Context, width, visible int) (*groupSource, error) {
	groupIdx, err := mctx.groupIndexes(visible)
	if err != nil {
		return nil, err
	}
	orderKeys, err := mctx.orderKeys(visible)
	if err != nil {
		return nil, err
	}

	var aggs []aggregateColumn
	for i, p := range mctx.Stmt.Projections {
		if p.Aggregation == statement.AggregationNone || i >= visible {
			continue
		}
		aggs = append(aggs, aggregateColumn{
			typ:        p.Aggregation,
			index:      i,
			countIndex: mctx.derivedColumn(statement.DerivedAvgCount, i, visible),
			sumIndex:   mctx.derivedColumn(statement.DerivedAvgSum, i, visible),
		})
	}

	groups := map[string]*group{}
	var order []string
	for _, res := range results {
		rows, err := resultset.Drain(res)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			k := engine.GroupKey(row, groupIdx)
			g, ok := groups[k]
			if !ok {
				g = &group{row: row}
				for _, a := range aggs {
					g.aggregates = append(g.aggregates, newAggregator(a))
				}
				groups[k] = g
				order = append(order, k)
			}
			for _, a := range g.aggregates {
				if err := a.add(row); err != nil {
					return nil, err
				}
			}
		}
	}

	s := &groupSource{}
	if len(order) == 0 && len(mctx.Stmt.GroupBy) == 0 {
		// aggregates over no rows still produce one row
		row := make([]any, width)
		for _, a := range aggs {
			if a.typ == statement.AggregationCount {
				row[a.index] = int64(0)
			}
		}
		s.rows = append(s.rows, row)
		return s, nil
	}

	for _, k := range order {
		g := groups[k]
		for _, a := range g.aggregates {
			a.result(g.row)
		}
		s.rows = append(s.rows, g.row)
	}
	if len(orderKeys) > 0 {
		if err := engine.SortRows(s.rows, orderKeys, &engine.ValueOperator{}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *groupSource) next() (bool, error) {
	if s.pos >= len(s.rows) {
		return false, nil
	}
	s.pos++
	return true, nil
}

func (s *groupSource) row() []any {
	if s.pos == 0 || s.pos > len(s.rows) {
		return nil
	}
	return s.rows[s.pos-1]
}
