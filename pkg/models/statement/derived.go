package statement

import (
	"fmt"
	"strings"
)

type DerivedKind int

const (
	DerivedAvgCount = DerivedKind(iota)
	DerivedAvgSum
	DerivedOrderBy
	DerivedGroupBy
)

const (
	AvgDerivedCountPrefix = "AVG_DERIVED_COUNT_"
	AvgDerivedSumPrefix   = "AVG_DERIVED_SUM_"
	OrderByDerivedPrefix  = "ORDER_BY_DERIVED_"
	GroupByDerivedPrefix  = "GROUP_BY_DERIVED_"
)

// DerivedProjection is a column a multi-unit query needs for merging but
// the client did not select. Source is the AVG projection index for AVG
// parts and the ORDER BY or GROUP BY item index otherwise.
type DerivedProjection struct {
	Kind       DerivedKind
	Expression string
	Alias      string
	Source     int
}

func (d DerivedProjection) String() string {
	return fmt.Sprintf("%s AS %s", d.Expression, d.Alias)
}

// DerivedProjections returns the derived columns in the order they follow
// the select list: AVG parts, then ORDER BY, then GROUP BY expressions.
// A GROUP BY expression already derived for ORDER BY is not repeated.
func (c *Context) DerivedProjections() []DerivedProjection {
	if c.Kind != KindSelect {
		return nil
	}
	var res []DerivedProjection
	avg := 0
	for i, p := range c.Projections {
		if p.Aggregation != AggregationAvg || p.Distinct {
			continue
		}
		res = append(res,
			DerivedProjection{Kind: DerivedAvgCount, Expression: "COUNT(" + p.Argument + ")", Alias: fmt.Sprintf("%s%d", AvgDerivedCountPrefix, avg), Source: i},
			DerivedProjection{Kind: DerivedAvgSum, Expression: "SUM(" + p.Argument + ")", Alias: fmt.Sprintf("%s%d", AvgDerivedSumPrefix, avg), Source: i},
		)
		avg++
	}

	seen := map[string]struct{}{}
	for i, o := range c.OrderBy {
		if o.Index >= 0 {
			continue
		}
		k := strings.ToLower(o.Expression)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, DerivedProjection{Kind: DerivedOrderBy, Expression: o.Expression, Alias: fmt.Sprintf("%s%d", OrderByDerivedPrefix, i), Source: i})
	}
	for i, g := range c.GroupBy {
		if g.Index >= 0 {
			continue
		}
		k := strings.ToLower(g.Expression)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, DerivedProjection{Kind: DerivedGroupBy, Expression: g.Expression, Alias: fmt.Sprintf("%s%d", GroupByDerivedPrefix, i), Source: i})
	}
	return res
}

// DerivedIndex returns the position among derived projections of the
// unprojected ORDER BY or GROUP BY expression, or -1.
func DerivedIndex(derived []DerivedProjection, expression string) int {
	for i, d := range derived {
		if (d.Kind == DerivedOrderBy || d.Kind == DerivedGroupBy) && strings.EqualFold(d.Expression, expression) {
			return i
		}
	}
	return -1
}
