package condition

import (
	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/models/strategy"
)

// accumulator intersects all predicates on one column. A nil value means
// no predicate seen yet.
type accumulator struct {
	column statement.Column
	value  *strategy.ColumnValue
}

func (a *accumulator) empty() bool {
	return a.value != nil && a.value.Range == nil && len(a.value.Values) == 0
}

func (a *accumulator) intersect(v strategy.ColumnValue) error {
	if a.value == nil {
		a.value = &v
		return nil
	}
	cur := *a.value
	var res strategy.ColumnValue
	var err error

	switch {
	case cur.Range == nil && v.Range == nil:
		res.Values = make([]any, 0)
		for _, l := range cur.Values {
			for _, r := range v.Values {
				if equal(l, r) {
					res.Values = append(res.Values, l)
					break
				}
			}
		}
	case cur.Range == nil:
		res.Values, err = filterByRange(cur.Values, *v.Range)
	case v.Range == nil:
		res.Values, err = filterByRange(v.Values, *cur.Range)
	default:
		var rng *algorithm.Range
		rng, err = intersectRanges(*cur.Range, *v.Range)
		if rng != nil {
			res.Range = rng
		} else {
			res.Values = make([]any, 0)
		}
	}
	if err != nil {
		return pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "column %s: %s", a.column.Name, err)
	}
	a.value = &res
	return nil
}

func filterByRange(vals []any, rng algorithm.Range) ([]any, error) {
	res := make([]any, 0, len(vals))
	for _, v := range vals {
		ok, err := rng.Contains(v)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, v)
		}
	}
	return res, nil
}

// intersectRanges returns nil when the ranges do not overlap.
func intersectRanges(l, r algorithm.Range) (*algorithm.Range, error) {
	res := l
	if r.HasLower {
		if !res.HasLower {
			res.Lower, res.HasLower = r.Lower, true
		} else if c, err := engine.Compare(r.Lower, res.Lower); err != nil {
			return nil, err
		} else if c > 0 {
			res.Lower = r.Lower
		}
	}
	if r.HasUpper {
		if !res.HasUpper {
			res.Upper, res.HasUpper = r.Upper, true
		} else if c, err := engine.Compare(r.Upper, res.Upper); err != nil {
			return nil, err
		} else if c < 0 {
			res.Upper = r.Upper
		}
	}
	if res.HasLower && res.HasUpper {
		c, err := engine.Compare(res.Lower, res.Upper)
		if err != nil {
			return nil, err
		}
		if c > 0 {
			return nil, nil
		}
	}
	return &res, nil
}
