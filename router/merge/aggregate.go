package merge

import (
	"strconv"

	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
)

type aggregator interface {
	add(row []any) error
	// result writes the aggregate into row.
	result(row []any)
}

func newAggregator(c aggregateColumn) aggregator {
	switch c.typ {
	case statement.AggregationCount, statement.AggregationSum:
		return &sumAggregator{col: c}
	case statement.AggregationMin:
		return &extremeAggregator{col: c, sign: -1}
	case statement.AggregationMax:
		return &extremeAggregator{col: c, sign: 1}
	case statement.AggregationAvg:
		return &avgAggregator{col: c}
	}
	return &sumAggregator{col: c}
}

// numeric converts a driver value into int64 or float64.
func numeric(v any) (any, error) {
	v = engine.Normalize(v)
	switch n := v.(type) {
	case nil, int64, float64:
		return n, nil
	case []byte:
		return numeric(string(n))
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, nil
		}
	}
	return nil, pipeerror.Newf(pipeerror.PIPE_MERGE_ERROR, "cannot aggregate value %v of type %T", v, v)
}

func add(l, r any) (any, error) {
	l, err := numeric(l)
	if err != nil {
		return nil, err
	}
	r, err = numeric(r)
	if err != nil {
		return nil, err
	}
	switch {
	case l == nil:
		return r, nil
	case r == nil:
		return l, nil
	}
	li, lok := l.(int64)
	ri, rok := r.(int64)
	if lok && rok {
		return li + ri, nil
	}
	return toFloat(l) + toFloat(r), nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// sumAggregator merges COUNT and SUM: both add up unit values.
type sumAggregator struct {
	col aggregateColumn
	acc any
}

func (a *sumAggregator) add(row []any) error {
	v, err := add(a.acc, row[a.col.index])
	if err != nil {
		return err
	}
	a.acc = v
	return nil
}

func (a *sumAggregator) result(row []any) {
	if a.acc == nil && a.col.typ == statement.AggregationCount {
		row[a.col.index] = int64(0)
		return
	}
	row[a.col.index] = a.acc
}

type extremeAggregator struct {
	col  aggregateColumn
	sign int
	acc  any
}

func (a *extremeAggregator) add(row []any) error {
	v := row[a.col.index]
	if v == nil {
		return nil
	}
	if a.acc == nil {
		a.acc = v
		return nil
	}
	c, err := engine.Compare(v, a.acc)
	if err != nil {
		return pipeerror.Newf(pipeerror.PIPE_MERGE_ERROR, "%s", err)
	}
	if c*a.sign > 0 {
		a.acc = v
	}
	return nil
}

func (a *extremeAggregator) result(row []any) {
	row[a.col.index] = a.acc
}

type avgAggregator struct {
	col   aggregateColumn
	count any
	sum   any
}

func (a *avgAggregator) add(row []any) error {
	if a.col.countIndex < 0 || a.col.sumIndex < 0 {
		return pipeerror.New(pipeerror.PIPE_MERGE_ERROR, "average cannot be merged without derived count and sum")
	}
	var err error
	if a.count, err = add(a.count, row[a.col.countIndex]); err != nil {
		return err
	}
	a.sum, err = add(a.sum, row[a.col.sumIndex])
	return err
}

func (a *avgAggregator) result(row []any) {
	if a.col.countIndex >= 0 {
		row[a.col.countIndex] = a.count
		row[a.col.sumIndex] = a.sum
	}
	if a.count == nil || a.sum == nil || toFloat(a.count) == 0 {
		row[a.col.index] = nil
		return
	}
	row[a.col.index] = toFloat(a.sum) / toFloat(a.count)
}
