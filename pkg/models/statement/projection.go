package statement

import (
	"math"
	"strconv"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

type AggregationType int

const (
	AggregationNone = AggregationType(iota)
	AggregationCount
	AggregationSum
	AggregationAvg
	AggregationMin
	AggregationMax
)

func (a AggregationType) String() string {
	switch a {
	case AggregationCount:
		return "COUNT"
	case AggregationSum:
		return "SUM"
	case AggregationAvg:
		return "AVG"
	case AggregationMin:
		return "MIN"
	case AggregationMax:
		return "MAX"
	}
	return ""
}

// Projection is one select-list item. Argument is the aggregate's inner
// expression text, e.g. "price" for AVG(price).
type Projection struct {
	Expression  string          `json:"expression" yaml:"expression"`
	Alias       string          `json:"alias,omitempty" yaml:"alias"`
	Aggregation AggregationType `json:"aggregation,omitempty" yaml:"aggregation"`
	Distinct    bool            `json:"distinct,omitempty" yaml:"distinct"`
	Argument    string          `json:"argument,omitempty" yaml:"argument"`
	Start       int             `json:"start" yaml:"start"`
	Stop        int             `json:"stop" yaml:"stop"`
}

// OrderByItem is one ORDER BY or GROUP BY item. Index is the 0-based
// projection it refers to, -1 when the expression is not projected.
type OrderByItem struct {
	Expression string `json:"expression" yaml:"expression"`
	Index      int    `json:"index" yaml:"index"`
	Desc       bool   `json:"desc,omitempty" yaml:"desc"`
	NullsFirst bool   `json:"nulls_first,omitempty" yaml:"nulls_first"`
}

// PaginationValue is either a literal or a parameter marker.
type PaginationValue struct {
	Literal int64 `json:"literal,omitempty" yaml:"literal"`
	Param   int   `json:"param,omitempty" yaml:"param"`
	IsParam bool  `json:"is_param,omitempty" yaml:"is_param"`
	Start   int   `json:"start" yaml:"start"`
	Stop    int   `json:"stop" yaml:"stop"`
}

type Pagination struct {
	Offset   *PaginationValue `json:"offset,omitempty" yaml:"offset"`
	RowCount *PaginationValue `json:"row_count,omitempty" yaml:"row_count"`
}

// Resolve returns the literal or the bound parameter value. A nil value
// resolves to zero.
func (v *PaginationValue) Resolve(params []any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsParam {
		return v.Literal, nil
	}
	if v.Param < 0 || v.Param >= len(params) {
		return 0, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "pagination parameter %d is out of range", v.Param)
	}
	switch n := params[v.Param].(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), nil
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "pagination parameter %d is not an integer: %v", v.Param, params[v.Param])
}
