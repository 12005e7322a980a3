package strategy

import (
	"fmt"
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

const (
	TypeStandard = "standard"
	TypeComplex  = "complex"
	TypeHint     = "hint"
	TypeNone     = "none"
)

// ColumnValue is what was extracted for one sharding column: either a list
// of precise values (equals, IN) or a range.
type ColumnValue struct {
	Values []any
	Range  *algorithm.Range
}

// ShardingValues is the input of one Route call. Columns without any
// extracted value are absent from the map.
type ShardingValues struct {
	Columns map[string]ColumnValue
	Hint    []any
}

// Strategy selects targets (data sources or physical tables) for a table.
type Strategy interface {
	Type() string
	Columns() []string
	Route(table string, targets []string, values ShardingValues) ([]string, error)
}

func routingError(table, column string, value any, cause error) error {
	return pipeerror.Newf(pipeerror.PIPE_ROUTING_ERROR,
		"table \"%s\" column \"%s\" value %v: %s", table, column, value, cause)
}

// ordered returns chosen filtered to and ordered like targets. A chosen
// name outside targets is reported.
func ordered(table, column string, targets []string, chosen []string) ([]string, error) {
	set := make(map[string]struct{}, len(chosen))
	for _, c := range chosen {
		set[strings.ToLower(c)] = struct{}{}
	}
	res := make([]string, 0, len(chosen))
	for _, t := range targets {
		if _, ok := set[strings.ToLower(t)]; ok {
			res = append(res, t)
			delete(set, strings.ToLower(t))
		}
	}
	for c := range set {
		return nil, routingError(table, column, c, fmt.Errorf("algorithm returned unknown target \"%s\"", c))
	}
	return res, nil
}

type Standard struct {
	column string
	alg    algorithm.StandardAlgorithm
}

var _ Strategy = &Standard{}

func NewStandard(column string, alg algorithm.StandardAlgorithm) *Standard {
	return &Standard{column: column, alg: alg}
}

func (s *Standard) Type() string      { return TypeStandard }
func (s *Standard) Columns() []string { return []string{s.column} }

func (s *Standard) Route(table string, targets []string, values ShardingValues) ([]string, error) {
	cv, ok := values.Columns[s.column]
	if !ok {
		return targets, nil
	}
	if cv.Range != nil {
		chosen, err := s.alg.DoRangeSharding(targets, algorithm.RangeValue{Table: table, Column: s.column, Range: *cv.Range})
		if err != nil {
			return nil, routingError(table, s.column, *cv.Range, err)
		}
		return ordered(table, s.column, targets, chosen)
	}

	chosen := make([]string, 0, len(cv.Values))
	for _, v := range cv.Values {
		t, err := s.alg.DoSharding(targets, algorithm.PreciseValue{Table: table, Column: s.column, Value: v})
		if err != nil {
			return nil, routingError(table, s.column, v, err)
		}
		if !containsFold(targets, t) {
			return nil, routingError(table, s.column, v, fmt.Errorf("algorithm returned unknown target \"%s\"", t))
		}
		chosen = append(chosen, t)
	}
	return ordered(table, s.column, targets, chosen)
}

type Complex struct {
	columns []string
	alg     algorithm.ComplexAlgorithm
}

var _ Strategy = &Complex{}

func NewComplex(columns []string, alg algorithm.ComplexAlgorithm) *Complex {
	return &Complex{columns: columns, alg: alg}
}

func (s *Complex) Type() string      { return TypeComplex }
func (s *Complex) Columns() []string { return s.columns }

func (s *Complex) Route(table string, targets []string, values ShardingValues) ([]string, error) {
	cv := algorithm.ComplexValues{
		Table:  table,
		Values: map[string][]any{},
		Ranges: map[string]algorithm.Range{},
	}
	for _, col := range s.columns {
		v, ok := values.Columns[col]
		if !ok {
			continue
		}
		if v.Range != nil {
			cv.Ranges[col] = *v.Range
		} else {
			cv.Values[col] = v.Values
		}
	}
	if len(cv.Values) == 0 && len(cv.Ranges) == 0 {
		return targets, nil
	}
	chosen, err := s.alg.DoComplexSharding(targets, cv)
	if err != nil {
		return nil, routingError(table, strings.Join(s.columns, ","), cv.Values, err)
	}
	return ordered(table, strings.Join(s.columns, ","), targets, chosen)
}

type Hint struct {
	alg algorithm.HintAlgorithm
}

var _ Strategy = &Hint{}

func NewHint(alg algorithm.HintAlgorithm) *Hint {
	return &Hint{alg: alg}
}

func (s *Hint) Type() string      { return TypeHint }
func (s *Hint) Columns() []string { return nil }

func (s *Hint) Route(table string, targets []string, values ShardingValues) ([]string, error) {
	if len(values.Hint) == 0 {
		return targets, nil
	}
	chosen, err := s.alg.DoHintSharding(targets, algorithm.HintValues{Table: table, Values: values.Hint})
	if err != nil {
		return nil, routingError(table, "<hint>", values.Hint, err)
	}
	return ordered(table, "<hint>", targets, chosen)
}

// None routes to every target.
type None struct{}

var _ Strategy = None{}

func (None) Type() string      { return TypeNone }
func (None) Columns() []string { return nil }

func (None) Route(_ string, targets []string, _ ShardingValues) ([]string, error) {
	return targets, nil
}

func containsFold(targets []string, t string) bool {
	for _, x := range targets {
		if strings.EqualFold(x, t) {
			return true
		}
	}
	return false
}
