package algorithm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/pg-sharding/shardpipe/pkg/engine"
)

// inlineFunctions are available inside ${...} expressions.
var inlineFunctions = map[string]govaluate.ExpressionFunction{
	"hashcode": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("hashcode expects one argument")
		}
		return float64(javaHashCode(fmt.Sprintf("%v", formatInlineValue(args[0]))) & 0x7FFFFFFF), nil
	},
	"mod": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("mod expects two arguments")
		}
		a, err := toInt64(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toInt64(args[1])
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, fmt.Errorf("mod by zero")
		}
		if isExactInt(args[0]) && isExactInt(args[1]) {
			return a % b, nil
		}
		return float64(a % b), nil
	},
}

// javaHashCode is String.hashCode of the JVM, kept so that expressions
// written for existing deployments route identically.
func javaHashCode(s string) int32 {
	var h int32
	for _, c := range s {
		h = 31*h + c
	}
	return h
}

type inlinePart struct {
	text string
	expr *govaluate.EvaluableExpression
}

// inlineExpr is a template like t_order_${order_id % 2}.
type inlineExpr struct {
	source string
	parts  []inlinePart
}

func compileInline(source string) (*inlineExpr, error) {
	e := &inlineExpr{source: source}
	rest := source
	for len(rest) > 0 {
		start, skip := strings.Index(rest, "${"), 2
		if alt := strings.Index(rest, "$->{"); alt >= 0 && (start < 0 || alt < start) {
			start, skip = alt, 4
		}
		if start < 0 {
			e.parts = append(e.parts, inlinePart{text: rest})
			break
		}
		if start > 0 {
			e.parts = append(e.parts, inlinePart{text: rest[:start]})
		}
		body := rest[start+skip:]
		end := matchingBrace(body)
		if end < 0 {
			return nil, fmt.Errorf("unterminated expression in \"%s\"", source)
		}
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(body[:end], inlineFunctions)
		if err != nil {
			return nil, fmt.Errorf("invalid expression \"%s\": %s", body[:end], err)
		}
		e.parts = append(e.parts, inlinePart{expr: expr})
		rest = body[end+1:]
	}
	return e, nil
}

// matchingBrace returns the index of the brace closing an already opened one.
func matchingBrace(s string) int {
	depth := 1
	var quote rune
	for i, c := range s {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (e *inlineExpr) variables() []string {
	seen := map[string]struct{}{}
	for _, p := range e.parts {
		if p.expr == nil {
			continue
		}
		for _, v := range p.expr.Vars() {
			seen[v] = struct{}{}
		}
	}
	res := make([]string, 0, len(seen))
	for v := range seen {
		res = append(res, v)
	}
	sort.Strings(res)
	return res
}

func (e *inlineExpr) eval(params map[string]any) (string, error) {
	conv := make(map[string]any, len(params))
	exact := make(map[string]int64, len(params))
	for k, v := range params {
		conv[k] = inlineParam(v)
		if n, ok := exactParam(v); ok {
			exact[k] = n
		}
	}
	var sb strings.Builder
	for _, p := range e.parts {
		if p.expr == nil {
			sb.WriteString(p.text)
			continue
		}
		// govaluate computes in float64, integer keys above 2^53 need
		// exact arithmetic.
		if n, ok, err := evalExact(p.expr.Tokens(), exact); err != nil {
			return "", fmt.Errorf("failed to evaluate \"%s\": %s", e.source, err)
		} else if ok {
			sb.WriteString(strconv.FormatInt(n, 10))
			continue
		}
		res, err := p.expr.Evaluate(conv)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate \"%s\": %s", e.source, err)
		}
		sb.WriteString(formatInlineValue(res))
	}
	return sb.String(), nil
}

func inlineParam(v any) any {
	switch n := engine.Normalize(v).(type) {
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case []byte:
		return string(n)
	default:
		return n
	}
}

func formatInlineValue(v any) string {
	switch n := v.(type) {
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	}
	return fmt.Sprintf("%v", v)
}

func pickTarget(targets []string, name string) (string, error) {
	for _, t := range targets {
		if strings.EqualFold(t, name) {
			return t, nil
		}
	}
	return "", fmt.Errorf("expression result \"%s\" matches no target among [%s]", name, strings.Join(targets, ", "))
}

// InlineAlgorithm evaluates algorithm-expression against the sharding value.
type InlineAlgorithm struct {
	expr       *inlineExpr
	allowRange bool
}

var _ StandardAlgorithm = &InlineAlgorithm{}

func NewInlineAlgorithm(props map[string]string) (any, error) {
	src, ok := props["algorithm-expression"]
	if !ok || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("property \"algorithm-expression\" is required")
	}
	expr, err := compileInline(src)
	if err != nil {
		return nil, err
	}
	return &InlineAlgorithm{
		expr:       expr,
		allowRange: boolProp(props, "allow-range-query-with-inline-sharding"),
	}, nil
}

func (a *InlineAlgorithm) DoSharding(targets []string, value PreciseValue) (string, error) {
	name, err := a.expr.eval(map[string]any{value.Column: value.Value})
	if err != nil {
		return "", err
	}
	return pickTarget(targets, name)
}

func (a *InlineAlgorithm) DoRangeSharding(targets []string, value RangeValue) ([]string, error) {
	if !a.allowRange {
		return nil, fmt.Errorf("range query on column \"%s\" is not allowed with inline sharding", value.Column)
	}
	return targets, nil
}

// ComplexInlineAlgorithm evaluates one expression over several columns,
// taking every combination of the extracted values.
type ComplexInlineAlgorithm struct {
	expr       *inlineExpr
	columns    []string
	allowRange bool
}

var _ ComplexAlgorithm = &ComplexInlineAlgorithm{}

func NewComplexInlineAlgorithm(props map[string]string) (any, error) {
	src, ok := props["algorithm-expression"]
	if !ok || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("property \"algorithm-expression\" is required")
	}
	expr, err := compileInline(src)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, c := range strings.Split(props["sharding-columns"], ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		cols = expr.variables()
	}
	return &ComplexInlineAlgorithm{
		expr:       expr,
		columns:    cols,
		allowRange: boolProp(props, "allow-range-query-with-inline-sharding"),
	}, nil
}

func (a *ComplexInlineAlgorithm) DoComplexSharding(targets []string, values ComplexValues) ([]string, error) {
	if len(values.Ranges) > 0 {
		if !a.allowRange {
			return nil, fmt.Errorf("range query is not allowed with complex inline sharding")
		}
		return targets, nil
	}
	for _, c := range a.columns {
		if len(values.Values[c]) == 0 {
			return targets, nil
		}
	}

	seen := map[string]struct{}{}
	var res []string
	var walk func(i int, params map[string]any) error
	walk = func(i int, params map[string]any) error {
		if i == len(a.columns) {
			name, err := a.expr.eval(params)
			if err != nil {
				return err
			}
			t, err := pickTarget(targets, name)
			if err != nil {
				return err
			}
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				res = append(res, t)
			}
			return nil
		}
		col := a.columns[i]
		for _, v := range values.Values[col] {
			params[col] = v
			if err := walk(i+1, params); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, map[string]any{}); err != nil {
		return nil, err
	}
	return res, nil
}

// HintInlineAlgorithm evaluates algorithm-expression over each hint value,
// exposed to the expression as "value".
type HintInlineAlgorithm struct {
	expr *inlineExpr
}

var _ HintAlgorithm = &HintInlineAlgorithm{}

func NewHintInlineAlgorithm(props map[string]string) (any, error) {
	src, ok := props["algorithm-expression"]
	if !ok || strings.TrimSpace(src) == "" {
		src = "${value}"
	}
	expr, err := compileInline(src)
	if err != nil {
		return nil, err
	}
	return &HintInlineAlgorithm{expr: expr}, nil
}

func (a *HintInlineAlgorithm) DoHintSharding(targets []string, values HintValues) ([]string, error) {
	seen := map[string]struct{}{}
	var res []string
	for _, v := range values.Values {
		name, err := a.expr.eval(map[string]any{"value": v})
		if err != nil {
			return nil, err
		}
		t, err := pickTarget(targets, name)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			res = append(res, t)
		}
	}
	return res, nil
}
