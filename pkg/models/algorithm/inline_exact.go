package algorithm

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/pg-sharding/shardpipe/pkg/engine"
)

func isExactInt(v any) bool {
	_, ok := v.(int64)
	return ok
}

func exactParam(v any) (int64, bool) {
	switch n := engine.Normalize(v).(type) {
	case int64:
		return n, true
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

// exactEvaluator walks govaluate tokens of an integer-only expression:
// integral literals, integer variables, + - * / %, unary minus,
// parentheses and function calls. Anything else reports ok == false
// and the caller falls back to govaluate.
type exactEvaluator struct {
	tokens []govaluate.ExpressionToken
	pos    int
	params map[string]int64
}

type unsupportedToken struct{}

func (unsupportedToken) Error() string { return "unsupported token" }

func evalExact(tokens []govaluate.ExpressionToken, params map[string]int64) (int64, bool, error) {
	if len(tokens) == 0 {
		return 0, false, nil
	}
	ev := &exactEvaluator{tokens: tokens, params: params}
	n, err := ev.expr()
	if err == nil && ev.pos != len(tokens) {
		err = unsupportedToken{}
	}
	if _, ok := err.(unsupportedToken); ok {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (ev *exactEvaluator) peek() (govaluate.ExpressionToken, bool) {
	if ev.pos >= len(ev.tokens) {
		return govaluate.ExpressionToken{}, false
	}
	return ev.tokens[ev.pos], true
}

func (ev *exactEvaluator) modifier(ops ...string) (string, bool) {
	t, ok := ev.peek()
	if !ok || t.Kind != govaluate.MODIFIER {
		return "", false
	}
	op, _ := t.Value.(string)
	for _, o := range ops {
		if op == o {
			ev.pos++
			return op, true
		}
	}
	return "", false
}

func (ev *exactEvaluator) expr() (int64, error) {
	l, err := ev.term()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := ev.modifier("+", "-")
		if !ok {
			return l, nil
		}
		r, err := ev.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			l += r
		} else {
			l -= r
		}
	}
}

func (ev *exactEvaluator) term() (int64, error) {
	l, err := ev.unary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := ev.modifier("*", "/", "%")
		if !ok {
			return l, nil
		}
		r, err := ev.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			l *= r
		default:
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			if op == "/" {
				l /= r
			} else {
				l %= r
			}
		}
	}
}

func (ev *exactEvaluator) unary() (int64, error) {
	if t, ok := ev.peek(); ok && t.Kind == govaluate.PREFIX {
		if op, _ := t.Value.(string); op != "-" {
			return 0, unsupportedToken{}
		}
		ev.pos++
		n, err := ev.unary()
		return -n, err
	}
	return ev.primary()
}

func (ev *exactEvaluator) primary() (int64, error) {
	t, ok := ev.peek()
	if !ok {
		return 0, unsupportedToken{}
	}
	ev.pos++
	switch t.Kind {
	case govaluate.NUMERIC:
		f, ok := t.Value.(float64)
		if !ok || f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
			return 0, unsupportedToken{}
		}
		return int64(f), nil
	case govaluate.VARIABLE:
		name, _ := t.Value.(string)
		n, ok := ev.params[name]
		if !ok {
			return 0, unsupportedToken{}
		}
		return n, nil
	case govaluate.CLAUSE:
		n, err := ev.expr()
		if err != nil {
			return 0, err
		}
		if err := ev.expect(govaluate.CLAUSE_CLOSE); err != nil {
			return 0, err
		}
		return n, nil
	case govaluate.FUNCTION:
		fn, ok := t.Value.(govaluate.ExpressionFunction)
		if !ok {
			return 0, unsupportedToken{}
		}
		return ev.call(fn)
	}
	return 0, unsupportedToken{}
}

func (ev *exactEvaluator) expect(kind govaluate.TokenKind) error {
	t, ok := ev.peek()
	if !ok || t.Kind != kind {
		return unsupportedToken{}
	}
	ev.pos++
	return nil
}

func (ev *exactEvaluator) call(fn govaluate.ExpressionFunction) (int64, error) {
	if err := ev.expect(govaluate.CLAUSE); err != nil {
		return 0, err
	}
	var args []any
	if t, ok := ev.peek(); !ok || t.Kind != govaluate.CLAUSE_CLOSE {
		for {
			n, err := ev.expr()
			if err != nil {
				return 0, err
			}
			args = append(args, n)
			if t, ok := ev.peek(); ok && t.Kind == govaluate.SEPARATOR {
				ev.pos++
				continue
			}
			break
		}
	}
	if err := ev.expect(govaluate.CLAUSE_CLOSE); err != nil {
		return 0, err
	}
	res, err := fn(args...)
	if err != nil {
		return 0, err
	}
	switch n := res.(type) {
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), nil
		}
	}
	return 0, unsupportedToken{}
}
