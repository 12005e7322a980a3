package condition

import (
	"strconv"
	"strings"
	"time"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
	}
	return s, false
}

func parseNumber(s string) (any, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// parseLiteral turns literal source text into a value of the declared type
// family.
func parseLiteral(text string, typ statement.ValueType) (any, error) {
	text = strings.TrimSpace(text)
	switch typ {
	case statement.TypeNumeric:
		s, _ := unquote(text)
		if v, ok := parseNumber(s); ok {
			return v, nil
		}
		return nil, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "invalid numeric literal %s", text)
	case statement.TypeString:
		s, _ := unquote(text)
		return s, nil
	case statement.TypeDate:
		s, _ := unquote(text)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return nil, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "invalid date literal %s", text)
	default:
		if s, quoted := unquote(text); quoted {
			return s, nil
		}
		if v, ok := parseNumber(text); ok {
			return v, nil
		}
		return text, nil
	}
}

// operandValue resolves an operand against bound parameters. now is the
// extraction time shared by every now() of one statement.
func operandValue(op statement.Operand, typ statement.ValueType, params []any, now time.Time) (any, error) {
	switch op.Kind {
	case statement.OperandParam:
		if op.Index < 0 || op.Index >= len(params) {
			return nil, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST,
				"parameter $%d is out of range, %d parameters bound", op.Index+1, len(params))
		}
		return params[op.Index], nil
	case statement.OperandNow:
		return now, nil
	default:
		return parseLiteral(op.Text, typ)
	}
}
