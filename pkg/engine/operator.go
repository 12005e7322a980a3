package engine

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Operator orders two non-null values.
type Operator interface {
	Compare(l any, r any) (int, error)
}

// ValueOperator compares the value kinds produced by drivers and by the
// condition extractor: integers, floats, strings, byte slices, times and bools.
type ValueOperator struct {
	CaseInsensitive bool
}

var _ Operator = &ValueOperator{}

// Normalize widens integer kinds to int64 and float32 to float64 so that
// values coming from different drivers compare and group consistently.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		if uint64(n) <= 1<<63-1 {
			return int64(n)
		}
		return uint64(n)
	case uint64:
		if n <= 1<<63-1 {
			return int64(n)
		}
		return n
	case float32:
		return float64(n)
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cmp[T int64 | uint64 | float64 | string](l, r T) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func (o *ValueOperator) Compare(l any, r any) (int, error) {
	l, r = Normalize(l), Normalize(r)

	switch lv := l.(type) {
	case int64:
		if rv, ok := r.(int64); ok {
			return cmp(lv, rv), nil
		}
	case uint64:
		if rv, ok := r.(uint64); ok {
			return cmp(lv, rv), nil
		}
	case float64:
		if rv, ok := r.(float64); ok {
			return cmp(lv, rv), nil
		}
	case string:
		switch rv := r.(type) {
		case string:
			return o.compareStrings(lv, rv), nil
		case []byte:
			return o.compareStrings(lv, string(rv)), nil
		}
	case []byte:
		switch rv := r.(type) {
		case []byte:
			if o.CaseInsensitive {
				return o.compareStrings(string(lv), string(rv)), nil
			}
			return bytes.Compare(lv, rv), nil
		case string:
			return o.compareStrings(string(lv), rv), nil
		}
	case time.Time:
		if rv, ok := r.(time.Time); ok {
			return lv.Compare(rv), nil
		}
	case bool:
		if rv, ok := r.(bool); ok {
			switch {
			case lv == rv:
				return 0, nil
			case !lv:
				return -1, nil
			}
			return 1, nil
		}
	}

	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		return cmp(lf, rf), nil
	}

	return 0, fmt.Errorf("cannot compare values of types %T and %T", l, r)
}

func (o *ValueOperator) compareStrings(l, r string) int {
	if o.CaseInsensitive {
		return cmp(strings.ToLower(l), strings.ToLower(r))
	}
	return cmp(l, r)
}

// Compare orders two non-null values with the default operator.
func Compare(l any, r any) (int, error) {
	return (&ValueOperator{}).Compare(l, r)
}
