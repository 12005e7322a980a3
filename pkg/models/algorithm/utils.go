package algorithm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pkg/errors"
)

func compare(l, r any) (int, error) {
	return engine.Compare(l, r)
}

func intProp(props map[string]string, name string) (int64, error) {
	raw, ok := props[name]
	if !ok {
		return 0, fmt.Errorf("property \"%s\" is required", name)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "property \"%s\" must be an integer", name)
	}
	return v, nil
}

func boolProp(props map[string]string, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(props[name]))
	return err == nil && v
}

// toInt64 converts a sharding value to an integer for modulo style
// algorithms. Numeric strings are accepted.
func toInt64(v any) (int64, error) {
	switch n := engine.Normalize(v).(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	}
	return 0, fmt.Errorf("unsupported sharding value type %T", v)
}

// targetSuffix returns the trailing decimal suffix of a target name.
func targetSuffix(target string) (int64, bool) {
	i := len(target)
	for i > 0 && unicode.IsDigit(rune(target[i-1])) {
		i--
	}
	if i == len(target) {
		return 0, false
	}
	v, err := strconv.ParseInt(target[i:], 10, 64)
	return v, err == nil
}

// targetByIndex finds the target whose numeric suffix equals idx.
func targetByIndex(targets []string, idx int64) (string, bool) {
	for _, t := range targets {
		if s, ok := targetSuffix(t); ok && s == idx {
			return t, true
		}
	}
	return "", false
}

// targetsByIndexes keeps targets order and returns those whose suffix is in idxs.
func targetsByIndexes(targets []string, idxs map[int64]struct{}) []string {
	var res []string
	for _, t := range targets {
		if s, ok := targetSuffix(t); ok {
			if _, ok := idxs[s]; ok {
				res = append(res, t)
			}
		}
	}
	return res
}

func containsTarget(targets []string, target string) bool {
	for _, t := range targets {
		if strings.EqualFold(t, target) {
			return true
		}
	}
	return false
}
