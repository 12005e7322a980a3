package rule

import (
	"fmt"
	"strconv"
	"strings"
)

// DataNode is a physical location of a logical table: data source plus
// actual table name.
type DataNode struct {
	DataSource string `json:"data_source"`
	Table      string `json:"table"`
}

func (n DataNode) String() string {
	return n.DataSource + "." + n.Table
}

// ParseDataNode parses "ds.table".
func ParseDataNode(s string) (DataNode, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return DataNode{}, fmt.Errorf("invalid data node \"%s\", expected <data source>.<table>", s)
	}
	return DataNode{DataSource: parts[0], Table: parts[1]}, nil
}

// ExpandInline expands a comma separated list of inline expressions.
// ${0..3} is an integer range, ${['a','b']} (or ${[a, b]}) is a list.
// Placeholders inside one segment are combined as a cartesian product,
// the leftmost placeholder varying slowest. $->{...} is accepted as well.
func ExpandInline(expr string) ([]string, error) {
	segments, err := splitTopLevel(expr)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		expanded, err := expandSegment(seg)
		if err != nil {
			return nil, err
		}
		res = append(res, expanded...)
	}
	return res, nil
}

func splitTopLevel(expr string) ([]string, error) {
	var res []string
	depth, start := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced '}' at %d in \"%s\"", i, expr)
			}
		case ',':
			if depth == 0 {
				res = append(res, expr[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unterminated placeholder in \"%s\"", expr)
	}
	return append(res, expr[start:]), nil
}

func expandSegment(seg string) ([]string, error) {
	open, skip := placeholderStart(seg)
	if open < 0 {
		return []string{seg}, nil
	}
	end := strings.IndexByte(seg[open:], '}')
	if end < 0 {
		return nil, fmt.Errorf("unterminated placeholder in \"%s\"", seg)
	}
	end += open

	values, err := placeholderValues(strings.TrimSpace(seg[open+skip : end]))
	if err != nil {
		return nil, err
	}
	tails, err := expandSegment(seg[end+1:])
	if err != nil {
		return nil, err
	}

	prefix := seg[:open]
	res := make([]string, 0, len(values)*len(tails))
	for _, v := range values {
		for _, t := range tails {
			res = append(res, prefix+v+t)
		}
	}
	return res, nil
}

func placeholderStart(seg string) (int, int) {
	i := strings.Index(seg, "${")
	j := strings.Index(seg, "$->{")
	switch {
	case i < 0 && j < 0:
		return -1, 0
	case j < 0 || (i >= 0 && i < j):
		return i, 2
	default:
		return j, 4
	}
}

func placeholderValues(body string) ([]string, error) {
	if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
		var res []string
		for _, item := range strings.Split(body[1:len(body)-1], ",") {
			item = strings.Trim(strings.TrimSpace(item), `'"`)
			if item != "" {
				res = append(res, item)
			}
		}
		if len(res) == 0 {
			return nil, fmt.Errorf("empty list placeholder \"%s\"", body)
		}
		return res, nil
	}

	bounds := strings.Split(body, "..")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("unsupported placeholder \"%s\"", body)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid range placeholder \"%s\": %w", body, err)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid range placeholder \"%s\": %w", body, err)
	}
	if hi < lo {
		return nil, fmt.Errorf("invalid range placeholder \"%s\": upper bound below lower bound", body)
	}
	res := make([]string, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		res = append(res, strconv.Itoa(v))
	}
	return res, nil
}
