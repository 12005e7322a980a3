package hint

import (
	"strconv"
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

const (
	Prefix = "shardpipe:"

	KeyDataSource    = "datasource"
	KeyDatabaseValue = "sharding_database_value"
	KeyTableValue    = "sharding_table_value"
	KeySkipRewrite   = "skip_rewrite"
)

// Hints are caller supplied routing directives.
type Hints struct {
	DataSource     string
	DatabaseValues []any
	TableValues    []any
	SkipRewrite    bool
}

func (h *Hints) Empty() bool {
	return h == nil || (h.DataSource == "" && len(h.DatabaseValues) == 0 && len(h.TableValues) == 0 && !h.SkipRewrite)
}

// Parse extracts hints from a statement comment such as
// "/* shardpipe: datasource: ds_1, sharding_table_value: 3|4 */".
// Comments without the prefix carry no hints.
func Parse(comment string) (*Hints, error) {
	body := strings.TrimSpace(comment)
	body = strings.TrimPrefix(body, "/*")
	body = strings.TrimSuffix(body, "*/")
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(strings.ToLower(body), Prefix) {
		return &Hints{}, nil
	}

	opts, err := ParseComment(body[len(Prefix):])
	if err != nil {
		return nil, pipeerror.New(pipeerror.PIPE_HINT_ERROR, err.Error())
	}

	h := &Hints{}
	for k, v := range opts {
		switch k {
		case KeyDataSource:
			h.DataSource = v
		case KeyDatabaseValue:
			h.DatabaseValues = parseValues(v)
		case KeyTableValue:
			h.TableValues = parseValues(v)
		case KeySkipRewrite:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, pipeerror.Newf(pipeerror.PIPE_HINT_ERROR, "invalid %s value \"%s\"", k, v)
			}
			h.SkipRewrite = b
		default:
			return nil, pipeerror.Newf(pipeerror.PIPE_HINT_ERROR, "unknown hint \"%s\"", k)
		}
	}
	return h, nil
}

// parseValues splits "a|b" and turns integers into int64.
func parseValues(raw string) []any {
	var res []any
	for _, v := range strings.Split(raw, "|") {
		if v == "" {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			res = append(res, n)
		} else {
			res = append(res, v)
		}
	}
	return res
}

// Merge overlays h with over. Fields set on over win.
func (h *Hints) Merge(over *Hints) *Hints {
	res := &Hints{}
	if h != nil {
		*res = *h
	}
	if over == nil {
		return res
	}
	if over.DataSource != "" {
		res.DataSource = over.DataSource
	}
	if len(over.DatabaseValues) > 0 {
		res.DatabaseValues = over.DatabaseValues
	}
	if len(over.TableValues) > 0 {
		res.TableValues = over.TableValues
	}
	if over.SkipRewrite {
		res.SkipRewrite = true
	}
	return res
}
