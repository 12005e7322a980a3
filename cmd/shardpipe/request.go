package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// request is a bound statement with its parameters, as read from a file.
type request struct {
	Statement statement.Context `json:"statement" yaml:"statement"`
	Params    []any             `json:"params" yaml:"params"`
}

// normalize turns yaml maps into string keyed maps so params print as
// JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		res := make(map[string]any, len(t))
		for k, e := range t {
			res[fmt.Sprint(k)] = normalize(e)
		}
		return res
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
	case int:
		return int64(t)
	}
	return v
}

func readRequest(path string) (*request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	req := &request{}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.Unmarshal(data, req)
	} else {
		err = json.Unmarshal(data, req)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode statement %s", path)
	}
	for i, p := range req.Params {
		req.Params[i] = normalize(p)
	}
	return req, nil
}
