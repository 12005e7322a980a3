package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pg-sharding/shardpipe/router/kernel"
	"github.com/pg-sharding/shardpipe/router/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRequest(t *testing.T) {
	type tcase struct {
		name    string
		file    string
		content string
	}

	for _, tt := range []tcase{
		{
			name: "json",
			file: "stmt.json",
			content: `{
  "statement": {"kind": "select", "sql": "SELECT * FROM t_order WHERE user_id = ?",
                "tables": [{"name": "t_order", "start": 14, "stop": 20}]},
  "params": [7]
}`,
		},
		{
			name: "yaml",
			file: "stmt.yaml",
			content: `
statement:
  kind: SELECT
  sql: SELECT * FROM t_order WHERE user_id = ?
  tables:
    - name: t_order
      start: 14
      stop: 20
params: [7]
`,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			req, err := readRequest(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(statement.KindSelect, req.Statement.Kind)
			assert.Equal([]string{"t_order"}, req.Statement.TableNames())
			assert.Equal(14, req.Statement.Tables[0].Start)
			assert.Equal([]any{int64(7)}, req.Params)
		})
	}
}

func TestReadRequestRejectsUnknownKind(t *testing.T) {
	_, err := readRequest(writeFile(t, "stmt.json", `{"statement": {"kind": "MERGE"}}`))
	assert.Error(t, err)
}

func TestWriteResponse(t *testing.T) {
	assert := assert.New(t)

	merged, err := merge.Merge([]resultset.QueryResult{
		resultset.NewMemoryResult([]string{"id", "name"}, []any{1, "a"}, []any{2, "b"}),
	}, &merge.Context{Stmt: &statement.Context{Kind: statement.KindSelect}, UnitCount: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.NoError(writeResponse(&buf, &kernel.Response{Merged: merged}))
	assert.Equal("[\"id\",\"name\"]\n[1,\"a\"]\n[2,\"b\"]\nSELECT 2\n", buf.String())

	buf.Reset()
	assert.NoError(writeResponse(&buf, &kernel.Response{UpdateCount: 3, GeneratedKeys: []any{int64(10)}}))
	assert.Equal("{\"generated_keys\":[10]}\nUPDATE 3\n", buf.String())
}
