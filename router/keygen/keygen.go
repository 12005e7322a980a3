package keygen

import (
	"context"

	"github.com/pg-sharding/shardpipe/pkg/config"
	"github.com/pg-sharding/shardpipe/pkg/models/keygen"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
)

// GeneratedKey holds keys allocated for one INSERT, one per VALUES row.
type GeneratedKey struct {
	Column    string
	Values    []any
	Generated bool
}

// Engine allocates keys for INSERT statements that omit the key column.
type Engine struct {
	rule       *rule.ShardingRule
	generators map[string]keygen.Generator
}

// NewEngine instantiates every configured generator up front.
func NewEngine(r *rule.ShardingRule, generators map[string]config.AlgorithmCfg, registry *keygen.Registry) (*Engine, error) {
	e := &Engine{rule: r, generators: map[string]keygen.Generator{}}
	for name, gcfg := range generators {
		g, err := registry.New(gcfg.Type, gcfg.Props)
		if err != nil {
			return nil, err
		}
		e.generators[name] = g
	}
	return e, nil
}

// providesKey reports whether the statement binds a value to column in
// every VALUES row, by name or by position.
func providesKey(ins *statement.InsertClause, column string) bool {
	idx := ins.ColumnIndex(column)
	if idx < 0 {
		return false
	}
	for _, row := range ins.Rows {
		if idx >= len(row.Values) {
			return false
		}
	}
	return true
}

// Generate returns nil when nothing has to be generated.
func (e *Engine) Generate(ctx context.Context, stmt *statement.Context) (*GeneratedKey, error) {
	if stmt.Kind != statement.KindInsert || stmt.Insert == nil || len(stmt.Tables) == 0 {
		return nil, nil
	}
	table := stmt.Tables[0].Name
	ks := e.rule.KeyGenerate(table)
	if ks == nil || providesKey(stmt.Insert, ks.Column) {
		return nil, nil
	}

	g, ok := e.generators[ks.Generator]
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_KEYGEN_ERROR, "key generator \"%s\" of table \"%s\" is not initialized", ks.Generator, table)
	}
	vals, err := g.NextKeys(ctx, len(stmt.Insert.Rows))
	if err != nil {
		if pipeerror.Code(err) != "" {
			return nil, err
		}
		return nil, pipeerror.Newf(pipeerror.PIPE_KEYGEN_ERROR, "table \"%s\": %s", table, err)
	}

	shardlog.Zero.Debug().
		Str("table", table).
		Str("column", ks.Column).
		Str("generator", g.Type()).
		Int("rows", len(vals)).
		Msg("generated keys")
	return &GeneratedKey{Column: ks.Column, Values: vals, Generated: true}, nil
}
