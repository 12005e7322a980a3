package route

import (
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/condition"
	"github.com/pg-sharding/shardpipe/router/session"
)

// Engine turns a bound statement and its sharding conditions into the set
// of route units it has to run on.
type Engine struct {
	rule *rule.ShardingRule
}

func NewEngine(r *rule.ShardingRule) *Engine {
	return &Engine{rule: r}
}

// Route computes the route context of stmt. conds may be nil for
// statements without extracted values, sess may be nil.
func (e *Engine) Route(stmt *statement.Context, conds *condition.Conditions, sess *session.Session) (*RouteContext, error) {
	if conds == nil {
		conds = &condition.Conditions{ByTable: map[string][]condition.Condition{}}
	}
	eng, err := e.newRoutingEngine(stmt, conds)
	if err != nil {
		return nil, err
	}
	rc, err := eng.route(e.rule, sess)
	if err != nil {
		return nil, err
	}

	shardlog.Zero.Debug().
		Str("kind", stmt.Kind.String()).
		Str("route type", string(rc.Type)).
		Int("units", len(rc.Units)).
		Strs("data sources", rc.DataSourceNames()).
		Msg("statement routed")
	return rc, nil
}

func (e *Engine) statementTables(stmt *statement.Context) []string {
	tables := stmt.TableNames()
	if len(tables) > 0 {
		return tables
	}
	seen := map[string]struct{}{}
	for _, idx := range stmt.Indexes {
		if idx.Table == "" {
			continue
		}
		if _, ok := seen[idx.Table]; ok {
			continue
		}
		seen[idx.Table] = struct{}{}
		tables = append(tables, idx.Table)
	}
	return tables
}

func (e *Engine) newRoutingEngine(stmt *statement.Context, conds *condition.Conditions) (routingEngine, error) {
	if conds.DataSource != "" {
		return hintEngine{dataSource: conds.DataSource}, nil
	}

	tables := e.statementTables(stmt)
	switch stmt.Kind {
	case statement.KindTCL, statement.KindDCL:
		return databaseBroadcastEngine{}, nil
	case statement.KindDAL:
		switch stmt.DAL {
		case statement.DALSet, statement.DALShowDatabases:
			return databaseBroadcastEngine{}, nil
		case statement.DALUse:
			return ignoreEngine{}, nil
		default:
			return unicastEngine{tables: tables, bind: true}, nil
		}
	case statement.KindDDL:
		if stmt.DDL == statement.DDLRoutine {
			return databaseBroadcastEngine{}, nil
		}
		return e.ddlEngine(tables)
	case statement.KindSelect, statement.KindInsert, statement.KindUpdate, statement.KindDelete:
		return e.dmlEngine(stmt, conds, tables)
	}
	return nil, pipeerror.Newf(pipeerror.PIPE_UNEXPECTED, "unexpected statement kind %s", stmt.Kind)
}

type tableClasses struct {
	sharded   []string
	broadcast []string
	single    []string
}

func (e *Engine) classify(tables []string) (tableClasses, error) {
	var tc tableClasses
	for _, t := range tables {
		switch e.rule.Classify(t) {
		case rule.ShardingTable, rule.BindingTable:
			tc.sharded = append(tc.sharded, t)
		case rule.BroadcastTable:
			tc.broadcast = append(tc.broadcast, t)
		default:
			tc.single = append(tc.single, t)
		}
	}

	kinds := 0
	for _, l := range [][]string{tc.sharded, tc.broadcast, tc.single} {
		if len(l) > 0 {
			kinds++
		}
	}
	if kinds > 1 {
		return tc, pipeerror.Newf(pipeerror.PIPE_MIXED_TABLES,
			"statement mixes sharding tables %v, broadcast tables %v and single tables %v",
			tc.sharded, tc.broadcast, tc.single)
	}
	return tc, nil
}

func (e *Engine) ddlEngine(tables []string) (routingEngine, error) {
	if len(tables) == 0 {
		return databaseBroadcastEngine{}, nil
	}
	tc, err := e.classify(tables)
	if err != nil {
		return nil, err
	}
	switch {
	case len(tc.sharded) > 0:
		return tableBroadcastEngine{tables: tc.sharded}, nil
	case len(tc.broadcast) > 0:
		return databaseBroadcastEngine{}, nil
	default:
		return singleEngine{tables: tc.single}, nil
	}
}

func (e *Engine) dmlEngine(stmt *statement.Context, conds *condition.Conditions, tables []string) (routingEngine, error) {
	if len(tables) == 0 {
		return unicastEngine{}, nil
	}
	tc, err := e.classify(tables)
	if err != nil {
		return nil, err
	}
	switch {
	case len(tc.broadcast) > 0:
		if stmt.Kind == statement.KindSelect {
			return unicastEngine{tables: tables}, nil
		}
		return databaseBroadcastEngine{}, nil
	case len(tc.single) > 0:
		return singleEngine{tables: tables, readOnly: stmt.Kind == statement.KindSelect}, nil
	}

	if conds.AlwaysFalse && !conds.IsInsert() {
		return unicastEngine{tables: tables}, nil
	}
	if e.rule.InSameBindingGroup(tables) {
		return standardEngine{tables: tables, conds: conds}, nil
	}
	return complexEngine{tables: tables, conds: conds}, nil
}
