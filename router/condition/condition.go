package condition

import (
	"strings"
	"time"

	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/models/algorithm"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/pkg/models/statement"
	"github.com/pg-sharding/shardpipe/pkg/models/strategy"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/hint"
	"github.com/pg-sharding/shardpipe/router/keygen"
)

// Condition is one sharding value extracted for a column of a logical
// table. Column.Table is always the logical table name.
type Condition struct {
	Column statement.Column
	Value  strategy.ColumnValue
}

// Conditions is everything routing needs to narrow targets.
type Conditions struct {
	// ByTable holds at most one condition per column, predicates on the
	// same column already intersected.
	ByTable map[string][]Condition
	// InsertRows holds conditions of each VALUES row, in row order.
	InsertRows [][]Condition

	// DataSource is a data source forced by a hint.
	DataSource   string
	DatabaseHint []any
	TableHint    []any

	AlwaysFalse bool
}

func (c *Conditions) IsInsert() bool {
	return len(c.InsertRows) > 0
}

func toShardingValues(conds []Condition, hints []any) strategy.ShardingValues {
	sv := strategy.ShardingValues{Columns: map[string]strategy.ColumnValue{}, Hint: hints}
	for _, c := range conds {
		sv.Columns[c.Column.Name] = c.Value
	}
	return sv
}

// DatabaseValues returns the input of the database strategy of table.
func (c *Conditions) DatabaseValues(table string) strategy.ShardingValues {
	return toShardingValues(c.ByTable[table], c.DatabaseHint)
}

// TableValues returns the input of the table strategy of table.
func (c *Conditions) TableValues(table string) strategy.ShardingValues {
	return toShardingValues(c.ByTable[table], c.TableHint)
}

// RowValues returns sharding values of the i-th VALUES row.
func (c *Conditions) RowValues(i int, database bool) strategy.ShardingValues {
	if database {
		return toShardingValues(c.InsertRows[i], c.DatabaseHint)
	}
	return toShardingValues(c.InsertRows[i], c.TableHint)
}

type Extractor struct {
	Rule *rule.ShardingRule
	Now  func() time.Time
}

func NewExtractor(r *rule.ShardingRule) *Extractor {
	return &Extractor{Rule: r, Now: time.Now}
}

// Extract reads sharding values out of the statement. key holds values
// generated for the INSERT key column, hints may be nil.
func Extract(stmt *statement.Context, params []any, r *rule.ShardingRule, key *keygen.GeneratedKey, hints *hint.Hints) (*Conditions, error) {
	return NewExtractor(r).Extract(stmt, params, key, hints)
}

func (e *Extractor) Extract(stmt *statement.Context, params []any, key *keygen.GeneratedKey, hints *hint.Hints) (*Conditions, error) {
	now := e.Now()
	res := &Conditions{ByTable: map[string][]Condition{}, AlwaysFalse: stmt.AlwaysFalse}
	if hints != nil {
		res.DataSource = hints.DataSource
		res.DatabaseHint = hints.DatabaseValues
		res.TableHint = hints.TableValues
	}

	if stmt.Kind == statement.KindInsert && stmt.Insert != nil && len(stmt.Tables) > 0 {
		if err := e.extractInsert(stmt, params, key, now, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	acc := map[string]*accumulator{}
	var order []string
	for _, p := range stmt.Where {
		if p.Op == statement.OpOther {
			continue
		}
		table, ok := stmt.ResolveTable(p.Column.Table)
		if !ok || !e.Rule.IsShardingColumn(table, p.Column.Name) {
			continue
		}
		v, err := predicateValue(p, params, now)
		if err != nil {
			return nil, err
		}

		k := strings.ToLower(table) + "." + strings.ToLower(p.Column.Name)
		a, ok := acc[k]
		if !ok {
			a = &accumulator{column: statement.Column{Name: shardingColumnName(e.Rule, table, p.Column.Name), Table: table}}
			acc[k] = a
			order = append(order, k)
		}
		if err := a.intersect(v); err != nil {
			return nil, err
		}
	}

	for _, k := range order {
		a := acc[k]
		if a.empty() {
			res.AlwaysFalse = true
		}
		res.ByTable[a.column.Table] = append(res.ByTable[a.column.Table], Condition{Column: a.column, Value: *a.value})
	}

	shardlog.Zero.Debug().
		Int("columns", len(order)).
		Bool("always false", res.AlwaysFalse).
		Msg("extracted sharding conditions")
	return res, nil
}

// shardingColumnName returns the column spelled as in the rule so that
// strategies find it regardless of the statement's case.
func shardingColumnName(r *rule.ShardingRule, table, column string) string {
	tr, ok := r.TableRule(table)
	if !ok {
		return column
	}
	for _, c := range tr.ShardingColumns() {
		if strings.EqualFold(c, column) {
			return c
		}
	}
	return column
}

func predicateValue(p statement.Predicate, params []any, now time.Time) (strategy.ColumnValue, error) {
	vals := make([]any, 0, len(p.Operands))
	for _, op := range p.Operands {
		v, err := operandValue(op, p.Type, params, now)
		if err != nil {
			return strategy.ColumnValue{}, err
		}
		vals = append(vals, v)
	}

	switch p.Op {
	case statement.OpEqual:
		if len(vals) != 1 {
			return strategy.ColumnValue{}, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "equality on %s needs one operand", p.Column.Name)
		}
		return strategy.ColumnValue{Values: vals}, nil
	case statement.OpIn:
		return strategy.ColumnValue{Values: dedup(vals)}, nil
	case statement.OpBetween:
		if len(vals) != 2 {
			return strategy.ColumnValue{}, pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "BETWEEN on %s needs two operands", p.Column.Name)
		}
		return strategy.ColumnValue{Range: &algorithm.Range{
			Lower: vals[0], HasLower: true,
			Upper: vals[1], HasUpper: true,
		}}, nil
	}
	return strategy.ColumnValue{}, pipeerror.Newf(pipeerror.PIPE_UNEXPECTED, "unsupported predicate on %s", p.Column.Name)
}

func equal(l, r any) bool {
	c, err := engine.Compare(l, r)
	return err == nil && c == 0
}

func dedup(vals []any) []any {
	res := make([]any, 0, len(vals))
	for _, v := range vals {
		found := false
		for _, x := range res {
			if equal(v, x) {
				found = true
				break
			}
		}
		if !found {
			res = append(res, v)
		}
	}
	return res
}

func (e *Extractor) extractInsert(stmt *statement.Context, params []any, key *keygen.GeneratedKey, now time.Time, res *Conditions) error {
	table := stmt.Tables[0].Name
	tr, ok := e.Rule.TableRule(table)
	if !ok {
		return nil
	}
	cols := stmt.Insert.EffectiveColumns()

	for i, row := range stmt.Insert.Rows {
		var conds []Condition
		for _, sc := range tr.ShardingColumns() {
			if key != nil && strings.EqualFold(key.Column, sc) {
				if i < len(key.Values) {
					conds = append(conds, Condition{
						Column: statement.Column{Name: sc, Table: table},
						Value:  strategy.ColumnValue{Values: []any{key.Values[i]}},
					})
				}
				continue
			}
			idx := -1
			for j, c := range cols {
				if strings.EqualFold(c, sc) {
					idx = j
					break
				}
			}
			if idx < 0 || idx >= len(row.Values) {
				continue
			}
			v, err := operandValue(row.Values[idx], statement.TypeUnknown, params, now)
			if err != nil {
				return err
			}
			conds = append(conds, Condition{
				Column: statement.Column{Name: sc, Table: table},
				Value:  strategy.ColumnValue{Values: []any{v}},
			})
		}
		res.InsertRows = append(res.InsertRows, conds)
	}
	return nil
}
