package rewrite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/pg-sharding/shardpipe/router/route"
)

// Token replaces the inclusive span [Start, Stop] of the original SQL.
// A token with Stop == Start-1 inserts text before Start.
type Token interface {
	Start() int
	Stop() int
	Render(unit *route.RouteUnit) string
}

type span struct {
	start, stop int
}

func (s span) Start() int { return s.start }
func (s span) Stop() int  { return s.stop }

// insertAt returns the empty span in front of pos.
func insertAt(pos int) span {
	return span{start: pos, stop: pos - 1}
}

// LiteralToken renders the same text for every unit.
type LiteralToken struct {
	span
	Text string
}

func NewLiteralToken(start, stop int, text string) *LiteralToken {
	return &LiteralToken{span: span{start, stop}, Text: text}
}

func (t *LiteralToken) Render(*route.RouteUnit) string {
	return t.Text
}

// TableToken renders the physical name of a logical table. Tables the
// unit does not map keep their logical name.
type TableToken struct {
	span
	Logic string
}

func NewTableToken(start, stop int, logic string) *TableToken {
	return &TableToken{span: span{start, stop}, Logic: logic}
}

func (t *TableToken) Render(unit *route.RouteUnit) string {
	if unit != nil {
		if actual, ok := unit.ActualTable(t.Logic); ok {
			return actual
		}
	}
	return t.Logic
}

// IndexToken suffixes an index name with the physical table name, so that
// indexes of tables sharing a data source do not collide.
type IndexToken struct {
	span
	Name  string
	Table string
}

func NewIndexToken(start, stop int, name, table string) *IndexToken {
	return &IndexToken{span: span{start, stop}, Name: name, Table: table}
}

func (t *IndexToken) Render(unit *route.RouteUnit) string {
	if unit != nil {
		if actual, ok := unit.ActualTable(t.Table); ok {
			return t.Name + "_" + actual
		}
	}
	return t.Name
}

type OffsetToken struct {
	span
	Value int64
}

func (t *OffsetToken) Render(*route.RouteUnit) string {
	return strconv.FormatInt(t.Value, 10)
}

type RowCountToken struct {
	span
	Value int64
}

func (t *RowCountToken) Render(*route.RouteUnit) string {
	return strconv.FormatInt(t.Value, 10)
}

// ProjectionsToken appends derived columns to the select list.
type ProjectionsToken struct {
	span
	Items []string
}

func (t *ProjectionsToken) Render(*route.RouteUnit) string {
	return ", " + strings.Join(t.Items, ", ")
}

// GeneratedKeyColumnToken appends the key column to the INSERT column list.
type GeneratedKeyColumnToken struct {
	span
	Column string
}

func (t *GeneratedKeyColumnToken) Render(*route.RouteUnit) string {
	return ", " + t.Column
}

// InsertValuesToken renders the VALUES rows that belong to a unit, each
// with its generated key appended.
type InsertValuesToken struct {
	span
	Rows []InsertValue
}

type InsertValue struct {
	Text      string
	HasParams bool
	// Key is the generated key of the row, nil when none was generated.
	Key   any
	Nodes []rule.DataNode
}

func (v *InsertValue) belongsTo(unit *route.RouteUnit) bool {
	if unit == nil || len(v.Nodes) == 0 {
		return true
	}
	for _, n := range v.Nodes {
		if unit.Has(n) {
			return true
		}
	}
	return false
}

func (v *InsertValue) render() string {
	if v.Key == nil {
		return v.Text
	}
	closing := strings.LastIndexByte(v.Text, ')')
	if closing < 0 {
		return v.Text
	}
	key := "?"
	if !v.HasParams {
		key = FormatLiteral(v.Key)
	}
	return v.Text[:closing] + ", " + key + v.Text[closing:]
}

func (t *InsertValuesToken) Render(unit *route.RouteUnit) string {
	var rows []string
	for i := range t.Rows {
		if t.Rows[i].belongsTo(unit) {
			rows = append(rows, t.Rows[i].render())
		}
	}
	return strings.Join(rows, ", ")
}

// FormatLiteral renders a generated value as an SQL literal.
func FormatLiteral(v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}
