// Package statement describes an already parsed and bound SQL statement:
// the tables it touches, its top-level predicates, projections and
// ORDER BY / GROUP BY / LIMIT clauses, together with the character spans
// the rewrite engine substitutes. Parsers produce it, the pipeline only reads it.
package statement

import (
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

type Kind int

const (
	KindSelect = Kind(iota)
	KindInsert
	KindUpdate
	KindDelete
	KindDDL
	KindDAL
	KindTCL
	KindDCL
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindDDL:
		return "DDL"
	case KindDAL:
		return "DAL"
	case KindTCL:
		return "TCL"
	case KindDCL:
		return "DCL"
	}
	return "UNKNOWN"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts a kind name in any case.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindSelect; c <= KindDCL; c++ {
		if strings.EqualFold(c.String(), string(text)) {
			*k = c
			return nil
		}
	}
	return pipeerror.Newf(pipeerror.PIPE_INVALID_REQUEST, "unknown statement kind \"%s\"", text)
}

// IsDML reports whether the statement reads or writes table rows.
func (k Kind) IsDML() bool {
	switch k {
	case KindSelect, KindInsert, KindUpdate, KindDelete:
		return true
	}
	return false
}

type DALKind int

const (
	DALOther = DALKind(iota)
	DALShow
	DALShowDatabases
	DALSet
	DALUse
)

type DDLKind int

const (
	DDLTable = DDLKind(iota)
	DDLIndex
	DDLRoutine
)

// TableSegment is one textual occurrence of a table name. Spans are
// inclusive byte offsets into Context.SQL.
type TableSegment struct {
	Name  string `json:"name" yaml:"name"`
	Alias string `json:"alias,omitempty" yaml:"alias"`
	Start int    `json:"start" yaml:"start"`
	Stop  int    `json:"stop" yaml:"stop"`
}

type IndexSegment struct {
	Name  string `json:"name" yaml:"name"`
	Table string `json:"table" yaml:"table"`
	Start int    `json:"start" yaml:"start"`
	Stop  int    `json:"stop" yaml:"stop"`
}

// Context is the bound statement consumed by the pipeline.
type Context struct {
	Kind    Kind    `json:"kind" yaml:"kind"`
	DAL     DALKind `json:"dal,omitempty" yaml:"dal"`
	DDL     DDLKind `json:"ddl,omitempty" yaml:"ddl"`
	SQL     string  `json:"sql" yaml:"sql"`
	Comment string  `json:"comment,omitempty" yaml:"comment"`

	Tables  []TableSegment `json:"tables,omitempty" yaml:"tables"`
	Indexes []IndexSegment `json:"indexes,omitempty" yaml:"indexes"`

	// Where holds top-level AND conjuncts only.
	Where []Predicate `json:"where,omitempty" yaml:"where"`

	Projections []Projection `json:"projections,omitempty" yaml:"projections"`
	// ProjectionsStop is the last character of the projection list.
	ProjectionsStop int           `json:"projections_stop,omitempty" yaml:"projections_stop"`
	OrderBy         []OrderByItem `json:"order_by,omitempty" yaml:"order_by"`
	GroupBy         []OrderByItem `json:"group_by,omitempty" yaml:"group_by"`
	Pagination      *Pagination   `json:"pagination,omitempty" yaml:"pagination"`

	Insert *InsertClause `json:"insert,omitempty" yaml:"insert"`

	// AlwaysFalse is set by the binder for predicates like 1 = 2.
	AlwaysFalse bool `json:"always_false,omitempty" yaml:"always_false"`
}

// TableNames returns distinct logical table names in order of first appearance.
func (c *Context) TableNames() []string {
	seen := map[string]struct{}{}
	var res []string
	for _, t := range c.Tables {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		res = append(res, t.Name)
	}
	return res
}

// ResolveTable maps a column qualifier (table name or alias) to the logical
// table name. An empty qualifier resolves only when the statement has one table.
func (c *Context) ResolveTable(qualifier string) (string, bool) {
	if qualifier == "" {
		names := c.TableNames()
		if len(names) == 1 {
			return names[0], true
		}
		return "", false
	}
	for _, t := range c.Tables {
		if strings.EqualFold(t.Alias, qualifier) || strings.EqualFold(t.Name, qualifier) {
			return t.Name, true
		}
	}
	return "", false
}

// HasAggregation reports whether any projection is an aggregate.
func (c *Context) HasAggregation() bool {
	for _, p := range c.Projections {
		if p.Aggregation != AggregationNone {
			return true
		}
	}
	return false
}

// SameGroupByAndOrderBy reports whether ORDER BY repeats GROUP BY item by item.
func (c *Context) SameGroupByAndOrderBy() bool {
	if len(c.GroupBy) == 0 || len(c.GroupBy) != len(c.OrderBy) {
		return false
	}
	for i := range c.GroupBy {
		g, o := c.GroupBy[i], c.OrderBy[i]
		if !strings.EqualFold(g.Expression, o.Expression) || g.Desc != o.Desc || g.NullsFirst != o.NullsFirst {
			return false
		}
	}
	return true
}
