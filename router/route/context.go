package route

import (
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/rule"
)

// RouteMapper maps a logical name to a physical one.
type RouteMapper struct {
	Logic  string `json:"logic"`
	Actual string `json:"actual"`
}

// RouteUnit is one data source plus the physical tables a statement uses
// there. Tables is empty when no name has to be substituted.
type RouteUnit struct {
	DataSource RouteMapper   `json:"data_source"`
	Tables     []RouteMapper `json:"tables,omitempty"`
}

func NewRouteUnit(ds string, tables ...RouteMapper) RouteUnit {
	return RouteUnit{DataSource: RouteMapper{Logic: ds, Actual: ds}, Tables: tables}
}

// ActualTable returns the physical name of a logical table in this unit.
func (u *RouteUnit) ActualTable(logic string) (string, bool) {
	for _, m := range u.Tables {
		if strings.EqualFold(m.Logic, logic) {
			return m.Actual, true
		}
	}
	return "", false
}

// Has reports whether the unit points at node.
func (u *RouteUnit) Has(node rule.DataNode) bool {
	if u.DataSource.Actual != node.DataSource {
		return false
	}
	for _, m := range u.Tables {
		if strings.EqualFold(m.Actual, node.Table) {
			return true
		}
	}
	return false
}

func (u *RouteUnit) key() string {
	var sb strings.Builder
	sb.WriteString(u.DataSource.Actual)
	for _, m := range u.Tables {
		sb.WriteString("|")
		sb.WriteString(strings.ToLower(m.Logic))
		sb.WriteString("=")
		sb.WriteString(strings.ToLower(m.Actual))
	}
	return sb.String()
}

type RouteType string

const (
	RouteTypeStandard          = RouteType("standard")
	RouteTypeComplex           = RouteType("complex")
	RouteTypeDatabaseBroadcast = RouteType("database_broadcast")
	RouteTypeTableBroadcast    = RouteType("table_broadcast")
	RouteTypeUnicast           = RouteType("unicast")
	RouteTypeSingle            = RouteType("single")
	RouteTypeIgnore            = RouteType("ignore")
	RouteTypeHint              = RouteType("hint")
)

// RouteContext is an ordered, duplicate free set of route units.
type RouteContext struct {
	Type  RouteType   `json:"type"`
	Units []RouteUnit `json:"units"`
	// OriginalDataNodes holds the data nodes each INSERT row goes to.
	OriginalDataNodes [][]rule.DataNode `json:"original_data_nodes,omitempty"`

	seen map[string]struct{}
}

func NewRouteContext(typ RouteType) *RouteContext {
	return &RouteContext{Type: typ, seen: map[string]struct{}{}}
}

// Add appends u unless an identical unit is already present.
func (rc *RouteContext) Add(u RouteUnit) bool {
	if rc.seen == nil {
		rc.seen = map[string]struct{}{}
	}
	k := u.key()
	if _, ok := rc.seen[k]; ok {
		return false
	}
	rc.seen[k] = struct{}{}
	rc.Units = append(rc.Units, u)
	return true
}

// DataSourceNames returns distinct data sources in unit order.
func (rc *RouteContext) DataSourceNames() []string {
	var res []string
	seen := map[string]struct{}{}
	for _, u := range rc.Units {
		if _, ok := seen[u.DataSource.Actual]; ok {
			continue
		}
		seen[u.DataSource.Actual] = struct{}{}
		res = append(res, u.DataSource.Actual)
	}
	return res
}

func (rc *RouteContext) IsSingleRouting() bool {
	return len(rc.Units) == 1
}
