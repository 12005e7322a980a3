package statement

import "strings"

// InsertRow spans one parenthesized VALUES row, parentheses included.
type InsertRow struct {
	Start  int       `json:"start" yaml:"start"`
	Stop   int       `json:"stop" yaml:"stop"`
	Values []Operand `json:"values" yaml:"values"`
}

// InsertClause describes INSERT ... VALUES. Columns is empty when the
// statement has no column list, TableColumns then gives the table order.
// ColumnsStop is the last character of the last listed column.
type InsertClause struct {
	Columns      []string    `json:"columns,omitempty" yaml:"columns"`
	TableColumns []string    `json:"table_columns,omitempty" yaml:"table_columns"`
	ColumnsStop  int         `json:"columns_stop,omitempty" yaml:"columns_stop"`
	Rows         []InsertRow `json:"rows" yaml:"rows"`
}

// EffectiveColumns returns the columns values are bound to.
func (i *InsertClause) EffectiveColumns() []string {
	if len(i.Columns) > 0 {
		return i.Columns
	}
	return i.TableColumns
}

// ColumnIndex returns the position of column within the effective
// column list, or -1.
func (i *InsertClause) ColumnIndex(column string) int {
	for idx, c := range i.EffectiveColumns() {
		if strings.EqualFold(c, column) {
			return idx
		}
	}
	return -1
}

// HasParams reports whether any VALUES row uses parameter markers.
func (r *InsertRow) HasParams() bool {
	for _, v := range r.Values {
		if v.Kind == OperandParam {
			return true
		}
	}
	return false
}
