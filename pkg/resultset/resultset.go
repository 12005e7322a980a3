package resultset

import (
	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// QueryResult is a forward-only cursor over the rows one route unit
// returned. Row is valid until the following Next.
type QueryResult interface {
	Columns() []string
	Next() (bool, error)
	Row() []any
	Close() error
}

// MemoryResult is a fully buffered QueryResult.
type MemoryResult struct {
	Cols []string
	Rows [][]any

	pos    int
	closed bool
}

var _ QueryResult = &MemoryResult{}

func NewMemoryResult(cols []string, rows ...[]any) *MemoryResult {
	return &MemoryResult{Cols: cols, Rows: rows}
}

// FromPgxRows buffers pgx rows into memory and closes them.
func FromPgxRows(rows pgx.Rows) (*MemoryResult, error) {
	defer rows.Close()
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	res := &MemoryResult{Cols: cols}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

// FromSqlxRows buffers database/sql rows into memory and closes them.
// Text values come back as strings.
func FromSqlxRows(rows *sqlx.Rows) (*MemoryResult, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &MemoryResult{Cols: cols}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

func (r *MemoryResult) AppendRow(vals ...any) {
	r.Rows = append(r.Rows, vals)
}

func (r *MemoryResult) Columns() []string {
	return r.Cols
}

func (r *MemoryResult) Next() (bool, error) {
	if r.closed || r.pos >= len(r.Rows) {
		return false, nil
	}
	r.pos++
	return true, nil
}

func (r *MemoryResult) Row() []any {
	if r.pos == 0 || r.pos > len(r.Rows) {
		return nil
	}
	return r.Rows[r.pos-1]
}

func (r *MemoryResult) Close() error {
	r.closed = true
	return nil
}

// Drain reads the rest of res into memory and closes it.
func Drain(res QueryResult) ([][]any, error) {
	defer res.Close()
	var rows [][]any
	for {
		ok, err := res.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		row := make([]any, len(res.Row()))
		copy(row, res.Row())
		rows = append(rows, row)
	}
}
