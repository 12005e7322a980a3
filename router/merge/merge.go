// Package merge turns the cursors of all route units into one logical cursor.
package merge

import (
	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
)

type State int

const (
	Unmerged = State(iota)
	Merging
	Exhausted
)

func (s State) String() string {
	switch s {
	case Unmerged:
		return "unmerged"
	case Merging:
		return "merging"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

type MergedResult interface {
	Next() (bool, error)
	Row() []any
	Columns() []string
	State() State
	Close() error
}

// source is one stage of a merge pipeline.
type source interface {
	next() (bool, error)
	row() []any
}

type mergedResult struct {
	cols    []string
	src     source
	results []resultset.QueryResult
	state   State
	closed  bool
}

var _ MergedResult = &mergedResult{}

func (m *mergedResult) Next() (bool, error) {
	if m.closed || m.state == Exhausted {
		return false, nil
	}
	m.state = Merging
	ok, err := m.src.next()
	if err != nil {
		return false, err
	}
	if !ok {
		m.state = Exhausted
	}
	return ok, nil
}

func (m *mergedResult) Row() []any {
	if m.state != Merging {
		return nil
	}
	return m.src.row()
}

func (m *mergedResult) Columns() []string {
	return m.cols
}

func (m *mergedResult) State() State {
	return m.state
}

// Close releases every unit cursor. It is fine to close before exhaustion.
func (m *mergedResult) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var first error
	for _, r := range m.results {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Merge combines unit results, positionally aligned with the route units,
// following the shape of the query in mctx.
func Merge(results []resultset.QueryResult, mctx *Context) (MergedResult, error) {
	for i, r := range results {
		if r == nil {
			return nil, pipeerror.Newf(pipeerror.PIPE_MERGE_ERROR, "result of unit %d is missing", i)
		}
	}
	if len(results) == 0 {
		return &mergedResult{src: &iteratorSource{}}, nil
	}

	cols := results[0].Columns()
	visible := mctx.visible(cols)
	m := &mergedResult{cols: cols[:visible], results: results}

	var (
		src  source
		kind string
	)
	switch {
	case len(results) == 1 && len(mctx.Derived) == 0:
		kind = "passthrough"
		src = &iteratorSource{results: results}
	case mctx.grouped():
		kind = "group by"
		g, err := newGroupSource(results, mctx, len(cols), visible)
		if err != nil {
			return nil, err
		}
		src = g
	case len(mctx.Stmt.OrderBy) > 0:
		kind = "stream"
		keys, err := mctx.orderKeys(visible)
		if err != nil {
			return nil, err
		}
		src = newStreamSource(results, keys, &engine.ValueOperator{})
	default:
		kind = "iterator"
		src = &iteratorSource{results: results}
	}

	if mctx.Paginated {
		src = &limitSource{src: src, offset: mctx.Offset, rowCount: mctx.RowCount, unbounded: mctx.Unbounded}
	}
	if visible < len(cols) {
		src = &trimSource{src: src, visible: visible}
	}
	m.src = src

	shardlog.Zero.Debug().
		Str("merge", kind).
		Int("units", len(results)).
		Int("derived columns", len(cols)-visible).
		Bool("paginated", mctx.Paginated).
		Msg("merging results")
	return m, nil
}

// iteratorSource drains units one after another in route order.
type iteratorSource struct {
	results []resultset.QueryResult
	cur     int
}

func (s *iteratorSource) next() (bool, error) {
	for s.cur < len(s.results) {
		ok, err := s.results[s.cur].Next()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		s.cur++
	}
	return false, nil
}

func (s *iteratorSource) row() []any {
	if s.cur >= len(s.results) {
		return nil
	}
	return s.results[s.cur].Row()
}

// limitSource skips offset rows and stops after rowCount more.
type limitSource struct {
	src       source
	offset    int64
	rowCount  int64
	unbounded bool

	skipped  bool
	returned int64
}

func (s *limitSource) next() (bool, error) {
	if !s.skipped {
		s.skipped = true
		for i := int64(0); i < s.offset; i++ {
			ok, err := s.src.next()
			if err != nil || !ok {
				return false, err
			}
		}
	}
	if !s.unbounded && s.returned >= s.rowCount {
		return false, nil
	}
	ok, err := s.src.next()
	if err != nil || !ok {
		return false, err
	}
	s.returned++
	return true, nil
}

func (s *limitSource) row() []any {
	return s.src.row()
}

// trimSource hides derived columns.
type trimSource struct {
	src     source
	visible int
}

func (s *trimSource) next() (bool, error) {
	return s.src.next()
}

func (s *trimSource) row() []any {
	r := s.src.row()
	if len(r) > s.visible {
		return r[:s.visible]
	}
	return r
}
