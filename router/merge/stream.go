package merge

import (
	"container/heap"

	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/pg-sharding/shardpipe/pkg/resultset"
)

type cursor struct {
	res  resultset.QueryResult
	unit int
}

// cursorHeap orders unit cursors by their current row. Ties go to the
// unit that comes first in route order.
type cursorHeap struct {
	cursors []*cursor
	keys    []engine.SortKey
	op      engine.Operator
	err     error
}

func (h *cursorHeap) Len() int { return len(h.cursors) }

func (h *cursorHeap) Less(i, j int) bool {
	l, r := h.cursors[i], h.cursors[j]
	c, err := engine.CompareRows(l.res.Row(), r.res.Row(), h.keys, h.op)
	if err != nil && h.err == nil {
		h.err = err
	}
	if c != 0 {
		return c < 0
	}
	return l.unit < r.unit
}

func (h *cursorHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *cursorHeap) Push(x any) {
	h.cursors = append(h.cursors, x.(*cursor))
}

func (h *cursorHeap) Pop() any {
	old := h.cursors
	n := len(old)
	c := old[n-1]
	h.cursors = old[:n-1]
	return c
}

// streamSource merges units that are each sorted by the ORDER BY keys.
type streamSource struct {
	results []resultset.QueryResult
	h       *cursorHeap
	current *cursor
	started bool
}

func newStreamSource(results []resultset.QueryResult, keys []engine.SortKey, op engine.Operator) *streamSource {
	return &streamSource{results: results, h: &cursorHeap{keys: keys, op: op}}
}

func (s *streamSource) start() error {
	s.started = true
	for i, r := range s.results {
		ok, err := r.Next()
		if err != nil {
			return err
		}
		if ok {
			s.h.cursors = append(s.h.cursors, &cursor{res: r, unit: i})
		}
	}
	heap.Init(s.h)
	return s.h.err
}

func (s *streamSource) next() (bool, error) {
	if !s.started {
		if err := s.start(); err != nil {
			return false, err
		}
	} else if s.current != nil {
		ok, err := s.current.res.Next()
		if err != nil {
			return false, err
		}
		if ok {
			heap.Push(s.h, s.current)
		}
		s.current = nil
	}

	if s.h.Len() == 0 {
		return false, nil
	}
	s.current = heap.Pop(s.h).(*cursor)
	if s.h.err != nil {
		return false, s.h.err
	}
	return true, nil
}

func (s *streamSource) row() []any {
	if s.current == nil {
		return nil
	}
	return s.current.res.Row()
}
