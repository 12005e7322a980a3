package engine_test

import (
	"testing"
	"time"

	"github.com/pg-sharding/shardpipe/pkg/engine"
	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		l, r any
		exp  int
		err  bool
	}

	now := time.Now()
	for _, tt := range []tcase{
		{l: 1, r: int64(2), exp: -1},
		{l: int32(5), r: uint8(5), exp: 0},
		{l: 2.5, r: int64(2), exp: 1},
		{l: "b", r: "a", exp: 1},
		{l: []byte("a"), r: "a", exp: 0},
		{l: now, r: now.Add(time.Second), exp: -1},
		{l: true, r: false, exp: 1},
		{l: "a", r: 1, err: true},
	} {
		c, err := engine.Compare(tt.l, tt.r)
		if tt.err {
			assert.Error(err)
			continue
		}
		assert.NoError(err)
		assert.Equal(tt.exp, c, "compare %v and %v", tt.l, tt.r)
	}
}

func TestCompareWithNulls(t *testing.T) {
	assert := assert.New(t)
	op := &engine.ValueOperator{}

	c, _ := engine.CompareWithNulls(nil, 1, false, true, op)
	assert.Equal(-1, c)
	c, _ = engine.CompareWithNulls(nil, 1, true, true, op)
	assert.Equal(-1, c, "nulls first does not depend on direction")
	c, _ = engine.CompareWithNulls(nil, 1, false, false, op)
	assert.Equal(1, c)
	c, _ = engine.CompareWithNulls(1, nil, false, false, op)
	assert.Equal(-1, c)
	c, _ = engine.CompareWithNulls(nil, nil, false, false, op)
	assert.Equal(0, c)
	c, _ = engine.CompareWithNulls(1, 2, true, false, op)
	assert.Equal(1, c)
}

func TestSortRowsStable(t *testing.T) {
	assert := assert.New(t)

	rows := [][]any{
		{int64(2), "a"},
		{int64(1), "b"},
		{nil, "c"},
		{int64(2), "d"},
	}
	err := engine.SortRows(rows, []engine.SortKey{{Index: 0, NullsFirst: true}}, &engine.ValueOperator{})
	assert.NoError(err)
	assert.Equal([][]any{
		{nil, "c"},
		{int64(1), "b"},
		{int64(2), "a"},
		{int64(2), "d"},
	}, rows)
}

func TestGroupKey(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(engine.GroupKey([]any{1, "x"}, []int{0, 1}), engine.GroupKey([]any{int64(1), []byte("x")}, []int{0, 1}))
	assert.NotEqual(engine.GroupKey([]any{1}, []int{0}), engine.GroupKey([]any{"1"}, []int{0}))
	assert.NotEqual(engine.GroupKey([]any{nil}, []int{0}), engine.GroupKey([]any{"<nil>"}, []int{0}))
}
