package hint_test

import (
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/router/hint"
	"github.com/stretchr/testify/assert"
)

func TestParseComment(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		sample string
		exp    map[string]string
		err    bool
	}

	for _, tt := range []tcase{
		{
			sample: "lol: kek",
			exp:    map[string]string{"lol": "kek"},
		},
		{
			sample: "lol kek",
			err:    true,
		},
		{
			sample: "lol: kek lol2: kek2",
			err:    true,
		},
		{
			sample: "vguoyguoygoyy",
			err:    true,
		},
		{
			sample: ": kek",
			err:    true,
		},
		{
			sample: "lol:   ",
			err:    true,
		},
		{
			sample: "lol: kek , LOL2 : kek2   , lol3:     kek3",
			exp:    map[string]string{"lol": "kek", "lol2": "kek2", "lol3": "kek3"},
		},
		{
			sample: "   ",
			exp:    map[string]string{},
		},
	} {
		opts, err := hint.ParseComment(tt.sample)
		if tt.err {
			assert.Error(err, tt.sample)
			continue
		}
		assert.NoError(err, tt.sample)
		assert.Equal(tt.exp, opts, tt.sample)
	}
}

func TestParse(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		comment string
		exp     *hint.Hints
		errCode string
	}

	for _, tt := range []tcase{
		{
			comment: "/* just a comment */",
			exp:     &hint.Hints{},
		},
		{
			comment: "",
			exp:     &hint.Hints{},
		},
		{
			comment: "/* shardpipe: datasource: ds_1, sharding_database_value: 3 */",
			exp:     &hint.Hints{DataSource: "ds_1", DatabaseValues: []any{int64(3)}},
		},
		{
			comment: "/* SHARDPIPE: sharding_table_value: 3|abc, skip_rewrite: true */",
			exp:     &hint.Hints{TableValues: []any{int64(3), "abc"}, SkipRewrite: true},
		},
		{
			comment: "/* shardpipe: colour: red */",
			errCode: pipeerror.PIPE_HINT_ERROR,
		},
		{
			comment: "/* shardpipe: skip_rewrite: perhaps */",
			errCode: pipeerror.PIPE_HINT_ERROR,
		},
		{
			comment: "/* shardpipe: datasource ds_1 */",
			errCode: pipeerror.PIPE_HINT_ERROR,
		},
	} {
		h, err := hint.Parse(tt.comment)
		if tt.errCode != "" {
			assert.Equal(tt.errCode, pipeerror.Code(err), tt.comment)
			continue
		}
		assert.NoError(err, tt.comment)
		assert.Equal(tt.exp, h, tt.comment)
	}
}

func TestMerge(t *testing.T) {
	assert := assert.New(t)

	base := &hint.Hints{DataSource: "ds_0", TableValues: []any{int64(1)}}
	over := &hint.Hints{TableValues: []any{int64(2)}}

	merged := base.Merge(over)
	assert.Equal(&hint.Hints{DataSource: "ds_0", TableValues: []any{int64(2)}}, merged)
	assert.Equal([]any{int64(1)}, base.TableValues)

	var none *hint.Hints
	assert.True(none.Empty())
	assert.Equal(over, none.Merge(over))
	assert.False(merged.Empty())
}
