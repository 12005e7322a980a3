package rule_test

import (
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/rule"
	"github.com/stretchr/testify/assert"
)

func TestExpandInline(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		expr string
		exp  []string
		err  bool
	}

	for _, tt := range []tcase{
		{
			expr: "ds_${0..1}.t_order_${0..1}",
			exp:  []string{"ds_0.t_order_0", "ds_0.t_order_1", "ds_1.t_order_0", "ds_1.t_order_1"},
		},
		{
			expr: "ds_$->{['a','b']}.t_user",
			exp:  []string{"ds_a.t_user", "ds_b.t_user"},
		},
		{
			expr: "ds_0.t_order_${0..1}, ds_1.t_order_${[2, 3]}",
			exp:  []string{"ds_0.t_order_0", "ds_0.t_order_1", "ds_1.t_order_2", "ds_1.t_order_3"},
		},
		{
			expr: "ds_0.t_order",
			exp:  []string{"ds_0.t_order"},
		},
		{
			expr: "ds_${2..1}.t",
			err:  true,
		},
		{
			expr: "ds_${0..1.t",
			err:  true,
		},
		{
			expr: "ds_${x}.t",
			err:  true,
		},
	} {
		res, err := rule.ExpandInline(tt.expr)
		if tt.err {
			assert.Error(err, tt.expr)
			continue
		}
		assert.NoError(err, tt.expr)
		assert.Equal(tt.exp, res, tt.expr)
	}
}

func TestParseDataNode(t *testing.T) {
	assert := assert.New(t)

	dn, err := rule.ParseDataNode(" ds_0.t_order_1 ")
	assert.NoError(err)
	assert.Equal(rule.DataNode{DataSource: "ds_0", Table: "t_order_1"}, dn)
	assert.Equal("ds_0.t_order_1", dn.String())

	for _, s := range []string{"t_order", "a.b.c", ".t", "ds."} {
		_, err := rule.ParseDataNode(s)
		assert.Error(err, s)
	}
}
