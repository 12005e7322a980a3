package pipeerror_test

import (
	"fmt"
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert := assert.New(t)

	err := pipeerror.Newf(pipeerror.PIPE_ROUTING_ERROR, "no target for column %s value %v", "order_id", 7)
	assert.Equal("Code: PIPER. Name: Routing error. Description: no target for column order_id value 7.", err.Error())

	err = pipeerror.NewByCode(pipeerror.PIPE_NOT_IMPLEMENTED)
	assert.Equal("Code: PIPEN. Name: Not implemented. Description: Not implemented.", err.Error())
}

func TestCode(t *testing.T) {
	assert := assert.New(t)

	base := pipeerror.New(pipeerror.PIPE_MIXED_TABLES, "t_order and t_config")
	assert.Equal(pipeerror.PIPE_MIXED_TABLES, pipeerror.Code(base))
	assert.Equal(pipeerror.PIPE_MIXED_TABLES, pipeerror.Code(errors.Wrap(base, "route")))
	assert.Equal(pipeerror.PIPE_MIXED_TABLES, pipeerror.Code(fmt.Errorf("stmt: %w", base)))
	assert.Equal("", pipeerror.Code(fmt.Errorf("plain")))
	assert.Equal("", pipeerror.Code(nil))
	assert.Equal("Unexpected error", pipeerror.GetMessageByCode("XXXXX"))
}
