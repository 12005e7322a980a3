package keygen

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

type SnowflakeGenerator struct {
	node *snowflake.Node
}

var _ Generator = &SnowflakeGenerator{}

// NewSnowflakeGenerator reads "worker-id" (0..1023, default 0).
func NewSnowflakeGenerator(props map[string]string) (Generator, error) {
	workerID := int64(0)
	if raw, ok := props["worker-id"]; ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid worker-id \"%s\": %w", raw, err)
		}
		workerID = v
	}
	node, err := snowflake.NewNode(workerID)
	if err != nil {
		return nil, err
	}
	return &SnowflakeGenerator{node: node}, nil
}

func (g *SnowflakeGenerator) Type() string {
	return TypeSnowflake
}

func (g *SnowflakeGenerator) NextKeys(_ context.Context, n int) ([]any, error) {
	res := make([]any, n)
	for i := range res {
		res[i] = g.node.Generate().Int64()
	}
	return res, nil
}
