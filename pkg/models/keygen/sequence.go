package keygen

import (
	"context"
	"fmt"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

type SequenceGenerator struct {
	seq  SequenceSource
	name string
}

var _ Generator = &SequenceGenerator{}

// NewSequenceGenerator reads the "sequence" property.
func NewSequenceGenerator(seq SequenceSource, props map[string]string) (Generator, error) {
	if seq == nil {
		return nil, fmt.Errorf("no sequence store configured")
	}
	name := props["sequence"]
	if name == "" {
		return nil, fmt.Errorf("property \"sequence\" is required")
	}
	return &SequenceGenerator{seq: seq, name: name}, nil
}

func (g *SequenceGenerator) Type() string {
	return TypeSequence
}

func (g *SequenceGenerator) NextKeys(ctx context.Context, n int) ([]any, error) {
	res := make([]any, n)
	for i := range res {
		v, err := g.seq.NextVal(ctx, g.name)
		if err != nil {
			return nil, pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\": %s", g.name, err)
		}
		res[i] = v
	}
	return res, nil
}
