package keygen

import (
	"context"
	"fmt"
	"sync"

	"github.com/pg-sharding/shardpipe/qdb"
)

const DEFAULT_ID_RANGE_SIZE uint64 = 1

// RangeSource hands out fresh id ranges of a sequence.
type RangeSource interface {
	NextRange(ctx context.Context, seqName string, rangeSize uint64) (*qdb.SequenceIdRange, error)
}

type cachedIdRange struct {
	idRange *qdb.SequenceIdRange
	mu      sync.Mutex
}

func (cir *cachedIdRange) nextVal() (int64, bool) {
	if cir.idRange == nil || cir.idRange.Left > cir.idRange.Right {
		return 0, false
	}
	res := cir.idRange.Left
	if cir.idRange.Left == cir.idRange.Right {
		cir.idRange = nil
	} else {
		cir.idRange.Left++
	}
	return res, true
}

// IdentityCache serves sequence values from locally cached ranges and asks
// the store for a new range once the cached one is used up.
type IdentityCache struct {
	cachedIdentities map[string]*cachedIdRange
	rangeSize        uint64
	mu               sync.Mutex
	src              RangeSource
}

func NewIdentityCache(rangeSize uint64, src RangeSource) *IdentityCache {
	if rangeSize == 0 {
		rangeSize = DEFAULT_ID_RANGE_SIZE
	}
	return &IdentityCache{
		cachedIdentities: map[string]*cachedIdRange{},
		rangeSize:        rangeSize,
		src:              src,
	}
}

func (ic *IdentityCache) rangeForSeq(seqName string) *cachedIdRange {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	rng, ok := ic.cachedIdentities[seqName]
	if !ok {
		rng = &cachedIdRange{}
		ic.cachedIdentities[seqName] = rng
	}
	return rng
}

func (ic *IdentityCache) NextVal(ctx context.Context, seqName string) (int64, error) {
	rng := ic.rangeForSeq(seqName)
	rng.mu.Lock()
	defer rng.mu.Unlock()

	if v, ok := rng.nextVal(); ok {
		return v, nil
	}
	newRange, err := ic.src.NextRange(ctx, seqName, ic.rangeSize)
	if err != nil {
		return 0, err
	}
	rng.idRange = newRange
	if v, ok := rng.nextVal(); ok {
		return v, nil
	}
	return 0, fmt.Errorf("can`t get next value from fresh id range! sequence='%s'", seqName)
}
