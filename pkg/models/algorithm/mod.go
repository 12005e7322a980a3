package algorithm

import (
	"fmt"
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/models/hashfunction"
)

// ModAlgorithm picks the target whose suffix equals value % sharding-count.
type ModAlgorithm struct {
	shardingCount int64
}

var _ StandardAlgorithm = &ModAlgorithm{}

func NewModAlgorithm(props map[string]string) (any, error) {
	cnt, err := intProp(props, "sharding-count")
	if err != nil {
		return nil, err
	}
	if cnt <= 0 {
		return nil, fmt.Errorf("sharding-count must be positive, got %d", cnt)
	}
	return &ModAlgorithm{shardingCount: cnt}, nil
}

func (a *ModAlgorithm) DoSharding(targets []string, value PreciseValue) (string, error) {
	v, err := toInt64(value.Value)
	if err != nil {
		return "", err
	}
	idx := v % a.shardingCount
	if idx < 0 {
		idx = -idx
	}
	if t, ok := targetByIndex(targets, idx); ok {
		return t, nil
	}
	return "", fmt.Errorf("no target with suffix %d among [%s]", idx, strings.Join(targets, ", "))
}

// DoRangeSharding narrows only ranges shorter than sharding-count,
// anything wider touches every target.
func (a *ModAlgorithm) DoRangeSharding(targets []string, value RangeValue) ([]string, error) {
	if !value.Range.HasLower || !value.Range.HasUpper {
		return targets, nil
	}
	lo, err := toInt64(value.Range.Lower)
	if err != nil {
		return targets, nil
	}
	hi, err := toInt64(value.Range.Upper)
	if err != nil {
		return targets, nil
	}
	if hi < lo {
		return nil, nil
	}
	// hi-lo overflows int64 for wide ranges, the unsigned difference does not.
	span := uint64(hi) - uint64(lo)
	if span >= uint64(a.shardingCount)-1 {
		return targets, nil
	}
	idxs := map[int64]struct{}{}
	for i := int64(0); i <= int64(span); i++ {
		idx := (lo + i) % a.shardingCount
		if idx < 0 {
			idx = -idx
		}
		idxs[idx] = struct{}{}
	}
	return targetsByIndexes(targets, idxs), nil
}

// HashModAlgorithm hashes the value before taking the modulo.
type HashModAlgorithm struct {
	shardingCount int64
	hf            hashfunction.HashFunctionType
}

var _ StandardAlgorithm = &HashModAlgorithm{}

func NewHashModAlgorithm(props map[string]string) (any, error) {
	cnt, err := intProp(props, "sharding-count")
	if err != nil {
		return nil, err
	}
	if cnt <= 0 {
		return nil, fmt.Errorf("sharding-count must be positive, got %d", cnt)
	}
	hfName, ok := props["hash-function"]
	if !ok {
		hfName = "murmur"
	}
	hf, err := hashfunction.HashFunctionByName(hfName)
	if err != nil {
		return nil, err
	}
	return &HashModAlgorithm{shardingCount: cnt, hf: hf}, nil
}

func (a *HashModAlgorithm) DoSharding(targets []string, value PreciseValue) (string, error) {
	h, err := hashfunction.ApplyHashFunction(value.Value, a.hf)
	if err != nil {
		return "", err
	}
	idx := int64(h % uint64(a.shardingCount))
	if t, ok := targetByIndex(targets, idx); ok {
		return t, nil
	}
	return "", fmt.Errorf("no target with suffix %d among [%s]", idx, strings.Join(targets, ", "))
}

func (a *HashModAlgorithm) DoRangeSharding(targets []string, _ RangeValue) ([]string, error) {
	return targets, nil
}
