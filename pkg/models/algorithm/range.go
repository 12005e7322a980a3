package algorithm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// partitionAlgorithm maps ordered boundaries to partition indexes:
// values below boundaries[0] go to 0, values in [boundaries[i-1], boundaries[i])
// go to i, values at or above the last boundary go to len(boundaries).
type partitionAlgorithm struct {
	boundaries []int64
}

func (a *partitionAlgorithm) partition(v int64) int64 {
	return int64(sort.Search(len(a.boundaries), func(i int) bool {
		return a.boundaries[i] > v
	}))
}

func (a *partitionAlgorithm) DoSharding(targets []string, value PreciseValue) (string, error) {
	v, err := toInt64(value.Value)
	if err != nil {
		return "", err
	}
	idx := a.partition(v)
	if t, ok := targetByIndex(targets, idx); ok {
		return t, nil
	}
	return "", fmt.Errorf("no target for partition %d among [%s]", idx, strings.Join(targets, ", "))
}

func (a *partitionAlgorithm) DoRangeSharding(targets []string, value RangeValue) ([]string, error) {
	lo, hi := int64(0), int64(len(a.boundaries))
	if value.Range.HasLower {
		v, err := toInt64(value.Range.Lower)
		if err != nil {
			return nil, err
		}
		lo = a.partition(v)
	}
	if value.Range.HasUpper {
		v, err := toInt64(value.Range.Upper)
		if err != nil {
			return nil, err
		}
		hi = a.partition(v)
	}
	idxs := map[int64]struct{}{}
	for i := lo; i <= hi; i++ {
		idxs[i] = struct{}{}
	}
	return targetsByIndexes(targets, idxs), nil
}

type BoundaryRangeAlgorithm struct {
	partitionAlgorithm
}

var _ StandardAlgorithm = &BoundaryRangeAlgorithm{}

// NewBoundaryRangeAlgorithm reads ascending sharding-ranges, e.g. "1,5,10".
func NewBoundaryRangeAlgorithm(props map[string]string) (any, error) {
	raw, ok := props["sharding-ranges"]
	if !ok {
		return nil, fmt.Errorf("property \"sharding-ranges\" is required")
	}
	var bounds []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid boundary \"%s\"", part)
		}
		if len(bounds) > 0 && v <= bounds[len(bounds)-1] {
			return nil, fmt.Errorf("sharding-ranges must be strictly ascending")
		}
		bounds = append(bounds, v)
	}
	if len(bounds) == 0 {
		return nil, fmt.Errorf("sharding-ranges is empty")
	}
	return &BoundaryRangeAlgorithm{partitionAlgorithm{boundaries: bounds}}, nil
}

const maxVolumePartitions = 1 << 16

type VolumeRangeAlgorithm struct {
	partitionAlgorithm
}

var _ StandardAlgorithm = &VolumeRangeAlgorithm{}

// NewVolumeRangeAlgorithm splits [range-lower, range-upper) into chunks
// of sharding-volume.
func NewVolumeRangeAlgorithm(props map[string]string) (any, error) {
	lower, err := intProp(props, "range-lower")
	if err != nil {
		return nil, err
	}
	upper, err := intProp(props, "range-upper")
	if err != nil {
		return nil, err
	}
	volume, err := intProp(props, "sharding-volume")
	if err != nil {
		return nil, err
	}
	if volume <= 0 || upper <= lower {
		return nil, fmt.Errorf("invalid volume range [%d, %d) with volume %d", lower, upper, volume)
	}
	if n := (uint64(upper)-uint64(lower)-1)/uint64(volume) + 1; n > maxVolumePartitions {
		return nil, fmt.Errorf("volume range [%d, %d) with volume %d makes %d partitions, at most %d allowed", lower, upper, volume, n, maxVolumePartitions)
	}
	var bounds []int64
	for b := lower; ; b += volume {
		bounds = append(bounds, b)
		if uint64(upper)-uint64(b) <= uint64(volume) {
			break
		}
	}
	bounds = append(bounds, upper)
	return &VolumeRangeAlgorithm{partitionAlgorithm{boundaries: bounds}}, nil
}
