package qdb

import (
	"fmt"
	"math"
)

// SequenceIdRange is an inclusive range of sequence values.
type SequenceIdRange struct {
	Left  int64 `json:"left"`
	Right int64 `json:"right"`
}

func NewRangeBySize(left int64, size uint64) (*SequenceIdRange, error) {
	if size == 0 {
		return nil, fmt.Errorf("invalid (case 2) id-range request: current=%d, request for=%d", left, size)
	}
	if size > math.MaxInt64 || left > math.MaxInt64-int64(size)+1 {
		return nil, fmt.Errorf("invalid (case 1) id-range request: current=%d, request for=%d", left, size)
	}
	return &SequenceIdRange{Left: left, Right: left + int64(size) - 1}, nil
}
