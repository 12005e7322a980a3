package statistics

import (
	"sync"
	"time"

	"github.com/caio/go-tdigest"
)

type StatHolder interface {
	// Add adds a latency sample in milliseconds.
	Add(statType StatisticsType, value float64) error

	RecordStartTime(statType StatisticsType, t time.Time)
	GetTimeQuantile(statType StatisticsType, q float64) float64
	GetTimeData() *StartTimes
}

// StartTimes holds the start of every stage of the statement in flight.
type StartTimes struct {
	StatementStart time.Time
	RouteStart     time.Time
	RewriteStart   time.Time
	ExecuteStart   time.Time
	MergeStart     time.Time
}

func (st *StartTimes) field(statType StatisticsType) *time.Time {
	switch statType {
	case StatisticsTypeStatement:
		return &st.StatementStart
	case StatisticsTypeRoute:
		return &st.RouteStart
	case StatisticsTypeRewrite:
		return &st.RewriteStart
	case StatisticsTypeExecute:
		return &st.ExecuteStart
	case StatisticsTypeMerge:
		return &st.MergeStart
	}
	return nil
}

func (st *StartTimes) Get(statType StatisticsType) time.Time {
	if f := st.field(statType); f != nil {
		return *f
	}
	return time.Time{}
}

func (st *StartTimes) Set(statType StatisticsType, t time.Time) {
	if f := st.field(statType); f != nil {
		*f = t
	}
}

// SessionStats is the StatHolder kept by every session.
type SessionStats struct {
	mu      sync.Mutex
	times   StartTimes
	digests map[StatisticsType]*tdigest.TDigest
}

var _ StatHolder = &SessionStats{}

func NewSessionStats() *SessionStats {
	return &SessionStats{digests: map[StatisticsType]*tdigest.TDigest{}}
}

func (s *SessionStats) Add(statType StatisticsType, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	td, ok := s.digests[statType]
	if !ok {
		var err error
		if td, err = tdigest.New(); err != nil {
			return err
		}
		s.digests[statType] = td
	}
	return td.Add(value)
}

func (s *SessionStats) RecordStartTime(statType StatisticsType, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.times.Set(statType, t)
}

func (s *SessionStats) GetTimeQuantile(statType StatisticsType, q float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	td, ok := s.digests[statType]
	if !ok {
		return 0
	}
	return td.Quantile(q)
}

func (s *SessionStats) GetTimeData() *StartTimes {
	return &s.times
}
