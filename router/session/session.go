package session

import (
	"github.com/google/uuid"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/hint"
	"github.com/pg-sharding/shardpipe/router/statistics"
	"go.uber.org/atomic"
)

// Session is the per-client state the pipeline consults: the data source
// unicast statements stick to and hint values set by the client.
type Session struct {
	id     string
	sticky atomic.String
	hints  atomic.Pointer[hint.Hints]
	stats  *statistics.SessionStats
}

func NewSession() *Session {
	return &Session{id: uuid.NewString(), stats: statistics.NewSessionStats()}
}

func (s *Session) ID() string {
	return s.id
}

// StickyDataSource returns the data source unicast routing is bound to.
func (s *Session) StickyDataSource() (string, bool) {
	if s == nil {
		return "", false
	}
	ds := s.sticky.Load()
	return ds, ds != ""
}

// BindDataSource binds the session to ds unless it is already bound, and
// returns the data source the session ends up bound to.
func (s *Session) BindDataSource(ds string) string {
	if s == nil {
		return ds
	}
	if s.sticky.CompareAndSwap("", ds) {
		shardlog.Zero.Debug().Str("session", s.id).Str("data source", ds).Msg("session bound to data source")
		return ds
	}
	return s.sticky.Load()
}

// Unbind forgets the sticky data source.
func (s *Session) Unbind() {
	s.sticky.Store("")
}

// SetHints replaces the session hints. They win over comment hints.
func (s *Session) SetHints(h *hint.Hints) {
	s.hints.Store(h)
}

func (s *Session) ClearHints() {
	s.hints.Store(nil)
}

func (s *Session) Hints() *hint.Hints {
	if s == nil {
		return nil
	}
	return s.hints.Load()
}

// Stats returns stage latencies of statements run by the session.
func (s *Session) Stats() statistics.StatHolder {
	if s == nil {
		return nil
	}
	return s.stats
}
