package keygen

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

const (
	TypeSnowflake = "SNOWFLAKE"
	TypeUUID      = "UUID"
	TypeUUIDV6    = "UUIDV6"
	TypeUUIDV7    = "UUIDV7"
	TypeSequence  = "SEQUENCE"
)

// Generator hands out keys. Implementations never return the same key
// twice, including under concurrent calls.
type Generator interface {
	Type() string
	NextKeys(ctx context.Context, n int) ([]any, error)
}

// SequenceSource serves monotonically increasing values of named sequences.
type SequenceSource interface {
	NextVal(ctx context.Context, seqName string) (int64, error)
}

type Factory func(props map[string]string) (Generator, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// NewDefaultRegistry registers built-in generators. seq backs SEQUENCE
// generators and may be nil when no sequence store is configured.
func NewDefaultRegistry(seq SequenceSource) *Registry {
	r := NewRegistry()
	r.Register(TypeSnowflake, NewSnowflakeGenerator)
	r.Register(TypeUUID, NewUUIDGenerator)
	r.Register(TypeUUIDV6, NewUUIDV6Generator)
	r.Register(TypeUUIDV7, NewUUIDV7Generator)
	r.Register(TypeSequence, func(props map[string]string) (Generator, error) {
		return NewSequenceGenerator(seq, props)
	})
	return r
}

func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToUpper(typ)] = f
}

func (r *Registry) New(typ string, props map[string]string) (Generator, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToUpper(typ)]
	r.mu.RUnlock()
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "unknown key generator type \"%s\"", typ)
	}
	if props == nil {
		props = map[string]string{}
	}
	g, err := f(props)
	if err != nil {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "failed to init %s key generator: %s", typ, err)
	}
	return g, nil
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.factories))
	for t := range r.factories {
		res = append(res, t)
	}
	sort.Strings(res)
	return res
}
