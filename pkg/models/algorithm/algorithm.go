package algorithm

import (
	"sort"
	"strings"
	"sync"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
)

const (
	TypeMod           = "MOD"
	TypeHashMod       = "HASH_MOD"
	TypeInline        = "INLINE"
	TypeBoundaryRange = "BOUNDARY_RANGE"
	TypeVolumeRange   = "VOLUME_RANGE"
	TypeComplexInline = "COMPLEX_INLINE"
	TypeHintInline    = "HINT_INLINE"
)

// Range is a closed interval, a missing bound is unbounded.
type Range struct {
	Lower    any
	Upper    any
	HasLower bool
	HasUpper bool
}

type PreciseValue struct {
	Table  string
	Column string
	Value  any
}

type RangeValue struct {
	Table  string
	Column string
	Range  Range
}

// ComplexValues carries every extracted value of a complex strategy's
// columns in one call. A column may appear in Values, in Ranges or in neither.
type ComplexValues struct {
	Table  string
	Values map[string][]any
	Ranges map[string]Range
}

type HintValues struct {
	Table  string
	Values []any
}

// StandardAlgorithm shards on a single column.
type StandardAlgorithm interface {
	DoSharding(targets []string, value PreciseValue) (string, error)
	DoRangeSharding(targets []string, value RangeValue) ([]string, error)
}

type ComplexAlgorithm interface {
	DoComplexSharding(targets []string, values ComplexValues) ([]string, error)
}

type HintAlgorithm interface {
	DoHintSharding(targets []string, values HintValues) ([]string, error)
}

type Factory func(props map[string]string) (any, error)

// Registry maps algorithm type names to factories. It is built once and
// handed to rule building, there is no process-wide instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
	}
}

// NewDefaultRegistry returns a registry holding every built-in algorithm.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeMod, NewModAlgorithm)
	r.Register(TypeHashMod, NewHashModAlgorithm)
	r.Register(TypeInline, NewInlineAlgorithm)
	r.Register(TypeBoundaryRange, NewBoundaryRangeAlgorithm)
	r.Register(TypeVolumeRange, NewVolumeRangeAlgorithm)
	r.Register(TypeComplexInline, NewComplexInlineAlgorithm)
	r.Register(TypeHintInline, NewHintInlineAlgorithm)
	return r
}

func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToUpper(typ)] = f
}

func (r *Registry) New(typ string, props map[string]string) (any, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToUpper(typ)]
	r.mu.RUnlock()
	if !ok {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "unknown sharding algorithm type \"%s\"", typ)
	}
	if props == nil {
		props = map[string]string{}
	}
	alg, err := f(props)
	if err != nil {
		return nil, pipeerror.Newf(pipeerror.PIPE_CONFIG_ERROR, "failed to init %s algorithm: %s", typ, err)
	}
	return alg, nil
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.factories))
	for k := range r.factories {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Contains reports whether range covers value.
func (rg Range) Contains(value any) (bool, error) {
	if rg.HasLower {
		c, err := compare(value, rg.Lower)
		if err != nil {
			return false, err
		}
		if c < 0 {
			return false, nil
		}
	}
	if rg.HasUpper {
		c, err := compare(value, rg.Upper)
		if err != nil {
			return false, err
		}
		if c > 0 {
			return false, nil
		}
	}
	return true, nil
}
