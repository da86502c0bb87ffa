// Package deferred implements lazily evaluated tensor expressions and the
// caller-owned structure memoizer they are evaluated against.
//
// A deferred Tensor is a recipe, not a value. Calling Evaluate with a
// Memoizer runs the recipe at most once for that memoizer; later calls with
// the same memoizer return the cached value. Different memoizers never share
// results, so one memoizer corresponds to one evaluation pass (for example a
// single optimization run over a batch of data).
package deferred

import (
	"fmt"
	"sync"

	"gorates/domain/core"
	"gorates/internal"
	"gorates/internal/tensor"

	"golang.org/x/sync/singleflight"
)

// Key names a well-known memoizer setting
type Key string

// Well-known memoizer keys
const (
	// DenominatorLowerBoundKey holds the float64 lower bound applied to rate denominators.
	DenominatorLowerBoundKey Key = "denominator_lower_bound"
	// GlobalStepKey holds the *Variable iteration counter shared by an optimization run.
	GlobalStepKey Key = "global_step"
)

// DefaultDenominatorLowerBound is used when no bound is configured
const DefaultDenominatorLowerBound = 0.0

// Memoizer is the structure memoizer: settings keyed by well-known Keys plus
// the cached value of every deferred Tensor evaluated against it.
type Memoizer struct {
	mu       sync.Mutex
	settings map[Key]interface{}
	values   map[core.TensorID]tensor.Tensor
	logger   *internal.Logger

	// inflight collapses concurrent evaluations of the same expression
	inflight singleflight.Group
}

// Option configures a Memoizer
type Option func(*Memoizer)

// WithDenominatorLowerBound overrides the default denominator lower bound
func WithDenominatorLowerBound(bound float64) Option {
	return func(m *Memoizer) {
		m.settings[DenominatorLowerBoundKey] = bound
	}
}

// WithGlobalStep installs an existing counter instead of a fresh one
func WithGlobalStep(step *Variable) Option {
	return func(m *Memoizer) {
		m.settings[GlobalStepKey] = step
	}
}

// WithLogger sets the logger used to trace cache activity. A nil logger
// keeps the default.
func WithLogger(logger *internal.Logger) Option {
	return func(m *Memoizer) {
		if logger == nil {
			logger = internal.DefaultLogger
		}
		m.logger = logger.WithPrefix("memoizer")
	}
}

// NewMemoizer creates a memoizer seeded with the well-known keys
func NewMemoizer(opts ...Option) *Memoizer {
	m := &Memoizer{
		settings: map[Key]interface{}{
			DenominatorLowerBoundKey: DefaultDenominatorLowerBound,
			GlobalStepKey:            NewVariable(0),
		},
		values: make(map[core.TensorID]tensor.Tensor),
		logger: internal.DefaultLogger.WithPrefix("memoizer"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores a setting, replacing any previous value
func (m *Memoizer) Set(key Key, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
}

// Get returns a setting
func (m *Memoizer) Get(key Key) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok
}

// DenominatorLowerBound returns the configured lower bound
func (m *Memoizer) DenominatorLowerBound() (float64, error) {
	v, ok := m.Get(DenominatorLowerBoundKey)
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrKeyNotFound, DenominatorLowerBoundKey)
	}
	bound, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s holds %T, want float64", core.ErrInvalidArgument, DenominatorLowerBoundKey, v)
	}
	return bound, nil
}

// GlobalStep returns the shared iteration counter
func (m *Memoizer) GlobalStep() (*Variable, error) {
	v, ok := m.Get(GlobalStepKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, GlobalStepKey)
	}
	step, ok := v.(*Variable)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T, want *Variable", core.ErrInvalidArgument, GlobalStepKey, v)
	}
	return step, nil
}

// Len returns the number of cached deferred values
func (m *Memoizer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

// evaluate runs fn for id at most once at a time. Callers that arrive while
// fn is running wait for its result instead of starting their own.
func (m *Memoizer) evaluate(id core.TensorID, fn func() (tensor.Tensor, error)) (tensor.Tensor, error) {
	v, err, _ := m.inflight.Do(id.String(), func() (interface{}, error) {
		if cached, ok := m.lookup(id); ok {
			return cached, nil
		}
		value, err := fn()
		if err != nil {
			return nil, err
		}
		return m.store(id, value), nil
	})
	if err != nil {
		return tensor.Tensor{}, err
	}
	return v.(tensor.Tensor), nil
}

func (m *Memoizer) lookup(id core.TensorID) (tensor.Tensor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[id]
	return v, ok
}

// store records a value unless another evaluation got there first, in which
// case the earlier value wins and is returned.
func (m *Memoizer) store(id core.TensorID, value tensor.Tensor) tensor.Tensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[id]; ok {
		return existing
	}
	m.values[id] = value
	return value
}
