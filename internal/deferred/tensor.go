package deferred

import (
	"fmt"

	"gorates/domain/core"
	"gorates/internal/tensor"
)

// Tensor is a deferred tensor expression. It is immutable and may be shared
// freely between contexts; its value lives in whichever Memoizer evaluates it.
type Tensor struct {
	id   core.TensorID
	name string
	fn   func(*Memoizer) (tensor.Tensor, error)
}

// Explicit wraps an already evaluated value
func Explicit(value tensor.Tensor) *Tensor {
	return &Tensor{
		id:   core.NewTensorID(),
		name: "explicit",
		fn:   func(*Memoizer) (tensor.Tensor, error) { return value, nil },
	}
}

// FromFunc wraps a zero-argument producer whose call is postponed until the
// first evaluation
func FromFunc(fn func() (tensor.Tensor, error)) *Tensor {
	return &Tensor{
		id:   core.NewTensorID(),
		name: "func",
		fn:   func(*Memoizer) (tensor.Tensor, error) { return fn() },
	}
}

// FromMemoizerFunc wraps a producer that needs access to memoizer settings
func FromMemoizerFunc(fn func(*Memoizer) (tensor.Tensor, error)) *Tensor {
	return &Tensor{id: core.NewTensorID(), name: "memoizer_func", fn: fn}
}

// Apply builds a derived expression: fn receives the evaluated args in order
func Apply(fn func(values ...tensor.Tensor) (tensor.Tensor, error), args ...*Tensor) *Tensor {
	args = append([]*Tensor(nil), args...)
	return &Tensor{
		id:   core.NewTensorID(),
		name: "apply",
		fn: func(memo *Memoizer) (tensor.Tensor, error) {
			values := make([]tensor.Tensor, len(args))
			for i, arg := range args {
				v, err := arg.Evaluate(memo)
				if err != nil {
					return tensor.Tensor{}, err
				}
				values[i] = v
			}
			return fn(values...)
		},
	}
}

// Named returns a copy of t with a descriptive name used in logs and errors.
// The copy shares t's identity, so both evaluate to the same cached value.
func (t *Tensor) Named(name string) *Tensor {
	return &Tensor{id: t.id, name: name, fn: t.fn}
}

// ID returns the memoization key of the expression
func (t *Tensor) ID() core.TensorID {
	return t.id
}

// Name returns the descriptive name of the expression
func (t *Tensor) Name() string {
	return t.name
}

// Evaluate returns the value of the expression, computing it on the first
// call for memo and returning the cached value afterwards. Errors are not
// cached.
func (t *Tensor) Evaluate(memo *Memoizer) (tensor.Tensor, error) {
	if t == nil {
		return tensor.Tensor{}, fmt.Errorf("%w: nil deferred tensor", core.ErrInvalidArgument)
	}
	if memo == nil {
		return tensor.Tensor{}, core.ErrMissingMemoizer
	}
	if v, ok := memo.lookup(t.id); ok {
		return v, nil
	}

	v, err := memo.evaluate(t.id, func() (tensor.Tensor, error) {
		memo.logger.Trace("evaluating %s (%s)", t.name, t.id)
		return t.fn(memo)
	})
	if err != nil {
		memo.logger.Debug("evaluation of %s failed: %v", t.name, err)
		return tensor.Tensor{}, fmt.Errorf("evaluating %s: %w", t.name, err)
	}
	return v, nil
}
