// Package predicate holds the boolean masks used to select the examples
// that take part in a rate. Masks are stored as indicator values in [0,1]
// (1 selects an example) so that AND and OR reduce to element-wise minimum
// and maximum.
package predicate

import (
	"fmt"
	"math"

	"gorates/domain/core"
	"gorates/internal/deferred"
	"gorates/internal/tensor"
)

// Predicate is an immutable, lazily evaluated mask
type Predicate struct {
	tensor *deferred.Tensor
}

// All selects every example. It is a scalar and broadcasts to any batch size.
func All() *Predicate {
	return &Predicate{tensor: deferred.Explicit(tensor.Scalar(1)).Named("predicate_all")}
}

// FromBools creates a predicate from an explicit mask
func FromBools(mask []bool) *Predicate {
	return FromTensor(deferred.Explicit(tensor.FromBools(mask)))
}

// FromFloats creates a predicate from indicator values, which must lie in [0,1]
func FromFloats(values []float64) *Predicate {
	return FromTensor(deferred.Explicit(tensor.Vector(values)))
}

// FromTensor creates a predicate from a deferred expression. The value is
// validated when the predicate is evaluated.
func FromTensor(source *deferred.Tensor) *Predicate {
	validated := deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		return normalize(values[0])
	}, source)
	return &Predicate{tensor: validated.Named("predicate")}
}

// Evaluate returns the mask as a rank-0 or rank-1 indicator tensor
func (p *Predicate) Evaluate(memo *deferred.Memoizer) (tensor.Tensor, error) {
	return p.tensor.Evaluate(memo)
}

// And returns the element-wise conjunction of p and other
func (p *Predicate) And(other *Predicate) *Predicate {
	return combine("predicate_and", tensor.Minimum, p, other)
}

// Or returns the element-wise disjunction of p and other
func (p *Predicate) Or(other *Predicate) *Predicate {
	return combine("predicate_or", tensor.Maximum, p, other)
}

// Not returns the complement of p
func (p *Predicate) Not() *Predicate {
	negated := deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		return values[0].Map(func(v float64) float64 { return 1 - v }), nil
	}, p.tensor)
	return &Predicate{tensor: negated.Named("predicate_not")}
}

func combine(name string, op func(a, b tensor.Tensor) (tensor.Tensor, error), p, other *Predicate) *Predicate {
	combined := deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		return op(values[0], values[1])
	}, p.tensor, other.tensor)
	return &Predicate{tensor: combined.Named(name)}
}

// normalize flattens [n,1] columns and rejects values that are not 0/1-convertible
func normalize(t tensor.Tensor) (tensor.Tensor, error) {
	t = t.Squeeze()
	if t.Rank() > 1 {
		return tensor.Tensor{}, fmt.Errorf("%w: rank %d, want a scalar or a vector", core.ErrInvalidPredicate, t.Rank())
	}
	for i, v := range t.Data() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return tensor.Tensor{}, fmt.Errorf("%w: element %d is %v", core.ErrInvalidPredicate, i, v)
		}
	}
	return t, nil
}
