// Package rates provides subsettable rate contexts: a model's predictions
// (with optional labels and weights) paired with the masks that select which
// examples feed the penalty and constraint versions of a rate.
//
// Contexts are immutable. Subset intersects a new mask with every mask
// applied so far, while And and Or combine the current masks of two contexts
// that were cut from the same raw context:
//
//	base, err := rates.RateContext(predictions)
//	groupA := base.Subset(isGroupA, nil)
//	positives := base.Subset(isPositive, nil)
//	both, err := groupA.And(positives) // group A positives
package rates

import (
	"fmt"

	"gorates/domain/core"
	"gorates/internal/deferred"
	"gorates/internal/predicate"
	"gorates/internal/tensor"
)

// Source bundles the inputs of one side (penalty or constraint) of a context.
// Labels and Weights are optional; missing weights default to 1.
type Source struct {
	Predictions *deferred.Tensor
	Labels      *deferred.Tensor
	Weights     *deferred.Tensor
}

// Option configures the Source of a non-split context
type Option func(*Source)

// WithLabels attaches labels to the context
func WithLabels(labels *deferred.Tensor) Option {
	return func(s *Source) { s.Labels = labels }
}

// WithWeights attaches per-example (or scalar) weights to the context
func WithWeights(weights *deferred.Tensor) Option {
	return func(s *Source) { s.Weights = weights }
}

// rawContext holds the validated inputs shared by every context derived from
// the same call to one of the constructors.
type rawContext struct {
	id         core.SourceID
	numClasses int

	penaltyPredictions    *deferred.Tensor
	penaltyLabels         *deferred.Tensor
	penaltyWeights        *deferred.Tensor
	constraintPredictions *deferred.Tensor
	constraintLabels      *deferred.Tensor
	constraintWeights     *deferred.Tensor
}

// Context is a subset of the dataset used to scope rate computations
type Context struct {
	raw                 *rawContext
	penaltyPredicate    *predicate.Predicate
	constraintPredicate *predicate.Predicate
}

// RateContext creates a binary-classification context over predictions.
// Both masks initially select every example.
func RateContext(predictions *deferred.Tensor, opts ...Option) (*Context, error) {
	src := Source{Predictions: predictions}
	for _, opt := range opts {
		opt(&src)
	}
	return newSharedContext(0, src)
}

// MulticlassRateContext creates a context whose predictions have numClasses
// columns. Labels may be index-encoded or one-hot.
func MulticlassRateContext(numClasses int, predictions *deferred.Tensor, opts ...Option) (*Context, error) {
	if numClasses < 2 {
		return nil, core.NewNumClassesError(numClasses)
	}
	src := Source{Predictions: predictions}
	for _, opt := range opts {
		opt(&src)
	}
	return newSharedContext(numClasses, src)
}

// SplitRateContext creates a binary context whose penalty and constraint
// sides are computed from different predictions, labels or weights.
func SplitRateContext(penalty, constraint Source) (*Context, error) {
	return newContext(0, penalty, constraint)
}

// MulticlassSplitRateContext is the multiclass form of SplitRateContext
func MulticlassSplitRateContext(numClasses int, penalty, constraint Source) (*Context, error) {
	if numClasses < 2 {
		return nil, core.NewNumClassesError(numClasses)
	}
	return newContext(numClasses, penalty, constraint)
}

// newSharedContext builds a context whose penalty and constraint sides are
// the same deferred tensors, so each input is evaluated once per memoizer.
func newSharedContext(numClasses int, src Source) (*Context, error) {
	predictions, labels, weights, err := validateSource("input", numClasses, src)
	if err != nil {
		return nil, err
	}
	return &Context{
		raw: &rawContext{
			id:                    core.NewSourceID(),
			numClasses:            numClasses,
			penaltyPredictions:    predictions,
			penaltyLabels:         labels,
			penaltyWeights:        weights,
			constraintPredictions: predictions,
			constraintLabels:      labels,
			constraintWeights:     weights,
		},
		penaltyPredicate:    predicate.All(),
		constraintPredicate: predicate.All(),
	}, nil
}

func newContext(numClasses int, penalty, constraint Source) (*Context, error) {
	raw := &rawContext{id: core.NewSourceID(), numClasses: numClasses}

	var err error
	raw.penaltyPredictions, raw.penaltyLabels, raw.penaltyWeights, err = validateSource("penalty", numClasses, penalty)
	if err != nil {
		return nil, err
	}
	raw.constraintPredictions, raw.constraintLabels, raw.constraintWeights, err = validateSource("constraint", numClasses, constraint)
	if err != nil {
		return nil, err
	}

	return &Context{
		raw:                 raw,
		penaltyPredicate:    predicate.All(),
		constraintPredicate: predicate.All(),
	}, nil
}

// Subset returns a context whose penalty mask is the current penalty mask AND
// penalty, and whose constraint mask is the current constraint mask AND
// constraint. A nil constraint reuses penalty; a nil penalty selects
// everything. The receiver is not modified.
func (c *Context) Subset(penalty, constraint *predicate.Predicate) *Context {
	if penalty == nil {
		penalty = predicate.All()
	}
	if constraint == nil {
		constraint = penalty
	}
	return &Context{
		raw:                 c.raw,
		penaltyPredicate:    c.penaltyPredicate.And(penalty),
		constraintPredicate: c.constraintPredicate.And(constraint),
	}
}

// And returns a context whose masks are the element-wise conjunction of the
// current masks of c and other. Masks inherited from ancestors are already
// part of each operand's mask and are not applied a second time.
func (c *Context) And(other *Context) (*Context, error) {
	if err := c.checkCompatible(other, "AND"); err != nil {
		return nil, err
	}
	return &Context{
		raw:                 c.raw,
		penaltyPredicate:    c.penaltyPredicate.And(other.penaltyPredicate),
		constraintPredicate: c.constraintPredicate.And(other.constraintPredicate),
	}, nil
}

// Or returns a context whose masks are the element-wise disjunction of the
// current masks of c and other.
func (c *Context) Or(other *Context) (*Context, error) {
	if err := c.checkCompatible(other, "OR"); err != nil {
		return nil, err
	}
	return &Context{
		raw:                 c.raw,
		penaltyPredicate:    c.penaltyPredicate.Or(other.penaltyPredicate),
		constraintPredicate: c.constraintPredicate.Or(other.constraintPredicate),
	}, nil
}

func (c *Context) checkCompatible(other *Context, op string) error {
	if other == nil {
		return fmt.Errorf("%w: cannot %s with a nil context", core.ErrInvalidArgument, op)
	}
	if c.raw != other.raw {
		return fmt.Errorf("%w: only contexts with the same raw context can be combined with %s (got %s and %s)",
			core.ErrIncompatibleContexts, op, c.raw.id, other.raw.id)
	}
	return nil
}

// SameRawContext reports whether c and other were derived from the same constructor call
func (c *Context) SameRawContext(other *Context) bool {
	return other != nil && c.raw == other.raw
}

// NumClasses returns the number of classes, or 0 for binary contexts
func (c *Context) NumClasses() int { return c.raw.numClasses }

// IsMulticlass reports whether the context was built by a multiclass constructor
func (c *Context) IsMulticlass() bool { return c.raw.numClasses > 0 }

func (c *Context) PenaltyPredicate() *predicate.Predicate    { return c.penaltyPredicate }
func (c *Context) ConstraintPredicate() *predicate.Predicate { return c.constraintPredicate }
func (c *Context) PenaltyPredictions() *deferred.Tensor      { return c.raw.penaltyPredictions }
func (c *Context) ConstraintPredictions() *deferred.Tensor   { return c.raw.constraintPredictions }

// PenaltyLabels returns the penalty labels, or nil if the context has none.
// Multiclass labels are always one-hot encoded.
func (c *Context) PenaltyLabels() *deferred.Tensor { return c.raw.penaltyLabels }

// ConstraintLabels returns the constraint labels, or nil if the context has none
func (c *Context) ConstraintLabels() *deferred.Tensor { return c.raw.constraintLabels }

// PenaltyWeights returns the per-example penalty weights
func (c *Context) PenaltyWeights() *deferred.Tensor { return c.raw.penaltyWeights }

// ConstraintWeights returns the per-example constraint weights
func (c *Context) ConstraintWeights() *deferred.Tensor { return c.raw.constraintWeights }

// PenaltyMask evaluates the penalty predicate and checks it against the
// batch size of the penalty predictions. Scalar masks are broadcast.
func (c *Context) PenaltyMask(memo *deferred.Memoizer) (tensor.Tensor, error) {
	return evaluateMask(memo, "penalty", c.penaltyPredicate, c.raw.penaltyPredictions)
}

// ConstraintMask is the constraint-side counterpart of PenaltyMask
func (c *Context) ConstraintMask(memo *deferred.Memoizer) (tensor.Tensor, error) {
	return evaluateMask(memo, "constraint", c.constraintPredicate, c.raw.constraintPredictions)
}

func evaluateMask(memo *deferred.Memoizer, side string, p *predicate.Predicate, predictions *deferred.Tensor) (tensor.Tensor, error) {
	preds, err := predictions.Evaluate(memo)
	if err != nil {
		return tensor.Tensor{}, err
	}
	mask, err := p.Evaluate(memo)
	if err != nil {
		return tensor.Tensor{}, err
	}
	mask, err = mask.Broadcast(preds.Len())
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("%s predicate does not match %d predictions: %w", side, preds.Len(), err)
	}
	return mask, nil
}
