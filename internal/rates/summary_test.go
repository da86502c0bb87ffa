package rates

import (
	"testing"

	"gorates/domain/core"
	"gorates/internal/deferred"
	"gorates/internal/predicate"
	"gorates/internal/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	ctx, err := RateContext(
		deferred.Explicit(tensor.Vector([]float64{0.1, 0.2, 0.3, 0.4})),
		WithWeights(deferred.Explicit(tensor.Vector([]float64{1, 1, 2, 4}))),
	)
	require.NoError(t, err)
	sub := ctx.Subset(
		predicate.FromBools([]bool{true, false, true, false}),
		predicate.FromBools([]bool{false, false, false, true}),
	)

	summary, err := sub.Summarize(deferred.NewMemoizer())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Penalty.Examples)
	assert.Equal(t, 2.0, summary.Penalty.Selected)
	assert.InDelta(t, 0.5, summary.Penalty.Fraction, 1e-12)
	assert.InDelta(t, 3.0/8.0, summary.Penalty.WeightedFraction, 1e-12)
	assert.Equal(t, []float64{1, 0, 1, 0}, summary.Penalty.Mask)

	assert.Equal(t, 1.0, summary.Constraint.Selected)
	assert.InDelta(t, 0.25, summary.Constraint.Fraction, 1e-12)
	assert.InDelta(t, 0.5, summary.Constraint.WeightedFraction, 1e-12)
}

func TestSummarize_DenominatorLowerBound(t *testing.T) {
	ctx, err := RateContext(
		deferred.Explicit(tensor.Vector([]float64{0.5, 0.5})),
		WithWeights(deferred.Explicit(tensor.Scalar(0.25))),
	)
	require.NoError(t, err)

	summary, err := ctx.Summarize(deferred.NewMemoizer(deferred.WithDenominatorLowerBound(1)))
	require.NoError(t, err)
	// Total weight 0.5 is raised to the lower bound of 1.
	assert.InDelta(t, 0.5, summary.Penalty.WeightedFraction, 1e-12)

	zero, err := RateContext(
		deferred.Explicit(tensor.Vector([]float64{0.5})),
		WithWeights(deferred.Explicit(tensor.Scalar(0))),
	)
	require.NoError(t, err)
	summary, err = zero.Summarize(deferred.NewMemoizer())
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.Penalty.WeightedFraction)
}

func TestSummarize_PropagatesShapeErrors(t *testing.T) {
	ctx, err := RateContext(deferred.Explicit(tensor.Vector([]float64{0.5})))
	require.NoError(t, err)
	sub := ctx.Subset(predicate.FromBools([]bool{true, true}), nil)

	_, err = sub.Summarize(deferred.NewMemoizer())
	assert.Error(t, err)
}

func TestSummarize_ReadsBoundOncePerMemoizer(t *testing.T) {
	ctx, err := RateContext(
		deferred.Explicit(tensor.Vector([]float64{0.5, 0.5})),
		WithWeights(deferred.Explicit(tensor.Scalar(0.25))),
	)
	require.NoError(t, err)

	memo := deferred.NewMemoizer(deferred.WithDenominatorLowerBound(1))
	first, err := ctx.Summarize(memo)
	require.NoError(t, err)
	size := memo.Len()

	// The bound is part of the evaluation pass; changing it later has no effect.
	memo.Set(deferred.DenominatorLowerBoundKey, 0.0)
	second, err := ctx.Summarize(memo)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, size, memo.Len())

	fresh, err := ctx.Summarize(deferred.NewMemoizer())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fresh.Penalty.WeightedFraction, 1e-12)
}

func TestSummarize_BadBoundSetting(t *testing.T) {
	ctx, err := RateContext(deferred.Explicit(tensor.Vector([]float64{0.5})))
	require.NoError(t, err)

	memo := deferred.NewMemoizer()
	memo.Set(deferred.DenominatorLowerBoundKey, "one")
	_, err = ctx.Summarize(memo)
	assert.True(t, core.IsInvalidArgument(err))

	_, err = ctx.Summarize(nil)
	assert.ErrorIs(t, err, core.ErrMissingMemoizer)
}
