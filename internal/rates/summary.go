package rates

import (
	"math"

	"gorates/internal/deferred"
	"gorates/internal/tensor"

	"github.com/montanaflynn/stats"
)

// SideSummary describes how much of a batch one mask selects
type SideSummary struct {
	Examples         int       `json:"examples"`
	Selected         float64   `json:"selected"`
	Fraction         float64   `json:"fraction"`
	WeightedFraction float64   `json:"weighted_fraction"`
	Mask             []float64 `json:"mask"`
}

// Summary reports the coverage of both masks of a context
type Summary struct {
	Penalty    SideSummary `json:"penalty"`
	Constraint SideSummary `json:"constraint"`
}

// denominatorLowerBound reads the memoizer's bound as part of the evaluation
// pass, so it is fixed for that memoizer once first read.
var denominatorLowerBound = deferred.FromMemoizerFunc(func(memo *deferred.Memoizer) (tensor.Tensor, error) {
	bound, err := memo.DenominatorLowerBound()
	if err != nil {
		return tensor.Tensor{}, err
	}
	return tensor.Scalar(bound), nil
}).Named("denominator_lower_bound")

// Summarize evaluates both masks and their weights. The weighted fraction
// divides by the total weight, bounded below by the memoizer's denominator
// lower bound.
func (c *Context) Summarize(memo *deferred.Memoizer) (Summary, error) {
	boundValue, err := denominatorLowerBound.Evaluate(memo)
	if err != nil {
		return Summary{}, err
	}
	bound := boundValue.Sum()

	penaltyMask, err := c.PenaltyMask(memo)
	if err != nil {
		return Summary{}, err
	}
	penaltyWeights, err := c.raw.penaltyWeights.Evaluate(memo)
	if err != nil {
		return Summary{}, err
	}
	constraintMask, err := c.ConstraintMask(memo)
	if err != nil {
		return Summary{}, err
	}
	constraintWeights, err := c.raw.constraintWeights.Evaluate(memo)
	if err != nil {
		return Summary{}, err
	}

	penalty, err := summarizeSide(penaltyMask, penaltyWeights, bound)
	if err != nil {
		return Summary{}, err
	}
	constraint, err := summarizeSide(constraintMask, constraintWeights, bound)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Penalty: penalty, Constraint: constraint}, nil
}

func summarizeSide(mask, weights tensor.Tensor, denominatorLowerBound float64) (SideSummary, error) {
	m := mask.Data()
	s := SideSummary{Examples: len(m), Mask: m}
	if len(m) == 0 {
		return s, nil
	}

	var err error
	if s.Selected, err = stats.Sum(m); err != nil {
		return SideSummary{}, err
	}
	if s.Fraction, err = stats.Mean(m); err != nil {
		return SideSummary{}, err
	}

	weighted, err := tensor.Multiply(mask, weights)
	if err != nil {
		return SideSummary{}, err
	}
	numerator, err := stats.Sum(weighted.Data())
	if err != nil {
		return SideSummary{}, err
	}
	denominator, err := stats.Sum(weights.Data())
	if err != nil {
		return SideSummary{}, err
	}
	denominator = math.Max(denominator, denominatorLowerBound)
	if denominator > 0 {
		s.WeightedFraction = numerator / denominator
	}
	return s, nil
}
