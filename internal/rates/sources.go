package rates

import (
	"fmt"
	"math"

	"gorates/domain/core"
	"gorates/internal/deferred"
	"gorates/internal/tensor"
)

// validateSource wraps the inputs of one side in deferred tensors that check
// shapes when they are evaluated. Missing weights become a scalar 1.
func validateSource(side string, numClasses int, src Source) (predictions, labels, weights *deferred.Tensor, err error) {
	if src.Predictions == nil {
		return nil, nil, nil, fmt.Errorf("%w: %s predictions are required", core.ErrInvalidArgument, side)
	}

	predictions = deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		return checkPredictions(values[0], numClasses)
	}, src.Predictions).Named(side + "_predictions")

	if src.Labels != nil {
		raw := src.Labels
		if numClasses > 0 {
			raw, err = oneHotLabels(src.Labels, numClasses)
			if err != nil {
				return nil, nil, nil, err
			}
		}
		labels = deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
			return checkLabels(values[0], values[1], numClasses)
		}, raw, predictions).Named(side + "_labels")
	}

	w := src.Weights
	if w == nil {
		w = deferred.Explicit(tensor.Scalar(1))
	}
	weights = deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		return checkWeights(values[0], values[1])
	}, w, predictions).Named(side + "_weights")

	return predictions, labels, weights, nil
}

// checkPredictions accepts a vector (or [n,1] column) of binary scores, or an
// [n, numClasses] matrix of multiclass scores
func checkPredictions(p tensor.Tensor, numClasses int) (tensor.Tensor, error) {
	if numClasses == 0 {
		p = p.Squeeze()
		if p.Rank() != 1 {
			return tensor.Tensor{}, core.NewShapeError("binary predictions rank", 1, p.Rank())
		}
		return p, nil
	}
	if p.Rank() != 2 || p.Columns() != numClasses {
		return tensor.Tensor{}, core.NewShapeError("multiclass predictions shape", fmt.Sprintf("[n %d]", numClasses), p.Shape())
	}
	return p, nil
}

func checkLabels(labels, predictions tensor.Tensor, numClasses int) (tensor.Tensor, error) {
	if numClasses == 0 {
		labels = labels.Squeeze()
		if labels.Rank() != 1 {
			return tensor.Tensor{}, core.NewShapeError("binary labels rank", 1, labels.Rank())
		}
	}
	if labels.Len() != predictions.Len() {
		return tensor.Tensor{}, core.NewShapeError("label count", predictions.Len(), labels.Len())
	}
	return labels, nil
}

func checkWeights(weights, predictions tensor.Tensor) (tensor.Tensor, error) {
	weights, err := weights.Squeeze().Broadcast(predictions.Len())
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("weights do not match %d predictions: %w", predictions.Len(), err)
	}
	for i, v := range weights.Data() {
		if math.IsNaN(v) || v < 0 {
			return tensor.Tensor{}, fmt.Errorf("%w: weight %d is %v, weights must be non-negative", core.ErrInvalidArgument, i, v)
		}
	}
	return weights, nil
}
