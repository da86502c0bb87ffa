package rates

import (
	"fmt"
	"math"

	"gorates/domain/core"
	"gorates/internal/deferred"
	"gorates/internal/tensor"

	"gonum.org/v1/gonum/mat"
)

// oneHotLabels converts labels into one-hot rows with numClasses columns.
//
// A rank-2 input with numClasses columns is already one-hot (or a matrix of
// class probabilities) and is returned unchanged. A rank-1 input, or an
// [n,1] column, holds integer class indices and is expanded.
func oneHotLabels(labels *deferred.Tensor, numClasses int) (*deferred.Tensor, error) {
	if numClasses < 2 {
		return nil, core.NewNumClassesError(numClasses)
	}
	if labels == nil {
		return nil, fmt.Errorf("%w: labels are required", core.ErrInvalidArgument)
	}

	return deferred.Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		v := values[0]
		switch {
		case v.Rank() == 2 && v.Columns() == numClasses:
			return v, nil
		// A single column holds class indices, not a one-class one-hot matrix.
		case v.Rank() == 2 && v.Columns() == 1:
			return expandIndices(v.Squeeze(), numClasses)
		case v.Rank() == 2:
			return tensor.Tensor{}, core.NewShapeError("one-hot label columns", numClasses, v.Columns())
		case v.Rank() == 1:
			return expandIndices(v, numClasses)
		default:
			return tensor.Tensor{}, core.NewLabelError(fmt.Sprintf("labels must be a vector of indices or a matrix, got rank %d", v.Rank()))
		}
	}, labels).Named("one_hot_labels"), nil
}

func expandIndices(indices tensor.Tensor, numClasses int) (tensor.Tensor, error) {
	n := indices.Len()
	if n == 0 {
		return tensor.New([]int{0, numClasses}, nil)
	}

	oneHot := mat.NewDense(n, numClasses, nil)
	for i, v := range indices.Data() {
		if v != math.Trunc(v) || v < 0 || v >= float64(numClasses) {
			return tensor.Tensor{}, core.NewLabelError(fmt.Sprintf("label %d is %v, want an integer in [0, %d)", i, v, numClasses))
		}
		oneHot.Set(i, int(v), 1)
	}
	return tensor.FromDense(oneHot), nil
}
