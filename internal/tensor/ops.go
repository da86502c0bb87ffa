package tensor

import (
	"math"

	"gorates/domain/core"
)

// Minimum returns the element-wise minimum of a and b
func Minimum(a, b Tensor) (Tensor, error) {
	return zip(a, b, math.Min)
}

// Maximum returns the element-wise maximum of a and b
func Maximum(a, b Tensor) (Tensor, error) {
	return zip(a, b, math.Max)
}

// Multiply returns the element-wise product of a and b
func Multiply(a, b Tensor) (Tensor, error) {
	return zip(a, b, func(x, y float64) float64 { return x * y })
}

// zip combines two tensors element-wise. Scalars broadcast against any shape;
// otherwise shapes must match exactly.
func zip(a, b Tensor, f func(x, y float64) float64) (Tensor, error) {
	switch {
	case a.Rank() == 0 && b.Rank() == 0:
		return Scalar(f(a.data[0], b.data[0])), nil
	case a.Rank() == 0:
		return b.Map(func(y float64) float64 { return f(a.data[0], y) }), nil
	case b.Rank() == 0:
		return a.Map(func(x float64) float64 { return f(x, b.data[0]) }), nil
	case !sameShape(a.shape, b.shape):
		return Tensor{}, core.NewShapeError("element-wise operand shape", a.shape, b.shape)
	}

	data := make([]float64, len(a.data))
	for i := range data {
		data[i] = f(a.data[i], b.data[i])
	}
	return Tensor{shape: a.Shape(), data: data}, nil
}
