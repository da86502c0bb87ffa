// Package tensor provides the small dense tensor substrate that deferred
// expressions evaluate to. Tensors are immutable once constructed and hold
// float64 values in row-major order with rank 0, 1 or 2.
package tensor

import (
	"fmt"
	"strings"

	"gorates/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MaxRank is the highest rank a Tensor can carry
const MaxRank = 2

// Tensor is an immutable dense float64 tensor
type Tensor struct {
	shape []int
	data  []float64
}

// New creates a tensor with the given shape, copying data
func New(shape []int, data []float64) (Tensor, error) {
	if len(shape) > MaxRank {
		return Tensor{}, core.NewShapeError("tensor rank", fmt.Sprintf("<= %d", MaxRank), len(shape))
	}
	size := 1
	for _, d := range shape {
		if d < 0 {
			return Tensor{}, core.NewShapeError("tensor dimension", ">= 0", d)
		}
		size *= d
	}
	if size != len(data) {
		return Tensor{}, core.NewShapeError(fmt.Sprintf("element count for shape %v", shape), size, len(data))
	}
	return Tensor{
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), data...),
	}, nil
}

// Scalar creates a rank-0 tensor
func Scalar(v float64) Tensor {
	return Tensor{shape: []int{}, data: []float64{v}}
}

// Vector creates a rank-1 tensor
func Vector(values []float64) Tensor {
	return Tensor{shape: []int{len(values)}, data: append([]float64(nil), values...)}
}

// FromBools creates a rank-1 indicator tensor (true -> 1, false -> 0)
func FromBools(values []bool) Tensor {
	data := make([]float64, len(values))
	for i, v := range values {
		if v {
			data[i] = 1
		}
	}
	return Tensor{shape: []int{len(values)}, data: data}
}

// FromInts creates a rank-1 tensor from integer values
func FromInts(values []int) Tensor {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return Tensor{shape: []int{len(values)}, data: data}
}

// Matrix creates a rank-2 tensor from rows; rows must all have the same length
func Matrix(rows [][]float64) (Tensor, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Tensor{}, core.NewShapeError(fmt.Sprintf("length of row %d", i), cols, len(row))
		}
		data = append(data, row...)
	}
	return Tensor{shape: []int{len(rows), cols}, data: data}, nil
}

// FromDense copies a gonum matrix into a rank-2 tensor
func FromDense(m mat.Matrix) Tensor {
	r, c := m.Dims()
	data := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data[i*c+j] = m.At(i, j)
		}
	}
	return Tensor{shape: []int{r, c}, data: data}
}

// Shape returns a copy of the tensor's shape
func (t Tensor) Shape() []int {
	return append([]int{}, t.shape...)
}

// Rank returns the number of dimensions
func (t Tensor) Rank() int {
	return len(t.shape)
}

// Len returns the size of the leading (batch) dimension, or 1 for scalars
func (t Tensor) Len() int {
	if len(t.shape) == 0 {
		return 1
	}
	return t.shape[0]
}

// Columns returns the size of the second dimension of a rank-2 tensor, 0 otherwise
func (t Tensor) Columns() int {
	if len(t.shape) != 2 {
		return 0
	}
	return t.shape[1]
}

// Data returns a copy of the underlying values in row-major order
func (t Tensor) Data() []float64 {
	return append([]float64(nil), t.data...)
}

// Bools returns the values as indicators (non-zero -> true)
func (t Tensor) Bools() []bool {
	out := make([]bool, len(t.data))
	for i, v := range t.data {
		out[i] = v != 0
	}
	return out
}

// Rows returns a rank-2 tensor as a slice of row copies
func (t Tensor) Rows() ([][]float64, error) {
	if len(t.shape) != 2 {
		return nil, core.NewShapeError("rank", 2, len(t.shape))
	}
	cols := t.shape[1]
	rows := make([][]float64, t.shape[0])
	for i := range rows {
		rows[i] = append([]float64(nil), t.data[i*cols:(i+1)*cols]...)
	}
	return rows, nil
}

// Dense returns a gonum copy of a rank-2 tensor
func (t Tensor) Dense() (*mat.Dense, error) {
	if len(t.shape) != 2 {
		return nil, core.NewShapeError("rank", 2, len(t.shape))
	}
	if t.shape[0] == 0 || t.shape[1] == 0 {
		return nil, core.NewShapeError("dense matrix dimensions", "non-zero", t.shape)
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.Data()), nil
}

// Squeeze flattens an [n, 1] column into a rank-1 tensor; other tensors are returned unchanged
func (t Tensor) Squeeze() Tensor {
	if len(t.shape) == 2 && t.shape[1] == 1 {
		return Tensor{shape: []int{t.shape[0]}, data: t.data}
	}
	return t
}

// Broadcast expands a scalar into a rank-1 tensor of length n.
// A rank-1 tensor of length n is returned unchanged.
func (t Tensor) Broadcast(n int) (Tensor, error) {
	switch {
	case len(t.shape) == 0:
		data := make([]float64, n)
		for i := range data {
			data[i] = t.data[0]
		}
		return Tensor{shape: []int{n}, data: data}, nil
	case len(t.shape) == 1 && t.shape[0] == n:
		return t, nil
	default:
		return Tensor{}, core.NewShapeError("broadcast shape", []int{n}, t.shape)
	}
}

// Map applies f to every element
func (t Tensor) Map(f func(float64) float64) Tensor {
	data := make([]float64, len(t.data))
	for i, v := range t.data {
		data[i] = f(v)
	}
	return Tensor{shape: t.Shape(), data: data}
}

// Sum returns the sum of all elements
func (t Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// Equal reports whether both tensors have the same shape and values
func (t Tensor) Equal(other Tensor) bool {
	return sameShape(t.shape, other.shape) && floats.Equal(t.data, other.data)
}

// EqualApprox reports whether both tensors have the same shape and values within tol
func (t Tensor) EqualApprox(other Tensor, tol float64) bool {
	return sameShape(t.shape, other.shape) && floats.EqualApprox(t.data, other.data, tol)
}

func (t Tensor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor%v", t.shape)
	b.WriteString(fmt.Sprint(t.data))
	return b.String()
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
