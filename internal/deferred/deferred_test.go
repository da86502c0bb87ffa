package deferred

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorates/domain/core"
	"gorates/internal/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoizer_SeedsWellKnownKeys(t *testing.T) {
	memo := NewMemoizer()

	bound, err := memo.DenominatorLowerBound()
	require.NoError(t, err)
	assert.Equal(t, 0.0, bound)

	step, err := memo.GlobalStep()
	require.NoError(t, err)
	assert.Equal(t, int64(0), step.Value())
	assert.Equal(t, 0, memo.Len())
}

func TestMemoizer_Options(t *testing.T) {
	step := NewVariable(7)
	memo := NewMemoizer(WithDenominatorLowerBound(1e-3), WithGlobalStep(step))

	bound, err := memo.DenominatorLowerBound()
	require.NoError(t, err)
	assert.Equal(t, 1e-3, bound)

	got, err := memo.GlobalStep()
	require.NoError(t, err)
	assert.Same(t, step, got)
	assert.Equal(t, int64(8), got.Increment())
}

func TestMemoizer_WrongSettingType(t *testing.T) {
	memo := NewMemoizer()
	memo.Set(DenominatorLowerBoundKey, "zero")
	_, err := memo.DenominatorLowerBound()
	assert.True(t, core.IsInvalidArgument(err))

	memo.Set(GlobalStepKey, 3)
	_, err = memo.GlobalStep()
	assert.True(t, core.IsInvalidArgument(err))
}

func TestFromFunc_EvaluatedOncePerMemoizer(t *testing.T) {
	calls := 0
	d := FromFunc(func() (tensor.Tensor, error) {
		calls++
		return tensor.Vector([]float64{1, 2, 3}), nil
	})
	assert.Equal(t, 0, calls, "producer must not run before evaluation")

	memo := NewMemoizer()
	first, err := d.Evaluate(memo)
	require.NoError(t, err)
	second, err := d.Evaluate(memo)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, memo.Len())

	// A fresh memoizer is a fresh evaluation pass.
	_, err = d.Evaluate(NewMemoizer())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestApply_MemoizesEveryNode(t *testing.T) {
	leafCalls := 0
	leaf := FromFunc(func() (tensor.Tensor, error) {
		leafCalls++
		return tensor.Vector([]float64{1, 0}), nil
	})
	sum := Apply(func(values ...tensor.Tensor) (tensor.Tensor, error) {
		return tensor.Scalar(values[0].Sum() + values[1].Sum()), nil
	}, leaf, leaf)

	memo := NewMemoizer()
	v, err := sum.Evaluate(memo)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Sum())
	assert.Equal(t, 1, leafCalls)
	assert.Equal(t, 2, memo.Len())

	_, err = sum.Evaluate(memo)
	require.NoError(t, err)
	assert.Equal(t, 2, memo.Len())
}

func TestEvaluate_ErrorsAreNotCached(t *testing.T) {
	fail := true
	d := FromFunc(func() (tensor.Tensor, error) {
		if fail {
			return tensor.Tensor{}, errors.New("batch not ready")
		}
		return tensor.Scalar(1), nil
	})

	memo := NewMemoizer()
	_, err := d.Evaluate(memo)
	require.Error(t, err)
	assert.Equal(t, 0, memo.Len())

	fail = false
	_, err = d.Evaluate(memo)
	require.NoError(t, err)
	assert.Equal(t, 1, memo.Len())
}

func TestEvaluate_RequiresMemoizer(t *testing.T) {
	_, err := Explicit(tensor.Scalar(1)).Evaluate(nil)
	assert.ErrorIs(t, err, core.ErrMissingMemoizer)

	var d *Tensor
	_, err = d.Evaluate(NewMemoizer())
	assert.True(t, core.IsInvalidArgument(err))
}

func TestNamed_SharesIdentity(t *testing.T) {
	d := Explicit(tensor.Scalar(2))
	named := d.Named("weights")
	assert.Equal(t, d.ID(), named.ID())
	assert.Equal(t, "weights", named.Name())

	memo := NewMemoizer()
	_, err := d.Evaluate(memo)
	require.NoError(t, err)
	_, err = named.Evaluate(memo)
	require.NoError(t, err)
	assert.Equal(t, 1, memo.Len())
}

func TestEvaluate_ConcurrentCallersShareOneRun(t *testing.T) {
	var calls int32
	d := FromFunc(func() (tensor.Tensor, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return tensor.Vector([]float64{1, 0, 1}), nil
	})

	memo := NewMemoizer()
	results := make([]tensor.Tensor, 8)
	errs := make([]error, len(results))
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Evaluate(memo)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Equal(results[0]))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, memo.Len())
}

func TestFromMemoizerFunc_ReadsSettings(t *testing.T) {
	step := NewVariable(41)
	d := FromMemoizerFunc(func(memo *Memoizer) (tensor.Tensor, error) {
		s, err := memo.GlobalStep()
		if err != nil {
			return tensor.Tensor{}, err
		}
		return tensor.Scalar(float64(s.Increment())), nil
	})

	memo := NewMemoizer(WithGlobalStep(step))
	for i := 0; i < 3; i++ {
		v, err := d.Evaluate(memo)
		require.NoError(t, err)
		assert.Equal(t, 42.0, v.Sum())
	}
	assert.Equal(t, int64(42), step.Value())

	broken := NewMemoizer()
	broken.Set(GlobalStepKey, "step")
	_, err := d.Evaluate(broken)
	assert.True(t, core.IsInvalidArgument(err))
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	memo := NewMemoizer(WithLogger(nil))
	_, err := Explicit(tensor.Scalar(1)).Evaluate(memo)
	require.NoError(t, err)
	assert.Equal(t, 1, memo.Len())
}
