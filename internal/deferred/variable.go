package deferred

import "sync"

// Variable is a mutable integer counter, such as the global step of an
// optimization run. It is the only mutable state a Memoizer hands out.
type Variable struct {
	mu    sync.Mutex
	value int64
}

// NewVariable creates a counter with an initial value
func NewVariable(initial int64) *Variable {
	return &Variable{value: initial}
}

// Value returns the current value
func (v *Variable) Value() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Increment adds one and returns the new value
func (v *Variable) Increment() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value++
	return v.value
}
