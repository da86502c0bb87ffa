package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Falls back to v4 if v7 fails
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// TensorID identifies a deferred tensor inside a structure memoizer.
	TensorID ID
	// SourceID identifies the raw (prediction/label/weight) source of a context.
	SourceID ID
)

// String conversions for domain IDs
func (id TensorID) String() string { return ID(id).String() }
func (id SourceID) String() string { return ID(id).String() }

// NewTensorID creates a fresh deferred tensor identifier
func NewTensorID() TensorID { return TensorID(NewID()) }

// NewSourceID creates a fresh raw context identifier
func NewSourceID() SourceID { return SourceID(NewID()) }

