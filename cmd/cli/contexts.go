package main

import (
	"fmt"
	"strings"

	"gorates/adapters/excel"
	"gorates/internal/deferred"
	"gorates/internal/errors"
	"gorates/internal/predicate"
	"gorates/internal/rates"
	"gorates/internal/tensor"
)

// subsetSpec names the table columns holding the penalty and constraint masks
type subsetSpec struct {
	Penalty    string
	Constraint string
}

// parseSubsetSpec parses "PEN" or "PEN:CON"
func parseSubsetSpec(s string) (subsetSpec, error) {
	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return subsetSpec{Penalty: parts[0], Constraint: parts[0]}, nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return subsetSpec{Penalty: parts[0], Constraint: parts[1]}, nil
	}
	return subsetSpec{}, errors.InvalidInput(fmt.Sprintf("invalid subset %q, want PENALTY_COLUMN[:CONSTRAINT_COLUMN]", s))
}

// maskRequest describes the context the masks command builds
type maskRequest struct {
	Predictions string
	Labels      string
	Weights     string
	Subsets     []subsetSpec
	Left        *subsetSpec
	Right       *subsetSpec
	Combine     string
}

// columnTensor defers reading a column until the memoizer asks for it
func columnTensor(table *excel.Table, name string) *deferred.Tensor {
	return deferred.FromFunc(func() (tensor.Tensor, error) {
		values, err := table.Column(name)
		if err != nil {
			return tensor.Tensor{}, err
		}
		return tensor.Vector(values), nil
	}).Named(name)
}

func subsetFromSpec(table *excel.Table, ctx *rates.Context, spec subsetSpec) *rates.Context {
	return ctx.Subset(
		predicate.FromTensor(columnTensor(table, spec.Penalty)),
		predicate.FromTensor(columnTensor(table, spec.Constraint)),
	)
}

// buildMaskContext applies the subset chain and, when both Left and Right
// are given, combines the two children of the chain with AND or OR.
func buildMaskContext(table *excel.Table, req maskRequest) (*rates.Context, error) {
	if req.Predictions == "" {
		return nil, errors.InvalidInput("--predictions is required")
	}

	var opts []rates.Option
	if req.Labels != "" {
		opts = append(opts, rates.WithLabels(columnTensor(table, req.Labels)))
	}
	if req.Weights != "" {
		opts = append(opts, rates.WithWeights(columnTensor(table, req.Weights)))
	}

	ctx, err := rates.RateContext(columnTensor(table, req.Predictions), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rate context")
	}
	for _, spec := range req.Subsets {
		ctx = subsetFromSpec(table, ctx, spec)
	}

	if req.Left == nil && req.Right == nil {
		return ctx, nil
	}
	if req.Left == nil || req.Right == nil {
		return nil, errors.InvalidInput("--left and --right must be given together")
	}

	left := subsetFromSpec(table, ctx, *req.Left)
	right := subsetFromSpec(table, ctx, *req.Right)
	switch strings.ToLower(req.Combine) {
	case "", "and":
		ctx, err = left.And(right)
	case "or":
		ctx, err = left.Or(right)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown --combine %q, want and|or", req.Combine))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to combine contexts")
	}
	return ctx, nil
}

// oneHotRows expands a label column into one-hot rows
func oneHotRows(table *excel.Table, labels string, numClasses int, memo *deferred.Memoizer) ([][]float64, error) {
	n := table.RowCount()
	// The labels are what we want; predictions are a uniform placeholder of
	// the right shape so that the context validates.
	uniform := make([][]float64, n)
	for i := range uniform {
		uniform[i] = make([]float64, numClasses)
		for j := range uniform[i] {
			uniform[i][j] = 1 / float64(numClasses)
		}
	}
	placeholder, err := tensor.Matrix(uniform)
	if err != nil {
		return nil, err
	}

	ctx, err := rates.MulticlassRateContext(numClasses, deferred.Explicit(placeholder),
		rates.WithLabels(columnTensor(table, labels)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build multiclass context")
	}
	oneHot, err := ctx.PenaltyLabels().Evaluate(memo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode labels")
	}
	return oneHot.Rows()
}
