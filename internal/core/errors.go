package core

import "errors"

// Sentinel errors for engine operations. Check with errors.Is; the HTTP
// layer maps these onto statuses. None of them leave partial state behind.
var (
	// ErrInvalidPair indicates the same node was given for both sides.
	ErrInvalidPair = errors.New("node a and node b must be different")

	// ErrNoSimilarity indicates the pre-filter rejected the pair and no
	// prior comparison exists, so nothing was created.
	ErrNoSimilarity = errors.New("no string similarity detected, nodes are too different to warrant comparison")

	// ErrComparisonNotFound indicates the referenced comparison does not exist.
	ErrComparisonNotFound = errors.New("comparison not found")

	// ErrMissingInfo indicates a comparison cannot be scored because one or
	// both node snapshots are absent.
	ErrMissingInfo = errors.New("node information not available")

	// ErrInvalidDecision indicates a decision outside {same, different}.
	ErrInvalidDecision = errors.New(`decision must be either "same" or "different"`)

	// ErrAlreadyDecided indicates the comparison is no longer pending.
	ErrAlreadyDecided = errors.New("comparison already has a decision")

	// ErrNotCancellable indicates cancellation of a non-pending comparison.
	ErrNotCancellable = errors.New("only pending comparisons can be cancelled")

	// ErrWrongDecision indicates a merge attempt without a "same" decision.
	ErrWrongDecision = errors.New(`comparison must be decided "same" before merging`)

	// ErrInvalidKeepNode indicates keepNode is neither side of the comparison.
	ErrInvalidKeepNode = errors.New("keep node must be one of the compared nodes")
)
