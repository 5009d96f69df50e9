package depgraph

import "errors"

var (
	// ErrDuplicateEdge is returned when the unordered task pair already
	// has an edge of either kind.
	ErrDuplicateEdge = errors.New("duplicate dependency edge")

	// ErrSelfReference is returned when a task is declared to depend on itself.
	ErrSelfReference = errors.New("self-referential dependency edge")

	// ErrUnknownTask is returned in strict mode when an edge references a
	// task id the oracle does not recognize.
	ErrUnknownTask = errors.New("unknown task reference")

	// ErrInvalidKind is returned for a dependency kind outside {hard, soft}.
	ErrInvalidKind = errors.New("invalid dependency kind")
)
