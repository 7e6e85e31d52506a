package para

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-paracharts/layering"
)

var (
	// ErrShapeViolation indicates a group supplied where a leaf is expected,
	// or a leaf where a group is expected.
	ErrShapeViolation = errors.New("para: shape violation")
	// ErrUnknownPath indicates a path with no counterpart in the tree.
	ErrUnknownPath = errors.New("para: unknown path")
	// ErrNotLeaf indicates Get resolved a group instead of a leaf.
	ErrNotLeaf = errors.New("para: path resolves to a group")
	// ErrNotGroup indicates a leaf was found where a group was needed.
	ErrNotGroup = errors.New("para: path segment is not a group")
	// ErrInvalidSetting indicates a leaf value that is not a string, bool or
	// number.
	ErrInvalidSetting = errors.New("para: invalid setting value")
	// ErrEmptyPath indicates an empty path where one is required.
	ErrEmptyPath = errors.New("para: path must not be empty")

	// ErrDuplicateObserver indicates the observer is already registered for
	// the path.
	ErrDuplicateObserver = errors.New("para: observer already registered")
	// ErrObserverNotFound indicates the observer is not registered for the
	// path.
	ErrObserverNotFound = errors.New("para: observer not registered")
	// ErrNoObservers indicates the path has no observers at all.
	ErrNoObservers = errors.New("para: path has no observers")
	// ErrObserverRequired indicates a nil observer.
	ErrObserverRequired = errors.New("para: observer is nil")
	// ErrObserverNotComparable indicates an observer whose dynamic type
	// cannot be compared for identity. Wrap functions with ObserverFunc.
	ErrObserverNotComparable = errors.New("para: observer is not comparable")

	// ErrMutatorRequired indicates UpdateSettings was called without a
	// mutator.
	ErrMutatorRequired = errors.New("para: mutator is nil")
	// ErrUpdateInProgress indicates UpdateSettings was called while another
	// update on the same store was running.
	ErrUpdateInProgress = errors.New("para: update already in progress")
	// ErrNoEvaluator indicates no rule evaluator could be resolved.
	ErrNoEvaluator = errors.New("para: evaluator not configured")
)

// PathError records a failed path operation.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("para: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func pathError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

// translateTreeError maps layering failures onto the store's sentinels while
// keeping the original error in the chain.
func translateTreeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, layering.ErrShapeMismatch):
		return fmt.Errorf("%w: %w", ErrShapeViolation, err)
	case errors.Is(err, layering.ErrUnknownKey):
		return fmt.Errorf("%w: %w", ErrUnknownPath, err)
	case errors.Is(err, layering.ErrInvalidLeaf):
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	default:
		return err
	}
}
