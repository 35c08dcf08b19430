package llmrt

import (
	"errors"
	"fmt"

	"noctua/pkg/llmrt/llmtypes"
)

// ModelError is re-exported from llmtypes so callers never need to import
// that package directly; see llmtypes.ModelError for why it lives there.
type ModelError = llmtypes.ModelError

// BudgetExceededError is raised when an invocation's running cost would
// cross its budget ceiling. Grounded on the teacher's llmerrors.Error
// structured-error pattern, specialized to the one field set spec.md §4.8
// names rather than the teacher's general ErrorType enum — this pipeline
// only needs to distinguish budget, parse, and model errors, not the
// teacher's full rate-limit/auth/empty-response taxonomy (that
// classification lives in pkg/retry.IsTransient instead).
type BudgetExceededError struct {
	SpentUSD  float64
	BudgetUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: spent $%.2f of $%.2f", e.SpentUSD, e.BudgetUSD)
}

// OutputParseError is raised when a structured-output schema was supplied
// and the model's response could not be parsed/validated against it.
type OutputParseError struct {
	Message string
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("output parse error: %s", e.Message)
}

// IsBudgetExceeded reports whether err is (or wraps) a BudgetExceededError.
func IsBudgetExceeded(err error) (*BudgetExceededError, bool) {
	var target *BudgetExceededError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsOutputParseError reports whether err is (or wraps) an OutputParseError.
func IsOutputParseError(err error) (*OutputParseError, bool) {
	var target *OutputParseError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsModelError reports whether err is (or wraps) a ModelError.
func IsModelError(err error) (*ModelError, bool) {
	var target *ModelError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
