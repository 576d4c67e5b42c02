// internal/policy/errors.go
package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDocumentNotFound is returned by document sources for unknown policy or schedule ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidDocument is returned when a stored document cannot be parsed or fails validation.
	ErrInvalidDocument = errors.New("invalid policy document")
)

// Parameter names used on validation errors.
const (
	ParamLoanPolicyID   = "loanPolicyId"
	ParamLoanPolicyName = "loanPolicyName"
	ParamItemID         = "itemId"
	ParamRequestID      = "requestId"
	ParamComment        = "comment"
	ParamDueDate        = "dueDate"
)

// Parameter is a key/value pair that points a caller at the cause of a validation error.
type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ValidationError is a business rule violation reported back to the caller.
type ValidationError struct {
	Reason     string      `json:"message"`
	Parameters []Parameter `json:"parameters"`
}

// NewValidationError builds an error from a reason and alternating key/value pairs.
func NewValidationError(reason string, kv ...string) ValidationError {
	e := ValidationError{Reason: reason}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Parameters = append(e.Parameters, Parameter{Key: kv[i], Value: kv[i+1]})
	}
	return e
}

// Param returns the value of the named parameter.
func (e ValidationError) Param(key string) (string, bool) {
	for _, p := range e.Parameters {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// ValidationFailure aggregates one or more validation errors.
type ValidationFailure struct {
	Errors []ValidationError
}

func (f *ValidationFailure) Error() string {
	reasons := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		reasons[i] = e.Reason
	}
	return "validation failed: " + strings.Join(reasons, "; ")
}

// HasReason reports whether any aggregated error carries the reason.
func (f *ValidationFailure) HasReason(reason string) bool {
	for _, e := range f.Errors {
		if e.Reason == reason {
			return true
		}
	}
	return false
}

// Failed wraps validation errors into an error value.
func Failed(errs ...ValidationError) error {
	return &ValidationFailure{Errors: errs}
}

// AsValidationFailure unwraps err into a ValidationFailure when it is one.
func AsValidationFailure(err error) (*ValidationFailure, bool) {
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return vf, true
	}
	return nil, false
}

// ValidationErrorsOf returns the aggregated errors of a validation failure, or nil.
func ValidationErrorsOf(err error) []ValidationError {
	if vf, ok := AsValidationFailure(err); ok {
		return vf.Errors
	}
	return nil
}

// InternalError reports an unexpected failure while applying a policy.
type InternalError struct {
	Op         string
	PolicyID   string
	PolicyName string
	Err        error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s for loan policy %q (%s): %v", e.Op, e.PolicyName, e.PolicyID, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a business rule violation rather than a fault.
func IsValidation(err error) bool {
	_, ok := AsValidationFailure(err)
	return ok
}
