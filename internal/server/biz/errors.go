package biz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/inkhub/inkhub/internal/validate"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrNotFound          = errors.New("document not found")
	ErrInternal          = errors.New("internal error, please try again later")
)

// PermissionError reports a rejected operation together with the reason, so
// callers can surface it without guessing which check failed.
type PermissionError struct {
	Operation string
	Reason    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s: %s", e.Operation, e.Reason)
}

// ValidationError blocks a publish-gated write. It names every invalid
// field and aggregates the individual messages.
type ValidationError struct {
	Collection string
	Result     validate.Result

	err *multierror.Error
}

func NewValidationError(collection string, result validate.Result) *ValidationError {
	e := &ValidationError{Collection: collection, Result: result}

	for _, fieldErr := range result.Errors {
		for _, msg := range fieldErr.Errors {
			e.err = multierror.Append(e.err, fmt.Errorf("%s: %s", fieldErr.Field, msg))
		}
	}

	return e
}

// Fields returns the names of every invalid field in order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Result.Errors))
	for _, fieldErr := range e.Result.Errors {
		fields = append(fields, fieldErr.Field)
	}

	return fields
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s (fields: %s): %v",
		e.Collection, strings.Join(e.Fields(), ", "), e.err)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}
