package model

import (
	"fmt"
	"strings"
)

// ErrorKind classifies failures for the API boundary.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindUnknownEntity       ErrorKind = "unknown_entity"
	KindResourceUnavailable ErrorKind = "resource_unavailable"
	KindPredictionFailed    ErrorKind = "prediction_failed"
	KindInternal            ErrorKind = "internal"
)

// ValidationReason refines a ValidationError.
type ValidationReason string

const (
	ReasonMissing    ValidationReason = "missing"
	ReasonOutOfRange ValidationReason = "out_of_range"
	ReasonInvalid    ValidationReason = "invalid"
)

// ValidationError is a user-correctable problem with a request field.
// Allowed lists the acceptable values when they are enumerable.
type ValidationError struct {
	Field   string
	Reason  ValidationReason
	Message string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (allowed: %s)", e.Message, strings.Join(e.Allowed, ", "))
}

// NewMissingField reports a required field that was not supplied.
func NewMissingField(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Reason:  ReasonMissing,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// NewOutOfRange reports a numeric field outside [min, max].
func NewOutOfRange(field string, value, min, max int) *ValidationError {
	return &ValidationError{
		Field:   field,
		Reason:  ReasonOutOfRange,
		Message: fmt.Sprintf("%s must be between %d and %d, got %d", field, min, max, value),
		Allowed: []string{fmt.Sprintf("%d..%d", min, max)},
	}
}

// UnknownEntityError reports a lookup miss together with the valid roster.
type UnknownEntityError struct {
	Entity string
	Name   string
	Roster []string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("%s %q not found; available: %s", e.Entity, e.Name, strings.Join(e.Roster, ", "))
}

// NewUnknownNeighborhood builds the common neighborhood lookup miss.
func NewUnknownNeighborhood(name string, roster []string) *UnknownEntityError {
	return &UnknownEntityError{Entity: "neighborhood", Name: name, Roster: roster}
}

// ResourceUnavailableError reports that a startup table or estimator was
// not loaded, so the operation cannot be served.
type ResourceUnavailableError struct {
	Resource string
	Err      error
}

func (e *ResourceUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s is not available", e.Resource)
	}
	return fmt.Sprintf("%s is not available: %v", e.Resource, e.Err)
}

func (e *ResourceUnavailableError) Unwrap() error { return e.Err }

// PredictionFailedError wraps an estimator invocation failure.
type PredictionFailedError struct {
	Neighborhood string
	Err          error
}

func (e *PredictionFailedError) Error() string {
	return fmt.Sprintf("prediction for %q failed: %v", e.Neighborhood, e.Err)
}

func (e *PredictionFailedError) Unwrap() error { return e.Err }

// KindOf returns the taxonomy kind of err. It looks through wrapping and
// the outermost typed error wins, so a ResourceUnavailableError caused by
// an invalid table is still reported as unavailable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if k := kindOf(err); k != "" {
		return k
	}
	return KindInternal
}

func kindOf(err error) ErrorKind {
	switch err.(type) {
	case *ValidationError:
		return KindValidation
	case *UnknownEntityError:
		return KindUnknownEntity
	case *ResourceUnavailableError:
		return KindResourceUnavailable
	case *PredictionFailedError:
		return KindPredictionFailed
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		if inner := u.Unwrap(); inner != nil {
			return kindOf(inner)
		}
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if k := kindOf(inner); k != "" {
				return k
			}
		}
	}
	return ""
}
