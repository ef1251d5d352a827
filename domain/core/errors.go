package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrRunNotFound    = fmt.Errorf("%w: clustering run", ErrNotFound)
	ErrCohortNotFound = fmt.Errorf("%w: cohort", ErrNotFound)
	ErrActorNotFound  = fmt.Errorf("%w: actor assignment", ErrNotFound)

	// Input errors; fatal to the operation that raised them
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrMalformedFeature  = errors.New("malformed feature")
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
	ErrNoFeatures        = errors.New("no feature groups enabled")

	// Algorithm errors
	ErrUnknownAlgorithm    = errors.New("unknown clustering algorithm")
	ErrUnknownMethod       = errors.New("unknown k-selection method")
	ErrInvalidParameter    = errors.New("invalid algorithm parameter")
	ErrAllAlgorithmsFailed = errors.New("every clustering algorithm failed")
	ErrNoCohorts           = errors.New("no cohorts available for assignment")

	ErrPersistence = errors.New("persisting clustering results failed")
)

// InsufficientDataError reports that an operation received fewer rows than it requires.
type InsufficientDataError struct {
	Operation  string
	Actors     int
	Required   int
	RequestedK int
}

func (e *InsufficientDataError) Error() string {
	if e.RequestedK > 0 {
		return fmt.Sprintf("%s: %s: %d actors, need at least %d for k=%d",
			ErrInsufficientData, e.Operation, e.Actors, e.Required, e.RequestedK)
	}
	return fmt.Sprintf("%s: %s: %d actors, need at least %d",
		ErrInsufficientData, e.Operation, e.Actors, e.Required)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// MalformedFeatureError identifies the offending cell of a feature matrix.
type MalformedFeatureError struct {
	ActorID string
	Row     int
	Column  string
	Value   float64
	Reason  string
}

func (e *MalformedFeatureError) Error() string {
	return fmt.Sprintf("%s: actor %q (row %d) column %q value %v: %s",
		ErrMalformedFeature, e.ActorID, e.Row, e.Column, e.Value, e.Reason)
}

func (e *MalformedFeatureError) Unwrap() error { return ErrMalformedFeature }

// Error constructors with context
func NewInsufficientDataError(operation string, actors, required int) error {
	return &InsufficientDataError{Operation: operation, Actors: actors, Required: required}
}

func NewInsufficientPointsForK(operation string, points, k int) error {
	return &InsufficientDataError{Operation: operation, Actors: points, Required: k, RequestedK: k}
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewInvalidParameterError(algorithm, param string, value interface{}) error {
	return fmt.Errorf("%w: %s %s=%v", ErrInvalidParameter, algorithm, param, value)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrMalformedFeature) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrNoFeatures) ||
		errors.Is(err, ErrInvalidParameter)
}
