package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestInsufficientDataError_Unwraps(t *testing.T) {
	err := fmt.Errorf("prepare: %w", NewInsufficientDataError("prepare", 5, 10))

	if !errors.Is(err, ErrInsufficientData) {
		t.Fatal("expected errors.Is to match ErrInsufficientData")
	}
	var ide *InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatal("expected errors.As to extract InsufficientDataError")
	}
	if ide.Actors != 5 || ide.Required != 10 {
		t.Fatalf("unexpected details: %+v", ide)
	}
	if !IsInputError(err) {
		t.Fatal("expected input error classification")
	}
}

func TestMalformedFeatureError_Details(t *testing.T) {
	err := &MalformedFeatureError{ActorID: "a-1", Row: 3, Column: "coherence", Reason: "non-finite"}
	if !errors.Is(err, ErrMalformedFeature) {
		t.Fatal("expected sentinel match")
	}
	if err.Error() == "" {
		t.Fatal("expected message")
	}
}

func TestNotFoundErrors(t *testing.T) {
	if !IsNotFoundError(ErrRunNotFound) {
		t.Fatal("run not found should classify as not found")
	}
	if !IsNotFoundError(NewNotFoundError("cohort", "c-1")) {
		t.Fatal("constructed not found should classify as not found")
	}
}
