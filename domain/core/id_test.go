package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestNewCohortAndRunIDs(t *testing.T) {
	if NewCohortID() == "" || NewRunID() == "" {
		t.Fatal("expected non-empty generated IDs")
	}
	if string(NewCohortID()) == string(NewCohortID()) {
		t.Fatal("expected distinct cohort IDs")
	}
}

// TestParseIDs tests parsing of the domain identifiers
func TestParseIDs(t *testing.T) {
	tests := []struct {
		input    string
		hasError bool
	}{
		{"valid-id", false},
		{"", true},
		{"   ", true},
	}

	for _, test := range tests {
		actorID, err := ParseActorID(test.input)
		if test.hasError != (err != nil) {
			t.Errorf("ParseActorID(%q): unexpected error state %v", test.input, err)
		}
		if !test.hasError && actorID.String() != test.input {
			t.Errorf("Expected %s, got %s", test.input, actorID)
		}

		if _, err := ParseCohortID(test.input); test.hasError != (err != nil) {
			t.Errorf("ParseCohortID(%q): unexpected error state %v", test.input, err)
		}
		if _, err := ParseRunID(test.input); test.hasError != (err != nil) {
			t.Errorf("ParseRunID(%q): unexpected error state %v", test.input, err)
		}
	}
}
