package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// v7 keeps run and cohort IDs sortable by creation time
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ActorID  ID
	CohortID ID
	RunID    ID
)

// String conversions for domain IDs
func (id ActorID) String() string  { return ID(id).String() }
func (id CohortID) String() string { return ID(id).String() }
func (id RunID) String() string    { return ID(id).String() }

// NewCohortID creates a fresh cohort identifier
func NewCohortID() CohortID { return CohortID(NewID()) }

// NewRunID creates a fresh clustering run identifier
func NewRunID() RunID { return RunID(NewID()) }

// ParseActorID parses a string into ActorID
func ParseActorID(s string) (ActorID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("actor ID cannot be empty")
	}
	return ActorID(s), nil
}

// ParseCohortID parses a string into CohortID
func ParseCohortID(s string) (CohortID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("cohort ID cannot be empty")
	}
	return CohortID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}
