package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelOf(t *testing.T) {
	assert.Equal(t, ContradictionLow, LevelOf(0.0))
	assert.Equal(t, ContradictionLow, LevelOf(0.29))
	assert.Equal(t, ContradictionMedium, LevelOf(0.3))
	assert.Equal(t, ContradictionMedium, LevelOf(0.59))
	assert.Equal(t, ContradictionHigh, LevelOf(0.6))
	assert.Equal(t, ContradictionHigh, LevelOf(1.0))
}

func TestAssignmentSucceeded(t *testing.T) {
	assert.True(t, Assignment{ActorID: "a", CohortID: "c"}.Succeeded())
	assert.False(t, Assignment{ActorID: "a"}.Succeeded())
	assert.False(t, Assignment{ActorID: "a", CohortID: "c", Error: "boom"}.Succeeded())
}
