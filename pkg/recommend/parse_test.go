package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-edu/atelier/pkg/apperr"
)

func TestParseAssignments(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		rows, err := ParseAssignments(`[
			{"teamName": "Apollo", "assignedProject": "Alpha"},
			{"teamName": "Hermes", "assignedProject": "Beta"}
		]`)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Apollo", rows[0].TeamName)
		assert.Equal(t, "Alpha", rows[0].AssignedProject)
	})

	t.Run("array wrapped in prose and code fences", func(t *testing.T) {
		rows, err := ParseAssignments("Sure, here is the assignment:\n```json\n" +
			`[{"teamName": "Apollo", "assignedProject": "Alpha"}]` +
			"\n```\nLet me know if you need anything else.")
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("team prefix is stripped", func(t *testing.T) {
		rows, err := ParseAssignments(`[{"teamName": "Team Apollo", "assignedProject": "Alpha"}]`)
		require.NoError(t, err)
		assert.Equal(t, "Apollo", rows[0].TeamName)
	})

	t.Run("no array fragment fails", func(t *testing.T) {
		_, err := ParseAssignments("I could not produce an assignment.")
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})

	t.Run("unknown keys reject the whole batch", func(t *testing.T) {
		_, err := ParseAssignments(`[
			{"teamName": "Apollo", "assignedProject": "Alpha"},
			{"teamName": "Hermes", "assignedProject": "Beta", "confidence": 0.9}
		]`)
		require.Error(t, err)
	})

	t.Run("incomplete row rejects the whole batch", func(t *testing.T) {
		_, err := ParseAssignments(`[
			{"teamName": "Apollo", "assignedProject": "Alpha"},
			{"teamName": "Hermes"}
		]`)
		require.Error(t, err)
	})

	t.Run("empty array fails", func(t *testing.T) {
		_, err := ParseAssignments("here is the assignment: [ {} ]")
		require.Error(t, err)
	})
}
