package grader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullVector(score float64, plagiarism float64) RubricVector {
	return RubricVector{
		FieldClarity:         score,
		FieldCommitFrequency: score,
		FieldDeadlineRespect: score,
		FieldEfficiency:      score,
		FieldCodePerformance: score,
		FieldPlagiarism:      plagiarism,
		FieldCollaboration:   score,
		FieldTestsValidation: score,
		FieldReportQuality:   score,
	}
}

func TestScore(t *testing.T) {
	g := New(nil)

	t.Run("all max without plagiarism is a perfect grade", func(t *testing.T) {
		assert.InDelta(t, 20.00, g.Score(fullVector(5, 0)), 1e-9)
	})

	t.Run("plagiarism flag pulls the grade below perfect", func(t *testing.T) {
		grade := g.Score(fullVector(5, 1))
		assert.Less(t, grade, 20.00)
		assert.GreaterOrEqual(t, grade, 0.0)
	})

	t.Run("empty vector grades zero", func(t *testing.T) {
		assert.Zero(t, g.Score(RubricVector{}))
	})

	t.Run("grade never goes negative", func(t *testing.T) {
		grade := g.Score(RubricVector{
			FieldClarity:    0,
			FieldPlagiarism: 1,
		})
		assert.GreaterOrEqual(t, grade, 0.0)
	})

	t.Run("partial vector normalizes over present weights", func(t *testing.T) {
		// clarity 5/5 with weight 1, deadlineRespect 0/5 with weight 1.5:
		// (20*1 + 0) / 2.5 = 8.00
		grade := g.Score(RubricVector{
			FieldClarity:         5,
			FieldDeadlineRespect: 0,
		})
		assert.InDelta(t, 8.00, grade, 1e-9)
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		grade := g.Score(fullVector(4, 0))
		assert.InDelta(t, 16.00, grade, 1e-9)

		grade = g.Score(RubricVector{
			FieldClarity:         5,
			FieldCommitFrequency: 4,
			FieldCollaboration:   4,
		})
		// (20 + 16 + 16) / 3 = 17.333... -> 17.33
		assert.InDelta(t, 17.33, grade, 1e-9)
	})
}

func TestScoreWithCustomWeights(t *testing.T) {
	g := New(map[string]float64{
		FieldClarity:    2,
		FieldPlagiarism: -1,
	})

	assert.InDelta(t, 20.00, g.Score(RubricVector{FieldClarity: 5}), 1e-9)
	// (20*2 - 1) / 3 = 13.00
	assert.InDelta(t, 13.00, g.Score(RubricVector{FieldClarity: 5, FieldPlagiarism: 1}), 1e-9)
}

func TestValidate(t *testing.T) {
	g := New(nil)

	require.NoError(t, g.Validate(fullVector(5, 1)))
	require.NoError(t, g.Validate(RubricVector{}))

	assert.Error(t, g.Validate(RubricVector{FieldClarity: 6}))
	assert.Error(t, g.Validate(RubricVector{FieldClarity: -1}))
	assert.Error(t, g.Validate(RubricVector{FieldPlagiarism: 2}))
	assert.Error(t, g.Validate(RubricVector{"quizScore": 3}))
}

func TestTeamAverage(t *testing.T) {
	assert.Zero(t, TeamAverage(nil))
	assert.InDelta(t, 15.0, TeamAverage([]float64{10, 20}), 1e-9)
	// (12.5 + 14.2 + 19.9) / 3 = 15.533... -> 15.53
	assert.InDelta(t, 15.53, TeamAverage([]float64{12.5, 14.2, 19.9}), 1e-9)
}
