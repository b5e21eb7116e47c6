// Package grader reduces a tutor's rubric vector into a single 0-20 grade
// per team member, and member grades into a team average.
package grader

import (
	"math"

	"github.com/atelier-edu/atelier/pkg/apperr"
)

// Rubric field names. All fields are scored 0-5 except FieldPlagiarism,
// which is a 0-1 flag weighted negatively.
const (
	FieldClarity         = "clarity"
	FieldCommitFrequency = "commitFrequency"
	FieldDeadlineRespect = "deadlineRespect"
	FieldEfficiency      = "efficiency"
	FieldCodePerformance = "codePerformance"
	FieldPlagiarism      = "plagiarismDetection"
	FieldCollaboration   = "collaboration"
	FieldTestsValidation = "testsValidation"
	FieldReportQuality   = "reportQuality"
)

// RubricVector is the set of named scores a tutor assigns one member.
// Fields absent from the map simply do not contribute.
type RubricVector map[string]float64

// DefaultWeights is the grading table every deployment must reproduce by
// default; deployments may override it through configuration.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		FieldClarity:         1,
		FieldCommitFrequency: 1,
		FieldDeadlineRespect: 1.5,
		FieldEfficiency:      1.5,
		FieldCodePerformance: 2,
		FieldPlagiarism:      -3,
		FieldCollaboration:   1,
		FieldTestsValidation: 1.5,
		FieldReportQuality:   1.5,
	}
}

type Grader struct {
	weights map[string]float64
}

// New builds a grader from a weight table; nil or empty falls back to the
// default table.
func New(weights map[string]float64) *Grader {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Grader{weights: weights}
}

// Validate rejects out-of-range or unknown rubric values before any grade
// is derived.
func (g *Grader) Validate(vector RubricVector) error {
	for field, value := range vector {
		if _, ok := g.weights[field]; !ok {
			return apperr.Validationf("unknown rubric field %q", field)
		}
		if field == FieldPlagiarism {
			if value < 0 || value > 1 {
				return apperr.Validationf("%s must be within [0,1], got %v", field, value)
			}
			continue
		}
		if value < 0 || value > 5 {
			return apperr.Validationf("%s must be within [0,5], got %v", field, value)
		}
	}
	return nil
}

// Score reduces one rubric vector to a grade in [0,20], rounded to 2
// decimals. Weighted normalization: each present field contributes
// (value/5)*20*weight to the total and |weight| to the weight sum, except
// the plagiarism flag whose raw value is multiplied by its negative weight
// directly. An empty vector scores 0.
func (g *Grader) Score(vector RubricVector) float64 {
	var total, weightSum float64
	for field, weight := range g.weights {
		value, ok := vector[field]
		if !ok {
			continue
		}
		if field == FieldPlagiarism {
			// A zero flag is a non-event: it must neither penalize nor
			// dilute the weight sum, so a clean all-fives vector still
			// grades 20.00.
			if value == 0 {
				continue
			}
			total += value * weight
		} else {
			total += (value / 5) * 20 * weight
		}
		weightSum += math.Abs(weight)
	}
	if weightSum == 0 {
		return 0
	}
	grade := total / weightSum
	grade = math.Max(0, math.Min(20, grade))
	return round2(grade)
}

// TeamAverage is the arithmetic mean of member grades, 0 for an empty team.
func TeamAverage(grades []float64) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, grade := range grades {
		sum += grade
	}
	return round2(sum / float64(len(grades)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
