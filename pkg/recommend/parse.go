package recommend

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/atelier-edu/atelier/pkg/apperr"
)

// Assignment is one row of the model's answer: a team name paired with a
// project name.
type Assignment struct {
	TeamName        string `json:"teamName"`
	AssignedProject string `json:"assignedProject"`
}

// arrayFragment matches the first array-of-objects fragment in the model's
// free text, which tends to wrap the JSON in prose or code fences.
var arrayFragment = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// ParseAssignments extracts the assignment array from the recommender's
// free-text answer. The recommendation is untrusted external input: any row
// that fails to decode, carries unknown keys, or misses a field rejects the
// whole batch. Partially applied recommendations are worse than none.
func ParseAssignments(freeText string) ([]Assignment, error) {
	fragment := arrayFragment.FindString(freeText)
	if fragment == "" {
		return nil, apperr.Upstreamf("no assignment array found in recommendation")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(fragment)))
	dec.DisallowUnknownFields()
	var rows []Assignment
	if err := dec.Decode(&rows); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "malformed recommendation")
	}

	for i := range rows {
		// Models occasionally prefix team names despite instructions.
		rows[i].TeamName = strings.TrimPrefix(rows[i].TeamName, "Team ")
		if rows[i].TeamName == "" || rows[i].AssignedProject == "" {
			return nil, apperr.Upstreamf("recommendation row %d is incomplete", i)
		}
	}
	if len(rows) == 0 {
		return nil, apperr.Upstreamf("recommendation contains no assignments")
	}
	return rows, nil
}
