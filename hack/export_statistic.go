// Usage: ATELIER_DEBUG_CONFIG_PATH=${PWD}/etc/debug-config.yaml go run hack/export_statistic.go
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/atelier-edu/atelier/dao"
	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/grader"
)

// Exports every evaluation as one CSV row per graded member, for the
// end-of-term reporting spreadsheet.
func main() {
	db := dao.GetDB()

	var evaluations []model.Evaluation
	if err := db.Preload("Items").Order("id").Find(&evaluations).Error; err != nil {
		panic(fmt.Errorf("failed to fetch evaluations: %w", err))
	}

	file, err := os.Create("grades_export.csv")
	if err != nil {
		panic(fmt.Errorf("failed to create CSV file: %w", err))
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	rubricFields := []string{
		grader.FieldClarity, grader.FieldCommitFrequency, grader.FieldDeadlineRespect,
		grader.FieldEfficiency, grader.FieldCodePerformance, grader.FieldPlagiarism,
		grader.FieldCollaboration, grader.FieldTestsValidation, grader.FieldReportQuality,
	}
	headers := []string{
		"TeamID", "TeamName", "ProjectName", "MemberID", "MemberName",
		"Grade", "TeamAverage", "EvaluatedAt",
	}
	headers = append(headers, rubricFields...)
	if err := writer.Write(headers); err != nil {
		panic(fmt.Errorf("failed to write CSV header: %w", err))
	}

	for i := range evaluations {
		evaluation := &evaluations[i]

		var team model.Team
		if err := db.First(&team, evaluation.TeamID).Error; err != nil {
			panic(fmt.Errorf("failed to fetch team %d: %w", evaluation.TeamID, err))
		}
		projectName := ""
		if team.ProjectID != nil {
			var project model.Project
			if err := db.First(&project, *team.ProjectID).Error; err == nil {
				projectName = project.Name
			}
		}

		for j := range evaluation.Items {
			item := &evaluation.Items[j]

			var member model.User
			memberName := ""
			if err := db.First(&member, item.MemberID).Error; err == nil {
				memberName = member.Name
			}

			row := []string{
				strconv.FormatUint(uint64(team.ID), 10),
				team.Name,
				projectName,
				strconv.FormatUint(uint64(item.MemberID), 10),
				memberName,
				strconv.FormatFloat(item.Grade, 'f', 2, 64),
				strconv.FormatFloat(evaluation.TeamAverage, 'f', 2, 64),
				evaluation.EvaluatedAt.Format(time.RFC3339),
			}
			scores := item.Scores.Data()
			for _, field := range rubricFields {
				if v, ok := scores[field]; ok {
					row = append(row, strconv.FormatFloat(v, 'f', 1, 64))
				} else {
					row = append(row, "")
				}
			}
			if err := writer.Write(row); err != nil {
				panic(fmt.Errorf("failed to write CSV row: %w", err))
			}
		}
	}

	fmt.Printf("exported %d evaluations to grades_export.csv\n", len(evaluations))
}
