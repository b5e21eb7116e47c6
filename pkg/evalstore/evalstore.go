// Package evalstore persists tutor evaluations: one rubric vector per team
// member, graded on the 0-20 scale, aggregated to a team average. A team
// has at most one evaluation on file; resubmitting replaces it.
package evalstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/alert"
	"github.com/atelier-edu/atelier/pkg/apperr"
	"github.com/atelier-edu/atelier/pkg/grader"
)

type Store struct {
	db     *gorm.DB
	grader *grader.Grader
	sink   alert.Sink
}

// NewStore builds a store; sink may be nil.
func NewStore(db *gorm.DB, g *grader.Grader, sink alert.Sink) *Store {
	if g == nil {
		g = grader.New(nil)
	}
	return &Store{db: db, grader: g, sink: sink}
}

type MemberScores struct {
	MemberID uint                `json:"memberId" binding:"required"`
	Scores   grader.RubricVector `json:"scores" binding:"required"`
}

type SubmitRequest struct {
	TeamID uint           `json:"teamId" binding:"required"`
	Items  []MemberScores `json:"items" binding:"required"`
}

// Submit grades every member vector, replaces any prior evaluation of the
// team in one transaction, and notifies the members.
func (s *Store) Submit(ctx context.Context, evaluatorID uint, req *SubmitRequest) (*model.Evaluation, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validationf("at least one member evaluation is required")
	}

	var team model.Team
	if err := s.db.WithContext(ctx).Preload("Members").
		First(&team, req.TeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("team %d not found", req.TeamID)
		}
		return nil, err
	}

	roster := make(map[uint]bool, len(team.Members))
	for i := range team.Members {
		roster[team.Members[i].ID] = true
	}

	evaluation := model.Evaluation{
		TeamID:      team.ID,
		EvaluatorID: evaluatorID,
		EvaluatedAt: time.Now(),
	}
	grades := make([]float64, 0, len(req.Items))
	seen := make(map[uint]bool, len(req.Items))
	for _, item := range req.Items {
		if !roster[item.MemberID] {
			return nil, apperr.Validationf("user %d is not a member of team %q", item.MemberID, team.Name)
		}
		if seen[item.MemberID] {
			return nil, apperr.Validationf("duplicate evaluation for member %d", item.MemberID)
		}
		seen[item.MemberID] = true

		if err := s.grader.Validate(item.Scores); err != nil {
			return nil, err
		}
		grade := s.grader.Score(item.Scores)
		grades = append(grades, grade)
		evaluation.Items = append(evaluation.Items, model.EvaluationItem{
			MemberID: item.MemberID,
			Scores:   datatypes.NewJSONType(map[string]float64(item.Scores)),
			Grade:    grade,
		})
	}
	evaluation.TeamAverage = grader.TeamAverage(grades)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior model.Evaluation
		err := tx.Where("team_id = ?", team.ID).First(&prior).Error
		if err == nil {
			if err := tx.Unscoped().Where("evaluation_id = ?", prior.ID).
				Delete(&model.EvaluationItem{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&prior).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&evaluation).Error
	})
	if err != nil {
		return nil, err
	}

	if s.sink != nil {
		go s.sink.EvaluationPublished(context.WithoutCancel(ctx),
			uuid.NewString(), &team, team.Members)
	}
	return &evaluation, nil
}

// GetByTeam returns the team's evaluation, or (nil, nil) when none is on
// file.
func (s *Store) GetByTeam(ctx context.Context, teamID uint) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	err := s.db.WithContext(ctx).Preload("Items").
		Where("team_id = ?", teamID).First(&evaluation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &evaluation, nil
}
