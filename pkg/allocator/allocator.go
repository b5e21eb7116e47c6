// Package allocator resolves team/project pairings: an advisory propose
// step backed by the recommendation service, and a transactional commit
// that assigns a team to a project and settles every member's applications.
package allocator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/alert"
	"github.com/atelier-edu/atelier/pkg/apperr"
	"github.com/atelier-edu/atelier/pkg/limiter"
	"github.com/atelier-edu/atelier/pkg/monitor"
	"github.com/atelier-edu/atelier/pkg/recommend"
)

// Recommender proposes team-to-project pairings from motivation letters.
type Recommender interface {
	Propose(ctx context.Context, prefs []recommend.TeamPreference) ([]recommend.Assignment, error)
}

// SystemMotivation marks applications created by a commit rather than
// filed by a student.
const SystemMotivation = "Assigned by tutor"

// Resolution status of one proposed pairing.
const (
	StatusRecommended     = "RECOMMENDED"
	StatusTeamNotFound    = "TEAM_NOT_FOUND"
	StatusProjectNotFound = "PROJECT_NOT_FOUND"
)

type Proposal struct {
	TeamName    string `json:"teamName"`
	ProjectName string `json:"projectName"`
	ProjectID   *uint  `json:"projectId,omitempty"`
	Status      string `json:"status"`
}

type Allocator struct {
	db          *gorm.DB
	recommender Recommender
	sink        alert.Sink
	cache       *limiter.CapacityCache
}

// New builds an allocator. The recommender is required only for Propose;
// sink and cache may be nil.
func New(db *gorm.DB, recommender Recommender, sink alert.Sink, cache *limiter.CapacityCache) *Allocator {
	return &Allocator{db: db, recommender: recommender, sink: sink, cache: cache}
}

// Propose asks the recommendation service for a pairing over all pending
// applications and resolves each answer row against the database. Nothing
// is persisted; the tutor reviews the proposals and commits them one by
// one.
func (a *Allocator) Propose(ctx context.Context) ([]Proposal, error) {
	if a.recommender == nil {
		return nil, apperr.New(apperr.KindUpstream, "recommendation service is not configured")
	}

	var applications []model.Application
	if err := a.db.WithContext(ctx).Preload("Project").
		Where("status = ?", model.ApplicationPending).
		Order("team_name_lower, priority").Find(&applications).Error; err != nil {
		return nil, err
	}
	if len(applications) == 0 {
		return nil, apperr.Validationf("no pending applications to allocate")
	}

	prefs := lo.Map(applications, func(app model.Application, _ int) recommend.TeamPreference {
		return recommend.TeamPreference{
			TeamName:    app.TeamName,
			ProjectName: app.Project.Name,
			Motivation:  app.Motivation,
		}
	})

	assignments, err := a.recommender.Propose(ctx, prefs)
	if err != nil {
		monitor.RecommenderCalls.WithLabelValues("error").Inc()
		return nil, err
	}
	monitor.RecommenderCalls.WithLabelValues("ok").Inc()

	var projects []model.Project
	if err := a.db.WithContext(ctx).
		Where("approval = ?", model.ApprovalApproved).Find(&projects).Error; err != nil {
		return nil, err
	}

	knownTeams := make(map[string]string, len(applications))
	for i := range applications {
		knownTeams[applications[i].TeamNameLower] = applications[i].TeamName
	}

	proposals := make([]Proposal, 0, len(assignments))
	for _, assignment := range assignments {
		proposal := Proposal{
			TeamName:    assignment.TeamName,
			ProjectName: assignment.AssignedProject,
		}
		if name, ok := knownTeams[strings.ToLower(assignment.TeamName)]; ok {
			proposal.TeamName = name
		} else {
			proposal.Status = StatusTeamNotFound
			proposals = append(proposals, proposal)
			continue
		}
		if project := matchProject(projects, assignment.AssignedProject); project != nil {
			proposal.ProjectName = project.Name
			proposal.ProjectID = &project.ID
			proposal.Status = StatusRecommended
		} else {
			proposal.Status = StatusProjectNotFound
		}
		proposals = append(proposals, proposal)
	}
	return proposals, nil
}

// matchProject prefers an exact name match and falls back to a
// case-insensitive one, the same order the project lookup uses at commit.
func matchProject(projects []model.Project, name string) *model.Project {
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i]
		}
	}
	lower := strings.ToLower(name)
	for i := range projects {
		if strings.ToLower(projects[i].Name) == lower {
			return &projects[i]
		}
	}
	return nil
}

type CommitResult struct {
	Team            model.Team    `json:"team"`
	Project         model.Project `json:"project"`
	Members         []model.User  `json:"members"`
	AlreadyAssigned bool          `json:"alreadyAssigned"`
}

// Commit assigns a team to a project inside one transaction.
//
// The project row is locked for the capacity check, so two concurrent
// commits cannot both squeeze past the limit. Committing a team to the
// project it already holds is a no-op; moving an assigned team elsewhere
// is refused. Every member ends up with exactly one ACCEPTED application,
// on this project.
func (a *Allocator) Commit(ctx context.Context, teamName, projectName string) (*CommitResult, error) {
	result := &CommitResult{}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team model.Team
		if err := tx.Where("name_lower = ?", strings.ToLower(strings.TrimSpace(teamName))).
			First(&team).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("team %q not found", teamName)
			}
			return err
		}

		project, err := lockProject(tx, projectName)
		if err != nil {
			return err
		}

		if team.ProjectID != nil {
			if *team.ProjectID == project.ID {
				result.Team = team
				result.Project = *project
				result.AlreadyAssigned = true
				return nil
			}
			return apperr.Conflictf("team %q is already assigned to another project", team.Name)
		}

		var assigned int64
		if err := tx.Model(&model.Team{}).
			Where("project_id = ?", project.ID).Count(&assigned).Error; err != nil {
			return err
		}
		if assigned >= int64(project.Capacity) {
			return apperr.Conflictf("project %q is at full capacity (%d teams)", project.Name, project.Capacity)
		}

		if err := tx.Model(&team).Update("project_id", project.ID).Error; err != nil {
			return err
		}
		team.ProjectID = &project.ID

		var members []model.User
		if err := tx.Where("team_id = ?", team.ID).Find(&members).Error; err != nil {
			return err
		}
		for i := range members {
			if err := settleApplications(tx, &team, project, &members[i]); err != nil {
				return err
			}
		}

		result.Team = team
		result.Project = *project
		result.Members = members
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyAssigned {
		return result, nil
	}

	monitor.AllocationCommits.Inc()
	if a.cache != nil {
		a.cache.Invalidate(ctx, result.Project.ID)
	}
	if a.sink != nil {
		eventID := uuid.NewString()
		klog.Infof("allocation %s: team %q -> project %q", eventID, result.Team.Name, result.Project.Name)
		go a.sink.AllocationCommitted(context.WithoutCancel(ctx), eventID,
			&result.Team, &result.Project, result.Members)
	}
	return result, nil
}

// lockProject fetches the project by name (exact first, then
// case-insensitive) and takes a row lock where the dialect supports it.
func lockProject(tx *gorm.DB, projectName string) (*model.Project, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var project model.Project
	err := q.Where("name = ?", projectName).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = q.Where("LOWER(name) = ?", strings.ToLower(projectName)).First(&project).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("project %q not found", projectName)
		}
		return nil, err
	}
	return &project, nil
}

// settleApplications gives the member an ACCEPTED application on the
// committed project and hard-deletes their applications elsewhere.
func settleApplications(tx *gorm.DB, team *model.Team, project *model.Project, member *model.User) error {
	var application model.Application
	err := tx.Where("student_id = ? AND project_id = ?", member.ID, project.ID).
		First(&application).Error
	switch {
	case err == nil:
		if application.Status != model.ApplicationAccepted {
			if err := tx.Model(&application).
				Update("status", model.ApplicationAccepted).Error; err != nil {
				return err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		application = model.Application{
			TeamName:    team.Name,
			Priority:    1,
			ProjectID:   project.ID,
			StudentID:   member.ID,
			Motivation:  SystemMotivation,
			Status:      model.ApplicationAccepted,
			SubmittedAt: tx.NowFunc(),
		}
		if err := tx.Create(&application).Error; err != nil {
			return err
		}
	default:
		return err
	}

	return tx.Unscoped().
		Where("student_id = ? AND project_id <> ?", member.ID, project.ID).
		Delete(&model.Application{}).Error
}
