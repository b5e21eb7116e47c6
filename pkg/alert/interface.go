package alert

import (
	"context"

	"github.com/atelier-edu/atelier/dao/model"
)

// Sink is the notification component. Implementations persist an in-app
// notification row per recipient and additionally push through a side
// channel (SMTP). Callers treat delivery as best effort and fire it off a
// goroutine; a sink therefore never lets an error escape to the business
// transaction.
type Sink interface {
	// TeamConfirmed tells every member the tutor accepted the roster.
	TeamConfirmed(ctx context.Context, eventID string, team *model.Team, members []model.User)
	// AllocationCommitted tells every team member their team was assigned.
	AllocationCommitted(ctx context.Context, eventID string, team *model.Team, project *model.Project, members []model.User)
	// EvaluationPublished tells every team member a grade is available.
	EvaluationPublished(ctx context.Context, eventID string, team *model.Team, members []model.User)
	// OverdueTasks reminds the project tutor about overdue work.
	OverdueTasks(ctx context.Context, eventID string, tutor *model.User, project *model.Project, count int)
}

// mailer is the side channel a sink pushes through. SMTP implements it; the
// nop mailer stands in when mail is not configured.
type mailer interface {
	SendMessageTo(ctx context.Context, email, subject, body string) error
}
