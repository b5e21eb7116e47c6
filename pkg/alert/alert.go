// Package alert fans domain events out to the affected users: an in-app
// notification row per recipient, plus an email when SMTP is configured.
package alert

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/dao"
	"github.com/atelier-edu/atelier/dao/model"
	"github.com/atelier-edu/atelier/pkg/config"
	"github.com/atelier-edu/atelier/pkg/monitor"
)

const (
	KindTeam       = "TEAM"
	KindAllocation = "ALLOCATION"
	KindEvaluation = "EVALUATION"
	KindOverdue    = "OVERDUE"
)

type sinkMgr struct {
	db      *gorm.DB
	handler mailer
}

var (
	once sync.Once
	sink Sink
)

// GetSink returns the singleton notification sink. Without SMTP settings
// the mail channel degrades to a log line; notification rows are always
// written.
func GetSink() Sink {
	once.Do(func() {
		sink = NewSink(dao.GetDB(), newMailer())
	})
	return sink
}

func NewSink(db *gorm.DB, handler mailer) Sink {
	if handler == nil {
		handler = nopMailer{}
	}
	return &sinkMgr{db: db, handler: handler}
}

func newMailer() mailer {
	smtpConfig := config.GetConfig().SMTP
	if smtpConfig.Host == "" {
		return nopMailer{}
	}
	return newSMTPMailer(&smtpConfig)
}

func (s *sinkMgr) TeamConfirmed(ctx context.Context, eventID string, team *model.Team, members []model.User) {
	subject := "Team roster confirmed"
	message := fmt.Sprintf("Your team %s has been confirmed by the tutor.", team.Name)
	s.fanOut(ctx, eventID, KindTeam, subject, message, members)
}

func (s *sinkMgr) AllocationCommitted(ctx context.Context, eventID string, team *model.Team, project *model.Project, members []model.User) {
	subject := "Project assignment confirmed"
	message := fmt.Sprintf("Your team %s has been assigned to project %s.", team.Name, project.Name)
	s.fanOut(ctx, eventID, KindAllocation, subject, message, members)
}

func (s *sinkMgr) EvaluationPublished(ctx context.Context, eventID string, team *model.Team, members []model.User) {
	subject := "Evaluation published"
	message := fmt.Sprintf("An evaluation for your team %s has been published.", team.Name)
	s.fanOut(ctx, eventID, KindEvaluation, subject, message, members)
}

func (s *sinkMgr) OverdueTasks(ctx context.Context, eventID string, tutor *model.User, project *model.Project, count int) {
	subject := "Overdue tasks"
	message := fmt.Sprintf("Project %s has %d overdue task(s).", project.Name, count)
	s.fanOut(ctx, eventID, KindOverdue, subject, message, []model.User{*tutor})
}

// fanOut writes one notification row per recipient and mails each of them.
// Failures are logged, never returned.
func (s *sinkMgr) fanOut(ctx context.Context, eventID, kind, subject, message string, recipients []model.User) {
	for i := range recipients {
		recipient := &recipients[i]
		notification := model.Notification{
			UserID:  recipient.ID,
			Kind:    kind,
			Message: message,
			EventID: eventID,
		}
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			klog.Errorf("notification row for user %d (event %s): %v", recipient.ID, eventID, err)
			continue
		}
		monitor.NotificationsSent.WithLabelValues("inapp").Inc()

		if err := s.handler.SendMessageTo(ctx, recipient.Email, subject, message); err != nil {
			klog.Errorf("notification mail to %s (event %s): %v", recipient.Email, eventID, err)
			continue
		}
		monitor.NotificationsSent.WithLabelValues("email").Inc()
	}
}

type nopMailer struct{}

func (nopMailer) SendMessageTo(_ context.Context, email, subject, _ string) error {
	klog.V(4).Infof("smtp not configured, skipped mail %q to %s", subject, email)
	return nil
}
