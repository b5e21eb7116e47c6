package alert

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"github.com/atelier-edu/atelier/pkg/config"
)

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func newSMTPMailer(conf *config.SMTPConf) mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(conf.Host, conf.Port, conf.User, conf.Password),
		from:   conf.Notify,
	}
}

func (m *smtpMailer) SendMessageTo(_ context.Context, email, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
