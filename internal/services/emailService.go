package services

import (
	"gopkg.in/gomail.v2"
)

// EmailConfig is handed to the sender at construction; no SMTP settings are
// read from the environment past startup.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type EmailService interface {
	SendEmail(to, subject, msg string) error
}

type emailService struct {
	cfg EmailConfig
}

func NewEmailService(cfg EmailConfig) EmailService {
	return &emailService{cfg: cfg}
}

func (e *emailService) SendEmail(to, subject, msg string) error {
	m := gomail.NewMessage()

	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", msg)

	d := gomail.NewDialer(e.cfg.Host, e.cfg.Port, e.cfg.Username, e.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return err
	}
	return nil
}
