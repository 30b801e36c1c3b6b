package service

import (
	"context"
	"fmt"
	"strconv"

	"carrental-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

type smtpEmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPEmailSender sends plain-text mail through an SMTP relay.
func NewSMTPEmailSender(host, port, username, password, from string) EmailSender {
	p, _ := strconv.Atoi(port)
	return &smtpEmailSender{
		host:     host,
		port:     p,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *smtpEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", to, toName)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	logger.ExternalServiceCall("smtp", "send", "to", to, "subject", subject)
	err := d.DialAndSend(m)
	logger.ExternalServiceResult("smtp", "send", err, "to", to)
	if err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

type sendGridEmailSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridEmailSender(apiKey, fromEmail, fromName string) EmailSender {
	return &sendGridEmailSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	logger.ExternalServiceCall("sendgrid", "send", "to", to, "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", to)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

type logEmailSender struct{}

// NewLogEmailSender only logs outgoing mail. Used for local runs.
func NewLogEmailSender() EmailSender {
	return logEmailSender{}
}

func (logEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	logger.Info("Email (not sent)", "to", to, "subject", subject)
	return nil
}
