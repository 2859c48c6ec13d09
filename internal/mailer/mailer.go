package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/diagnosis/elevro/pkg/config"
	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/mailersend/mailersend-go"
)

type Service interface {
	Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error)
}

type Mailer struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	Enabled bool
}

func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		Enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.Enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *Mailer) Send(ctx context.Context, toEmail, toName, subject, text, html string) (string, error) {
	if !m.Enabled {
		return "", errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAILER_FROM)")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}

// DevMailer logs messages instead of sending them.
type DevMailer struct{}

func (DevMailer) Send(ctx context.Context, toEmail, toName, subject, text, _ string) (string, error) {
	logger.InfoContext(ctx, "DEV EMAIL", "to", toEmail, "name", toName, "subject", subject, "text", text)
	return "dev", nil
}

// New picks a transport: dev mode logs, then MailerSend when a key is set,
// then SMTP when a host is set. Anything else falls back to logging.
func New(cfg config.EmailConfig) Service {
	if cfg.DevMode {
		return DevMailer{}
	}
	if m := NewMailer(cfg.MailerSendKey, cfg.FromName, cfg.FromEmail); m.Enabled {
		return m
	}
	if cfg.SMTPHost != "" {
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.FromEmail, cfg.SMTPUser, cfg.SMTPPass)
	}
	return DevMailer{}
}

// ReportReady renders the notification sent when a lab report is attached.
func ReportReady(name, testName, reportURL string) (subject, text, html string) {
	if name == "" {
		name = "there"
	}
	subject = fmt.Sprintf("Your %s report is ready", testName)
	text = fmt.Sprintf("Hi %s,\n\nYour report for %s is ready: %s\n\nElevro Diagnostics", name, testName, reportURL)
	html = fmt.Sprintf(`<p>Hi %s,</p><p>Your report for <b>%s</b> is ready.</p><p><a href="%s">View report</a></p>`,
		name, testName, reportURL)
	return subject, text, html
}
