package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"

	"github.com/designloop/sprint-system/config"
	"github.com/designloop/sprint-system/models"
)

// Шаблон письма об активации спринта.
const sprintActivatedTemplate = `<html>
<body>
  <h2>{{.SprintName}} is live!</h2>
  <p>The sprint has just started. Head over to the challenge brief and begin designing.</p>
  {{if .ChallengeTitle}}<p>Challenge: <strong>{{.ChallengeTitle}}</strong></p>{{end}}
  {{if .EndAt}}<p>Submissions close on {{.EndAt}}.</p>{{end}}
</body>
</html>`

type EmailService struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewEmailService(cfg *config.Config, logger *slog.Logger) *EmailService {
	return &EmailService{cfg: cfg, logger: logger}
}

// Enabled reports whether SMTP delivery is configured at all.
func (s *EmailService) Enabled() bool {
	return s.cfg.SMTPHost != ""
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	if !s.Enabled() {
		return nil
	}
	if len(to) == 0 {
		return nil
	}

	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client setup failed: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp message write failed: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp DATA close failed: %w", err)
	}

	return nil
}

// AnnounceSprintActivated emails every participant that the sprint went live.
// Called from a goroutine; failures are logged, never propagated.
func (s *EmailService) AnnounceSprintActivated(sprint *models.Sprint, recipients []*models.User) {
	if !s.Enabled() || len(recipients) == 0 {
		return
	}

	data := struct {
		SprintName     string
		ChallengeTitle string
		EndAt          string
	}{SprintName: sprint.Name}
	if sprint.Challenge != nil {
		data.ChallengeTitle = sprint.Challenge.Title
	}
	if sprint.EndAt != nil {
		data.EndAt = sprint.EndAt.Format("January 2, 2006")
	}

	body, err := renderTemplate(sprintActivatedTemplate, data)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to render sprint activation email", slog.Any("error", err))
		}
		return
	}

	subject := fmt.Sprintf("%s has started", sprint.Name)
	for _, user := range recipients {
		if err := s.SendEmail([]string{user.Email}, subject, body); err != nil && s.logger != nil {
			s.logger.Error("failed to send sprint activation email",
				slog.String("email", user.Email), slog.Any("error", err))
		}
	}
}

func renderTemplate(text string, data interface{}) (string, error) {
	t, err := template.New("email").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}
