package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/ecp-air/airquality-backend/internal/config"
)

// Mailer sends HTML email over SMTP.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
	logger  *zap.Logger
}

// New creates a mailer from SMTP configuration.
func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    from,
		baseURL: cfg.BaseURL,
		logger:  logger,
	}
}

func (m *Mailer) send(to, subject string, tmpl *template.Template, data interface{}) error {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("rendering %s email: %w", tmpl.Name(), err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, "ECP Air Quality")
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending %s email to %s: %w", tmpl.Name(), to, err)
	}
	return nil
}

// SendVerification sends the account email-verification link.
func (m *Mailer) SendVerification(to, token string) error {
	return m.send(to, "Please verify your email", verificationTmpl, linkData{
		Link: fmt.Sprintf("%s/email-verified?token=%s", m.baseURL, token),
	})
}

// SendPasswordReset sends the password-reset link.
func (m *Mailer) SendPasswordReset(to, token string) error {
	return m.send(to, "Password reset link", resetTmpl, linkData{
		Link: fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token),
	})
}

// SendWelcome confirms a new notification subscription.
func (m *Mailer) SendWelcome(to, location string) error {
	return m.send(to, "Air quality notifications enabled", welcomeTmpl, welcomeData{
		Location: location,
	})
}

// SendDailyDigest sends the morning air-quality summary for a location.
func (m *Mailer) SendDailyDigest(to, location string, averages map[string]float64) error {
	rows := make([]digestRow, 0, len(averages))
	for field, value := range averages {
		rows = append(rows, digestRow{Field: field, Value: value})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Field < rows[j].Field })
	return m.send(to, fmt.Sprintf("Daily air quality report for %s", location), digestTmpl, digestData{
		Location: location,
		Rows:     rows,
	})
}
