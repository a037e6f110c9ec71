package alert

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP delivery settings for job failure notifications.
// Alerts are best-effort: delivery errors are returned to the caller
// to log, never to fail the job lifecycle.
type Config struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type Mailer struct {
	cfg  Config
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// JobFailed sends a notification that a job finished with failed tickers.
func (m *Mailer) JobFailed(jobID string, failed []string) error {
	subject := fmt.Sprintf("stockslurp: job %s failed", jobID)
	body := fmt.Sprintf("Job %s finished with %d failed ticker(s):\n\n%s\n",
		jobID, len(failed), strings.Join(failed, "\n"))
	return m.Send(subject, body)
}

// JobCompleted sends a notification that a job finished cleanly.
func (m *Mailer) JobCompleted(jobID string, tickers int) error {
	subject := fmt.Sprintf("stockslurp: job %s completed", jobID)
	body := fmt.Sprintf("Job %s completed all %d ticker(s).\n", jobID, tickers)
	return m.Send(subject, body)
}

func (m *Mailer) Send(subject, body string) error {
	if !m.cfg.Enabled {
		return nil
	}
	if m.cfg.Host == "" || m.cfg.From == "" || len(m.cfg.To) == 0 {
		return fmt.Errorf("alert config incomplete: host, from, and to are required")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	port := m.cfg.Port
	if port == 0 {
		port = 25
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, port)

	msg := buildMessage(m.cfg.From, m.cfg.To, subject, body)
	return m.send(addr, auth, m.cfg.From, m.cfg.To, msg)
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
