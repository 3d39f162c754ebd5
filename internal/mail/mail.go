// Package mail renders and sends transactional email over SMTP.
package mail

import (
	"bytes"
	"fmt"
	"html/template"

	gomail "gopkg.in/mail.v2"
)

// Sender sends HTML email through an SMTP server
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSender creates a new SMTP sender
func NewSender(host string, port int, username, password, from string) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send sends an email using gopkg.in/mail.v2
func (s *Sender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// MagicLinkData fills the sign-in email
type MagicLinkData struct {
	ParentName string
	KidName    string
	Link       string
	ExpiresIn  string
}

const magicLinkSubject = "Your Captain Spark sign-in link"

var magicLinkTemplate = template.Must(template.New("magic_link").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <p>Hi {{.ParentName}}!</p>
  <p>Tap the button below to continue {{.KidName}}'s adventure with Captain Spark.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:12px 24px;background:#ffb400;color:#000;border-radius:24px;text-decoration:none;">Start learning</a></p>
  <p>This link works once and expires in {{.ExpiresIn}}.</p>
</body>
</html>`))

// RenderMagicLink returns the subject and HTML body of the sign-in email
func RenderMagicLink(data MagicLinkData) (string, string, error) {
	var buf bytes.Buffer
	if err := magicLinkTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render magic link email: %w", err)
	}
	return magicLinkSubject, buf.String(), nil
}
