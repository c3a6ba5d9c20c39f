// Package mail sends transactional email over SMTP (Brevo relay in production).
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

const retryBackoff = 500 * time.Millisecond

// Sender delivers an email message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for the given relay and from address.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		send:     smtp.SendMail,
	}
}

// Send delivers the message. A transport failure is retried once.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if s.Host == "" {
		return fmt.Errorf("mail: SMTP host not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	msg := BuildMessage(s.From, to, subject, body)

	err := s.send(addr, auth, s.From, []string{to}, msg)
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
	}
	return s.send(addr, auth, s.From, []string{to}, msg)
}

// BuildMessage assembles an RFC 5322 message with a text/html body.
func BuildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// OTPBody renders the body for a one-time code email.
func OTPBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		"<p>Your Motorello verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
		code, int(ttl.Minutes()))
}

// ResetBody renders the body for a password reset email.
func ResetBody(resetURL string) string {
	return fmt.Sprintf(
		"<p>We received a request to reset your Motorello password.</p><p><a href=%q>Reset your password</a></p><p>If you did not request this, ignore this email.</p>",
		resetURL)
}
