// Package mail delivers out-of-band messages to users. The reset flow
// depends on the Mailer interface so its rollback path can be exercised
// without a live SMTP server.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// ResetMessage is the body of the password reset email.
func ResetMessage(name, resetURL, token string) string {
	return fmt.Sprintf(
		"Hi %s,\n\nYou are receiving this email because you have requested a password reset."+
			"\nClick on this link to create a new password:\n\n%s/%s\n\n"+
			"If you didn't request a password reset, you can ignore this email. "+
			"Your password will not be changed.\n\nPROSHOP Team",
		name, resetURL, token,
	)
}
