package contact

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

var headerSanitizer = strings.NewReplacer("\r", "", "\n", " ")

// SMTPSender mails submissions through an authenticated SMTP server.
type SMTPSender struct {
	Host string
	Port string
	User string
	Pass string
	To   string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host, port, user, pass, to string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, User: user, Pass: pass, To: to, send: smtp.SendMail}
}

// Send implements Sender. smtp.SendMail has no context support, so ctx is
// only checked before dialling.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.User == "" || s.Pass == "" || s.To == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.User, s.Pass, s.Host)
	if err := s.send(s.Host+":"+s.Port, auth, s.User, []string{s.To}, composeMail(s.User, s.To, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func composeMail(from, to string, msg Message) []byte {
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, msg.Name, msg.Email, msg.Message)

	return []byte("To: " + to + "\r\n" +
		"Subject: " + headerSanitizer.Replace(msg.SubjectOrDefault()) + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + headerSanitizer.Replace(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
