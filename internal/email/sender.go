package email

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(to, subject, html string) error
}

type StdoutSender struct{}

func (StdoutSender) Send(to, subject, html string) error {
	log.Printf("EMAIL to=%s subject=%s\n%s", to, subject, html)
	return nil
}

// SMTPSender delivers mail via a plain SMTP endpoint (MailHog in dev).
type SMTPSender struct {
	Addr string
	From string
}

func NewSMTPSender(addr, from string) *SMTPSender {
	if addr == "" {
		addr = "localhost:1025"
	}
	if from == "" {
		from = "no-reply@wlboard.local"
	}
	return &SMTPSender{Addr: addr, From: from}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("email: empty recipient")
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", s.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		html,
	}, "\r\n")

	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg))
}
