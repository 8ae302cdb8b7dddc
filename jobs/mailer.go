package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig locates the outbound mail relay.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// SMTPSender talks plain SMTP to a local relay (Mailpit in development).
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender constructs a sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), from: cfg.From}
}

// Send writes one message. The relay is unauthenticated; production setups
// front this with a submission service.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg.String()))
}
