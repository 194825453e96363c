package mailer

import (
	"gopkg.in/gomail.v2"

	"taskflow/configs"
)

// Mailer adalah kolaborator pengiriman email. Pemanggil memperlakukan
// pengiriman sebagai fire-and-forget: error hanya untuk di-log.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(cfg configs.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// Noop dipakai di test supaya tidak ada koneksi SMTP sungguhan.
type Noop struct{}

func (Noop) Send(to, subject, body string) error { return nil }
