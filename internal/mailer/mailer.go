package mailer

import (
	"fmt"

	"github.com/subtracklabs/subtrack/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers verification mail. Abstracted so tests can capture the
// outgoing message instead of dialing SMTP.
type Sender interface {
	SendOTP(toEmail, code string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

func NewSender(cfg config.Config, log *zap.Logger) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
		log:    log.Named("mailer"),
	}
}

func (s *smtpSender) SendOTP(toEmail, code string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your verification code")
	m.SetBody("text/html", fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<p>Your verification code is:</p>
			<h1 style="letter-spacing: 5px;">%s</h1>
			<p>This code will expire in 15 minutes.</p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>
	`, code))

	if err := s.dialer.DialAndSend(m); err != nil {
		s.log.Error("failed to send verification code", zap.String("to", toEmail), zap.Error(err))
		return err
	}

	s.log.Info("verification code sent", zap.String("to", toEmail))
	return nil
}
