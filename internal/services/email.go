package services

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/livingvectors/lv-api/internal/config"
	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	cfg      config.SMTPConfig
	logger   *zap.Logger
	sendMail sendMailFunc
}

func NewEmailService(cfg config.SMTPConfig, logger *zap.Logger) *EmailService {
	return &EmailService{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return s.sendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// SendSignInLink mails the magic link, or logs it when no SMTP server is configured.
func (s *EmailService) SendSignInLink(to, link string) error {
	if !s.IsConfigured() {
		s.logger.Info("email sign-in link", zap.String("email", to), zap.String("url", link))
		return nil
	}

	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Sign in to Living Vectors</h2>
			<p>Hi,</p>
			<p><a href="%s">Click here to sign in</a></p>
			<p>If you did not request this email you can safely ignore it.</p>
		</body>
		</html>
	`, html.EscapeString(link))

	if err := s.Send(to, "Sign in to Living Vectors", body); err != nil {
		return fmt.Errorf("failed to send sign-in email: %w", err)
	}
	return nil
}
