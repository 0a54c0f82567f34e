package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gunaso/grievance-service/internal/config"
)

const defaultMailTimeout = 20 * time.Second

// NewEmailSender returns an SMTP sender, or a logging sender when no SMTP host is configured.
func NewEmailSender(cfg config.MailConfig, logger *zap.Logger) EmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return &LogEmailSender{logger: logger}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMailTimeout
	}
	return &SMTPSender{cfg: cfg, dial: (&net.Dialer{}).DialContext}
}

// SMTPSender sends mail through an authenticated SMTP relay. Every exchange runs on a
// connection whose deadline follows the caller's context.
type SMTPSender struct {
	cfg  config.MailConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// SendEmail implements EmailSender.
func (s *SMTPSender) SendEmail(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	if s.cfg.From == "" {
		return errors.New("mail sender address not configured")
	}
	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := buildMessage(s.cfg.From, subject, body, recipients)
	if err := s.deliver(ctx, recipients, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return fmt.Errorf("send mail to %v: %w", recipients, err)
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, recipients []string, msg []byte) error {
	conn, err := s.dial(ctx, "tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, subject, body string, to []string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogEmailSender writes messages to the log instead of sending them.
type LogEmailSender struct {
	logger *zap.Logger
}

// SendEmail implements EmailSender.
func (s *LogEmailSender) SendEmail(_ context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	s.logger.Info("email (console backend)",
		zap.Strings("to", recipients),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
