package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
)

// Connection security modes.
const (
	SecurityStartTLS = "starttls"
	SecurityTLS      = "tls"
	SecurityNone     = "none"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender sends through an authenticated SMTP account.
type SMTPSender struct {
	cfg     config.EmailConfig
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPSender creates an SMTPSender. timeout bounds a whole delivery
// when ctx carries no earlier deadline.
func NewSMTPSender(cfg config.EmailConfig, timeout time.Duration) *SMTPSender {
	return &SMTPSender{cfg: cfg, timeout: timeout, now: time.Now}
}

// Send delivers m. It never retries.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return eris.New("mailer: empty recipient")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(s.cfg.SMTPServer, fmt.Sprint(s.cfg.SMTPPort))
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPServer)
	if err != nil {
		conn.Close() //nolint:errcheck
		return eris.Wrap(err, "mailer: smtp client")
	}
	defer client.Close() //nolint:errcheck

	if s.cfg.Security == SecurityStartTLS {
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			return eris.Wrap(err, "mailer: starttls")
		}
	}

	if ok, _ := client.Extension("AUTH"); ok && s.cfg.FromPassword != "" {
		auth := smtp.PlainAuth("", s.cfg.FromEmail, s.cfg.FromPassword, s.cfg.SMTPServer)
		if err := client.Auth(auth); err != nil {
			return eris.Wrap(err, "mailer: smtp auth")
		}
	}

	if err := client.Mail(m.FromAddress); err != nil {
		return eris.Wrap(err, "mailer: smtp MAIL")
	}
	if err := client.Rcpt(m.To); err != nil {
		return eris.Wrapf(err, "mailer: smtp RCPT %s", m.To)
	}

	w, err := client.Data()
	if err != nil {
		return eris.Wrap(err, "mailer: smtp DATA")
	}
	if _, err := w.Write(m.Bytes(s.now())); err != nil {
		return eris.Wrap(err, "mailer: smtp write")
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "mailer: smtp close data")
	}
	return eris.Wrap(client.Quit(), "mailer: smtp quit")
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{}
	if s.cfg.Security == SecurityTLS {
		td := &tls.Dialer{NetDialer: d, Config: s.tlsConfig()}
		conn, err := td.DialContext(ctx, "tcp", addr)
		return conn, eris.Wrapf(err, "mailer: tls dial %s", addr)
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	return conn, eris.Wrapf(err, "mailer: dial %s", addr)
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: s.cfg.SMTPServer,
		MinVersion: tls.VersionTLS12,
	}
}

// LogSender logs messages instead of sending them. Used for dry runs.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, m Message) error {
	zap.L().Info("mailer: dry run",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.Int("body_len", len(m.Body)),
	)
	return nil
}
