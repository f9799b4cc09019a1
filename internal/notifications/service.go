package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"brd/internal/config"
)

const mailer = "brd"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	TestNotification(ctx context.Context) error
	NotifyReportsDumped(ctx context.Context, path string, count int) error
}

// NewService builds an SMTP-backed service when mail is fully configured.
// Otherwise a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.MailEnabled() {
		return noopService{}
	}
	timeout := cfg.MailTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	policy := mail.TLSMandatory
	if !cfg.Mail.RequireTLS {
		policy = mail.TLSOpportunistic
	}
	return &smtpService{
		host:        cfg.Mail.SMTPHost,
		port:        cfg.Mail.SMTPPort,
		sender:      cfg.Mail.Sender,
		password:    cfg.Mail.Password,
		destination: cfg.Mail.Destination,
		timeout:     timeout,
		tlsPolicy:   policy,
	}
}

type message struct {
	subject string
	body    string
}

type smtpService struct {
	host        string
	port        int
	sender      string
	password    string
	destination string
	timeout     time.Duration
	tlsPolicy   mail.TLSPolicy
}

func (s *smtpService) TestNotification(ctx context.Context) error {
	return s.send(ctx, message{
		subject: "Test Message from brd",
		body:    "This is a test message.",
	})
}

func (s *smtpService) NotifyReportsDumped(ctx context.Context, path string, count int) error {
	noun := "reports"
	if count == 1 {
		noun = "report"
	}
	return s.send(ctx, message{
		subject: fmt.Sprintf("brd dumped %d %s", count, noun),
		body:    fmt.Sprintf("%d %s written to %s.", count, noun, strings.TrimSpace(path)),
	})
}

func (s *smtpService) send(ctx context.Context, msg message) error {
	if s == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	m, err := s.compose(msg)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.sender),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(s.tlsPolicy),
		mail.WithTimeout(s.timeout),
	)
	if err != nil {
		return fmt.Errorf("configure smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", s.host, s.port, err)
	}
	return nil
}

func (s *smtpService) compose(msg message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.sender); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", s.sender, err)
	}
	if err := m.To(s.destination); err != nil {
		return nil, fmt.Errorf("mail destination %q: %w", s.destination, err)
	}
	m.Subject(msg.subject)
	m.SetDate()
	m.SetMessageID()
	m.SetGenHeader(mail.HeaderXMailer, mailer)
	m.SetBodyString(mail.TypeTextPlain, msg.body)
	return m, nil
}

type noopService struct{}

func (noopService) TestNotification(context.Context) error { return nil }
func (noopService) NotifyReportsDumped(context.Context, string, int) error { return nil }
