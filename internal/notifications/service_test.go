package notifications_test

import (
	"bufio"
	"context"
	"encoding/base64"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"brd/internal/config"
	"brd/internal/notifications"
)

func TestNewServiceReturnsNoopWhenMailIncomplete(t *testing.T) {
	cfg := config.Default()
	cfg.Mail.Destination = "ops@example.com"
	cfg.Mail.Sender = "brd@example.com"
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.NotifyReportsDumped(context.Background(), "/tmp/bug_reports0", 2); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

// fakeSMTP speaks just enough SMTP for a client to authenticate and deliver
// one message. It never offers STARTTLS.
type fakeSMTP struct {
	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	commands []string
	messages []string
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeSMTP{ln: ln}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeSMTP) hostPort(t *testing.T) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(f.ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}

func (f *fakeSMTP) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.session(conn)
	}
}

func (f *fakeSMTP) session(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		f.mu.Lock()
		f.commands = append(f.commands, line)
		f.mu.Unlock()

		switch verb {
		case "EHLO":
			reply("250-fake")
			reply("250-AUTH PLAIN LOGIN")
			reply("250 HELP")
		case "AUTH":
			reply("235 2.7.0 accepted")
		case "HELO", "MAIL", "RCPT", "RSET", "NOOP":
			reply("250 OK")
		case "DATA":
			reply("354 go ahead")
			var body strings.Builder
			for {
				dl, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				body.WriteString(dl)
			}
			f.mu.Lock()
			f.messages = append(f.messages, body.String())
			f.mu.Unlock()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 unsupported")
		}
	}
}

func (f *fakeSMTP) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...), append([]string(nil), f.messages...)
}

func mailConfig(t *testing.T, f *fakeSMTP) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mail.Destination = "ops@example.com"
	cfg.Mail.Sender = "brd@example.com"
	cfg.Mail.Password = "secret"
	cfg.Mail.SMTPHost, cfg.Mail.SMTPPort = f.hostPort(t)
	cfg.Mail.RequestTimeout = 5
	cfg.Mail.RequireTLS = false
	return &cfg
}

func TestSMTPServiceSendsTestMessage(t *testing.T) {
	fake := newFakeSMTP(t)
	svc := notifications.NewService(mailConfig(t, fake))

	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}

	commands, messages := fake.snapshot()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	msg := messages[0]
	for _, want := range []string{
		"Subject: Test Message from brd",
		"ops@example.com",
		"brd@example.com",
		"Message-ID:",
		"Date:",
		"This is a test message.",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	joined := strings.Join(commands, "\n")
	if !strings.Contains(joined, "MAIL FROM:<brd@example.com>") {
		t.Fatalf("unexpected MAIL command in %q", joined)
	}
	if !strings.Contains(joined, "RCPT TO:<ops@example.com>") {
		t.Fatalf("unexpected RCPT command in %q", joined)
	}

	var auth string
	for _, c := range commands {
		if strings.HasPrefix(strings.ToUpper(c), "AUTH PLAIN ") {
			auth = strings.TrimSpace(c[len("AUTH PLAIN "):])
		}
	}
	if auth == "" {
		t.Fatalf("expected AUTH PLAIN in %q", joined)
	}
	creds, err := base64.StdEncoding.DecodeString(auth)
	if err != nil {
		t.Fatalf("decode auth: %v", err)
	}
	if string(creds) != "\x00brd@example.com\x00secret" {
		t.Fatalf("unexpected credentials %q", creds)
	}
}

func TestSMTPServiceRequiresTLSByDefault(t *testing.T) {
	fake := newFakeSMTP(t)
	cfg := mailConfig(t, fake)
	cfg.Mail.RequireTLS = true

	if err := notifications.NewService(cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected refusal when the server does not offer STARTTLS")
	}
	if _, messages := fake.snapshot(); len(messages) != 0 {
		t.Fatalf("no message may be sent without TLS, got %d", len(messages))
	}
}

func TestSMTPServiceNotifiesDump(t *testing.T) {
	fake := newFakeSMTP(t)
	svc := notifications.NewService(mailConfig(t, fake))

	if err := svc.NotifyReportsDumped(context.Background(), "/var/lib/brd/bug_reports3", 1); err != nil {
		t.Fatalf("NotifyReportsDumped: %v", err)
	}
	_, messages := fake.snapshot()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "Subject: brd dumped 1 report") {
		t.Fatalf("unexpected subject in %s", messages[0])
	}
	if !strings.Contains(messages[0], "/var/lib/brd/bug_reports3") {
		t.Fatalf("expected dump path in body: %s", messages[0])
	}
}

func TestSMTPServiceReportsDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	cfg := config.Default()
	cfg.Mail.Destination = "ops@example.com"
	cfg.Mail.Sender = "brd@example.com"
	cfg.Mail.Password = "secret"
	cfg.Mail.SMTPHost = "127.0.0.1"
	cfg.Mail.SMTPPort = addr.Port
	cfg.Mail.RequestTimeout = 1
	cfg.Mail.RequireTLS = false

	err = notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if !strings.Contains(err.Error(), "send mail via 127.0.0.1:") {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
