package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"

	"brd/internal/config"
	"brd/internal/dump"
	"brd/internal/listener"
	"brd/internal/logging"
	"brd/internal/notifications"
	"brd/internal/report"
	"brd/internal/store"
)

// DumpWriter persists a report snapshot.
type DumpWriter interface {
	Write(reports []report.Report) (dump.Result, error)
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithDumpWriter replaces the config-derived dump writer.
func WithDumpWriter(w DumpWriter) Option {
	return func(d *Daemon) { d.dumper = w }
}

// WithNotifier replaces the config-derived notification service.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) { d.notifier = n }
}

// Daemon controls the report listener and the operations on its store.
type Daemon struct {
	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	store    *store.Store
	dumper   DumpWriter
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	state    State
	listener *listener.Listener

	shutdownOnce sync.Once
	shutdownErr  error
}

// Status represents daemon runtime information.
type Status struct {
	State          State
	Addr           string
	Reports        int
	Listener       listener.Stats
	MailConfigured bool
	LockPath       string
}

// New constructs a stopped daemon over st.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.dumper == nil {
		d.dumper = dump.NewWriter(cfg.Paths.DumpDir, cfg.Paths.DumpPrefix)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	return d, nil
}

// Start begins listening on the configured address. Starting a running daemon
// is not an error.
func (d *Daemon) Start(ctx context.Context) (StartResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startLocked(ctx)
}

func (d *Daemon) startLocked(ctx context.Context) (StartResult, error) {
	if d.state == StateRunning {
		d.logger.Info("already listening", logging.String(logging.FieldListenAddr, d.addrLocked()))
		return StartResult{
			State:   StartStateAlreadyRunning,
			Addr:    d.addrLocked(),
			Message: "Already listening.",
		}, nil
	}
	if err := ctx.Err(); err != nil {
		return StartResult{}, err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return StartResult{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return StartResult{}, fmt.Errorf("another brd instance holds %s", d.lockPath)
	}

	l, err := listener.New(d.cfg.Listener.Bind, d.store, d.base,
		listener.WithReadTimeout(d.cfg.ReadTimeout()),
		listener.WithMaxPayload(d.cfg.Listener.MaxPayloadBytes),
	)
	if err == nil {
		err = l.Listen()
	}
	if err != nil {
		d.releaseLock()
		logging.ErrorWithContext(d.logger, "listener failed to start", "listener_start_failed",
			logging.Error(err),
			logging.String(logging.FieldListenAddr, d.cfg.Listener.Bind),
			logging.String(logging.FieldErrorHint, "check that listener.bind is free and allowed"))
		return StartResult{}, err
	}
	l.Serve()

	d.listener = l
	d.state = StateRunning
	addr := d.addrLocked()
	d.logger.Info("daemon started",
		logging.String(logging.FieldListenAddr, addr),
		logging.String(logging.FieldPath, d.lockPath))
	return StartResult{State: StartStateStarted, Addr: addr, Message: "Started."}, nil
}

// Stop closes the listener and waits for every in-flight submission to finish.
// Stopping a stopped daemon is not an error.
func (d *Daemon) Stop() StopResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *Daemon) stopLocked() StopResult {
	if d.state != StateRunning {
		d.logger.Info("already stopped")
		return StopResult{WasRunning: false, Message: "Already stopped."}
	}
	if err := d.listener.Close(); err != nil {
		logging.WarnWithContext(d.logger, "listener close reported an error", "listener_close_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "socket may linger until process exit"))
	}
	d.listener = nil
	d.releaseLock()
	d.state = StateStopped
	d.logger.Info("daemon stopped", logging.Int(logging.FieldReportCount, d.store.Len()))
	return StopResult{WasRunning: true, Message: "Stopped."}
}

// Restart stops (if running) and starts again over the same store.
func (d *Daemon) Restart(ctx context.Context) (StartResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return d.startLocked(ctx)
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, d.lockPath))
	}
}

func (d *Daemon) addrLocked() string {
	if d.listener == nil {
		return ""
	}
	if addr := d.listener.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// State returns the current lifecycle state.
func (d *Daemon) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		State:          d.state,
		Addr:           d.addrLocked(),
		Reports:        d.store.Len(),
		MailConfigured: d.cfg.MailEnabled(),
		LockPath:       d.lockPath,
	}
	if d.listener != nil {
		status.Listener = d.listener.Stats()
	}
	return status
}

// Reports returns the held reports in insertion order.
func (d *Daemon) Reports() []report.Report {
	return d.store.Snapshot()
}

// Clear discards every held report and returns how many were removed.
func (d *Daemon) Clear() int {
	n := d.store.Clear()
	d.logger.Info("reports cleared", logging.Int(logging.FieldReportCount, n))
	return n
}

// Dump writes the held reports to the next free dump file. The store is not
// cleared. dump.ErrNoReports is returned when nothing is held.
func (d *Daemon) Dump() (dump.Result, error) {
	reports := d.store.Snapshot()
	result, err := d.dumper.Write(reports)
	if err != nil {
		if errors.Is(err, dump.ErrNoReports) {
			return result, err
		}
		return result, fmt.Errorf("dump reports: %w", err)
	}
	d.logger.Info("reports dumped",
		logging.String(logging.FieldPath, result.Path),
		logging.Int(logging.FieldReportCount, result.Count),
		logging.Int64("bytes", result.Bytes))

	if d.cfg.Mail.NotifyOnDump {
		// The service applies mail.request_timeout when ctx has no deadline.
		if err := d.notifier.NotifyReportsDumped(context.Background(), result.Path, result.Count); err != nil {
			logging.WarnWithContext(d.logger, "dump notification failed", "dump_notification_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "dump file written but no email sent"),
				logging.String(logging.FieldErrorHint, "run testmail to check mail settings"))
		}
	}
	return result, nil
}

// TestMail sends the test message when mail is configured.
func (d *Daemon) TestMail(ctx context.Context) (bool, string, error) {
	if !d.cfg.MailEnabled() {
		return false, "Error: mail destination, sender and password must all be set", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		logging.WarnWithContext(d.logger, "test email failed", "test_mail_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mail.smtp_host, credentials and network access"))
		return false, "Failed to send test email.", err
	}
	d.logger.Info("test email sent", logging.String("destination", d.cfg.Mail.Destination))
	return true, "Sent test email.", nil
}

// Shutdown stops a running listener and dumps any held reports. It runs at
// most once; later calls return the first outcome.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() {
		d.shutdownErr = d.shutdown(ctx)
	})
	return d.shutdownErr
}

func (d *Daemon) shutdown(ctx context.Context) error {
	d.logger.Info("shutting down")
	if d.State() == StateRunning {
		d.Stop()
	}
	if d.store.Len() == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		d.logger.Debug("shutdown context already done, dumping anyway", logging.Error(err))
	}
	result, err := d.Dump()
	if err != nil {
		logging.ErrorWithContext(d.logger, "shutdown dump failed", "shutdown_dump_failed",
			logging.Error(err),
			logging.Int(logging.FieldReportCount, d.store.Len()),
			logging.String(logging.FieldErrorHint, "check that paths.dump_dir exists and is writable"))
		return err
	}
	d.logger.Info("shutdown dump complete", logging.String(logging.FieldPath, result.Path))
	return nil
}
