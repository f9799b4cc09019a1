// Package listener accepts report submissions over TCP.
//
// A Listener owns one bound socket. Serve runs the accept loop on a goroutine;
// each connection is handled on its own goroutine that reads exactly one
// report envelope, inserts it into the shared store and closes the
// connection. Every goroutine is tracked, so Close returns only after the
// accept loop and all in-flight handlers have exited and no further store
// writes can happen.
package listener

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"brd/internal/logging"
	"brd/internal/report"
	"brd/internal/store"
)

// ErrBind marks failures to acquire the listening socket.
var ErrBind = errors.New("bind listener")

const acceptRetryDelay = 50 * time.Millisecond

// Stats are cumulative counters for one listener instance.
type Stats struct {
	Accepted   int64
	Stored     int64
	Duplicates int64
	Rejected   int64
}

// Option customizes a Listener.
type Option func(*Listener)

// WithReadTimeout bounds how long a client may take to send its report.
// Zero disables the deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(l *Listener) { l.readTimeout = d }
}

// WithMaxPayload caps the envelope size read from one connection.
func WithMaxPayload(n int64) Option {
	return func(l *Listener) { l.maxPayload = n }
}

// WithClock overrides the receipt time source.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// Listener turns inbound connections into stored reports.
type Listener struct {
	addr        string
	store       *store.Store
	logger      *slog.Logger
	readTimeout time.Duration
	maxPayload  int64
	now         func() time.Time

	ln        net.Listener
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup

	accepted   atomic.Int64
	stored     atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64
}

// New configures a listener for addr that writes into st. The store is
// shared, not owned: it outlives the listener.
func New(addr string, st *store.Store, logger *slog.Logger, opts ...Option) (*Listener, error) {
	if st == nil {
		return nil, errors.New("listener requires a report store")
	}
	l := &Listener{
		addr:        addr,
		store:       st,
		logger:      logging.NewComponentLogger(logger, "listener"),
		readTimeout: 10 * time.Second,
		maxPayload:  report.MaxPayloadBytes,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Listen binds the socket. A port already in use fails here, wrapped in ErrBind.
func (l *Listener) Listen() error {
	if l.ln != nil {
		return errors.New("listener already bound")
	}
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrBind, l.addr, err)
	}
	l.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve starts the accept loop in the background. Listen must succeed first.
func (l *Listener) Serve() {
	if l.ln == nil {
		return
	}
	l.logger.Info("listening for reports",
		logging.String(logging.FieldListenAddr, l.ln.Addr().String()),
		logging.String(logging.FieldEventType, "listener_started"))
	l.wg.Add(1)
	go l.acceptLoop()
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logging.WarnWithContext(l.logger, "accept failed", "listener_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a client submission may have been dropped"),
				logging.String(logging.FieldErrorHint, "check file descriptor limits and network state"))
			time.Sleep(acceptRetryDelay)
			continue
		}
		l.accepted.Add(1)
		l.wg.Add(1)
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	if l.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))
	}

	r, err := report.Decode(conn, l.maxPayload, remote, l.now())
	if err != nil {
		l.rejected.Add(1)
		logging.WarnWithContext(l.logger, "report rejected", "report_decode_failed",
			logging.Error(err),
			logging.String(logging.FieldRemoteAddr, remote),
			logging.String(logging.FieldImpact, "submission discarded; listener continues"),
			logging.String(logging.FieldErrorHint, `clients must send one {"channel":N,"data":...} object per connection`))
		return
	}

	if !l.store.Insert(r) {
		l.duplicates.Add(1)
		l.logger.Debug("duplicate report ignored",
			logging.String(logging.FieldRemoteAddr, remote),
			logging.String(logging.FieldEventType, "report_duplicate"))
		return
	}
	l.stored.Add(1)
	l.logger.Info("report stored",
		logging.String(logging.FieldReportID, r.ID()),
		logging.String(logging.FieldRemoteAddr, remote),
		logging.Int("channel", r.Channel()),
		logging.String(logging.FieldEventType, "report_stored"))
}

// Close stops accepting, closes the socket and waits for the accept loop and
// every in-flight handler to finish. It is safe to call more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closing.Store(true)
		if l.ln == nil {
			return
		}
		if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.closeErr = fmt.Errorf("close listener: %w", err)
		}
		l.wg.Wait()
		l.logger.Info("listener stopped",
			logging.String(logging.FieldEventType, "listener_stopped"))
	})
	return l.closeErr
}

// Stats returns a snapshot of the listener counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Accepted:   l.accepted.Load(),
		Stored:     l.stored.Load(),
		Duplicates: l.duplicates.Load(),
		Rejected:   l.rejected.Load(),
	}
}
