package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"brd/internal/daemon"
	"brd/internal/dump"
	"brd/internal/report"
)

// Controller is the daemon surface the console drives.
type Controller interface {
	Start(ctx context.Context) (daemon.StartResult, error)
	Stop() daemon.StopResult
	Restart(ctx context.Context) (daemon.StartResult, error)
	Status() daemon.Status
	Reports() []report.Report
	Clear() int
	Dump() (dump.Result, error)
	TestMail(ctx context.Context) (bool, string, error)
	Shutdown(ctx context.Context) error
}

var menu = []struct{ name, help string }{
	{"dump", "dumps all reports to file"},
	{"stop", "stop listening on port"},
	{"exit", "quit program"},
	{"start", "start listening on port"},
	{"restart", "stop and start listening again"},
	{"info", "prints info about current state"},
	{"clear", "delete currently held reports"},
	{"print", "print all currently held reports"},
	{"testmail", "send a test email"},
	{"help", "print this menu"},
}

var aliases = map[string]string{"quit": "exit"}

// Console reads commands from in and writes responses to out.
type Console struct {
	ctrl     Controller
	in       io.Reader
	out      io.Writer
	colorize bool
	now      func() time.Time
}

// Option customizes a Console.
type Option func(*Console)

// WithColor forces colorized state output on or off.
func WithColor(enabled bool) Option {
	return func(c *Console) { c.colorize = enabled }
}

// WithClock overrides the time source used for report ages.
func WithClock(now func() time.Time) Option {
	return func(c *Console) { c.now = now }
}

// New builds a console. Color defaults to on when out is a terminal.
func New(ctrl Controller, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		ctrl:     ctrl,
		in:       in,
		out:      out,
		colorize: shouldColorize(out),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run prints the menu and processes commands until exit, end of input or ctx
// cancellation. Exit and end of input run the controller's Shutdown, whose
// error is returned. Cancellation returns ctx.Err() without shutting down;
// the caller owns that path.
func (c *Console) Run(ctx context.Context) error {
	c.printMenu()

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil && !errors.Is(err, io.EOF) {
				c.printf("Input error: %v\n", err)
			}
			return c.shutdown(ctx)
		case line := <-lines:
			if c.Execute(ctx, line) {
				return c.shutdown(ctx)
			}
		}
	}
}

// Execute runs a single command line and reports whether the loop should end.
// Blank lines are ignored.
func (c *Console) Execute(ctx context.Context, line string) bool {
	name := strings.ToLower(strings.TrimSpace(line))
	if name == "" {
		return false
	}
	if target, ok := aliases[name]; ok {
		name = target
	}
	switch name {
	case "start":
		c.start(ctx)
	case "stop":
		c.stop()
	case "restart":
		c.restart(ctx)
	case "info":
		c.info()
	case "clear":
		c.clear()
	case "print":
		c.print()
	case "dump":
		c.dump()
	case "testmail":
		c.testMail(ctx)
	case "help":
		c.printMenu()
	case "exit":
		return true
	default:
		c.println("Invalid command")
		c.printMenu()
	}
	return false
}

func (c *Console) shutdown(ctx context.Context) error {
	c.println("Quitting...")
	if err := c.ctrl.Shutdown(ctx); err != nil {
		c.printf("Shutdown dump failed: %v\n", err)
		return err
	}
	return nil
}

func (c *Console) printMenu() {
	c.println("Options are:")
	for _, entry := range menu {
		c.printf("%s - %s\n", entry.name, entry.help)
	}
}

func (c *Console) start(ctx context.Context) {
	res, err := c.ctrl.Start(ctx)
	if err != nil {
		c.printf("Failed to start: %v\n", err)
		return
	}
	c.printStart(res)
}

func (c *Console) printStart(res daemon.StartResult) {
	if res.State == daemon.StartStateStarted && res.Addr != "" {
		c.printf("%s Listening on %s.\n", res.Message, res.Addr)
		return
	}
	c.println(res.Message)
}

func (c *Console) stop() {
	c.println("Waiting for listener to finish...")
	res := c.ctrl.Stop()
	c.println(res.Message)
}

func (c *Console) restart(ctx context.Context) {
	res, err := c.ctrl.Restart(ctx)
	if err != nil {
		c.printf("Failed to restart: %v\n", err)
		return
	}
	c.printStart(res)
}

func (c *Console) info() {
	status := c.ctrl.Status()
	c.printf("Currently holding %d reports in volatile memory.\n", status.Reports)
	c.println(renderStatus(status, c.colorize))
}

func (c *Console) clear() {
	n := c.ctrl.Clear()
	c.printf("Deleted %d reports.\n", n)
}

func (c *Console) print() {
	reports := c.ctrl.Reports()
	if len(reports) == 0 {
		c.println("No reports held.")
		return
	}
	c.println("Printing reports...")
	c.println(renderReports(reports, c.now()))
}

func (c *Console) dump() {
	res, err := c.ctrl.Dump()
	switch {
	case errors.Is(err, dump.ErrNoReports):
		c.println("No reports to dump.")
	case err != nil:
		c.printf("Error dumping reports: %v\n", err)
	default:
		c.printf("Reports dumped to %s (%s).\n", res.Path, describeDump(res))
	}
}

func (c *Console) testMail(ctx context.Context) {
	_, msg, err := c.ctrl.TestMail(ctx)
	if err != nil {
		c.printf("%s %v\n", msg, err)
		return
	}
	c.println(msg)
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}
