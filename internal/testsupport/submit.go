package testsupport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"brd/internal/report"
)

// Submit sends one report envelope to addr and closes the connection.
func Submit(t testing.TB, addr string, channel int, payload string) {
	t.Helper()
	var buf bytes.Buffer
	if err := report.Encode(&buf, channel, []byte(payload)); err != nil {
		t.Fatalf("encode report: %v", err)
	}
	SubmitRaw(t, addr, buf.Bytes())
}

// SubmitRaw writes data verbatim to addr and closes the connection.
func SubmitRaw(t testing.TB, addr string, data []byte) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write to %s: %v", addr, err)
	}
}

// WaitFor polls cond until it returns true or the timeout elapses.
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
