package listener_test

import (
	"errors"
	"net"
	"testing"
	"time"

	"brd/internal/listener"
	"brd/internal/logging"
	"brd/internal/store"
	"brd/internal/testsupport"
)

func startListener(t *testing.T, st *store.Store, opts ...listener.Option) *listener.Listener {
	t.Helper()
	l, err := listener.New("127.0.0.1:0", st, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("listener.New: %v", err)
	}
	if err := l.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	l.Serve()
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestListenerStoresSubmissionsAndSuppressesDuplicates(t *testing.T) {
	st := store.New()
	l := startListener(t, st)
	addr := l.Addr().String()

	testsupport.Submit(t, addr, 1, `{"msg":"A"}`)
	testsupport.WaitFor(t, 2*time.Second, func() bool { return st.Len() == 1 })
	testsupport.Submit(t, addr, 1, `{"msg":"B"}`)
	testsupport.WaitFor(t, 2*time.Second, func() bool { return st.Len() == 2 })
	testsupport.Submit(t, addr, 1, `{"msg":"A"}`)
	testsupport.WaitFor(t, 2*time.Second, func() bool { return l.Stats().Duplicates == 1 })

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	snap := st.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(snap))
	}
	if string(snap[0].Data()) != `{"msg":"A"}` || string(snap[1].Data()) != `{"msg":"B"}` {
		t.Fatalf("unexpected order: %s, %s", snap[0].Data(), snap[1].Data())
	}
	stats := l.Stats()
	if stats.Accepted != 3 || stats.Stored != 2 || stats.Duplicates != 1 || stats.Rejected != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestListenerStampsReceiptWithClock(t *testing.T) {
	st := store.New()
	received := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	l := startListener(t, st, listener.WithClock(func() time.Time { return received }))

	testsupport.Submit(t, l.Addr().String(), 3, `{"msg":"clocked"}`)
	testsupport.WaitFor(t, 2*time.Second, func() bool { return st.Len() == 1 })

	got := st.Snapshot()[0].ReceivedAt()
	if !got.Equal(received) {
		t.Fatalf("expected receipt time %v, got %v", received, got)
	}
}

func TestListenerSurvivesMalformedSubmission(t *testing.T) {
	st := store.New()
	l := startListener(t, st)
	addr := l.Addr().String()

	testsupport.SubmitRaw(t, addr, []byte("definitely not json"))
	testsupport.WaitFor(t, 2*time.Second, func() bool { return l.Stats().Rejected == 1 })

	testsupport.Submit(t, addr, 2, `"still alive"`)
	testsupport.WaitFor(t, 2*time.Second, func() bool { return st.Len() == 1 })
}

func TestListenBindConflict(t *testing.T) {
	st := store.New()
	first := startListener(t, st)

	second, err := listener.New(first.Addr().String(), st, logging.NewNop())
	if err != nil {
		t.Fatalf("listener.New: %v", err)
	}
	err = second.Listen()
	if err == nil {
		_ = second.Close()
		t.Fatal("expected bind conflict")
	}
	if !errors.Is(err, listener.ErrBind) {
		t.Fatalf("expected ErrBind, got %v", err)
	}
}

func TestCloseWaitsForSlowClientWithinReadTimeout(t *testing.T) {
	st := store.New()
	l := startListener(t, st, listener.WithReadTimeout(200*time.Millisecond))

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(`{"channel":1,`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	testsupport.WaitFor(t, 2*time.Second, func() bool { return l.Stats().Accepted == 1 })

	start := time.Now()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Close took %s", elapsed)
	}
	if l.Stats().Rejected != 1 {
		t.Fatalf("expected the stalled submission to be rejected, got %+v", l.Stats())
	}
	if st.Len() != 0 {
		t.Fatalf("expected no stored reports, got %d", st.Len())
	}
}

func TestCloseIsIdempotentAndStopsWrites(t *testing.T) {
	st := store.New()
	l := startListener(t, st)
	addr := l.Addr().String()
	testsupport.Submit(t, addr, 1, `1`)
	testsupport.WaitFor(t, 2*time.Second, func() bool { return st.Len() == 1 })

	if err := l.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Fatal("expected connection refused after Close")
	}
	if st.Len() != 1 {
		t.Fatalf("store changed after Close: %d", st.Len())
	}
}

func TestCloseWithoutListen(t *testing.T) {
	l, err := listener.New("127.0.0.1:0", store.New(), nil)
	if err != nil {
		t.Fatalf("listener.New: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.Addr() != nil {
		t.Fatal("expected nil address before Listen")
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := listener.New("127.0.0.1:0", nil, nil); err == nil {
		t.Fatal("expected error without store")
	}
}
