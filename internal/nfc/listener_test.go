package nfc

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yash-g01/Next-Gen-ATM/internal/logging"
)

func newTestListener(budget time.Duration) *Listener {
	return New(Config{
		Addr:       "127.0.0.1:0",
		Budget:     budget,
		PollStep:   10 * time.Millisecond,
		ReadWindow: 500 * time.Millisecond,
	}, logging.Discard())
}

func awaitResult(t *testing.T, results <-chan Result, within time.Duration) Result {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(within):
		t.Fatalf("no result within %s", within)
		return Result{}
	}
}

func tap(t *testing.T, addr net.Addr, payload string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial listener: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("send tap: %v", err)
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read tap response: %v", err)
	}
	return string(reply)
}

func TestTapSuccess(t *testing.T) {
	l := newTestListener(5 * time.Second)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	request := "POST /tap HTTP/1.1\r\nHost: atm\r\nContent-Type: application/json\r\nContent-Length: 17\r\n\r\n{\"cardNum\": 8825}"
	reply := tap(t, l.Addr(), request)

	if !strings.HasPrefix(reply, "HTTP/1.1 200 OK") || !strings.HasSuffix(reply, "OK") {
		t.Fatalf("unexpected tap response: %q", reply)
	}

	res := awaitResult(t, results, 2*time.Second)
	if res.Err != nil {
		t.Fatalf("tap result: %v", res.Err)
	}
	if res.CardID != 8825 {
		t.Fatalf("expected card 8825, got %d", res.CardID)
	}
}

func TestTapBareBodyFallback(t *testing.T) {
	// A payload with no header separator is treated as the body itself.
	l := newTestListener(5 * time.Second)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	tap(t, l.Addr(), `{"cardNum":"42"}`)

	res := awaitResult(t, results, 2*time.Second)
	if res.Err != nil {
		t.Fatalf("tap result: %v", res.Err)
	}
	if res.CardID != 42 {
		t.Fatalf("expected card 42, got %d", res.CardID)
	}
}

func TestTapMissingCardNum(t *testing.T) {
	l := newTestListener(5 * time.Second)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// The sender still gets its 200 even though the payload is useless.
	reply := tap(t, l.Addr(), "POST / HTTP/1.1\r\n\r\n{\"foo\":\"bar\"}")
	if !strings.HasPrefix(reply, "HTTP/1.1 200 OK") {
		t.Fatalf("expected 200 response, got %q", reply)
	}

	res := awaitResult(t, results, 2*time.Second)
	if !errors.Is(res.Err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", res.Err)
	}
}

func TestTapInvalidNumberFormat(t *testing.T) {
	l := newTestListener(5 * time.Second)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	tap(t, l.Addr(), "POST / HTTP/1.1\r\n\r\n{\"cardNum\":\"abc\"}")

	res := awaitResult(t, results, 2*time.Second)
	if !errors.Is(res.Err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", res.Err)
	}
}

func TestTapTimeout(t *testing.T) {
	l := newTestListener(150 * time.Millisecond)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	started := time.Now()
	res := awaitResult(t, results, 2*time.Second)
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", res.Err)
	}
	if elapsed := time.Since(started); elapsed < 140*time.Millisecond {
		t.Fatalf("timeout fired early after %s", elapsed)
	}
}

func TestTapCancel(t *testing.T) {
	l := newTestListener(30 * time.Second)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	l.Cancel()

	res := awaitResult(t, results, time.Second)
	if !errors.Is(res.Err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", res.Err)
	}

	// Exactly one terminal outcome per attempt.
	select {
	case extra := <-results:
		t.Fatalf("unexpected second result: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartWhileRunning(t *testing.T) {
	l := newTestListener(30 * time.Second)
	results, err := l.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := l.Start(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	l.Cancel()
	awaitResult(t, results, time.Second)

	// After the attempt ends the listener can be started again.
	results2, err := l.Start()
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	l.Cancel()
	awaitResult(t, results2, time.Second)
}
