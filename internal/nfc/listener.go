// Package nfc simulates a contactless card reader. A phone "taps" by
// opening a TCP connection to the terminal and sending one HTTP-ish
// request whose body carries the card number; the listener accepts one
// such connection, answers 200 OK, and reports the card exactly once.
package nfc

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout fires when the acquisition budget elapses with no tap.
	ErrTimeout = errors.New("no card tapped before timeout")
	// ErrCancelled reports a user-initiated cancellation of the wait.
	ErrCancelled = errors.New("tap cancelled")
	// ErrNoData occurs when a connection arrives but sends nothing within
	// the read window.
	ErrNoData = errors.New("no data received from card")
	// ErrParse covers a payload with a missing or malformed card number.
	ErrParse = errors.New("tap payload parse failed")
	// ErrBusy rejects a second Start while a listen is in flight.
	ErrBusy = errors.New("tap listener already running")
)

// tapResponse is flushed to the sender before the result is handed to the
// terminal, so the phone always sees an HTTP response for its tap.
const tapResponse = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 2\r\n" +
	"\r\nOK"

// Result is the single terminal outcome of one listen attempt.
type Result struct {
	CardID int64
	Err    error
}

// Config bounds a listen attempt.
type Config struct {
	// Addr is the TCP listen address, e.g. ":12345".
	Addr string
	// Budget is the overall wait for a tap.
	Budget time.Duration
	// PollStep is the accept-poll granularity; cancellation is observed
	// within one step.
	PollStep time.Duration
	// ReadWindow bounds how long a connected sender gets to deliver bytes.
	ReadWindow time.Duration
}

// Listener waits for a single simulated tap per Start call.
type Listener struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	cancelled atomic.Bool

	// addr holds the bound address of the current attempt, for tests that
	// listen on an ephemeral port.
	addr net.Addr
}

// New builds a listener; it does not bind until Start.
func New(cfg Config, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{cfg: cfg, logger: logger}
}

// Start binds the listen socket and begins polling for a tap on a
// background goroutine. A bind failure is returned synchronously and ends
// the attempt. On success the returned channel delivers exactly one
// Result; the channel is buffered so the goroutine never blocks on a
// caller that walked away.
func (l *Listener) Start() (<-chan Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil, ErrBusy
	}

	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", l.cfg.Addr, err)
	}

	l.running = true
	l.cancelled.Store(false)
	l.addr = ln.Addr()

	results := make(chan Result, 1)
	go l.listen(ln.(*net.TCPListener), results)
	return results, nil
}

// Cancel requests cooperative cancellation of the running attempt. The
// polling loop observes the flag within one PollStep and reports
// ErrCancelled. Calling Cancel with no attempt in flight is a no-op.
func (l *Listener) Cancel() {
	l.cancelled.Store(true)
}

// Addr reports the bound address of the attempt in flight.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addr
}

func (l *Listener) listen(ln *net.TCPListener, results chan<- Result) {
	l.logger.Info("waiting for card tap", "addr", ln.Addr().String(), "budget", l.cfg.Budget)

	var res Result
	conn, err := l.awaitConnection(ln)
	if err != nil {
		res.Err = err
	} else {
		res.CardID, res.Err = l.exchange(conn)
	}

	// Release the socket and mark the listener restartable before the
	// outcome becomes observable.
	ln.Close()
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()

	if res.Err != nil {
		l.logger.Info("tap attempt ended", "error", res.Err)
	} else {
		l.logger.Info("card detected", "card_id", res.CardID)
	}
	results <- res
}

// awaitConnection polls Accept in PollStep slices until a peer connects,
// the budget runs out, or the attempt is cancelled.
func (l *Listener) awaitConnection(ln *net.TCPListener) (net.Conn, error) {
	deadline := time.Now().Add(l.cfg.Budget)
	for {
		if l.cancelled.Load() {
			return nil, ErrCancelled
		}
		if !time.Now().Before(deadline) {
			return nil, ErrTimeout
		}

		if err := ln.SetDeadline(time.Now().Add(l.cfg.PollStep)); err != nil {
			return nil, fmt.Errorf("arm accept deadline: %w", err)
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return nil, fmt.Errorf("accept: %w", err)
		}

		if l.cancelled.Load() {
			conn.Close()
			return nil, ErrCancelled
		}
		return conn, nil
	}
}

// exchange reads the tap request, always answers 200 OK once any bytes
// arrived, and extracts the card number from the body.
func (l *Listener) exchange(conn net.Conn) (int64, error) {
	defer conn.Close()

	raw, err := l.readRequest(conn)
	if err != nil {
		return 0, err
	}

	// The sender must see a response before the terminal reacts,
	// regardless of whether the payload parses.
	if _, err := conn.Write([]byte(tapResponse)); err != nil {
		l.logger.Warn("write tap response", "error", err)
	}

	body := raw
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		body = raw[i+4:]
	}

	value := extractField(string(body), "cardNum")
	if value == "" {
		return 0, fmt.Errorf("%w: cardNum not found", ErrParse)
	}
	cardID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number format %q", ErrParse, value)
	}
	return cardID, nil
}

func (l *Listener) readRequest(conn net.Conn) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(l.cfg.ReadWindow)); err != nil {
		return nil, fmt.Errorf("arm read deadline: %w", err)
	}

	var raw []byte
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		raw = append(raw, buf[:n]...)
		// One JSON-ish object per tap; stop as soon as it is closed so a
		// keep-alive sender does not stall us until the deadline.
		if bytes.Contains(raw, []byte("}")) {
			break
		}
		if err != nil {
			break
		}
	}

	if len(raw) == 0 {
		return nil, ErrNoData
	}
	return raw, nil
}
