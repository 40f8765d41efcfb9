package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yash-g01/Next-Gen-ATM/internal/account"
	"github.com/yash-g01/Next-Gen-ATM/internal/logging"
	"github.com/yash-g01/Next-Gen-ATM/internal/nfc"
)

// stubTaps stands in for the contactless reader; tests push outcomes.
type stubTaps struct {
	results  chan nfc.Result
	startErr error
}

func newStubTaps() *stubTaps {
	return &stubTaps{results: make(chan nfc.Result, 1)}
}

func (s *stubTaps) Start() (<-chan nfc.Result, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.results, nil
}

func (s *stubTaps) Cancel() {
	s.results <- nfc.Result{Err: nfc.ErrCancelled}
}

func newTestController(t *testing.T, cfg Config) (*Controller, *stubTaps) {
	t.Helper()
	seeds, err := account.SeedAccounts()
	if err != nil {
		t.Fatalf("seed accounts: %v", err)
	}
	dir, err := account.NewMemoryDirectory(seeds...)
	if err != nil {
		t.Fatalf("build directory: %v", err)
	}
	taps := newStubTaps()
	if cfg.TickInterval == 0 {
		// Long ticks keep the countdown inert in flow tests.
		cfg.TickInterval = time.Hour
	}
	return NewController(dir, taps, nil, cfg, logging.Discard()), taps
}

func login(t *testing.T, c *Controller, number int, pin string) {
	t.Helper()
	if err := c.VerifyAccount(context.Background(), number); err != nil {
		t.Fatalf("verify account %d: %v", number, err)
	}
	if err := c.SubmitPin(pin); err != nil {
		t.Fatalf("submit pin: %v", err)
	}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Snapshot().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, still %s", want, c.Snapshot().State)
}

func TestManualLoginFlow(t *testing.T) {
	c, _ := newTestController(t, Config{})
	ctx := context.Background()

	if err := c.VerifyAccount(ctx, 4242); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}
	if got := c.Snapshot().State; got != StateLoggedOut {
		t.Fatalf("failed lookup must not change state, got %s", got)
	}

	if err := c.VerifyAccount(ctx, 1001); err != nil {
		t.Fatalf("verify account: %v", err)
	}
	view := c.Snapshot()
	if view.State != StateAwaitingPin || view.PendingHolder != "Tanmay Ravindra Padale" {
		t.Fatalf("unexpected view after verify: %+v", view)
	}

	// Wrong PIN keeps the pending account for another try.
	if err := c.SubmitPin("9999"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if got := c.Snapshot().State; got != StateAwaitingPin {
		t.Fatalf("PIN mismatch must stay in awaiting_pin, got %s", got)
	}

	if err := c.SubmitPin("1234"); err != nil {
		t.Fatalf("correct pin rejected: %v", err)
	}
	view = c.Snapshot()
	if view.State != StateMainMenu || view.Holder != "Tanmay Ravindra Padale" || view.Balance != "1800.00" {
		t.Fatalf("unexpected view after login: %+v", view)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := c.Snapshot().State; got != StateLoggedOut {
		t.Fatalf("expected logged_out after logout, got %s", got)
	}
}

func TestCancelLogin(t *testing.T) {
	c, _ := newTestController(t, Config{})
	if err := c.VerifyAccount(context.Background(), 1001); err != nil {
		t.Fatalf("verify account: %v", err)
	}
	if err := c.CancelLogin(); err != nil {
		t.Fatalf("cancel login: %v", err)
	}
	view := c.Snapshot()
	if view.State != StateLoggedOut || view.PendingHolder != "" {
		t.Fatalf("expected clean logged_out view, got %+v", view)
	}
}

func TestDepositAndWithdrawRules(t *testing.T) {
	c, _ := newTestController(t, Config{})
	ctx := context.Background()
	login(t, c, 1001, "1234")

	cases := []struct {
		amount int64
		want   error
	}{
		{0, ErrInvalidAmount},
		{-100, ErrInvalidAmount},
		{250, ErrInvalidAmount},
		{99, ErrInvalidAmount},
	}
	for _, tc := range cases {
		if err := c.Deposit(ctx, tc.amount); !errors.Is(err, tc.want) {
			t.Fatalf("deposit %d: expected %v, got %v", tc.amount, tc.want, err)
		}
		if err := c.Withdraw(ctx, tc.amount); !errors.Is(err, tc.want) {
			t.Fatalf("withdraw %d: expected %v, got %v", tc.amount, tc.want, err)
		}
		if got := c.Snapshot().Balance; got != "1800.00" {
			t.Fatalf("rejected amount %d changed balance to %s", tc.amount, got)
		}
	}

	if err := c.Deposit(ctx, 500); err != nil {
		t.Fatalf("deposit 500: %v", err)
	}
	if got := c.Snapshot().Balance; got != "2300.00" {
		t.Fatalf("expected 2300.00 after deposit, got %s", got)
	}

	if err := c.Withdraw(ctx, 2300); err != nil {
		t.Fatalf("withdraw full balance: %v", err)
	}
	if got := c.Snapshot().Balance; got != "0.00" {
		t.Fatalf("expected 0.00 after withdrawal, got %s", got)
	}

	if err := c.Withdraw(ctx, 100); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := c.Snapshot().Balance; got != "0.00" {
		t.Fatalf("failed withdrawal changed balance to %s", got)
	}
}

func TestBalancePersistsAcrossSessions(t *testing.T) {
	c, _ := newTestController(t, Config{})
	ctx := context.Background()

	login(t, c, 1003, "1111")
	if err := c.Withdraw(ctx, 500); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}

	login(t, c, 1003, "1111")
	if got := c.Snapshot().Balance; got != "1500.00" {
		t.Fatalf("expected 1500.00 on next login, got %s", got)
	}
}

func TestTapLoginSuccess(t *testing.T) {
	c, taps := newTestController(t, Config{})

	if err := c.StartTap(); err != nil {
		t.Fatalf("start tap: %v", err)
	}
	if got := c.Snapshot().State; got != StateAwaitingTap {
		t.Fatalf("expected awaiting_tap, got %s", got)
	}

	if err := c.StartTap(); !errors.Is(err, ErrConflict) {
		t.Fatalf("second start must conflict, got %v", err)
	}

	taps.results <- nfc.Result{CardID: 7787}
	waitForState(t, c, StateAwaitingPin)
	if got := c.Snapshot().PendingHolder; got != "Swayam Bagul" {
		t.Fatalf("expected card 7787 to resolve Swayam Bagul, got %q", got)
	}

	if err := c.SubmitPin("5678"); err != nil {
		t.Fatalf("pin after tap: %v", err)
	}
	if got := c.Snapshot().Balance; got != "1500.50" {
		t.Fatalf("expected 1500.50, got %s", got)
	}
}

func TestTapUnknownCardResets(t *testing.T) {
	c, taps := newTestController(t, Config{})

	if err := c.StartTap(); err != nil {
		t.Fatalf("start tap: %v", err)
	}
	taps.results <- nfc.Result{CardID: 31337}
	waitForState(t, c, StateLoggedOut)
	if notice := c.Snapshot().Notice; notice == "" {
		t.Fatalf("expected a notice for an unrecognized card")
	}
}

func TestTapTimeoutResets(t *testing.T) {
	c, taps := newTestController(t, Config{})

	if err := c.StartTap(); err != nil {
		t.Fatalf("start tap: %v", err)
	}
	taps.results <- nfc.Result{Err: nfc.ErrTimeout}
	waitForState(t, c, StateLoggedOut)
}

func TestCancelTap(t *testing.T) {
	c, _ := newTestController(t, Config{})

	if err := c.CancelTap(); !errors.Is(err, ErrConflict) {
		t.Fatalf("cancel without tap must conflict, got %v", err)
	}

	if err := c.StartTap(); err != nil {
		t.Fatalf("start tap: %v", err)
	}
	if err := c.CancelTap(); err != nil {
		t.Fatalf("cancel tap: %v", err)
	}
	// CancelTap waits for the listener outcome, so the reset is visible
	// immediately.
	if got := c.Snapshot().State; got != StateLoggedOut {
		t.Fatalf("expected logged_out after cancel, got %s", got)
	}
}

func TestTapStartFailureKeepsSessionUsable(t *testing.T) {
	c, taps := newTestController(t, Config{})
	taps.startErr = errors.New("bind :12345: address already in use")

	if err := c.StartTap(); err == nil {
		t.Fatalf("expected bind error to surface")
	}
	if got := c.Snapshot().State; got != StateLoggedOut {
		t.Fatalf("bind failure must leave session logged out, got %s", got)
	}

	// Manual login still works after the failed attempt.
	login(t, c, 1001, "1234")
}

func TestUPIFlow(t *testing.T) {
	c, _ := newTestController(t, Config{Payee: "atm@bank", PayeeName: "ATM Machine Simulation"})
	ctx := context.Background()
	login(t, c, 1001, "1234")

	if err := c.SubmitUPIAmount(ctx, 300); !errors.Is(err, ErrConflict) {
		t.Fatalf("amount outside UPI flow must conflict, got %v", err)
	}

	if err := c.StartUPI(); err != nil {
		t.Fatalf("start upi: %v", err)
	}

	for _, amount := range []int64{0, -200, 250, 10_100} {
		if err := c.SubmitUPIAmount(ctx, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
		if got := c.Snapshot().State; got != StateAwaitingUPIAmount {
			t.Fatalf("rejected amount %d left state %s", amount, got)
		}
	}

	if err := c.SubmitUPIAmount(ctx, 300); err != nil {
		t.Fatalf("submit amount 300: %v", err)
	}
	view := c.Snapshot()
	if view.State != StateAwaitingUPIPay || view.UPI == nil {
		t.Fatalf("expected awaiting_upi_payment with a transaction, got %+v", view)
	}
	if view.UPI.Amount != 300 || view.UPI.Remaining != 300 {
		t.Fatalf("unexpected pending transaction: %+v", view.UPI)
	}
	want := "upi://pay?pa=atm@bank&pn=ATM%20Machine%20Simulation&am=300.00&cu=INR"
	if view.UPI.QR != want {
		t.Fatalf("qr payload = %q, want %q", view.UPI.QR, want)
	}

	if err := c.CancelUPI(); err != nil {
		t.Fatalf("cancel upi: %v", err)
	}
	view = c.Snapshot()
	if view.State != StateMainMenu || view.UPI != nil {
		t.Fatalf("expected clean main_menu after cancel, got %+v", view)
	}
}

func TestUPIBackToMenu(t *testing.T) {
	c, _ := newTestController(t, Config{})
	login(t, c, 1001, "1234")

	if err := c.StartUPI(); err != nil {
		t.Fatalf("start upi: %v", err)
	}
	if err := c.BackToMenu(); err != nil {
		t.Fatalf("back: %v", err)
	}
	if got := c.Snapshot().State; got != StateMainMenu {
		t.Fatalf("expected main_menu, got %s", got)
	}
}

func TestUPIExpiry(t *testing.T) {
	c, _ := newTestController(t, Config{
		UPICountdown: time.Second,
		TickInterval: 10 * time.Millisecond,
	})
	login(t, c, 1001, "1234")

	if err := c.StartUPI(); err != nil {
		t.Fatalf("start upi: %v", err)
	}
	if err := c.SubmitUPIAmount(context.Background(), 300); err != nil {
		t.Fatalf("submit amount: %v", err)
	}
	if c.Snapshot().UPI == nil {
		t.Fatalf("expected a pending transaction")
	}

	waitForState(t, c, StateMainMenu)
	view := c.Snapshot()
	if view.UPI != nil {
		t.Fatalf("expired transaction not discarded: %+v", view.UPI)
	}
	if view.Notice == "" {
		t.Fatalf("expected a timeout notice")
	}
}

func TestStaleExpiryIgnored(t *testing.T) {
	c, _ := newTestController(t, Config{
		UPICountdown: 100 * time.Second,
		TickInterval: 20 * time.Millisecond,
	})
	login(t, c, 1001, "1234")

	if err := c.StartUPI(); err != nil {
		t.Fatalf("start upi: %v", err)
	}
	if err := c.SubmitUPIAmount(context.Background(), 300); err != nil {
		t.Fatalf("submit amount: %v", err)
	}
	firstID := func() string {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.tx.ID
	}()

	// Replace the transaction before the first countdown can expire.
	if err := c.CancelUPI(); err != nil {
		t.Fatalf("cancel upi: %v", err)
	}
	if err := c.StartUPI(); err != nil {
		t.Fatalf("restart upi: %v", err)
	}
	if err := c.SubmitUPIAmount(context.Background(), 500); err != nil {
		t.Fatalf("second amount: %v", err)
	}

	// Fire the stale expiry by hand; it must not touch the fresh transaction.
	c.onExpired(firstID)
	view := c.Snapshot()
	if view.State != StateAwaitingUPIPay || view.UPI == nil || view.UPI.Amount != 500 {
		t.Fatalf("stale expiry disturbed fresh transaction: %+v", view)
	}

	if err := c.CancelUPI(); err != nil {
		t.Fatalf("cleanup cancel: %v", err)
	}
}

func TestOperationsOutsideSessionConflict(t *testing.T) {
	c, _ := newTestController(t, Config{})
	ctx := context.Background()

	if err := c.Deposit(ctx, 100); !errors.Is(err, ErrConflict) {
		t.Fatalf("deposit while logged out: %v", err)
	}
	if err := c.Withdraw(ctx, 100); !errors.Is(err, ErrConflict) {
		t.Fatalf("withdraw while logged out: %v", err)
	}
	if err := c.SubmitPin("1234"); !errors.Is(err, ErrConflict) {
		t.Fatalf("pin while logged out: %v", err)
	}
	if err := c.StartUPI(); !errors.Is(err, ErrConflict) {
		t.Fatalf("upi while logged out: %v", err)
	}
	if err := c.Logout(); !errors.Is(err, ErrConflict) {
		t.Fatalf("logout while logged out: %v", err)
	}
}
