// Package session drives the terminal's login, menu and withdrawal flow.
// All state lives behind one mutex; handlers, the tap outcome goroutine
// and the UPI countdown all serialise through it, so there is exactly one
// writer no matter which side an event arrives from.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yash-g01/Next-Gen-ATM/internal/account"
	"github.com/yash-g01/Next-Gen-ATM/internal/metrics"
	"github.com/yash-g01/Next-Gen-ATM/internal/nfc"
	"github.com/yash-g01/Next-Gen-ATM/internal/notification"
	"github.com/yash-g01/Next-Gen-ATM/internal/upi"
)

// State names a position in the session flow.
type State string

const (
	StateLoggedOut         State = "logged_out"
	StateAwaitingTap       State = "awaiting_tap"
	StateAwaitingPin       State = "awaiting_pin"
	StateMainMenu          State = "main_menu"
	StateAwaitingUPIAmount State = "awaiting_upi_amount"
	StateAwaitingUPIPay    State = "awaiting_upi_payment"
)

// TapSource is the contactless reader the controller waits on. Start
// returns a channel carrying exactly one terminal outcome; Cancel asks
// the attempt in flight to stop.
type TapSource interface {
	Start() (<-chan nfc.Result, error)
	Cancel()
}

// Config carries the session policy knobs.
type Config struct {
	// UPILimit is the maximum whole-rupee UPI withdrawal.
	UPILimit int64
	// UPICountdown is how long an issued QR stays valid.
	UPICountdown time.Duration
	// TickInterval is the countdown granularity, one second in
	// production; tests shrink it.
	TickInterval time.Duration
	Payee        string
	PayeeName    string
}

// PendingTransaction is a UPI withdrawal awaiting payment.
type PendingTransaction struct {
	ID        string
	Amount    int64
	Remaining int
	QR        string
}

// Controller is the terminal's session state machine.
type Controller struct {
	cfg       Config
	directory account.Directory
	taps      TapSource
	notifier  notification.Notifier
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	pending *account.Account
	active  *account.Account
	tapDone chan struct{}
	tx      *PendingTransaction
	timer   *countdown
	notice  string
}

// NewController builds a controller in the logged-out state.
func NewController(directory account.Directory, taps TapSource, notifier notification.Notifier, cfg Config, logger *slog.Logger) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.UPICountdown <= 0 {
		cfg.UPICountdown = 300 * time.Second
	}
	if cfg.UPILimit <= 0 {
		cfg.UPILimit = 10_000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		directory: directory,
		taps:      taps,
		notifier:  notifier,
		logger:    logger,
		state:     StateLoggedOut,
	}
}

// VerifyAccount looks up an account number and, when found, moves the
// session to PIN entry.
func (c *Controller) VerifyAccount(ctx context.Context, number int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoggedOut {
		return ErrConflict
	}

	acct, err := c.directory.FindByNumber(ctx, number)
	if err != nil {
		return err
	}

	c.pending = &acct
	c.state = StateAwaitingPin
	c.notice = ""
	return nil
}

// StartTap begins waiting for a contactless tap. A bind failure ends only
// this attempt; the session stays logged out and usable.
func (c *Controller) StartTap() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoggedOut {
		return ErrConflict
	}

	results, err := c.taps.Start()
	if err != nil {
		metrics.TapOutcomes.WithLabelValues("bind_error").Inc()
		return err
	}

	done := make(chan struct{})
	c.tapDone = done
	c.state = StateAwaitingTap
	c.notice = ""
	go c.awaitTap(results, done)
	return nil
}

// CancelTap asks the listener to stop and waits for its terminal outcome,
// so the caller returns with the session already reset.
func (c *Controller) CancelTap() error {
	c.mu.Lock()
	if c.state != StateAwaitingTap {
		c.mu.Unlock()
		return ErrConflict
	}
	done := c.tapDone
	c.mu.Unlock()

	c.taps.Cancel()
	if done != nil {
		<-done
	}
	return nil
}

// awaitTap drains the listener's single outcome and applies it under the
// controller lock. Runs once per StartTap.
func (c *Controller) awaitTap(results <-chan nfc.Result, done chan struct{}) {
	res := <-results

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)

	if c.state != StateAwaitingTap {
		return
	}

	if res.Err != nil {
		switch {
		case errors.Is(res.Err, nfc.ErrCancelled):
			metrics.TapOutcomes.WithLabelValues("cancelled").Inc()
			c.notice = ""
		case errors.Is(res.Err, nfc.ErrTimeout):
			metrics.TapOutcomes.WithLabelValues("timeout").Inc()
			c.notice = "Timeout: no card tapped"
		default:
			metrics.TapOutcomes.WithLabelValues("failed").Inc()
			c.notice = "Card read failed"
		}
		c.logger.Info("tap attempt finished", "error", res.Err)
		c.resetLocked()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	acct, err := c.directory.FindByCardID(ctx, res.CardID)
	if err != nil {
		metrics.TapOutcomes.WithLabelValues("unknown_card").Inc()
		c.logger.Warn("tapped card not in directory", "card_id", res.CardID)
		c.notice = "Card detected but not recognized"
		c.resetLocked()
		return
	}

	metrics.TapOutcomes.WithLabelValues("success").Inc()
	c.pending = &acct
	c.state = StateAwaitingPin
}

// SubmitPin checks the entered PIN against the pending account. A
// mismatch keeps the pending account so the user can retry; retry count
// is unlimited.
func (c *Controller) SubmitPin(pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingPin || c.pending == nil {
		return ErrConflict
	}

	if !c.pending.VerifyPIN(pin) {
		return ErrAuthFailed
	}

	c.active = c.pending
	c.pending = nil
	c.state = StateMainMenu
	c.notice = ""
	c.logger.Info("session opened", "account", c.active.Number)
	return nil
}

// CancelLogin abandons PIN entry and returns to the logged-out state.
func (c *Controller) CancelLogin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingPin {
		return ErrConflict
	}
	c.resetLocked()
	return nil
}

// Deposit credits the active account. Amount is whole rupees and must be
// a positive multiple of 100.
func (c *Controller) Deposit(ctx context.Context, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMainMenu || c.active == nil {
		return ErrConflict
	}
	if !validCashAmount(amount) {
		metrics.TransactionsFailed.Inc()
		return ErrInvalidAmount
	}

	newBalance := c.active.Balance + amount*100
	if err := c.directory.UpdateBalance(ctx, c.active.Number, newBalance); err != nil {
		metrics.TransactionsFailed.Inc()
		return err
	}
	c.active.Balance = newBalance

	metrics.TransactionsTotal.WithLabelValues("deposit").Inc()
	c.sendReceipt(ctx, notification.KindCashDeposit, amount)
	return nil
}

// Withdraw debits the active account, subject to the cash rule and the
// available balance.
func (c *Controller) Withdraw(ctx context.Context, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMainMenu || c.active == nil {
		return ErrConflict
	}
	if !validCashAmount(amount) {
		metrics.TransactionsFailed.Inc()
		return ErrInvalidAmount
	}
	if amount*100 > c.active.Balance {
		metrics.TransactionsFailed.Inc()
		return ErrInsufficientFunds
	}

	newBalance := c.active.Balance - amount*100
	if err := c.directory.UpdateBalance(ctx, c.active.Number, newBalance); err != nil {
		metrics.TransactionsFailed.Inc()
		return err
	}
	c.active.Balance = newBalance

	metrics.TransactionsTotal.WithLabelValues("withdrawal").Inc()
	c.sendReceipt(ctx, notification.KindCashWithdrawal, amount)
	return nil
}

// StartUPI enters the UPI amount entry screen.
func (c *Controller) StartUPI() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMainMenu {
		return ErrConflict
	}
	c.state = StateAwaitingUPIAmount
	return nil
}

// SubmitUPIAmount validates the requested amount, issues the QR payload
// and starts the expiry countdown.
func (c *Controller) SubmitUPIAmount(ctx context.Context, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingUPIAmount {
		return ErrConflict
	}
	if !validCashAmount(amount) || amount > c.cfg.UPILimit {
		metrics.TransactionsFailed.Inc()
		return ErrInvalidAmount
	}

	tx := &PendingTransaction{
		ID:        uuid.NewString(),
		Amount:    amount,
		Remaining: int(c.cfg.UPICountdown / time.Second),
		QR:        upi.PayURI(c.cfg.Payee, c.cfg.PayeeName, amount),
	}
	c.tx = tx
	c.state = StateAwaitingUPIPay
	c.timer = startCountdown(tx.Remaining, c.cfg.TickInterval,
		func(remaining int) { c.onTick(tx.ID, remaining) },
		func() { c.onExpired(tx.ID) },
	)

	metrics.TransactionsTotal.WithLabelValues("upi_qr").Inc()
	c.sendReceipt(ctx, notification.KindUPIQRIssued, amount)
	return nil
}

// CancelUPI abandons the pending QR and returns to the main menu.
func (c *Controller) CancelUPI() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingUPIPay {
		return ErrConflict
	}
	c.discardTransactionLocked()
	c.state = StateMainMenu
	return nil
}

// BackToMenu leaves the UPI amount screen without creating a transaction.
func (c *Controller) BackToMenu() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingUPIAmount {
		return ErrConflict
	}
	c.state = StateMainMenu
	return nil
}

// Logout ends the authenticated session.
func (c *Controller) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateMainMenu {
		return ErrConflict
	}
	c.active = nil
	c.resetLocked()
	c.logger.Info("session closed")
	return nil
}

func (c *Controller) onTick(txID string, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil && c.tx.ID == txID {
		c.tx.Remaining = remaining
	}
}

// onExpired fires from the countdown goroutine; the transaction ID guard
// keeps a stale timer from touching a fresh transaction.
func (c *Controller) onExpired(txID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingUPIPay || c.tx == nil || c.tx.ID != txID {
		return
	}
	c.discardTransactionLocked()
	c.state = StateMainMenu
	c.notice = "Transaction timed out"
	c.logger.Info("upi transaction expired", "tx_id", txID)
}

func (c *Controller) discardTransactionLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.tx = nil
}

// resetLocked returns the login flow to its initial state. The active
// account is untouched unless the caller cleared it; resets triggered
// from the tap path never have one.
func (c *Controller) resetLocked() {
	c.pending = nil
	c.tapDone = nil
	c.state = StateLoggedOut
}

func (c *Controller) sendReceipt(ctx context.Context, kind string, amount int64) {
	if c.notifier == nil || c.active == nil {
		return
	}
	_ = c.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		ReceiptID:   uuid.NewString(),
		Destination: fmt.Sprintf("account:%d", c.active.Number),
		Body:        fmt.Sprintf("%s of %d.00 processed, balance %s", kind, amount, account.FormatBalance(c.active.Balance)),
	})
}

func validCashAmount(amount int64) bool {
	return amount > 0 && amount%100 == 0
}
