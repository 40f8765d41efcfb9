package session

import "github.com/yash-g01/Next-Gen-ATM/internal/account"

// TransactionView is the visible slice of a pending UPI withdrawal.
type TransactionView struct {
	Amount    int64  `json:"amount"`
	Remaining int    `json:"remaining_seconds"`
	QR        string `json:"qr_payload"`
}

// View is what the presentation layer renders: current state plus
// whatever that state needs to show.
type View struct {
	State         State            `json:"state"`
	PendingHolder string           `json:"pending_holder,omitempty"`
	Holder        string           `json:"holder,omitempty"`
	Balance       string           `json:"balance,omitempty"`
	UPI           *TransactionView `json:"upi,omitempty"`
	Notice        string           `json:"notice,omitempty"`
}

// Snapshot returns a consistent copy of the visible session state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{State: c.state, Notice: c.notice}
	if c.pending != nil {
		v.PendingHolder = c.pending.Holder
	}
	if c.active != nil {
		v.Holder = c.active.Holder
		v.Balance = account.FormatBalance(c.active.Balance)
	}
	if c.tx != nil {
		v.UPI = &TransactionView{Amount: c.tx.Amount, Remaining: c.tx.Remaining, QR: c.tx.QR}
	}
	return v
}
