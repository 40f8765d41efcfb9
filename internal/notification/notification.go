package notification

import (
	"context"
	"log/slog"
)

const (
	// KindCashDeposit indicates a completed cash deposit.
	KindCashDeposit = "cash_deposit"
	// KindCashWithdrawal indicates dispensed cash.
	KindCashWithdrawal = "cash_withdrawal"
	// KindUPIQRIssued indicates a withdrawal QR was generated.
	KindUPIQRIssued = "upi_qr_issued"
)

// Message describes a transaction receipt payload.
type Message struct {
	Kind        string
	ReceiptID   string
	Destination string
	Body        string
}

// Notifier delivers receipts to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes receipts to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the receipt to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("receipt", "kind", message.Kind, "receipt_id", message.ReceiptID, "destination", message.Destination, "body", message.Body)
	return nil
}
