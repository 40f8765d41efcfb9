// Package upi builds the deep links encoded into withdrawal QR codes.
// Links are generated, never parsed; pixel-level QR rendering is left to
// whatever scans or displays the payload.
package upi

import (
	"fmt"
	"net/url"
)

// PayURI renders a upi://pay deep link for a whole-rupee amount. Parameter
// order (pa, pn, am, cu) is fixed; some scanner apps are sensitive to it.
func PayURI(payee, payeeName string, amount int64) string {
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%d.00&cu=INR",
		payee, url.PathEscape(payeeName), amount)
}
