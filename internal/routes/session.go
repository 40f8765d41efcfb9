package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yash-g01/Next-Gen-ATM/internal/session"
)

// RegisterSessionRoutes wires the authentication and UPI flow endpoints.
func RegisterSessionRoutes(r fiber.Router, h *session.Handler) {
	r.Get("/session", h.View)
	r.Post("/session/verify", h.Verify)
	r.Post("/session/tap", h.StartTap)
	r.Post("/session/tap/cancel", h.CancelTap)
	r.Post("/session/pin", h.SubmitPin)
	r.Post("/session/cancel", h.CancelLogin)
	r.Post("/session/logout", h.Logout)

	r.Post("/upi", h.StartUPI)
	r.Post("/upi/amount", h.SubmitUPIAmount)
	r.Post("/upi/back", h.BackToMenu)
	r.Post("/upi/cancel", h.CancelUPI)
}

// RegisterTransactionRoutes wires the cash movement endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *session.Handler) {
	r.Post("/deposit", h.Deposit)
	r.Post("/withdraw", h.Withdraw)
}
