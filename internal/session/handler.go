package session

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/yash-g01/Next-Gen-ATM/internal/account"
	"github.com/yash-g01/Next-Gen-ATM/internal/nfc"
)

// Handler exposes the session API consumed by the terminal front-end.
type Handler struct {
	controller *Controller
}

// NewHandler builds a session HTTP handler.
func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

type verifyRequest struct {
	AccountNumber int `json:"account_number"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// View returns the current session snapshot.
func (h *Handler) View(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.controller.Snapshot())
}

// Verify checks an account number and moves the session to PIN entry.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.controller.VerifyAccount(c.UserContext(), req.AccountNumber); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// StartTap begins waiting for a contactless tap.
func (h *Handler) StartTap(c *fiber.Ctx) error {
	if err := h.controller.StartTap(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// CancelTap stops the tap wait and returns once the listener has ended.
func (h *Handler) CancelTap(c *fiber.Ctx) error {
	if err := h.controller.CancelTap(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// SubmitPin attempts to open the session with the entered PIN.
func (h *Handler) SubmitPin(c *fiber.Ctx) error {
	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.controller.SubmitPin(req.PIN); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// CancelLogin abandons PIN entry.
func (h *Handler) CancelLogin(c *fiber.Ctx) error {
	if err := h.controller.CancelLogin(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// Deposit credits cash to the active account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.controller.Deposit(c.UserContext(), req.Amount); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// Withdraw dispenses cash from the active account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.controller.Withdraw(c.UserContext(), req.Amount); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// StartUPI enters the UPI amount screen.
func (h *Handler) StartUPI(c *fiber.Ctx) error {
	if err := h.controller.StartUPI(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// SubmitUPIAmount issues a withdrawal QR for the requested amount.
func (h *Handler) SubmitUPIAmount(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.controller.SubmitUPIAmount(c.UserContext(), req.Amount); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// CancelUPI abandons the pending QR.
func (h *Handler) CancelUPI(c *fiber.Ctx) error {
	if err := h.controller.CancelUPI(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// BackToMenu leaves the UPI amount screen.
func (h *Handler) BackToMenu(c *fiber.Ctx) error {
	if err := h.controller.BackToMenu(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

// Logout ends the session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.controller.Logout(); err != nil {
		return statusError(err)
	}
	return h.View(c)
}

func statusError(err error) error {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAuthFailed):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, nfc.ErrBusy):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		// Listener bind errors and storage failures end up here; the
		// session itself stays usable.
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
}
