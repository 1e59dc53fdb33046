package handlers

import (
	"errors"

	apperrors "aurum/internal/errors"
	"aurum/internal/gateway"
	"aurum/internal/models"
	"aurum/internal/services/order"
	"aurum/internal/utils/pagination"
	"aurum/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	deposits  *order.DepositManager
	withdraws *order.WithdrawManager
	payments  *gateway.StripeGateway
	currency  string
}

func NewOrderHandler(deposits *order.DepositManager, withdraws *order.WithdrawManager, payments *gateway.StripeGateway, currency string) *OrderHandler {
	if currency == "" {
		currency = "usd"
	}
	return &OrderHandler{deposits: deposits, withdraws: withdraws, payments: payments, currency: currency}
}

// CreateDeposit opens a pending deposit order and, when a payment gateway is
// wired, a payment intent for it.
func (h *OrderHandler) CreateDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount      int64  `json:"amount"`
		BonusAmount int64  `json:"bonus_amount"`
		Method      string `json:"method"`
		Channel     string `json:"channel"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	ord, err := h.deposits.Create(c.Context(), order.CreateDepositParams{
		UserID:      claims.UserID,
		Amount:      input.Amount,
		BonusAmount: input.BonusAmount,
		Method:      input.Method,
		Channel:     input.Channel,
	})
	if err != nil {
		return orderError(c, err)
	}

	payload := fiber.Map{"order": ord}
	if h.payments != nil {
		secret, err := h.payments.CreateIntent(ord.Amount, h.currency, ord.OrderNo)
		if err != nil {
			return response.ServerError(c, "failed to initiate payment")
		}
		payload["client_secret"] = secret
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": payload})
}

func (h *OrderHandler) CancelDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	ord, err := h.deposits.Cancel(c.Context(), c.Params("orderNo"), claims.UserID)
	if err != nil {
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *OrderHandler) GetDeposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	ord, err := h.deposits.Get(c.Context(), c.Params("orderNo"))
	if err != nil {
		return orderError(c, err)
	}
	if ord.UserID != claims.UserID && claims.Role != models.RoleAdmin {
		return response.NotFound(c, "order not found")
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *OrderHandler) ListDeposits(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	orders, total, err := h.deposits.List(c.Context(), claims.UserID, c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "failed to list orders")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, orders))
}

// CreateWithdraw reserves the amount and opens a payout request.
func (h *OrderHandler) CreateWithdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount      int64  `json:"amount"`
		Destination string `json:"destination"`
		Method      string `json:"method"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	ord, err := h.withdraws.Create(c.Context(), order.CreateWithdrawParams{
		UserID:      claims.UserID,
		Amount:      input.Amount,
		Destination: input.Destination,
		Method:      input.Method,
	})
	if err != nil {
		return orderError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"order": ord}})
}

func (h *OrderHandler) CancelWithdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	ord, err := h.withdraws.Cancel(c.Context(), c.Params("orderNo"), claims.UserID)
	if err != nil {
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *OrderHandler) GetWithdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	ord, err := h.withdraws.Get(c.Context(), c.Params("orderNo"))
	if err != nil {
		return orderError(c, err)
	}
	if ord.UserID != claims.UserID && claims.Role != models.RoleAdmin {
		return response.NotFound(c, "order not found")
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *OrderHandler) ListWithdraws(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	orders, total, err := h.withdraws.List(c.Context(), claims.UserID, c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "failed to list orders")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, orders))
}

// PaymentWebhook routes gateway payment events onto the deposit state machine.
// The manager makes replays no-ops, so the gateway may retry freely.
func (h *OrderHandler) PaymentWebhook(c *fiber.Ctx) error {
	if h.payments == nil {
		return response.NotFound(c, "payments not configured")
	}

	event, err := h.payments.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		return response.BadRequest(c, "invalid webhook")
	}
	if event == nil {
		return response.Success(c, fiber.Map{"received": true})
	}

	if event.Confirmed {
		_, err = h.deposits.Confirm(c.Context(), event.OrderNo, event.ExternalRef)
	} else {
		_, err = h.deposits.MarkPaid(c.Context(), event.OrderNo, event.ExternalRef)
	}
	if err != nil {
		// A non-2xx makes the gateway redeliver later.
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"received": true})
}

func orderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, order.ErrNotOwner):
		// Not-owner deliberately reads as not-found.
		return response.Domain(c, fiber.StatusNotFound, apperrors.ErrOrderNotFound)
	case errors.Is(err, order.ErrInvalidTransition):
		return response.Domain(c, fiber.StatusConflict, apperrors.ErrInvalidTransition)
	case errors.Is(err, order.ErrOrderExpired):
		return response.Domain(c, fiber.StatusConflict, apperrors.ErrOrderExpired)
	case errors.Is(err, order.ErrInvalidAmount):
		return response.Domain(c, fiber.StatusBadRequest, apperrors.ErrInvalidAmount)
	default:
		return ledgerError(c, err)
	}
}
