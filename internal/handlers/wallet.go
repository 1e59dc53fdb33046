package handlers

import (
	"errors"
	"time"

	apperrors "aurum/internal/errors"
	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/ledger"
	"aurum/internal/services/policy"
	"aurum/internal/utils/pagination"
	"aurum/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledgerService ledger.Service
	guard         *policy.Guard
}

func NewWalletHandler(ledgerService ledger.Service, guard *policy.Guard) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService, guard: guard}
}

// extractUserClaims is a helper shared by the authenticated handlers.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return response.ServerError(c, "failed to get wallet")
	}
	return response.Success(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), claims.UserID)
	if err != nil {
		return response.ServerError(c, "failed to get balance")
	}
	return response.Success(c, fiber.Map{
		"balance":        wallet.Balance,
		"bonus_balance":  wallet.BonusBalance,
		"frozen_balance": wallet.FrozenBalance,
		"available":      wallet.Available(),
	})
}

func (h *WalletHandler) ListEntries(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	filter := repositories.EntryFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = t
		}
	}

	entries, total, err := h.ledgerService.ListEntries(c.Context(), claims.UserID, filter, p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "failed to list entries")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, entries))
}

// CheckAffordability wraps the policy guard for funding prompts.
func (h *WalletHandler) CheckAffordability(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount   int64  `json:"amount"`
		Category string `json:"category"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	decision, err := h.guard.Check(c.Context(), claims.UserID, input.Amount, input.Category)
	if err != nil {
		return response.ServerError(c, "failed to evaluate spend")
	}
	return response.Success(c, decision)
}

// Consume is the spend endpoint used by the business-purchase collaborators.
func (h *WalletHandler) Consume(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount      int64  `json:"amount"`
		Category    string `json:"category"`
		OrderID     string `json:"order_id"`
		PreferBonus *bool  `json:"prefer_bonus"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	decision, err := h.guard.Check(c.Context(), claims.UserID, input.Amount, input.Category)
	if err != nil {
		return response.ServerError(c, "failed to evaluate spend")
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"decision": decision})
	}

	preferBonus := true
	if input.PreferBonus != nil {
		preferBonus = *input.PreferBonus
	}
	res, err := h.ledgerService.Consume(c.Context(), ledger.ConsumeParams{
		UserID:      claims.UserID,
		Amount:      input.Amount,
		Category:    input.Category,
		OrderID:     input.OrderID,
		PreferBonus: preferBonus,
		Description: input.Description,
	})
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"entry": res.Entry, "applied": res.Applied})
}

// Refund compensates a prior consume.
func (h *WalletHandler) Refund(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		OrderID string `json:"order_id"`
		Amount  int64  `json:"amount"`
		Reason  string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	res, err := h.ledgerService.Refund(c.Context(), ledger.RefundParams{
		UserID:          claims.UserID,
		OriginalOrderID: input.OrderID,
		Amount:          input.Amount,
		Reason:          input.Reason,
	})
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"entry": res.Entry, "applied": res.Applied})
}

// ledgerError maps mutator errors onto HTTP statuses and stable error codes.
func ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return response.Domain(c, fiber.StatusUnprocessableEntity, apperrors.ErrInsufficientBalance)
	case errors.Is(err, ledger.ErrWalletFrozen):
		return response.Domain(c, fiber.StatusUnprocessableEntity, apperrors.ErrWalletFrozen)
	case errors.Is(err, ledger.ErrWalletClosed):
		return response.Domain(c, fiber.StatusUnprocessableEntity, apperrors.ErrWalletClosed)
	case errors.Is(err, ledger.ErrNotRefundable):
		return response.Domain(c, fiber.StatusConflict, apperrors.ErrNotRefundable)
	case errors.Is(err, ledger.ErrOrderNotFound):
		return response.Domain(c, fiber.StatusNotFound, apperrors.ErrOrderNotFound)
	case errors.Is(err, ledger.ErrConcurrentModification):
		return response.Domain(c, fiber.StatusConflict, apperrors.ErrConcurrentUpdate)
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrMissingOrderID):
		return response.BadRequest(c, err.Error())
	default:
		return response.ServerError(c, "operation failed")
	}
}
