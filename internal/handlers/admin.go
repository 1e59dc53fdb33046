package handlers

import (
	"strconv"

	"aurum/internal/services/ledger"
	"aurum/internal/services/order"
	"aurum/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler groups the operator endpoints: corrections, withdrawal review
// and wallet status management. All routes behind it require the admin role.
type AdminHandler struct {
	ledgerService ledger.Service
	withdraws     *order.WithdrawManager
	deposits      *order.DepositManager
}

func NewAdminHandler(ledgerService ledger.Service, deposits *order.DepositManager, withdraws *order.WithdrawManager) *AdminHandler {
	return &AdminHandler{ledgerService: ledgerService, deposits: deposits, withdraws: withdraws}
}

type adjustInput struct {
	UserID        uint   `json:"user_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
	AllowNegative bool   `json:"allow_negative"`
}

// Adjust applies a signed manual correction to a user's main balance.
func (h *AdminHandler) Adjust(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input adjustInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		return response.BadRequest(c, "reason is required")
	}

	res, err := h.ledgerService.Adjust(c.Context(), ledger.AdjustParams{
		UserID:        input.UserID,
		Amount:        input.Amount,
		Reason:        input.Reason,
		ActorID:       claims.UserID,
		AllowNegative: input.AllowNegative,
	})
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"entry": res.Entry})
}

// BatchAdjust applies a list of corrections, reporting per-item outcomes
// rather than failing the whole batch.
func (h *AdminHandler) BatchAdjust(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Adjustments []adjustInput `json:"adjustments"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if len(input.Adjustments) == 0 {
		return response.BadRequest(c, "adjustments are required")
	}

	type outcome struct {
		UserID uint   `json:"user_id"`
		OK     bool   `json:"ok"`
		Error  string `json:"error,omitempty"`
	}
	results := make([]outcome, 0, len(input.Adjustments))
	for _, a := range input.Adjustments {
		_, err := h.ledgerService.Adjust(c.Context(), ledger.AdjustParams{
			UserID:        a.UserID,
			Amount:        a.Amount,
			Reason:        a.Reason,
			ActorID:       claims.UserID,
			AllowNegative: a.AllowNegative,
		})
		o := outcome{UserID: a.UserID, OK: err == nil}
		if err != nil {
			o.Error = err.Error()
		}
		results = append(results, o)
	}
	return response.Success(c, fiber.Map{"results": results})
}

func (h *AdminHandler) ApproveWithdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	ord, err := h.withdraws.Approve(c.Context(), c.Params("orderNo"), claims.UserID)
	if err != nil {
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *AdminHandler) RejectWithdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	ord, err := h.withdraws.Reject(c.Context(), c.Params("orderNo"), claims.UserID, input.Reason)
	if err != nil {
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *AdminHandler) ProcessWithdraw(c *fiber.Ctx) error {
	ord, err := h.withdraws.MarkProcessing(c.Context(), c.Params("orderNo"))
	if err != nil {
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *AdminHandler) CompleteWithdraw(c *fiber.Ctx) error {
	var input struct {
		ExternalRef string `json:"external_ref"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	ord, err := h.withdraws.Complete(c.Context(), c.Params("orderNo"), input.ExternalRef)
	if err != nil {
		return orderError(c, err)
	}
	return response.Success(c, fiber.Map{"order": ord})
}

func (h *AdminHandler) FreezeWallet(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	if err := h.ledgerService.FreezeWallet(c.Context(), userID, input.Reason); err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"frozen": true})
}

func (h *AdminHandler) UnfreezeWallet(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}
	if err := h.ledgerService.UnfreezeWallet(c.Context(), userID); err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"frozen": false})
}

func (h *AdminHandler) CloseWallet(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	if err := h.ledgerService.CloseWallet(c.Context(), userID, input.Reason); err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"closed": true})
}

// ExpireDeposits runs one expiry sweep over due deposit orders. Meant to be
// hit by an external scheduler.
func (h *AdminHandler) ExpireDeposits(c *fiber.Ctx) error {
	n, err := h.deposits.ExpireDue(c.Context())
	if err != nil {
		return response.ServerError(c, "sweep failed")
	}
	return response.Success(c, fiber.Map{"expired": n})
}

func parseUserID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
