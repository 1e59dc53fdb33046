// Package policy implements the pre-flight spend checks that run before a
// consume is attempted. The guard is advisory: the ledger service re-checks
// funds under its own transaction, so a stale answer here can never corrupt
// a balance, only shape what the caller shows the user.
package policy

import (
	"context"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"
)

// CategoryLimit bounds spending within one consumption category. Zero values
// disable the corresponding check.
type CategoryLimit struct {
	// MaxPerTransaction caps a single consume.
	MaxPerTransaction int64
	// DailyCeiling caps the rolling sum of today's consumes (UTC day).
	DailyCeiling int64
	// ConfirmAbove marks amounts that need a secondary confirmation step.
	ConfirmAbove int64
}

// Config holds the per-category limits plus the fallback applied to
// categories without an explicit entry.
type Config struct {
	Default    CategoryLimit
	Categories map[string]CategoryLimit
}

// Decision is the structured answer to "may this spend proceed". A denial is
// data, not an error, so callers can present a funding prompt.
type Decision struct {
	Allowed              bool   `json:"allowed"`
	Reason               string `json:"reason,omitempty"`
	Shortfall            int64  `json:"shortfall,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
}

// Denial reasons
const (
	ReasonInvalidAmount     = "invalid amount"
	ReasonTxCeiling         = "amount exceeds per-transaction limit"
	ReasonDailyCeiling      = "daily spending limit reached"
	ReasonInsufficientFunds = "insufficient funds"
	ReasonWalletUnavailable = "wallet is not active"
)

// Guard evaluates spend requests against the configured limits and the
// wallet's current funds.
type Guard struct {
	wallets repositories.WalletRepository
	cfg     Config
	now     func() time.Time
}

func NewGuard(wallets repositories.WalletRepository, cfg Config) *Guard {
	if wallets == nil {
		panic("wallet repository is required")
	}
	return &Guard{wallets: wallets, cfg: cfg, now: time.Now}
}

// Check runs every limit in order and stops at the first denial. Errors are
// reserved for storage failures.
func (g *Guard) Check(ctx context.Context, userID uint, amount int64, category string) (Decision, error) {
	if amount <= 0 {
		return Decision{Reason: ReasonInvalidAmount}, nil
	}

	limit := g.limitFor(category)
	if limit.MaxPerTransaction > 0 && amount > limit.MaxPerTransaction {
		return Decision{Reason: ReasonTxCeiling}, nil
	}

	if limit.DailyCeiling > 0 {
		spent, err := g.wallets.SumConsumedSince(ctx, userID, category, startOfDayUTC(g.now()))
		if err != nil {
			return Decision{}, err
		}
		if spent+amount > limit.DailyCeiling {
			return Decision{Reason: ReasonDailyCeiling}, nil
		}
	}

	wallet, err := g.wallets.CreateIfAbsent(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if wallet.Status != models.WalletStatusActive {
		return Decision{Reason: ReasonWalletUnavailable}, nil
	}
	if wallet.Available() < amount {
		return Decision{
			Reason:    ReasonInsufficientFunds,
			Shortfall: amount - wallet.Available(),
		}, nil
	}

	return Decision{
		Allowed:              true,
		RequiresConfirmation: limit.ConfirmAbove > 0 && amount > limit.ConfirmAbove,
	}, nil
}

func (g *Guard) limitFor(category string) CategoryLimit {
	if l, ok := g.cfg.Categories[category]; ok {
		return l
	}
	return g.cfg.Default
}

func startOfDayUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
