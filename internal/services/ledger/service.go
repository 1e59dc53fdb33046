package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"

	"github.com/google/uuid"
)

type service struct {
	repo    repositories.WalletRepository
	cache   Cache
	metrics MetricsCollector
	cfg     Config
}

// NewService creates the ledger service. The repository is required; cache
// and metrics are optional and replaced with no-ops when nil.
func NewService(repo repositories.WalletRepository, cache Cache, metrics MetricsCollector, cfg Config) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cache == nil {
		cache = &noopCache{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{repo: repo, cache: cache, metrics: metrics, cfg: cfg}
}

func (s *service) Deposit(ctx context.Context, p DepositParams) (*Result, error) {
	if p.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	if p.Amount < 0 || p.BonusAmount < 0 || p.Amount+p.BonusAmount == 0 {
		return nil, ErrInvalidAmount
	}

	if res, err := s.findApplied(ctx, p.OrderID); res != nil || err != nil {
		return res, err
	}

	var res *Result
	err := s.mutate(ctx, "deposit", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			wallet, err := tx.CreateIfAbsent(ctx, p.UserID)
			if err != nil {
				return err
			}
			if err := ensureSpendable(wallet); err != nil {
				return err
			}

			before := wallet.Available()
			wallet.Balance += p.Amount
			wallet.BonusBalance += p.BonusAmount
			wallet.TotalDeposited += p.Amount
			if err := tx.UpdateWithVersion(ctx, wallet); err != nil {
				return err
			}

			entry := &models.LedgerEntry{
				WalletID:      wallet.ID,
				UserID:        p.UserID,
				OrderID:       p.OrderID,
				Type:          models.EntryTypeDeposit,
				Amount:        p.Amount,
				BonusAmount:   p.BonusAmount,
				BalanceBefore: before,
				BalanceAfter:  wallet.Available(),
				Category:      p.Category,
				Status:        models.EntryStatusSuccess,
				Description:   p.Description,
				ReferenceID:   p.ReferenceID,
				ReferenceType: p.ReferenceType,
				Metadata:      models.NewJSON(p.Metadata),
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return err
			}
			res = &Result{Entry: entry, Wallet: wallet, Applied: true}
			return nil
		})
	})
	return s.finish(ctx, "deposit", p.UserID, p.OrderID, res, err)
}

func (s *service) Consume(ctx context.Context, p ConsumeParams) (*Result, error) {
	if p.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if res, err := s.findApplied(ctx, p.OrderID); res != nil || err != nil {
		return res, err
	}

	var res *Result
	err := s.mutate(ctx, "consume", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			wallet, err := tx.CreateIfAbsent(ctx, p.UserID)
			if err != nil {
				return err
			}
			if err := ensureSpendable(wallet); err != nil {
				return err
			}
			if wallet.Available() < p.Amount {
				return ErrInsufficientFunds
			}

			bonusPart, mainPart := splitConsume(wallet, p.Amount, p.PreferBonus)
			before := wallet.Available()
			wallet.Balance -= mainPart
			wallet.BonusBalance -= bonusPart
			wallet.TotalConsumed += p.Amount
			if err := tx.UpdateWithVersion(ctx, wallet); err != nil {
				return err
			}

			entry := &models.LedgerEntry{
				WalletID:      wallet.ID,
				UserID:        p.UserID,
				OrderID:       p.OrderID,
				Type:          models.EntryTypeConsume,
				Amount:        -mainPart,
				BonusAmount:   -bonusPart,
				BalanceBefore: before,
				BalanceAfter:  wallet.Available(),
				Category:      p.Category,
				Status:        models.EntryStatusSuccess,
				Description:   p.Description,
				ReferenceID:   p.ReferenceID,
				ReferenceType: p.ReferenceType,
				Metadata:      models.NewJSON(p.Metadata),
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return err
			}
			res = &Result{Entry: entry, Wallet: wallet, Applied: true}
			return nil
		})
	})
	return s.finish(ctx, "consume", p.UserID, p.OrderID, res, err)
}

func (s *service) Refund(ctx context.Context, p RefundParams) (*Result, error) {
	if p.OriginalOrderID == "" {
		return nil, ErrMissingOrderID
	}
	if p.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	// One key per refund call: retries inside the loop reuse it, so a version
	// conflict cannot produce two credit entries.
	refundOrderID := refundOrderPrefix + uuid.New().String()

	var res *Result
	err := s.mutate(ctx, "refund", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			orig, err := tx.GetEntryByOrderID(ctx, p.OriginalOrderID)
			if err != nil {
				if errors.Is(err, repositories.ErrEntryNotFound) {
					return ErrOrderNotFound
				}
				return err
			}
			if orig.UserID != p.UserID {
				return ErrOrderNotFound
			}
			if orig.Type != models.EntryTypeConsume || orig.Status != models.EntryStatusSuccess {
				return ErrNotRefundable
			}

			total := -orig.Total()
			amount := p.Amount
			if amount == 0 {
				amount = total
			}
			if amount > total {
				return ErrNotRefundable
			}

			wallet, err := tx.GetByUserID(ctx, p.UserID)
			if err != nil {
				return err
			}
			if wallet.Status == models.WalletStatusClosed {
				return ErrWalletClosed
			}

			// Restore the pools the consume drew from: main first, then bonus.
			mainBack := min64(amount, -orig.Amount)
			bonusBack := amount - mainBack

			before := wallet.Available()
			wallet.Balance += mainBack
			wallet.BonusBalance += bonusBack
			if err := tx.UpdateWithVersion(ctx, wallet); err != nil {
				return err
			}

			entry := &models.LedgerEntry{
				WalletID:      wallet.ID,
				UserID:        p.UserID,
				OrderID:       refundOrderID,
				Type:          models.EntryTypeRefund,
				Amount:        mainBack,
				BonusAmount:   bonusBack,
				BalanceBefore: before,
				BalanceAfter:  wallet.Available(),
				Category:      orig.Category,
				Status:        models.EntryStatusSuccess,
				Description:   p.Reason,
				ReferenceID:   p.OriginalOrderID,
				ReferenceType: "ledger_entry",
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return err
			}

			// Same transaction as the credit: if this fails nothing above is
			// visible. A concurrent refund that won the status flip leaves
			// zero rows to update, which rolls our credit back too.
			if err := tx.MarkEntryRefunded(ctx, orig.ID); err != nil {
				if errors.Is(err, repositories.ErrEntryNotFound) {
					return ErrNotRefundable
				}
				return err
			}
			res = &Result{Entry: entry, Wallet: wallet, Applied: true}
			return nil
		})
	})
	return s.finish(ctx, "refund", p.UserID, refundOrderID, res, err)
}

func (s *service) Adjust(ctx context.Context, p AdjustParams) (*Result, error) {
	if p.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	adjustOrderID := adjustOrderPrefix + uuid.New().String()

	var res *Result
	err := s.mutate(ctx, "adjust", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			wallet, err := tx.CreateIfAbsent(ctx, p.UserID)
			if err != nil {
				return err
			}
			// Frozen wallets may still be adjusted; closed never.
			if wallet.Status == models.WalletStatusClosed {
				return ErrWalletClosed
			}
			if p.Amount < 0 && wallet.Balance+p.Amount < 0 && !p.AllowNegative {
				return ErrInsufficientFunds
			}

			before := wallet.Available()
			wallet.Balance += p.Amount
			if err := tx.UpdateWithVersion(ctx, wallet); err != nil {
				return err
			}

			entry := &models.LedgerEntry{
				WalletID:      wallet.ID,
				UserID:        p.UserID,
				OrderID:       adjustOrderID,
				Type:          models.EntryTypeAdjust,
				Amount:        p.Amount,
				BalanceBefore: before,
				BalanceAfter:  wallet.Available(),
				Status:        models.EntryStatusSuccess,
				Description:   p.Reason,
				Metadata: models.NewJSON(map[string]interface{}{
					"actor_id":       p.ActorID,
					"allow_negative": p.AllowNegative,
				}),
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return err
			}
			res = &Result{Entry: entry, Wallet: wallet, Applied: true}
			return nil
		})
	})
	return s.finish(ctx, "adjust", p.UserID, adjustOrderID, res, err)
}

func (s *service) Reserve(ctx context.Context, userID uint, amount int64, orderNo string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := s.mutate(ctx, "reserve", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			wallet, err := tx.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			if err := ensureSpendable(wallet); err != nil {
				return err
			}
			if wallet.Balance < amount {
				return ErrInsufficientFunds
			}
			wallet.Balance -= amount
			wallet.FrozenBalance += amount
			return tx.UpdateWithVersion(ctx, wallet)
		})
	})
	if err != nil {
		s.metrics.RecordError("reserve", errType(err))
		return err
	}
	s.invalidate(ctx, userID)
	s.metrics.RecordMutation("reserve", amount)
	return nil
}

func (s *service) Release(ctx context.Context, userID uint, amount int64, orderNo string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := s.mutate(ctx, "release", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			wallet, err := tx.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			if wallet.FrozenBalance < amount {
				return ErrReservationMismatch
			}
			wallet.FrozenBalance -= amount
			wallet.Balance += amount
			return tx.UpdateWithVersion(ctx, wallet)
		})
	})
	if err != nil {
		s.metrics.RecordError("release", errType(err))
		return err
	}
	s.invalidate(ctx, userID)
	s.metrics.RecordMutation("release", amount)
	return nil
}

func (s *service) Settle(ctx context.Context, userID uint, amount int64, orderNo string) (*Result, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if orderNo == "" {
		return nil, ErrMissingOrderID
	}

	if res, err := s.findApplied(ctx, orderNo); res != nil || err != nil {
		return res, err
	}

	var res *Result
	err := s.mutate(ctx, "settle", func() error {
		return s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
			wallet, err := tx.GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			if wallet.FrozenBalance < amount {
				return ErrReservationMismatch
			}
			wallet.FrozenBalance -= amount
			wallet.TotalWithdrawn += amount
			if err := tx.UpdateWithVersion(ctx, wallet); err != nil {
				return err
			}

			// The spendable pools are untouched here: the funds left them at
			// reservation time, so BalanceBefore equals BalanceAfter and the
			// entry's amount documents the frozen-pool payout.
			entry := &models.LedgerEntry{
				WalletID:      wallet.ID,
				UserID:        userID,
				OrderID:       orderNo,
				Type:          models.EntryTypeWithdraw,
				Amount:        -amount,
				BalanceBefore: wallet.Available(),
				BalanceAfter:  wallet.Available(),
				Status:        models.EntryStatusSuccess,
				Description:   "withdrawal payout",
				ReferenceID:   orderNo,
				ReferenceType: "withdraw_order",
			}
			if err := tx.AppendEntry(ctx, entry); err != nil {
				return err
			}
			res = &Result{Entry: entry, Wallet: wallet, Applied: true}
			return nil
		})
	})
	return s.finish(ctx, "settle", userID, orderNo, res, err)
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	key := s.cache.GenerateKey(walletCacheEntity, "user", userID)

	var cached models.Wallet
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	wallet, err := s.repo.CreateIfAbsent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	// Best effort; the database remains authoritative.
	_ = s.cache.SetWithTTL(ctx, key, wallet, s.cfg.CacheTTL)
	return wallet, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint) (int64, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Available(), nil
}

func (s *service) ListEntries(ctx context.Context, userID uint, filter repositories.EntryFilter, limit, offset int) ([]models.LedgerEntry, int64, error) {
	return s.repo.ListEntries(ctx, userID, filter, limit, offset)
}

func (s *service) FreezeWallet(ctx context.Context, userID uint, reason string) error {
	return s.setStatus(ctx, userID, models.WalletStatusFrozen, reason, false)
}

func (s *service) UnfreezeWallet(ctx context.Context, userID uint) error {
	return s.setStatus(ctx, userID, models.WalletStatusActive, "", false)
}

func (s *service) CloseWallet(ctx context.Context, userID uint, reason string) error {
	return s.setStatus(ctx, userID, models.WalletStatusClosed, reason, true)
}

// setStatus performs status-only transitions. Closing is terminal and refused
// while a withdrawal reservation is outstanding.
func (s *service) setStatus(ctx context.Context, userID uint, status, reason string, closing bool) error {
	wallet, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if wallet.Status == models.WalletStatusClosed {
		return ErrWalletClosed
	}
	if closing && wallet.FrozenBalance > 0 {
		return ErrReservationMismatch
	}
	if err := s.repo.UpdateStatus(ctx, wallet.ID, status, reason); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// mutate wraps a read-modify-write in the bounded optimistic retry loop.
func (s *service) mutate(ctx context.Context, op string, fn func() error) error {
	return withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(attempt int) {
		s.metrics.RecordRetry(op, attempt)
	}, fn)
}

// findApplied resolves the idempotency fast path: a previously recorded order
// id short-circuits to its original entry.
func (s *service) findApplied(ctx context.Context, orderID string) (*Result, error) {
	entry, err := s.repo.GetEntryByOrderID(ctx, orderID)
	if err == nil {
		return &Result{Entry: entry, Applied: false}, nil
	}
	if errors.Is(err, repositories.ErrEntryNotFound) {
		return nil, nil
	}
	return nil, err
}

// finish resolves the duplicate-race case, records metrics and invalidates
// the wallet cache after a successful mutation.
func (s *service) finish(ctx context.Context, op string, userID uint, orderID string, res *Result, err error) (*Result, error) {
	if errors.Is(err, repositories.ErrDuplicateOrder) {
		// Lost the append race to a concurrent twin: the transaction rolled
		// back, so report the surviving entry as already applied.
		entry, getErr := s.repo.GetEntryByOrderID(ctx, orderID)
		if getErr != nil {
			return nil, err
		}
		return &Result{Entry: entry, Applied: false}, nil
	}
	if err != nil {
		s.metrics.RecordError(op, errType(err))
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.metrics.RecordMutation(op, res.Entry.Total())
	return res, nil
}

func (s *service) invalidate(ctx context.Context, userID uint) {
	_ = s.cache.Delete(ctx, s.cache.GenerateKey(walletCacheEntity, "user", userID))
}

// ensureSpendable gates the paths that require an active wallet.
func ensureSpendable(w *models.Wallet) error {
	switch w.Status {
	case models.WalletStatusClosed:
		return ErrWalletClosed
	case models.WalletStatusFrozen:
		return ErrWalletFrozen
	}
	return nil
}

// splitConsume divides a spend between the bonus and main pools.
func splitConsume(w *models.Wallet, amount int64, preferBonus bool) (bonusPart, mainPart int64) {
	if preferBonus {
		bonusPart = min64(amount, w.BonusBalance)
		mainPart = amount - bonusPart
		return bonusPart, mainPart
	}
	mainPart = min64(amount, w.Balance)
	bonusPart = amount - mainPart
	return bonusPart, mainPart
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func errType(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrWalletClosed):
		return "wallet_closed"
	case errors.Is(err, ErrWalletFrozen):
		return "wallet_frozen"
	case errors.Is(err, ErrNotRefundable):
		return "not_refundable"
	default:
		return "internal"
	}
}

// noopCache satisfies Cache when no Redis is wired (tests, tooling).
type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (noopCache) SetWithTTL(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (noopCache) Delete(context.Context, ...string) error { return nil }
func (noopCache) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}
