package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) CreateIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	// Two racing first-access calls are resolved by the unique index on
	// user_id; the loser re-reads the winner's row.
	fresh := &models.Wallet{UserID: userID, Status: models.WalletStatusActive}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return r.GetByUserID(ctx, userID)
}

func (r *walletRepository) UpdateWithVersion(ctx context.Context, wallet *models.Wallet) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"balance":         wallet.Balance,
			"bonus_balance":   wallet.BonusBalance,
			"frozen_balance":  wallet.FrozenBalance,
			"total_deposited": wallet.TotalDeposited,
			"total_consumed":  wallet.TotalConsumed,
			"total_withdrawn": wallet.TotalWithdrawn,
			"status":          wallet.Status,
			"status_reason":   wallet.StatusReason,
			"version":         wallet.Version + 1,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	wallet.Version++
	return nil
}

func (r *walletRepository) UpdateStatus(ctx context.Context, walletID uint, status, reason string) error {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{"status": status, "status_reason": reason})
	if res.Error != nil {
		return fmt.Errorf("failed to update wallet status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *walletRepository) GetEntryByOrderID(ctx context.Context, orderID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *walletRepository) MarkEntryRefunded(ctx context.Context, entryID uint) error {
	res := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", entryID, models.EntryStatusSuccess).
		Update("status", models.EntryStatusRefunded)
	if res.Error != nil {
		return fmt.Errorf("failed to mark entry refunded: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *walletRepository) ListEntries(ctx context.Context, userID uint, filter EntryFilter, limit, offset int) ([]models.LedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	var entries []models.LedgerEntry
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, total, nil
}

func (r *walletRepository) SumConsumedSince(ctx context.Context, userID uint, category string, since time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
		Where("user_id = ? AND type = ? AND status IN ? AND created_at >= ?",
			userID, models.EntryTypeConsume,
			[]string{models.EntryStatusSuccess, models.EntryStatusRefunded}, since)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	// Consume entries carry negative deltas; flip the sign for a spend total.
	if err := q.Select("COALESCE(SUM(-(amount + bonus_amount)), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum consumed amount: %w", err)
	}
	return total, nil
}

func (r *walletRepository) ExecuteInTransaction(fn func(WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&walletRepository{db: tx})
	})
}
