package models

import (
	"time"
)

// Ledger entry types
const (
	EntryTypeDeposit  = "deposit"
	EntryTypeConsume  = "consume"
	EntryTypeRefund   = "refund"
	EntryTypeWithdraw = "withdraw"
	EntryTypeAdjust   = "adjust"
)

// Ledger entry statuses
const (
	EntryStatusPending  = "pending"
	EntryStatusSuccess  = "success"
	EntryStatusFailed   = "failed"
	EntryStatusRefunded = "refunded"
)

// LedgerEntry is the immutable record of one balance-affecting event.
// Amount is the main-pool delta and BonusAmount the bonus-pool delta, both
// signed, so that BalanceAfter = BalanceBefore + Amount + BonusAmount.
// The unique index on OrderID is what makes retried operations idempotent.
// The only permitted mutation after creation is Status -> refunded, set when
// a compensating refund entry is recorded.
type LedgerEntry struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	WalletID      uint      `gorm:"index;not null" json:"wallet_id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	OrderID       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_id"`
	Type          string    `gorm:"type:varchar(16);index;not null" json:"type"`
	Amount        int64     `gorm:"not null" json:"amount"`
	BonusAmount   int64     `gorm:"not null;default:0" json:"bonus_amount"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Category      string    `gorm:"type:varchar(32);index" json:"category,omitempty"`
	Status        string    `gorm:"type:varchar(16);not null;default:'success'" json:"status"`
	Description   string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	ReferenceID   string    `gorm:"type:varchar(64)" json:"reference_id,omitempty"`
	ReferenceType string    `gorm:"type:varchar(32)" json:"reference_type,omitempty"`
	Metadata      JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Total returns the signed change to the wallet's spendable funds.
func (e *LedgerEntry) Total() int64 {
	return e.Amount + e.BonusAmount
}
