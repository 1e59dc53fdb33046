package models

import (
	"time"
)

// Wallet statuses
const (
	WalletStatusActive = "active"
	WalletStatusFrozen = "frozen"
	WalletStatusClosed = "closed"
)

// Wallet holds a single user's funds in integer minor units (cents).
// Balance, BonusBalance and FrozenBalance are mutated only by the ledger
// service through version-checked conditional updates; Version increases by
// one on every successful write.
type Wallet struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	BonusBalance   int64     `gorm:"not null;default:0" json:"bonus_balance"`
	FrozenBalance  int64     `gorm:"not null;default:0" json:"frozen_balance"`
	TotalDeposited int64     `gorm:"not null;default:0" json:"total_deposited"`
	TotalConsumed  int64     `gorm:"not null;default:0" json:"total_consumed"`
	TotalWithdrawn int64     `gorm:"not null;default:0" json:"total_withdrawn"`
	Status         string    `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	StatusReason   string    `gorm:"type:varchar(255);default:''" json:"status_reason,omitempty"`
	Version        uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Available returns the spendable funds (main plus bonus pool).
func (w *Wallet) Available() int64 {
	return w.Balance + w.BonusBalance
}
