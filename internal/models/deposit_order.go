package models

import (
	"time"
)

// Deposit order statuses
const (
	DepositStatusPending   = "pending"
	DepositStatusPaid      = "paid"
	DepositStatusConfirmed = "confirmed"
	DepositStatusExpired   = "expired"
	DepositStatusCancelled = "cancelled"
)

// DepositOrder stages an external payment awaiting confirmation. Only the
// confirmed transition credits the wallet; expiry and cancellation have no
// balance effect.
type DepositOrder struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	OrderNo     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	WalletID    uint       `gorm:"index" json:"wallet_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	BonusAmount int64      `gorm:"not null;default:0" json:"bonus_amount"`
	Fee         int64      `gorm:"not null;default:0" json:"fee"`
	NetAmount   int64      `gorm:"not null" json:"net_amount"`
	Method      string     `gorm:"type:varchar(32)" json:"method"`
	Channel     string     `gorm:"type:varchar(32)" json:"channel,omitempty"`
	ExternalRef string     `gorm:"type:varchar(128);index" json:"external_ref,omitempty"`
	Status      string     `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
