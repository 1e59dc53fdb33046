package models

import (
	"time"
)

// Withdraw order statuses
const (
	WithdrawStatusPending    = "pending"
	WithdrawStatusApproved   = "approved"
	WithdrawStatusProcessing = "processing"
	WithdrawStatusCompleted  = "completed"
	WithdrawStatusRejected   = "rejected"
	WithdrawStatusCancelled  = "cancelled"
)

// WithdrawOrder is a payout request. Creating one reserves Amount from the
// wallet's spendable balance into its frozen pool; each resolving transition
// (completed, rejected, cancelled) settles or returns that reservation
// exactly once.
type WithdrawOrder struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	WalletID    uint      `gorm:"index" json:"wallet_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Fee         int64     `gorm:"not null;default:0" json:"fee"`
	NetAmount   int64     `gorm:"not null" json:"net_amount"`
	Destination string    `gorm:"type:varchar(128);not null" json:"destination"`
	Method      string    `gorm:"type:varchar(32)" json:"method"`
	Status      string    `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	ReviewerID  *uint     `json:"reviewer_id,omitempty"`
	ExternalRef string    `gorm:"type:varchar(128)" json:"external_ref,omitempty"`
	Reason      string    `gorm:"type:varchar(255)" json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resolved reports whether the order has reached a terminal state.
func (o *WithdrawOrder) Resolved() bool {
	switch o.Status {
	case WithdrawStatusCompleted, WithdrawStatusRejected, WithdrawStatusCancelled:
		return true
	}
	return false
}
