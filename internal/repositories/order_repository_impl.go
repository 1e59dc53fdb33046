package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurum/internal/models"

	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateDepositOrder(ctx context.Context, order *models.DepositOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to create deposit order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetDepositOrder(ctx context.Context, orderNo string) (*models.DepositOrder, error) {
	var order models.DepositOrder
	if err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get deposit order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) ListDepositOrders(ctx context.Context, userID uint, status string, limit, offset int) ([]models.DepositOrder, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.DepositOrder{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count deposit orders: %w", err)
	}

	var orders []models.DepositOrder
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list deposit orders: %w", err)
	}
	return orders, total, nil
}

func (r *orderRepository) TransitionDeposit(ctx context.Context, orderNo string, from []string, to string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&models.DepositOrder{}).
		Where("order_no = ? AND status IN ?", orderNo, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to transition deposit order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *orderRepository) ListDueDeposits(ctx context.Context, cutoff time.Time, limit int) ([]models.DepositOrder, error) {
	var orders []models.DepositOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.DepositStatusPending, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due deposit orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) CreateWithdrawOrder(ctx context.Context, order *models.WithdrawOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to create withdraw order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetWithdrawOrder(ctx context.Context, orderNo string) (*models.WithdrawOrder, error) {
	var order models.WithdrawOrder
	if err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get withdraw order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) ListWithdrawOrders(ctx context.Context, userID uint, status string, limit, offset int) ([]models.WithdrawOrder, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WithdrawOrder{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count withdraw orders: %w", err)
	}

	var orders []models.WithdrawOrder
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list withdraw orders: %w", err)
	}
	return orders, total, nil
}

func (r *orderRepository) TransitionWithdraw(ctx context.Context, orderNo string, from []string, to string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&models.WithdrawOrder{}).
		Where("order_no = ? AND status IN ?", orderNo, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to transition withdraw order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}
