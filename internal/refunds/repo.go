package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/settlement-engine/pkg/db"
	"github.com/angelmondragon/settlement-engine/pkg/db/models"
	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

// RefundRepository persists gateway refunds.
type RefundRepository interface {
	WithTx(tx *gorm.DB) RefundRepository
	Create(ctx context.Context, refund *models.Refund) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error)
	FindByStripeID(ctx context.Context, stripeRefundID string) (*models.Refund, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RefundRecordStatus) error
}

// DisputeRepository persists chargeback disputes.
type DisputeRepository interface {
	WithTx(tx *gorm.DB) DisputeRepository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByStripeID(ctx context.Context, stripeDisputeID string) (*models.Dispute, error)
	LockByStripeID(ctx context.Context, stripeDisputeID string) (*models.Dispute, error)
	FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type refundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(conn *gorm.DB) RefundRepository {
	return &refundRepository{db: conn}
}

func (r *refundRepository) WithTx(tx *gorm.DB) RefundRepository {
	if tx == nil {
		return r
	}
	return &refundRepository{db: tx}
}

func (r *refundRepository) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *refundRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Refund, error) {
	var rows []models.Refund
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *refundRepository) FindByStripeID(ctx context.Context, stripeRefundID string) (*models.Refund, error) {
	var row models.Refund
	if err := r.db.WithContext(ctx).Where("stripe_refund_id = ?", stripeRefundID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *refundRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RefundRecordStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ?", id).
		Update("status", status).Error
}

type disputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(conn *gorm.DB) DisputeRepository {
	return &disputeRepository{db: conn}
}

func (r *disputeRepository) WithTx(tx *gorm.DB) DisputeRepository {
	if tx == nil {
		return r
	}
	return &disputeRepository{db: tx}
}

func (r *disputeRepository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *disputeRepository) FindByStripeID(ctx context.Context, stripeDisputeID string) (*models.Dispute, error) {
	var row models.Dispute
	if err := r.db.WithContext(ctx).Where("stripe_dispute_id = ?", stripeDisputeID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *disputeRepository) LockByStripeID(ctx context.Context, stripeDisputeID string) (*models.Dispute, error) {
	var row models.Dispute
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("stripe_dispute_id = ?", stripeDisputeID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *disputeRepository) FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var row models.Dispute
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *disputeRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Dispute{}).Where("id = ?", id).Updates(updates).Error
}
