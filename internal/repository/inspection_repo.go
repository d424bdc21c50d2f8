package repository

import (
	"context"

	"factorymes/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InspectionRepository interface {
	Create(ctx context.Context, rec *model.ReceivingInspectionRecord) error
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]model.ReceivingInspectionRecord, error)
	// SumAcceptedForOrder supports the cancel-from-receiving guard: an order
	// with any accepted quantity on record must complete, not cancel.
	SumAcceptedForOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

type inspectionRepository struct {
	db *gorm.DB
}

func NewInspectionRepository(db *gorm.DB) InspectionRepository {
	return &inspectionRepository{db: db}
}

func (r *inspectionRepository) Create(ctx context.Context, rec *model.ReceivingInspectionRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *inspectionRepository) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]model.ReceivingInspectionRecord, error) {
	var records []model.ReceivingInspectionRecord
	if err := GetDB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *inspectionRepository) SumAcceptedForOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.ReceivingInspectionRecord{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(accepted_qty), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}
