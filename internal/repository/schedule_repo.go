package repository

import (
	"context"

	"factorymes/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, entry *model.ReceivingScheduleEntry) error
	Save(ctx context.Context, entry *model.ReceivingScheduleEntry) error
	FindPendingForLine(ctx context.Context, lineID uuid.UUID) (*model.ReceivingScheduleEntry, error)
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]model.ReceivingScheduleEntry, error)
	// CancelPendingForOrder releases outstanding entries when an order is
	// cancelled. Marked cancelled, never deleted.
	CancelPendingForOrder(ctx context.Context, orderID uuid.UUID) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, entry *model.ReceivingScheduleEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *scheduleRepository) Save(ctx context.Context, entry *model.ReceivingScheduleEntry) error {
	return GetDB(ctx, r.db).Save(entry).Error
}

func (r *scheduleRepository) FindPendingForLine(ctx context.Context, lineID uuid.UUID) (*model.ReceivingScheduleEntry, error) {
	var entry model.ReceivingScheduleEntry
	if err := GetDB(ctx, r.db).
		Where("order_line_id = ? AND status = ?", lineID, model.ScheduleStatusPending).
		Order("expected_date asc").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleRepository) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]model.ReceivingScheduleEntry, error) {
	var entries []model.ReceivingScheduleEntry
	if err := GetDB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *scheduleRepository) CancelPendingForOrder(ctx context.Context, orderID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.ReceivingScheduleEntry{}).
		Where("order_id = ? AND status = ?", orderID, model.ScheduleStatusPending).
		Update("status", model.ScheduleStatusCancelled).Error
}
