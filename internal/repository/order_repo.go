package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"factorymes/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.PurchaseOrder) error
	Save(ctx context.Context, order *model.PurchaseOrder) error
	FindByNo(ctx context.Context, orderNo string) (*model.PurchaseOrder, error)
	// FindByNoForUpdate locks the order row so status and line totals cannot
	// interleave. Must run inside a transaction.
	FindByNoForUpdate(ctx context.Context, orderNo string) (*model.PurchaseOrder, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.PurchaseOrder, error)
	UpdateLineReceived(ctx context.Context, lineID uuid.UUID, receivedQty int) error
	List(ctx context.Context, page, limit int, status string) ([]model.PurchaseOrder, int64, error)
	// NextOrderNumber allocates the next PO-<YYYYMMDD>-<seq> for the given
	// date. Callers keep the unique index as the backstop and retry on
	// gorm.ErrDuplicatedKey.
	NextOrderNumber(ctx context.Context, date time.Time) (string, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) Save(ctx context.Context, order *model.PurchaseOrder) error {
	// Lines are managed explicitly; never upsert them as a side effect.
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) FindByNo(ctx context.Context, orderNo string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no asc") }).
		Preload("Lines.Item").
		Preload("Supplier").
		Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByNoForUpdate(ctx context.Context, orderNo string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := forUpdate(GetDB(ctx, r.db)).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no asc") }).
		Preload("Lines.Item").
		Preload("Supplier").
		Where("order_no = ?", orderNo).
		First(&order).Error; err != nil {
		return nil, translateLockError(err)
	}
	return &order, nil
}

func (r *orderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.PurchaseOrder, error) {
	var order model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no asc") }).
		Preload("Lines.Item").
		Preload("Supplier").
		Where("idempotency_key = ?", key).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateLineReceived(ctx context.Context, lineID uuid.UUID, receivedQty int) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrderLine{}).
		Where("id = ?", lineID).
		Update("received_qty", receivedQty).Error
}

func (r *orderRepository) List(ctx context.Context, page, limit int, status string) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseOrder{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no asc") }).
		Preload("Lines.Item").
		Preload("Supplier").
		Order("order_no desc").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) NextOrderNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := "PO-" + date.Format("20060102") + "-"

	var last string
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("order_no LIKE ?", prefix+"%").
		Select("COALESCE(MAX(order_no), '')").
		Scan(&last).Error
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if convErr != nil {
			return "", fmt.Errorf("malformed order number %q: %w", last, convErr)
		}
		seq = n + 1
	}

	return fmt.Sprintf("%s%03d", prefix, seq), nil
}
