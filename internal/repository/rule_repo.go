package repository

import (
	"context"

	"factorymes/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *model.AutoReorderRule) error
	Save(ctx context.Context, rule *model.AutoReorderRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AutoReorderRule, error)
	ListActive(ctx context.Context) ([]model.AutoReorderRule, error)
	List(ctx context.Context, page, limit int) ([]model.AutoReorderRule, int64, error)
}

type ruleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.AutoReorderRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *ruleRepository) Save(ctx context.Context, rule *model.AutoReorderRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *ruleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AutoReorderRule, error) {
	var rule model.AutoReorderRule
	if err := GetDB(ctx, r.db).Preload("Item").Preload("Supplier").First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) ListActive(ctx context.Context) ([]model.AutoReorderRule, error) {
	var rules []model.AutoReorderRule
	if err := GetDB(ctx, r.db).
		Preload("Item").
		Preload("Supplier").
		Where("active = ?", true).
		Order("created_at asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) List(ctx context.Context, page, limit int) ([]model.AutoReorderRule, int64, error) {
	var rules []model.AutoReorderRule
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AutoReorderRule{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Item").Preload("Supplier").
		Order("created_at asc").
		Offset(offset).Limit(limit).
		Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}
