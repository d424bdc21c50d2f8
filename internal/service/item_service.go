package service

import (
	"context"
	"errors"
	"fmt"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs

type CreateItemRequest struct {
	Code        string          `json:"code" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit" binding:"required"`
	SafetyStock int             `json:"safety_stock" binding:"min=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// UpdateItemRequest deliberately has no stock field: current_stock belongs to
// the ledger and is only ever written through movements.
type UpdateItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category"`
	Unit        string          `json:"unit" binding:"required"`
	SafetyStock int             `json:"safety_stock" binding:"min=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

type ItemResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Unit         string `json:"unit"`
	SafetyStock  int    `json:"safety_stock"`
	CurrentStock int    `json:"current_stock"`
	UnitPrice    string `json:"unit_price"`
}

type ItemService interface {
	CreateItem(ctx context.Context, actorID string, req CreateItemRequest) (*ItemResponse, error)
	UpdateItem(ctx context.Context, actorID string, code string, req UpdateItemRequest) (*ItemResponse, error)
	GetItem(ctx context.Context, code string) (*ItemResponse, error)
	ListItems(ctx context.Context, page, limit int, search string) ([]ItemResponse, int64, error)
}

type itemService struct {
	itemRepo  repository.ItemRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewItemService(
	itemRepo repository.ItemRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ItemService {
	return &itemService{itemRepo: itemRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *itemService) CreateItem(ctx context.Context, actorID string, req CreateItemRequest) (*ItemResponse, error) {
	if req.UnitPrice.IsNegative() {
		return nil, &domain.ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}

	item := model.Item{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Unit:        req.Unit,
		SafetyStock: req.SafetyStock,
		UnitPrice:   req.UnitPrice,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.itemRepo.Create(txCtx, &item); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ValidationError{Field: "code", Reason: "already exists"}
			}
			return fmt.Errorf("failed to create item: %w", err)
		}
		audit := auditEntry(actorID, model.ActionCreateItem, item.Code, item.Name, req)
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toItemResponse(item)
	return &resp, nil
}

func (s *itemService) UpdateItem(ctx context.Context, actorID string, code string, req UpdateItemRequest) (*ItemResponse, error) {
	if req.UnitPrice.IsNegative() {
		return nil, &domain.ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}

	var item *model.Item
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		item, err = s.itemRepo.FindByCode(txCtx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "item", Key: code}
			}
			return fmt.Errorf("failed to read item %s: %w", code, err)
		}

		item.Name = req.Name
		item.Category = req.Category
		item.Unit = req.Unit
		item.SafetyStock = req.SafetyStock
		item.UnitPrice = req.UnitPrice
		if err := s.itemRepo.Update(txCtx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		audit := auditEntry(actorID, model.ActionUpdateItem, item.Code, item.Name, req)
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toItemResponse(*item)
	return &resp, nil
}

func (s *itemService) GetItem(ctx context.Context, code string) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "item", Key: code}
		}
		return nil, fmt.Errorf("failed to read item %s: %w", code, err)
	}
	resp := toItemResponse(*item)
	return &resp, nil
}

func (s *itemService) ListItems(ctx context.Context, page, limit int, search string) ([]ItemResponse, int64, error) {
	items, total, err := s.itemRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	res := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toItemResponse(item))
	}
	return res, total, nil
}

func toItemResponse(item model.Item) ItemResponse {
	return ItemResponse{
		ID:           item.ID.String(),
		Code:         item.Code,
		Name:         item.Name,
		Category:     item.Category,
		Unit:         item.Unit,
		SafetyStock:  item.SafetyStock,
		CurrentStock: item.CurrentStock,
		UnitPrice:    item.UnitPrice.String(),
	}
}
