package service

import (
	"context"
	"errors"
	"fmt"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/repository"

	"gorm.io/gorm"
)

// DTOs

type CreateSupplierRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email" binding:"omitempty,email"`
	Address      string `json:"address"`
	PaymentTerms string `json:"payment_terms"`
	LeadTimeDays int    `json:"lead_time_days" binding:"min=0"`
}

type SupplierResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	PaymentTerms string `json:"payment_terms"`
	LeadTimeDays int    `json:"lead_time_days"`
	Rating       string `json:"rating"`
}

type SupplierService interface {
	CreateSupplier(ctx context.Context, actorID string, req CreateSupplierRequest) (*SupplierResponse, error)
	GetSupplier(ctx context.Context, code string) (*SupplierResponse, error)
	ListSuppliers(ctx context.Context, page, limit int) ([]SupplierResponse, int64, error)
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewSupplierService(
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) SupplierService {
	return &supplierService{supplierRepo: supplierRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *supplierService) CreateSupplier(ctx context.Context, actorID string, req CreateSupplierRequest) (*SupplierResponse, error) {
	supplier := model.Supplier{
		Code:         req.Code,
		Name:         req.Name,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Email:        req.Email,
		Address:      req.Address,
		PaymentTerms: req.PaymentTerms,
		LeadTimeDays: req.LeadTimeDays,
	}
	if supplier.LeadTimeDays == 0 {
		supplier.LeadTimeDays = 7
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.Create(txCtx, &supplier); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ValidationError{Field: "code", Reason: "already exists"}
			}
			return fmt.Errorf("failed to create supplier: %w", err)
		}
		audit := auditEntry(actorID, model.ActionCreateSupplier, supplier.Code, supplier.Name, req)
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toSupplierResponse(supplier)
	return &resp, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, code string) (*SupplierResponse, error) {
	supplier, err := s.supplierRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "supplier", Key: code}
		}
		return nil, fmt.Errorf("failed to read supplier %s: %w", code, err)
	}
	resp := toSupplierResponse(*supplier)
	return &resp, nil
}

func (s *supplierService) ListSuppliers(ctx context.Context, page, limit int) ([]SupplierResponse, int64, error) {
	suppliers, total, err := s.supplierRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}

	res := make([]SupplierResponse, 0, len(suppliers))
	for _, supplier := range suppliers {
		res = append(res, toSupplierResponse(supplier))
	}
	return res, total, nil
}

func toSupplierResponse(supplier model.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:           supplier.ID.String(),
		Code:         supplier.Code,
		Name:         supplier.Name,
		ContactName:  supplier.ContactName,
		Phone:        supplier.Phone,
		Email:        supplier.Email,
		Address:      supplier.Address,
		PaymentTerms: supplier.PaymentTerms,
		LeadTimeDays: supplier.LeadTimeDays,
		Rating:       supplier.Rating.String(),
	}
}
