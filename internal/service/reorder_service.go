package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/repository"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs

// ReorderProposal is pure data: the evaluator never creates orders itself.
// One proposal per triggered rule; an item with rules under two suppliers
// yields two independent proposals and the caller picks.
type ReorderProposal struct {
	RuleID       uuid.UUID `json:"rule_id"`
	ItemCode     string    `json:"item_code"`
	SupplierCode string    `json:"supplier_code"`
	Quantity     int       `json:"quantity"`
	CurrentStock int       `json:"current_stock"`
	ReorderPoint int       `json:"reorder_point"`
}

type CreateRuleRequest struct {
	ItemCode     string `json:"item_code" binding:"required"`
	SupplierCode string `json:"supplier_code" binding:"required"`
	ReorderPoint int    `json:"reorder_point" binding:"required,gt=0"`
	ReorderQty   int    `json:"reorder_qty" binding:"required,gt=0"`
}

type RuleResponse struct {
	ID           string `json:"id"`
	ItemCode     string `json:"item_code"`
	SupplierCode string `json:"supplier_code"`
	ReorderPoint int    `json:"reorder_point"`
	ReorderQty   int    `json:"reorder_qty"`
	Active       bool   `json:"active"`
}

// reorderLockKey guards the periodic scan so only one replica of a scaled
// deployment runs it. Duplicate orders are additionally blocked by the
// per-(rule, day) idempotency key, so losing the lock race is harmless.
const reorderLockKey = "factorymes:reorder-scan"

const reorderLockTTL = 5 * time.Minute

// ReorderService evaluates auto-reorder rules against the item ledger and
// hands proposals to the purchase-order lifecycle.
type ReorderService interface {
	// Evaluate scans the given rules (all active rules when none given) and
	// returns proposals. Read-only: same stock, same proposals.
	Evaluate(ctx context.Context, ruleIDs ...uuid.UUID) ([]ReorderProposal, error)
	// RunOnce evaluates and creates one draft order per proposal, keyed so a
	// repeated run on the same day cannot double-order.
	RunOnce(ctx context.Context) ([]OrderResponse, error)
	// Start launches the periodic scan. Returns immediately; the loop stops
	// when ctx is cancelled.
	Start(ctx context.Context)
	CreateRule(ctx context.Context, actorID string, req CreateRuleRequest) (*RuleResponse, error)
	ListRules(ctx context.Context, page, limit int) ([]RuleResponse, int64, error)
}

type reorderService struct {
	ruleRepo         repository.RuleRepository
	itemRepo         repository.ItemRepository
	supplierRepo     repository.SupplierRepository
	auditRepo        repository.AuditRepository
	ledger           LedgerService
	orders           OrderService
	txManager        repository.TransactionManager
	locker           *redislock.Client // nil when redis is not configured
	interval         time.Duration
	defaultWarehouse string
	logger           *logrus.Logger
}

func NewReorderService(
	ruleRepo repository.RuleRepository,
	itemRepo repository.ItemRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	ledger LedgerService,
	orders OrderService,
	txManager repository.TransactionManager,
	locker *redislock.Client,
	interval time.Duration,
	defaultWarehouse string,
	logger *logrus.Logger,
) ReorderService {
	return &reorderService{
		ruleRepo:         ruleRepo,
		itemRepo:         itemRepo,
		supplierRepo:     supplierRepo,
		auditRepo:        auditRepo,
		ledger:           ledger,
		orders:           orders,
		txManager:        txManager,
		locker:           locker,
		interval:         interval,
		defaultWarehouse: defaultWarehouse,
		logger:           logger,
	}
}

func (s *reorderService) Evaluate(ctx context.Context, ruleIDs ...uuid.UUID) ([]ReorderProposal, error) {
	rules, err := s.loadRules(ctx, ruleIDs)
	if err != nil {
		return nil, err
	}

	proposals := make([]ReorderProposal, 0)
	for _, rule := range rules {
		stock, err := s.ledger.CurrentStock(ctx, rule.Item.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to read stock for %s: %w", rule.Item.Code, err)
		}
		if stock >= rule.ReorderPoint {
			continue
		}
		proposals = append(proposals, ReorderProposal{
			RuleID:       rule.ID,
			ItemCode:     rule.Item.Code,
			SupplierCode: rule.Supplier.Code,
			Quantity:     rule.ReorderQty,
			CurrentStock: stock,
			ReorderPoint: rule.ReorderPoint,
		})
	}
	return proposals, nil
}

func (s *reorderService) loadRules(ctx context.Context, ruleIDs []uuid.UUID) ([]model.AutoReorderRule, error) {
	if len(ruleIDs) == 0 {
		rules, err := s.ruleRepo.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reorder rules: %w", err)
		}
		return rules, nil
	}

	rules := make([]model.AutoReorderRule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		rule, err := s.ruleRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &domain.NotFoundError{Entity: "reorder rule", Key: id.String()}
			}
			return nil, fmt.Errorf("failed to read reorder rule %s: %w", id, err)
		}
		if rule.Active {
			rules = append(rules, *rule)
		}
	}
	return rules, nil
}

func (s *reorderService) RunOnce(ctx context.Context) ([]OrderResponse, error) {
	proposals, err := s.Evaluate(ctx)
	if err != nil {
		return nil, err
	}

	day := time.Now().Format("20060102")
	created := make([]OrderResponse, 0, len(proposals))
	for _, p := range proposals {
		item, err := s.itemRepo.FindByCode(ctx, p.ItemCode)
		if err != nil {
			return created, fmt.Errorf("failed to read item %s: %w", p.ItemCode, err)
		}
		supplier, err := s.supplierRepo.FindByCode(ctx, p.SupplierCode)
		if err != nil {
			return created, fmt.Errorf("failed to read supplier %s: %w", p.SupplierCode, err)
		}

		order, err := s.orders.CreateOrder(ctx, "", CreateOrderRequest{
			SupplierCode:   p.SupplierCode,
			Lines:          []OrderLineRequest{{ItemCode: p.ItemCode, Quantity: p.Quantity, UnitPrice: item.UnitPrice}},
			DeliveryDate:   time.Now().AddDate(0, 0, supplier.LeadTimeDays),
			Warehouse:      s.defaultWarehouse,
			IdempotencyKey: fmt.Sprintf("reorder:%s:%s:%s", p.ItemCode, p.SupplierCode, day),
		})
		if err != nil {
			return created, fmt.Errorf("failed to create order for proposal %s/%s: %w", p.ItemCode, p.SupplierCode, err)
		}
		created = append(created, *order)
	}

	if len(proposals) > 0 {
		audit := auditEntry("", model.ActionReorderScan, day, "auto reorder scan", map[string]interface{}{
			"proposals": len(proposals),
			"orders":    len(created),
		})
		if err := s.auditRepo.Log(ctx, audit); err != nil {
			return created, fmt.Errorf("failed to write audit log: %w", err)
		}
	}

	return created, nil
}

func (s *reorderService) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.scan(ctx)
			}
		}
	}()
}

func (s *reorderService) scan(ctx context.Context) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, reorderLockKey, reorderLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Debug("reorder scan skipped: another replica holds the lock")
			return
		}
		if err != nil {
			// Redis down: proceed anyway, the idempotency keys keep a
			// double scan from double-ordering.
			s.logger.WithError(err).Warn("reorder scan proceeding without redis lock")
		} else {
			defer func() { _ = lock.Release(ctx) }()
		}
	}

	created, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("reorder scan failed")
		return
	}
	if len(created) > 0 {
		s.logger.WithField("orders", len(created)).Info("reorder scan issued draft orders")
	}
}

func (s *reorderService) CreateRule(ctx context.Context, actorID string, req CreateRuleRequest) (*RuleResponse, error) {
	if req.ReorderPoint <= 0 {
		return nil, &domain.ValidationError{Field: "reorder_point", Reason: "must be positive"}
	}
	if req.ReorderQty <= 0 {
		return nil, &domain.ValidationError{Field: "reorder_qty", Reason: "must be positive"}
	}

	item, err := s.itemRepo.FindByCode(ctx, req.ItemCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "item", Key: req.ItemCode}
		}
		return nil, fmt.Errorf("failed to read item %s: %w", req.ItemCode, err)
	}
	supplier, err := s.supplierRepo.FindByCode(ctx, req.SupplierCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "supplier", Key: req.SupplierCode}
		}
		return nil, fmt.Errorf("failed to read supplier %s: %w", req.SupplierCode, err)
	}

	rule := model.AutoReorderRule{
		ItemID:       item.ID,
		SupplierID:   supplier.ID,
		ReorderPoint: req.ReorderPoint,
		ReorderQty:   req.ReorderQty,
		Active:       true,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ruleRepo.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create reorder rule: %w", err)
		}
		audit := auditEntry(actorID, model.ActionCreateReorderRule, rule.ID.String(), item.Code, map[string]interface{}{
			"item":          item.Code,
			"supplier":      supplier.Code,
			"reorder_point": req.ReorderPoint,
			"reorder_qty":   req.ReorderQty,
		})
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RuleResponse{
		ID:           rule.ID.String(),
		ItemCode:     item.Code,
		SupplierCode: supplier.Code,
		ReorderPoint: rule.ReorderPoint,
		ReorderQty:   rule.ReorderQty,
		Active:       rule.Active,
	}, nil
}

func (s *reorderService) ListRules(ctx context.Context, page, limit int) ([]RuleResponse, int64, error) {
	rules, total, err := s.ruleRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reorder rules: %w", err)
	}

	res := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		res = append(res, RuleResponse{
			ID:           rule.ID.String(),
			ItemCode:     rule.Item.Code,
			SupplierCode: rule.Supplier.Code,
			ReorderPoint: rule.ReorderPoint,
			ReorderQty:   rule.ReorderQty,
			Active:       rule.Active,
		})
	}
	return res, total, nil
}
