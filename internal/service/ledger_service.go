package service

import (
	"context"
	"errors"
	"fmt"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/repository"
	ws "factorymes/internal/websocket"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs

// MovementOrigin links a ledger movement back to the purchase-order line whose
// receipt produced it.
type MovementOrigin struct {
	OrderID uuid.UUID `json:"order_id"`
	OrderNo string    `json:"order_no"`
	LineNo  int       `json:"line_no"`
}

// PostMovementRequest carries one signed stock delta. Quantity must be
// positive for "in", negative for "out" and any non-zero value for "adjust".
type PostMovementRequest struct {
	ItemCode  string `json:"item_code" binding:"required"`
	Kind      string `json:"kind" binding:"required,oneof=in out adjust"`
	Quantity  int    `json:"quantity" binding:"required"`
	Warehouse string `json:"warehouse" binding:"required"`
	Remark    string `json:"remark"`
	// Reason is mandatory for adjust movements; it lands in stock_adjustments.
	Reason string `json:"reason"`
	// AllowNegative lets an authorized caller drive stock below zero.
	AllowNegative bool            `json:"allow_negative"`
	Origin        *MovementOrigin `json:"origin,omitempty"`
}

type MovementResponse struct {
	ID         int64  `json:"id"`
	ItemCode   string `json:"item_code"`
	Kind       string `json:"kind"`
	Quantity   int    `json:"quantity"`
	Warehouse  string `json:"warehouse"`
	StockAfter int    `json:"stock_after"`
	RefOrderNo string `json:"ref_order_no,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type ReconcileResult struct {
	ItemCode  string `json:"item_code"`
	Cached    int    `json:"cached"`
	Computed  int    `json:"computed"`
	Corrected bool   `json:"corrected"`
}

// LedgerService is the exclusive owner of item_master.current_stock. Every
// stock change in the system goes through PostMovement; the cached quantity is
// a derived projection of the append-only movement history.
type LedgerService interface {
	PostMovement(ctx context.Context, actorID string, req PostMovementRequest) (*MovementResponse, error)
	// CurrentStock is a point-in-time read; the value may be stale the moment
	// it returns.
	CurrentStock(ctx context.Context, itemCode string) (int, error)
	// Reconcile recomputes current_stock from the full movement history and
	// corrects drift. Not for the hot path.
	Reconcile(ctx context.Context, actorID string, itemCode string) (*ReconcileResult, error)
	ListMovements(ctx context.Context, itemCode string, page, limit int) ([]MovementResponse, int64, error)
}

type ledgerService struct {
	itemRepo     repository.ItemRepository
	movementRepo repository.MovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
	logger       *logrus.Logger
}

func NewLedgerService(
	itemRepo repository.ItemRepository,
	movementRepo repository.MovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	logger *logrus.Logger,
) LedgerService {
	return &ledgerService{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
		logger:       logger,
	}
}

func validateMovement(req PostMovementRequest) error {
	if req.Quantity == 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must not be zero"}
	}
	switch req.Kind {
	case model.MovementIn:
		if req.Quantity < 0 {
			return &domain.ValidationError{Field: "quantity", Reason: "must be positive for an in movement"}
		}
	case model.MovementOut:
		if req.Quantity > 0 {
			return &domain.ValidationError{Field: "quantity", Reason: "must be negative for an out movement"}
		}
	case model.MovementAdjust:
		if req.Reason == "" {
			return &domain.ValidationError{Field: "reason", Reason: "required for an adjust movement"}
		}
	default:
		return &domain.ValidationError{Field: "kind", Reason: "must be one of in, out, adjust"}
	}
	if req.Warehouse == "" {
		return &domain.ValidationError{Field: "warehouse", Reason: "required"}
	}
	return nil
}

func (s *ledgerService) PostMovement(ctx context.Context, actorID string, req PostMovementRequest) (*MovementResponse, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	// When joining an ambient transaction (a receipt posting through the
	// reconciler) the outer operation owns the commit and its events.
	joined := repository.InTransaction(ctx)

	var movement model.StockMovement
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.itemRepo.FindByCodeForUpdate(txCtx, req.ItemCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "item", Key: req.ItemCode}
			}
			return fmt.Errorf("failed to lock item %s: %w", req.ItemCode, err)
		}

		newStock := item.CurrentStock + req.Quantity
		if newStock < 0 && !req.AllowNegative {
			return &domain.InsufficientStockError{
				ItemCode:  item.Code,
				Available: item.CurrentStock,
				Requested: req.Quantity,
			}
		}

		movement = model.StockMovement{
			ItemID:     item.ID,
			Kind:       req.Kind,
			Quantity:   req.Quantity,
			Warehouse:  req.Warehouse,
			StockAfter: newStock,
			Remark:     req.Remark,
		}
		if req.Origin != nil {
			movement.RefOrderID = &req.Origin.OrderID
			movement.RefOrderNo = req.Origin.OrderNo
			movement.RefLineNo = req.Origin.LineNo
		}
		if err := s.movementRepo.Create(txCtx, &movement); err != nil {
			return fmt.Errorf("failed to create stock movement: %w", err)
		}

		if err := s.itemRepo.UpdateStock(txCtx, item.ID, newStock); err != nil {
			return fmt.Errorf("failed to update cached stock: %w", err)
		}

		if req.Kind == model.MovementAdjust {
			adj := model.StockAdjustment{
				MovementID: movement.ID,
				ItemID:     item.ID,
				Quantity:   req.Quantity,
				Reason:     req.Reason,
				AdjustedBy: actorID,
			}
			if err := s.movementRepo.CreateAdjustment(txCtx, &adj); err != nil {
				return fmt.Errorf("failed to create stock adjustment: %w", err)
			}
		}

		action := model.ActionPostMovement
		if req.Kind == model.MovementAdjust {
			action = model.ActionAdjustStock
		}
		audit := auditEntry(actorID, action, item.Code, item.Name, map[string]interface{}{
			"kind":        req.Kind,
			"quantity":    req.Quantity,
			"warehouse":   req.Warehouse,
			"stock_after": newStock,
		})
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !joined {
		s.logger.WithFields(logrus.Fields{
			"item":        req.ItemCode,
			"kind":        req.Kind,
			"quantity":    req.Quantity,
			"stock_after": movement.StockAfter,
		}).Info("stock movement posted")

		broadcast(s.hub, "stock.movement", map[string]interface{}{
			"item_code":   req.ItemCode,
			"kind":        req.Kind,
			"quantity":    req.Quantity,
			"stock_after": movement.StockAfter,
		})
	}

	resp := toMovementResponse(movement, req.ItemCode)
	return &resp, nil
}

func (s *ledgerService) CurrentStock(ctx context.Context, itemCode string) (int, error) {
	item, err := s.itemRepo.FindByCode(ctx, itemCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &domain.NotFoundError{Entity: "item", Key: itemCode}
		}
		return 0, fmt.Errorf("failed to read item %s: %w", itemCode, err)
	}
	return item.CurrentStock, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, actorID string, itemCode string) (*ReconcileResult, error) {
	var result ReconcileResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, err := s.itemRepo.FindByCodeForUpdate(txCtx, itemCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "item", Key: itemCode}
			}
			return fmt.Errorf("failed to lock item %s: %w", itemCode, err)
		}

		computed, err := s.movementRepo.SumForItem(txCtx, item.ID)
		if err != nil {
			return fmt.Errorf("failed to fold movement history: %w", err)
		}

		result = ReconcileResult{
			ItemCode:  item.Code,
			Cached:    item.CurrentStock,
			Computed:  computed,
			Corrected: computed != item.CurrentStock,
		}
		if !result.Corrected {
			return nil
		}

		if err := s.itemRepo.UpdateStock(txCtx, item.ID, computed); err != nil {
			return fmt.Errorf("failed to correct cached stock: %w", err)
		}

		audit := auditEntry(actorID, model.ActionReconcileStock, item.Code, item.Name, map[string]interface{}{
			"cached":   result.Cached,
			"computed": computed,
		})
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Corrected {
		s.logger.WithFields(logrus.Fields{
			"item":     result.ItemCode,
			"cached":   result.Cached,
			"computed": result.Computed,
		}).Warn("stock drift corrected")
	}

	return &result, nil
}

func (s *ledgerService) ListMovements(ctx context.Context, itemCode string, page, limit int) ([]MovementResponse, int64, error) {
	item, err := s.itemRepo.FindByCode(ctx, itemCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, &domain.NotFoundError{Entity: "item", Key: itemCode}
		}
		return nil, 0, fmt.Errorf("failed to read item %s: %w", itemCode, err)
	}

	movements, total, err := s.movementRepo.ListForItem(ctx, item.ID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list movements: %w", err)
	}

	res := make([]MovementResponse, 0, len(movements))
	for _, mv := range movements {
		res = append(res, toMovementResponse(mv, itemCode))
	}
	return res, total, nil
}

func toMovementResponse(mv model.StockMovement, itemCode string) MovementResponse {
	return MovementResponse{
		ID:         mv.ID,
		ItemCode:   itemCode,
		Kind:       mv.Kind,
		Quantity:   mv.Quantity,
		Warehouse:  mv.Warehouse,
		StockAfter: mv.StockAfter,
		RefOrderNo: mv.RefOrderNo,
		CreatedAt:  mv.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
