package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/repository"
	ws "factorymes/internal/websocket"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs

type OrderLineRequest struct {
	ItemCode  string          `json:"item_code" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

type CreateOrderRequest struct {
	SupplierCode string             `json:"supplier_code" binding:"required"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	DeliveryDate time.Time          `json:"delivery_date" binding:"required"`
	Warehouse    string             `json:"warehouse" binding:"required"`
	// IdempotencyKey dedupes creation: replaying the same key returns the
	// order created the first time instead of issuing a second one.
	IdempotencyKey string `json:"idempotency_key"`
}

type OrderLineResponse struct {
	LineNo      int    `json:"line_no"`
	ItemCode    string `json:"item_code"`
	ItemName    string `json:"item_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
	ReceivedQty int    `json:"received_qty"`
}

type OrderResponse struct {
	OrderNo      string              `json:"order_no"`
	OrderDate    string              `json:"order_date"`
	SupplierCode string              `json:"supplier_code"`
	SupplierName string              `json:"supplier_name"`
	DeliveryDate string              `json:"delivery_date"`
	Warehouse    string              `json:"warehouse"`
	TotalAmount  string              `json:"total_amount"`
	Status       string              `json:"status"`
	ApprovedBy   string              `json:"approved_by,omitempty"`
	ApprovedAt   string              `json:"approved_at,omitempty"`
	Lines        []OrderLineResponse `json:"lines"`
	CreatedAt    string              `json:"created_at"`
}

type ScheduleEntryResponse struct {
	ID           string `json:"id"`
	OrderNo      string `json:"order_no"`
	LineNo       int    `json:"line_no"`
	ExpectedDate string `json:"expected_date"`
	ExpectedQty  int    `json:"expected_qty"`
	ReceivedQty  int    `json:"received_qty"`
	Status       string `json:"status"`
}

// OrderService owns the purchase-order state machine and aggregate totals.
type OrderService interface {
	CreateOrder(ctx context.Context, actorID string, req CreateOrderRequest) (*OrderResponse, error)
	// Transition applies one lifecycle event. Edges not in the transition
	// table fail with InvalidTransitionError and leave no side effects.
	Transition(ctx context.Context, actorID string, orderNo, event string) (*OrderResponse, error)
	GetOrder(ctx context.Context, orderNo string) (*OrderResponse, error)
	ListOrders(ctx context.Context, page, limit int, status string) ([]OrderResponse, int64, error)
	ListSchedule(ctx context.Context, orderNo string) ([]ScheduleEntryResponse, error)
}

type orderService struct {
	orderRepo      repository.OrderRepository
	itemRepo       repository.ItemRepository
	supplierRepo   repository.SupplierRepository
	scheduleRepo   repository.ScheduleRepository
	inspectionRepo repository.InspectionRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	hub            *ws.Hub
	logger         *logrus.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	itemRepo repository.ItemRepository,
	supplierRepo repository.SupplierRepository,
	scheduleRepo repository.ScheduleRepository,
	inspectionRepo repository.InspectionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	logger *logrus.Logger,
) OrderService {
	return &orderService{
		orderRepo:      orderRepo,
		itemRepo:       itemRepo,
		supplierRepo:   supplierRepo,
		scheduleRepo:   scheduleRepo,
		inspectionRepo: inspectionRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		hub:            hub,
		logger:         logger,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actorID string, req CreateOrderRequest) (*OrderResponse, error) {
	if len(req.Lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("lines[%d].quantity", i),
				Reason: "must be positive",
			}
		}
		if line.UnitPrice.IsNegative() {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("lines[%d].unit_price", i),
				Reason: "must not be negative",
			}
		}
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			resp := toOrderResponse(*existing)
			return &resp, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	supplier, err := s.supplierRepo.FindByCode(ctx, req.SupplierCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "supplier", Key: req.SupplierCode}
		}
		return nil, fmt.Errorf("failed to read supplier %s: %w", req.SupplierCode, err)
	}

	// The unique indexes on order_no and idempotency_key are the backstop
	// against concurrent creators; retry when the allocated number loses.
	var order model.PurchaseOrder
	for attempt := 0; ; attempt++ {
		order = model.PurchaseOrder{}
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			return s.buildOrder(txCtx, actorID, supplier, req, &order)
		})
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if req.IdempotencyKey != "" {
				if existing, lookupErr := s.orderRepo.FindByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil {
					resp := toOrderResponse(*existing)
					return &resp, nil
				}
			}
			if attempt < 3 {
				continue
			}
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order":    order.OrderNo,
		"supplier": supplier.Code,
		"total":    order.TotalAmount.String(),
	}).Info("purchase order created")

	created, err := s.orderRepo.FindByNo(ctx, order.OrderNo)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order %s: %w", order.OrderNo, err)
	}
	resp := toOrderResponse(*created)
	return &resp, nil
}

func (s *orderService) buildOrder(txCtx context.Context, actorID string, supplier *model.Supplier, req CreateOrderRequest, order *model.PurchaseOrder) error {
	now := time.Now()
	orderNo, err := s.orderRepo.NextOrderNumber(txCtx, now)
	if err != nil {
		return fmt.Errorf("failed to allocate order number: %w", err)
	}

	total := decimal.Zero
	lines := make([]model.PurchaseOrderLine, 0, len(req.Lines))
	for i, lineReq := range req.Lines {
		item, err := s.itemRepo.FindByCode(txCtx, lineReq.ItemCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "item", Key: lineReq.ItemCode}
			}
			return fmt.Errorf("failed to read item %s: %w", lineReq.ItemCode, err)
		}

		amount := lineReq.UnitPrice.Mul(decimal.NewFromInt(int64(lineReq.Quantity)))
		total = total.Add(amount)
		lines = append(lines, model.PurchaseOrderLine{
			LineNo:    i + 1,
			ItemID:    item.ID,
			Quantity:  lineReq.Quantity,
			UnitPrice: lineReq.UnitPrice,
			Amount:    amount,
		})
	}

	*order = model.PurchaseOrder{
		OrderNo:      orderNo,
		OrderDate:    now,
		SupplierID:   supplier.ID,
		DeliveryDate: req.DeliveryDate,
		Warehouse:    req.Warehouse,
		TotalAmount:  total,
		Status:       model.OrderStatusDraft,
		Lines:        lines,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}

	if err := s.orderRepo.Create(txCtx, order); err != nil {
		return err
	}

	audit := auditEntry(actorID, model.ActionCreateOrder, order.OrderNo, supplier.Name, map[string]interface{}{
		"supplier": supplier.Code,
		"lines":    len(lines),
		"total":    total.String(),
	})
	if err := s.auditRepo.Log(txCtx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *orderService) Transition(ctx context.Context, actorID string, orderNo, event string) (*OrderResponse, error) {
	switch event {
	case model.EventSubmit, model.EventApprove, model.EventBeginReceiving, model.EventClose, model.EventCancel:
	default:
		return nil, &domain.ValidationError{Field: "event", Reason: "unknown lifecycle event"}
	}

	var result *model.PurchaseOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByNoForUpdate(txCtx, orderNo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "purchase order", Key: orderNo}
			}
			return fmt.Errorf("failed to lock order %s: %w", orderNo, err)
		}

		next, ok := model.NextStatus(order.Status, event)
		if !ok {
			return &domain.InvalidTransitionError{OrderNo: orderNo, From: order.Status, Event: event}
		}

		if err := s.applyGuards(txCtx, order, event); err != nil {
			return err
		}

		from := order.Status
		order.Status = next

		switch event {
		case model.EventApprove:
			now := time.Now()
			order.ApprovedBy = actorID
			order.ApprovedAt = &now
			if err := s.createScheduleEntries(txCtx, order); err != nil {
				return err
			}
		case model.EventCancel:
			if err := s.scheduleRepo.CancelPendingForOrder(txCtx, order.ID); err != nil {
				return fmt.Errorf("failed to release receiving schedule: %w", err)
			}
		}

		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to save order %s: %w", orderNo, err)
		}

		audit := auditEntry(actorID, model.ActionOrderTransition, order.OrderNo, order.Supplier.Name, map[string]interface{}{
			"event": event,
			"from":  from,
			"to":    next,
		})
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order":  orderNo,
		"event":  event,
		"status": result.Status,
	}).Info("purchase order transitioned")

	broadcast(s.hub, "order.status", map[string]interface{}{
		"order_no": orderNo,
		"status":   result.Status,
	})

	resp := toOrderResponse(*result)
	return &resp, nil
}

// applyGuards checks the transition preconditions that depend on receipts.
func (s *orderService) applyGuards(txCtx context.Context, order *model.PurchaseOrder, event string) error {
	switch {
	case event == model.EventClose:
		for _, line := range order.Lines {
			if line.ReceivedQty != line.Quantity {
				return &domain.IncompleteReceiptError{
					OrderNo:  order.OrderNo,
					ItemCode: line.Item.Code,
					Ordered:  line.Quantity,
					Received: line.ReceivedQty,
				}
			}
		}
	case event == model.EventCancel && order.Status == model.OrderStatusApproved:
		for _, line := range order.Lines {
			if line.ReceivedQty > 0 {
				return &domain.InvalidStateError{
					OrderNo: order.OrderNo,
					Status:  order.Status,
					Reason:  "receipts already posted; order cannot cancel",
				}
			}
		}
	case event == model.EventCancel && order.Status == model.OrderStatusReceiving:
		accepted, err := s.inspectionRepo.SumAcceptedForOrder(txCtx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to sum accepted quantity: %w", err)
		}
		if accepted > 0 {
			return &domain.InvalidStateError{
				OrderNo: order.OrderNo,
				Status:  order.Status,
				Reason:  "accepted quantity already posted; order must complete",
			}
		}
	}
	return nil
}

// createScheduleEntries fans one receiving-schedule row out per order line.
// Expected quantity is the still-outstanding remainder, so a line that was
// partially received before does not get re-scheduled for the full amount.
func (s *orderService) createScheduleEntries(txCtx context.Context, order *model.PurchaseOrder) error {
	for _, line := range order.Lines {
		expected := line.Quantity - line.ReceivedQty
		if expected <= 0 {
			continue
		}
		entry := model.ReceivingScheduleEntry{
			OrderID:      order.ID,
			OrderLineID:  line.ID,
			ItemID:       line.ItemID,
			ExpectedDate: order.DeliveryDate,
			ExpectedQty:  expected,
			Status:       model.ScheduleStatusPending,
		}
		if err := s.scheduleRepo.Create(txCtx, &entry); err != nil {
			return fmt.Errorf("failed to create receiving schedule entry: %w", err)
		}
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderNo string) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "purchase order", Key: orderNo}
		}
		return nil, fmt.Errorf("failed to read order %s: %w", orderNo, err)
	}
	resp := toOrderResponse(*order)
	return &resp, nil
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int, status string) ([]OrderResponse, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, page, limit, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	res := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		res = append(res, toOrderResponse(order))
	}
	return res, total, nil
}

func (s *orderService) ListSchedule(ctx context.Context, orderNo string) ([]ScheduleEntryResponse, error) {
	order, err := s.orderRepo.FindByNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "purchase order", Key: orderNo}
		}
		return nil, fmt.Errorf("failed to read order %s: %w", orderNo, err)
	}

	entries, err := s.scheduleRepo.ListForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receiving schedule: %w", err)
	}

	lineNoByID := make(map[string]int, len(order.Lines))
	for _, line := range order.Lines {
		lineNoByID[line.ID.String()] = line.LineNo
	}

	res := make([]ScheduleEntryResponse, 0, len(entries))
	for _, entry := range entries {
		res = append(res, ScheduleEntryResponse{
			ID:           entry.ID.String(),
			OrderNo:      order.OrderNo,
			LineNo:       lineNoByID[entry.OrderLineID.String()],
			ExpectedDate: entry.ExpectedDate.Format("2006-01-02"),
			ExpectedQty:  entry.ExpectedQty,
			ReceivedQty:  entry.ReceivedQty,
			Status:       entry.Status,
		})
	}
	return res, nil
}

func toOrderResponse(order model.PurchaseOrder) OrderResponse {
	resp := OrderResponse{
		OrderNo:      order.OrderNo,
		OrderDate:    order.OrderDate.Format("2006-01-02"),
		SupplierCode: order.Supplier.Code,
		SupplierName: order.Supplier.Name,
		DeliveryDate: order.DeliveryDate.Format("2006-01-02"),
		Warehouse:    order.Warehouse,
		TotalAmount:  order.TotalAmount.String(),
		Status:       order.Status,
		ApprovedBy:   order.ApprovedBy,
		CreatedAt:    order.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if order.ApprovedAt != nil {
		resp.ApprovedAt = order.ApprovedAt.Format("2006-01-02 15:04:05")
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			LineNo:      line.LineNo,
			ItemCode:    line.Item.Code,
			ItemName:    line.Item.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.String(),
			Amount:      line.Amount.String(),
			ReceivedQty: line.ReceivedQty,
		})
	}
	return resp
}
