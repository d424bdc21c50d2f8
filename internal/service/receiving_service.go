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

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs

type RecordReceiptRequest struct {
	OrderNo     string `json:"order_no" binding:"required"`
	ItemCode    string `json:"item_code" binding:"required"`
	ReceivedQty int    `json:"received_qty" binding:"required,gt=0"`
	AcceptedQty int    `json:"accepted_qty" binding:"min=0"`
	RejectedQty int    `json:"rejected_qty" binding:"min=0"`
	Inspector   string `json:"inspector" binding:"required"`
}

type InspectionResponse struct {
	ID            string `json:"id"`
	ReceivingDate string `json:"receiving_date"`
	OrderNo       string `json:"order_no"`
	ItemCode      string `json:"item_code"`
	ReceivedQty   int    `json:"received_qty"`
	AcceptedQty   int    `json:"accepted_qty"`
	RejectedQty   int    `json:"rejected_qty"`
	Result        string `json:"result"`
	Inspector     string `json:"inspector"`
}

// ReceiptResult reports the recorded inspection and whether every line of the
// order is now fully received. The engine signals readiness instead of
// auto-completing; the close decision stays with the caller.
type ReceiptResult struct {
	Record          InspectionResponse `json:"record"`
	ReadyToComplete bool               `json:"ready_to_complete"`
}

// SupplierRatingHook is invoked after a committed receipt whose inspection
// found defects. Computing a new rating is the caller's policy; the engine
// only reports the outcome.
type SupplierRatingHook func(ctx context.Context, supplier model.Supplier, record model.ReceivingInspectionRecord)

// ReceivingService is the only component allowed to post purchasing-originated
// "in" movements against the item ledger.
type ReceivingService interface {
	RecordReceipt(ctx context.Context, actorID string, req RecordReceiptRequest) (*ReceiptResult, error)
	ListInspections(ctx context.Context, orderNo string) ([]InspectionResponse, error)
}

type receivingService struct {
	orderRepo      repository.OrderRepository
	scheduleRepo   repository.ScheduleRepository
	inspectionRepo repository.InspectionRepository
	auditRepo      repository.AuditRepository
	ledger         LedgerService
	txManager      repository.TransactionManager
	hub            *ws.Hub
	logger         *logrus.Logger
	ratingHook     SupplierRatingHook
}

func NewReceivingService(
	orderRepo repository.OrderRepository,
	scheduleRepo repository.ScheduleRepository,
	inspectionRepo repository.InspectionRepository,
	auditRepo repository.AuditRepository,
	ledger LedgerService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	logger *logrus.Logger,
	ratingHook SupplierRatingHook, // optional, nil disables
) ReceivingService {
	return &receivingService{
		orderRepo:      orderRepo,
		scheduleRepo:   scheduleRepo,
		inspectionRepo: inspectionRepo,
		auditRepo:      auditRepo,
		ledger:         ledger,
		txManager:      txManager,
		hub:            hub,
		logger:         logger,
		ratingHook:     ratingHook,
	}
}

func (s *receivingService) RecordReceipt(ctx context.Context, actorID string, req RecordReceiptRequest) (*ReceiptResult, error) {
	if req.ReceivedQty <= 0 {
		return nil, &domain.ValidationError{Field: "received_qty", Reason: "must be positive"}
	}
	if req.AcceptedQty < 0 || req.RejectedQty < 0 {
		return nil, &domain.ValidationError{Field: "accepted_qty/rejected_qty", Reason: "must not be negative"}
	}
	if req.AcceptedQty+req.RejectedQty != req.ReceivedQty {
		return nil, &domain.QuantityMismatchError{
			Received: req.ReceivedQty,
			Accepted: req.AcceptedQty,
			Rejected: req.RejectedQty,
		}
	}

	var (
		record   model.ReceivingInspectionRecord
		supplier model.Supplier
		ready    bool
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByNoForUpdate(txCtx, req.OrderNo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "purchase order", Key: req.OrderNo}
			}
			return fmt.Errorf("failed to lock order %s: %w", req.OrderNo, err)
		}
		supplier = order.Supplier

		switch order.Status {
		case model.OrderStatusReceiving:
		case model.OrderStatusApproved:
			// First receipt implicitly begins receiving.
			order.Status = model.OrderStatusReceiving
			if err := s.orderRepo.Save(txCtx, order); err != nil {
				return fmt.Errorf("failed to begin receiving on order %s: %w", req.OrderNo, err)
			}
		default:
			return &domain.InvalidStateError{
				OrderNo: order.OrderNo,
				Status:  order.Status,
				Reason:  "order is not receivable",
			}
		}

		line := findReceivableLine(order, req.ItemCode, req.ReceivedQty)
		if line == nil {
			return &domain.NotFoundError{Entity: "order line", Key: req.ItemCode}
		}
		if line.ReceivedQty+req.ReceivedQty > line.Quantity {
			return &domain.OverReceiptError{
				OrderNo:         order.OrderNo,
				ItemCode:        req.ItemCode,
				Ordered:         line.Quantity,
				AlreadyReceived: line.ReceivedQty,
				Received:        req.ReceivedQty,
			}
		}

		result := model.InspectionPass
		if req.RejectedQty > 0 {
			result = model.InspectionDefects
		}
		record = model.ReceivingInspectionRecord{
			ReceivingDate: time.Now(),
			OrderID:       order.ID,
			OrderNo:       order.OrderNo,
			OrderLineID:   line.ID,
			ItemID:        line.ItemID,
			ReceivedQty:   req.ReceivedQty,
			AcceptedQty:   req.AcceptedQty,
			RejectedQty:   req.RejectedQty,
			Result:        result,
			Inspector:     req.Inspector,
		}
		if err := s.inspectionRepo.Create(txCtx, &record); err != nil {
			return fmt.Errorf("failed to create inspection record: %w", err)
		}

		line.ReceivedQty += req.ReceivedQty
		if err := s.orderRepo.UpdateLineReceived(txCtx, line.ID, line.ReceivedQty); err != nil {
			return fmt.Errorf("failed to update received quantity: %w", err)
		}

		if err := s.advanceSchedule(txCtx, line, req.ReceivedQty); err != nil {
			return err
		}

		// Rejected units never enter usable stock: the ledger movement covers
		// exactly the accepted quantity.
		if req.AcceptedQty > 0 {
			_, err = s.ledger.PostMovement(txCtx, actorID, PostMovementRequest{
				ItemCode:  req.ItemCode,
				Kind:      model.MovementIn,
				Quantity:  req.AcceptedQty,
				Warehouse: order.Warehouse,
				Remark:    "goods receipt " + order.OrderNo,
				Origin: &MovementOrigin{
					OrderID: order.ID,
					OrderNo: order.OrderNo,
					LineNo:  line.LineNo,
				},
			})
			if err != nil {
				return err
			}
		}

		ready = true
		for _, l := range order.Lines {
			if l.ReceivedQty != l.Quantity {
				ready = false
				break
			}
		}

		audit := auditEntry(actorID, model.ActionRecordReceipt, order.OrderNo, req.ItemCode, map[string]interface{}{
			"received":          req.ReceivedQty,
			"accepted":          req.AcceptedQty,
			"rejected":          req.RejectedQty,
			"result":            result,
			"ready_to_complete": ready,
		})
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order":    req.OrderNo,
		"item":     req.ItemCode,
		"received": req.ReceivedQty,
		"accepted": req.AcceptedQty,
		"rejected": req.RejectedQty,
		"ready":    ready,
	}).Info("goods receipt recorded")

	broadcast(s.hub, "receipt.recorded", map[string]interface{}{
		"order_no":          req.OrderNo,
		"item_code":         req.ItemCode,
		"accepted":          req.AcceptedQty,
		"rejected":          req.RejectedQty,
		"ready_to_complete": ready,
	})

	if s.ratingHook != nil && record.Result == model.InspectionDefects {
		s.ratingHook(ctx, supplier, record)
	}

	return &ReceiptResult{
		Record:          toInspectionResponse(record, req.ItemCode),
		ReadyToComplete: ready,
	}, nil
}

// findReceivableLine picks the order line for the received item. When the
// item appears on several lines the first with remaining capacity wins,
// falling back to the first match so over-receipt is reported against it.
func findReceivableLine(order *model.PurchaseOrder, itemCode string, qty int) *model.PurchaseOrderLine {
	var first *model.PurchaseOrderLine
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.Item.Code != itemCode {
			continue
		}
		if first == nil {
			first = line
		}
		if line.ReceivedQty+qty <= line.Quantity {
			return line
		}
	}
	return first
}

// advanceSchedule accrues the received quantity on the line's open schedule
// entry and closes it once the expected quantity is reached. A missing entry
// is tolerated: history is never a precondition for accepting goods.
func (s *receivingService) advanceSchedule(txCtx context.Context, line *model.PurchaseOrderLine, received int) error {
	entry, err := s.scheduleRepo.FindPendingForLine(txCtx, line.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read receiving schedule: %w", err)
	}

	entry.ReceivedQty += received
	if entry.ReceivedQty >= entry.ExpectedQty {
		entry.Status = model.ScheduleStatusCompleted
	}
	if err := s.scheduleRepo.Save(txCtx, entry); err != nil {
		return fmt.Errorf("failed to update receiving schedule: %w", err)
	}
	return nil
}

func (s *receivingService) ListInspections(ctx context.Context, orderNo string) ([]InspectionResponse, error) {
	order, err := s.orderRepo.FindByNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "purchase order", Key: orderNo}
		}
		return nil, fmt.Errorf("failed to read order %s: %w", orderNo, err)
	}

	records, err := s.inspectionRepo.ListForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	codeByItemID := make(map[string]string, len(order.Lines))
	for _, line := range order.Lines {
		codeByItemID[line.ItemID.String()] = line.Item.Code
	}

	res := make([]InspectionResponse, 0, len(records))
	for _, rec := range records {
		res = append(res, toInspectionResponse(rec, codeByItemID[rec.ItemID.String()]))
	}
	return res, nil
}

func toInspectionResponse(rec model.ReceivingInspectionRecord, itemCode string) InspectionResponse {
	return InspectionResponse{
		ID:            rec.ID.String(),
		ReceivingDate: rec.ReceivingDate.Format("2006-01-02"),
		OrderNo:       rec.OrderNo,
		ItemCode:      itemCode,
		ReceivedQty:   rec.ReceivedQty,
		AcceptedQty:   rec.AcceptedQty,
		RejectedQty:   rec.RejectedQty,
		Result:        rec.Result,
		Inspector:     rec.Inspector,
	}
}
