package service_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/repository"
	"factorymes/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// receivableOrder seeds an approved single-line order ready for receipts.
func receivableOrder(t *testing.T, env *testEnv, itemCode string, qty int) *service.OrderResponse {
	t.Helper()
	order := env.seedOrder(t, "ACME", []service.OrderLineRequest{
		{ItemCode: itemCode, Quantity: qty, UnitPrice: decimal.RequireFromString("2.00")},
	})
	env.approveOrder(t, order.OrderNo)
	return order
}

func TestRecordReceipt_FullDeliveryAllAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 5, "0.50")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "BOLT-M8", 50)

	result, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo:     order.OrderNo,
		ItemCode:    "BOLT-M8",
		ReceivedQty: 50,
		AcceptedQty: 50,
		Inspector:   "qc-1",
	})
	if err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}
	if !result.ReadyToComplete {
		t.Error("ReadyToComplete = false after full receipt")
	}
	if result.Record.Result != model.InspectionPass {
		t.Errorf("inspection result = %s, want pass", result.Record.Result)
	}

	// Stock rose by the accepted quantity.
	stock, err := env.ledger.CurrentStock(ctx, "BOLT-M8")
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if stock != 55 {
		t.Errorf("CurrentStock = %d, want 55", stock)
	}

	// The ledger movement carries the order linkage.
	var mv model.StockMovement
	if err := env.db.Where("ref_order_no = ?", order.OrderNo).First(&mv).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if mv.Kind != model.MovementIn || mv.Quantity != 50 {
		t.Errorf("movement = %s/%d, want in/50", mv.Kind, mv.Quantity)
	}

	// First receipt implicitly moved the order into receiving.
	reloaded, err := env.order.GetOrder(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if reloaded.Status != model.OrderStatusReceiving {
		t.Errorf("status = %s, want receiving", reloaded.Status)
	}

	// Schedule entry completed.
	entries, err := env.order.ListSchedule(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("ListSchedule: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != model.ScheduleStatusCompleted {
		t.Errorf("schedule = %+v, want one completed entry", entries)
	}
}

func TestRecordReceipt_DefectsExcludedFromStock(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "GEAR-12", 0, "12.00")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "GEAR-12", 30)

	result, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo:     order.OrderNo,
		ItemCode:    "GEAR-12",
		ReceivedQty: 30,
		AcceptedQty: 27,
		RejectedQty: 3,
		Inspector:   "qc-2",
	})
	if err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}
	if result.Record.Result != model.InspectionDefects {
		t.Errorf("inspection result = %s, want contains-defects", result.Record.Result)
	}
	// Line progress counts everything received, stock only what was accepted.
	if !result.ReadyToComplete {
		t.Error("ReadyToComplete = false, want true: the full 30 were received")
	}
	stock, err := env.ledger.CurrentStock(ctx, "GEAR-12")
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if stock != 27 {
		t.Errorf("CurrentStock = %d, want 27", stock)
	}
}

func TestRecordReceipt_RejectedOnlyPostsNoMovement(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "CAM-3", 0, "15.00")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "CAM-3", 10)

	if _, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo:     order.OrderNo,
		ItemCode:    "CAM-3",
		ReceivedQty: 4,
		RejectedQty: 4,
		Inspector:   "qc-1",
	}); err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}

	var count int64
	if err := env.db.Model(&model.StockMovement{}).Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 0 {
		t.Errorf("movement count = %d, want 0 for an all-rejected receipt", count)
	}

	stock, err := env.ledger.CurrentStock(ctx, "CAM-3")
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if stock != 0 {
		t.Errorf("CurrentStock = %d, want 0", stock)
	}
}

func TestRecordReceipt_QuantityMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "ROD-9", 0, "7.00")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "ROD-9", 20)

	_, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo:     order.OrderNo,
		ItemCode:    "ROD-9",
		ReceivedQty: 10,
		AcceptedQty: 7,
		RejectedQty: 2,
		Inspector:   "qc-1",
	})
	var mErr *domain.QuantityMismatchError
	if !errors.As(err, &mErr) {
		t.Fatalf("err = %v, want QuantityMismatchError", err)
	}

	// Nothing was written.
	var inspections int64
	if err := env.db.Model(&model.ReceivingInspectionRecord{}).Count(&inspections).Error; err != nil {
		t.Fatalf("count inspections: %v", err)
	}
	if inspections != 0 {
		t.Errorf("inspection count = %d, want 0", inspections)
	}
}

func TestRecordReceipt_OverReceipt(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "PIN-5", 0, "0.05")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "PIN-5", 10)

	if _, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "PIN-5", ReceivedQty: 8, AcceptedQty: 8, Inspector: "qc-1",
	}); err != nil {
		t.Fatalf("first receipt: %v", err)
	}

	_, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "PIN-5", ReceivedQty: 5, AcceptedQty: 5, Inspector: "qc-1",
	})
	var ovErr *domain.OverReceiptError
	if !errors.As(err, &ovErr) {
		t.Fatalf("err = %v, want OverReceiptError", err)
	}
	if ovErr.Ordered != 10 || ovErr.AlreadyReceived != 8 || ovErr.Received != 5 {
		t.Errorf("error detail = %+v, want 10/8/5", ovErr)
	}

	// The failed receipt left the order untouched: stock still 8, one inspection.
	stock, err := env.ledger.CurrentStock(ctx, "PIN-5")
	if err != nil {
		t.Fatalf("CurrentStock: %v", err)
	}
	if stock != 8 {
		t.Errorf("CurrentStock = %d, want 8", stock)
	}
	var inspections int64
	if err := env.db.Model(&model.ReceivingInspectionRecord{}).Count(&inspections).Error; err != nil {
		t.Fatalf("count inspections: %v", err)
	}
	if inspections != 1 {
		t.Errorf("inspection count = %d, want 1", inspections)
	}
}

func TestRecordReceipt_PartialsAccumulate(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "PLATE-4", 0, "3.25")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "PLATE-4", 30)

	first, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "PLATE-4", ReceivedQty: 10, AcceptedQty: 10, Inspector: "qc-1",
	})
	if err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	if first.ReadyToComplete {
		t.Error("ReadyToComplete = true after 10/30")
	}

	second, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "PLATE-4", ReceivedQty: 20, AcceptedQty: 20, Inspector: "qc-1",
	})
	if err != nil {
		t.Fatalf("second receipt: %v", err)
	}
	if !second.ReadyToComplete {
		t.Error("ReadyToComplete = false after 30/30")
	}

	records, err := env.receiving.ListInspections(ctx, order.OrderNo)
	if err != nil {
		t.Fatalf("ListInspections: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("inspection records = %d, want 2", len(records))
	}
}

func TestRecordReceipt_RequiresReceivableStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "SHIM-1", 0, "0.10")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()

	// Draft order: receipts are rejected.
	order := env.seedOrder(t, "ACME", []service.OrderLineRequest{
		{ItemCode: "SHIM-1", Quantity: 10, UnitPrice: decimal.RequireFromString("0.10")},
	})
	_, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "SHIM-1", ReceivedQty: 5, AcceptedQty: 5, Inspector: "qc-1",
	})
	var stErr *domain.InvalidStateError
	if !errors.As(err, &stErr) {
		t.Fatalf("receipt against draft: err = %v, want InvalidStateError", err)
	}
}

func TestTransition_CancelBlockedAfterReceipt(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 0, "0.50")
	env.seedSupplier(t, "ACME")
	ctx := context.Background()
	order := receivableOrder(t, env, "BOLT-M8", 10)

	if _, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "BOLT-M8", ReceivedQty: 4, AcceptedQty: 4, Inspector: "qc-1",
	}); err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}

	_, err := env.order.Transition(ctx, "", order.OrderNo, model.EventCancel)
	var stErr *domain.InvalidStateError
	if !errors.As(err, &stErr) {
		t.Fatalf("cancel after accepted receipt: err = %v, want InvalidStateError", err)
	}

	// An all-rejected order may still cancel: nothing entered stock.
	rejectedOrder := receivableOrder(t, env, "BOLT-M8", 10)
	if _, err := env.receiving.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: rejectedOrder.OrderNo, ItemCode: "BOLT-M8", ReceivedQty: 10, RejectedQty: 10, Inspector: "qc-1",
	}); err != nil {
		t.Fatalf("rejected receipt: %v", err)
	}
	got, err := env.order.Transition(ctx, "", rejectedOrder.OrderNo, model.EventCancel)
	if err != nil {
		t.Fatalf("cancel all-rejected order: %v", err)
	}
	if got.Status != model.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestRecordReceipt_RatingHookFiresOnDefects(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "GEAR-12", 0, "12.00")
	supplier := env.seedSupplier(t, "ACME")
	ctx := context.Background()

	// Rebuild the receiving service with a hook that records its invocation.
	var hookSupplier string
	var hookResult string
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hooked := service.NewReceivingService(
		env.orders, env.schedules,
		repository.NewInspectionRepository(env.db), repository.NewAuditRepository(env.db),
		env.ledger, repository.NewTransactionManager(env.db), nil, logger,
		func(ctx context.Context, s model.Supplier, rec model.ReceivingInspectionRecord) {
			hookSupplier = s.Code
			hookResult = rec.Result
		},
	)

	order := env.seedOrder(t, supplier.Code, []service.OrderLineRequest{
		{ItemCode: "GEAR-12", Quantity: 10, UnitPrice: decimal.RequireFromString("12.00")},
	})
	env.approveOrder(t, order.OrderNo)

	if _, err := hooked.RecordReceipt(ctx, "", service.RecordReceiptRequest{
		OrderNo: order.OrderNo, ItemCode: "GEAR-12", ReceivedQty: 10, AcceptedQty: 9, RejectedQty: 1, Inspector: "qc-3",
	}); err != nil {
		t.Fatalf("RecordReceipt: %v", err)
	}

	if hookSupplier != "ACME" {
		t.Errorf("hook supplier = %q, want ACME", hookSupplier)
	}
	if hookResult != model.InspectionDefects {
		t.Errorf("hook result = %q, want contains-defects", hookResult)
	}
}
