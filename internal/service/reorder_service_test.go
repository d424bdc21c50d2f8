package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"factorymes/internal/domain"
	"factorymes/internal/model"
	"factorymes/internal/service"

	"github.com/google/uuid"
)

func seedRule(t *testing.T, env *testEnv, itemCode, supplierCode string, point, qty int) *service.RuleResponse {
	t.Helper()
	rule, err := env.reorder.CreateRule(context.Background(), "admin-1", service.CreateRuleRequest{
		ItemCode:     itemCode,
		SupplierCode: supplierCode,
		ReorderPoint: point,
		ReorderQty:   qty,
	})
	if err != nil {
		t.Fatalf("CreateRule %s/%s: %v", itemCode, supplierCode, err)
	}
	return rule
}

func TestEvaluate_ProposesBelowReorderPoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 12, "0.50")
	env.seedSupplier(t, "ACME")
	seedRule(t, env, "BOLT-M8", "ACME", 20, 100)
	ctx := context.Background()

	proposals, err := env.reorder.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("proposals = %d, want 1", len(proposals))
	}
	p := proposals[0]
	if p.ItemCode != "BOLT-M8" || p.SupplierCode != "ACME" {
		t.Errorf("proposal for %s/%s, want BOLT-M8/ACME", p.ItemCode, p.SupplierCode)
	}
	if p.Quantity != 100 || p.CurrentStock != 12 || p.ReorderPoint != 20 {
		t.Errorf("proposal detail = qty %d stock %d point %d, want 100/12/20",
			p.Quantity, p.CurrentStock, p.ReorderPoint)
	}
}

func TestEvaluate_StockAtPointDoesNotTrigger(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 20, "0.50")
	env.seedSupplier(t, "ACME")
	seedRule(t, env, "BOLT-M8", "ACME", 20, 100)

	proposals, err := env.reorder.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(proposals) != 0 {
		t.Errorf("proposals = %d, want 0 at exactly the reorder point", len(proposals))
	}
}

func TestEvaluate_SkipsInactiveRules(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 0, "0.50")
	env.seedSupplier(t, "ACME")
	rule := seedRule(t, env, "BOLT-M8", "ACME", 20, 100)

	if err := env.db.Model(&model.AutoReorderRule{}).
		Where("id = ?", rule.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate rule: %v", err)
	}

	proposals, err := env.reorder.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(proposals) != 0 {
		t.Errorf("proposals = %d, want 0 from an inactive rule", len(proposals))
	}
}

func TestEvaluate_IsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 0, "0.50")
	env.seedSupplier(t, "ACME")
	seedRule(t, env, "BOLT-M8", "ACME", 20, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		proposals, err := env.reorder.Evaluate(ctx)
		if err != nil {
			t.Fatalf("Evaluate #%d: %v", i, err)
		}
		if len(proposals) != 1 {
			t.Fatalf("Evaluate #%d: proposals = %d, want 1", i, len(proposals))
		}
	}

	var orders int64
	if err := env.db.Model(&model.PurchaseOrder{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Errorf("order count = %d, want 0 after dry runs", orders)
	}
}

func TestEvaluate_UnknownRuleID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reorder.Evaluate(context.Background(), uuid.New())
	var nfErr *domain.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestRunOnce_CreatesDraftOrderFromRule(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 3, "0.50")
	supplier := env.seedSupplier(t, "ACME")
	seedRule(t, env, "BOLT-M8", "ACME", 20, 100)
	ctx := context.Background()

	created, err := env.reorder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created = %d orders, want 1", len(created))
	}

	order := created[0]
	if order.Status != model.OrderStatusDraft {
		t.Errorf("status = %s, want draft", order.Status)
	}
	if order.SupplierCode != "ACME" || order.Warehouse != "MAIN" {
		t.Errorf("order routed to %s/%s, want ACME/MAIN", order.SupplierCode, order.Warehouse)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(order.Lines))
	}
	line := order.Lines[0]
	if line.ItemCode != "BOLT-M8" || line.Quantity != 100 {
		t.Errorf("line = %s x%d, want BOLT-M8 x100", line.ItemCode, line.Quantity)
	}
	// Price comes from the item master, delivery from the supplier lead time.
	if line.UnitPrice != "0.5" {
		t.Errorf("unit price = %s, want 0.5", line.UnitPrice)
	}
	wantDelivery := time.Now().AddDate(0, 0, supplier.LeadTimeDays).Format("2006-01-02")
	if order.DeliveryDate != wantDelivery {
		t.Errorf("delivery date = %s, want %s", order.DeliveryDate, wantDelivery)
	}
}

func TestRunOnce_SameDayRepeatDoesNotDoubleOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 3, "0.50")
	env.seedSupplier(t, "ACME")
	seedRule(t, env, "BOLT-M8", "ACME", 20, 100)
	ctx := context.Background()

	first, err := env.reorder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	second, err := env.reorder.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("runs returned %d and %d orders, want 1 and 1", len(first), len(second))
	}
	if first[0].OrderNo != second[0].OrderNo {
		t.Errorf("second run created %s, want replay of %s", second[0].OrderNo, first[0].OrderNo)
	}

	var orders int64
	if err := env.db.Model(&model.PurchaseOrder{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 1 {
		t.Errorf("order count = %d, want 1", orders)
	}
}

func TestCreateRule_RejectsUnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	env.seedItem(t, "BOLT-M8", 0, "0.50")
	ctx := context.Background()

	_, err := env.reorder.CreateRule(ctx, "admin-1", service.CreateRuleRequest{
		ItemCode: "BOLT-M8", SupplierCode: "NOPE", ReorderPoint: 10, ReorderQty: 50,
	})
	var nfErr *domain.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("unknown supplier: err = %v, want NotFoundError", err)
	}

	_, err = env.reorder.CreateRule(ctx, "admin-1", service.CreateRuleRequest{
		ItemCode: "NOPE", SupplierCode: "ACME", ReorderPoint: 10, ReorderQty: 50,
	})
	if !errors.As(err, &nfErr) {
		t.Fatalf("unknown item: err = %v, want NotFoundError", err)
	}
}
