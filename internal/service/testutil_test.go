package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"factorymes/internal/database"
	"factorymes/internal/model"
	"factorymes/internal/repository"
	"factorymes/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// testEnv wires the full service graph against an in-memory sqlite database.
// One connection only: sqlite's shared-cache in-memory DB is not safe across
// pooled connections.
type testEnv struct {
	db        *gorm.DB
	items     repository.ItemRepository
	movements repository.MovementRepository
	suppliers repository.SupplierRepository
	orders    repository.OrderRepository
	schedules repository.ScheduleRepository
	rules     repository.RuleRepository

	ledger    service.LedgerService
	order     service.OrderService
	receiving service.ReceivingService
	reorder   service.ReorderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	txManager := repository.NewTransactionManager(db)
	itemRepo := repository.NewItemRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	inspectionRepo := repository.NewInspectionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	ledger := service.NewLedgerService(itemRepo, movementRepo, auditRepo, txManager, nil, logger)
	order := service.NewOrderService(orderRepo, itemRepo, supplierRepo, scheduleRepo, inspectionRepo, auditRepo, txManager, nil, logger)
	receiving := service.NewReceivingService(orderRepo, scheduleRepo, inspectionRepo, auditRepo, ledger, txManager, nil, logger, nil)
	reorder := service.NewReorderService(ruleRepo, itemRepo, supplierRepo, auditRepo, ledger, order, txManager, nil, 0, "MAIN", logger)

	return &testEnv{
		db:        db,
		items:     itemRepo,
		movements: movementRepo,
		suppliers: supplierRepo,
		orders:    orderRepo,
		schedules: scheduleRepo,
		rules:     ruleRepo,
		ledger:    ledger,
		order:     order,
		receiving: receiving,
		reorder:   reorder,
	}
}

func (e *testEnv) seedItem(t *testing.T, code string, stock int, price string) model.Item {
	t.Helper()
	item := model.Item{
		Code:         code,
		Name:         "Item " + code,
		Unit:         "pcs",
		CurrentStock: stock,
		UnitPrice:    decimal.RequireFromString(price),
	}
	if err := e.db.Create(&item).Error; err != nil {
		t.Fatalf("seed item %s: %v", code, err)
	}
	return item
}

func (e *testEnv) seedSupplier(t *testing.T, code string) model.Supplier {
	t.Helper()
	supplier := model.Supplier{
		Code:         code,
		Name:         "Supplier " + code,
		LeadTimeDays: 7,
		Rating:       decimal.NewFromInt(5),
	}
	if err := e.db.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier %s: %v", code, err)
	}
	return supplier
}

// seedOrder creates a draft order through the service so numbering and audit
// behave exactly as in production.
func (e *testEnv) seedOrder(t *testing.T, supplierCode string, lines []service.OrderLineRequest) *service.OrderResponse {
	t.Helper()
	order, err := e.order.CreateOrder(context.Background(), "", service.CreateOrderRequest{
		SupplierCode: supplierCode,
		Lines:        lines,
		DeliveryDate: time.Now().AddDate(0, 0, 7),
		Warehouse:    "MAIN",
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

// approveOrder walks a draft order to approved.
func (e *testEnv) approveOrder(t *testing.T, orderNo string) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.order.Transition(ctx, "", orderNo, model.EventSubmit); err != nil {
		t.Fatalf("submit order %s: %v", orderNo, err)
	}
	if _, err := e.order.Transition(ctx, "", orderNo, model.EventApprove); err != nil {
		t.Fatalf("approve order %s: %v", orderNo, err)
	}
}
