package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus values are the stable storage representation; do not rename.
const (
	OrderStatusDraft     = "draft"
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusReceiving = "receiving"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// OrderEvent values drive the lifecycle state machine.
const (
	EventSubmit         = "submit"
	EventApprove        = "approve"
	EventBeginReceiving = "begin_receiving"
	EventClose          = "close"
	EventCancel         = "cancel"
)

// orderTransitions is the full lifecycle table. Any (status, event) pair not
// listed here is an invalid transition. Guards that depend on receipts
// (cancel-after-receipt, close-before-full-receipt) live in the order service.
var orderTransitions = map[string]map[string]string{
	OrderStatusDraft: {
		EventSubmit: OrderStatusPending,
		EventCancel: OrderStatusCancelled,
	},
	OrderStatusPending: {
		EventApprove: OrderStatusApproved,
		EventCancel:  OrderStatusCancelled,
	},
	OrderStatusApproved: {
		EventBeginReceiving: OrderStatusReceiving,
		EventCancel:         OrderStatusCancelled,
	},
	OrderStatusReceiving: {
		EventClose:  OrderStatusCompleted,
		EventCancel: OrderStatusCancelled,
	},
}

// NextStatus resolves the lifecycle table. The second return is false when no
// edge exists for the (status, event) pair.
func NextStatus(status, event string) (string, bool) {
	next, ok := orderTransitions[status][event]
	return next, ok
}

// IsTerminalStatus reports whether no event can leave the given status.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

// PurchaseOrder is a commitment to buy from a supplier. TotalAmount is derived
// from the lines and updated whenever lines change.
type PurchaseOrder struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNo       string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"order_no"` // PO-<YYYYMMDD>-<seq>
	OrderDate     time.Time  `gorm:"not null" json:"order_date"`
	SupplierID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier      Supplier   `gorm:"foreignKey:SupplierID" json:"supplier"`
	DeliveryDate  time.Time  `gorm:"not null" json:"delivery_date"`
	Warehouse     string     `gorm:"type:varchar(100);not null" json:"warehouse"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Status        string     `gorm:"type:varchar(20);not null;index" json:"status"`
	ApprovedBy    string     `gorm:"type:varchar(100)" json:"approved_by"`
	ApprovedAt    *time.Time `json:"approved_at"`
	// IdempotencyKey dedupes order creation; the auto-reorder scheduler passes
	// one per (rule, day) so a rescheduled scan cannot double-order.
	IdempotencyKey *string             `gorm:"type:varchar(255);uniqueIndex" json:"idempotency_key,omitempty"`
	Lines          []PurchaseOrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// PurchaseOrderLine fixes the unit price at order creation; catalog price
// changes never re-price historical orders.
type PurchaseOrderLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_po_line,unique" json:"order_id"`
	LineNo      int             `gorm:"type:int;not null;index:idx_po_line,unique" json:"line_no"`
	ItemID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Item        Item            `gorm:"foreignKey:ItemID" json:"item"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"` // quantity × unit price
	ReceivedQty int             `gorm:"type:int;default:0;not null" json:"received_qty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PurchaseOrderLine) TableName() string { return "purchase_order_details" }

func (l *PurchaseOrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
