package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleStatus Enum Simulation
const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusCompleted = "completed"
	ScheduleStatusCancelled = "cancelled"
)

// InspectionResult Enum Simulation
const (
	InspectionPass    = "pass"
	InspectionDefects = "contains-defects"
)

// ReceivingScheduleEntry tracks expected-vs-received for one order line's
// delivery. Created when the order is approved, completed when the received
// quantity reaches the expected quantity, cancelled (never deleted) when the
// order is cancelled before delivery.
type ReceivingScheduleEntry struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	OrderLineID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_line_id"`
	OrderLine    PurchaseOrderLine `gorm:"foreignKey:OrderLineID" json:"-"`
	ItemID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"item_id"`
	ExpectedDate time.Time         `gorm:"not null" json:"expected_date"`
	ExpectedQty  int               `gorm:"type:int;not null" json:"expected_qty"`
	ReceivedQty  int               `gorm:"type:int;default:0;not null" json:"received_qty"`
	Status       string            `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReceivingScheduleEntry) TableName() string { return "receiving_schedule" }

func (e *ReceivingScheduleEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ReceivingInspectionRecord is the immutable outcome of quality-checking one
// received quantity. accepted + rejected always equals received.
type ReceivingInspectionRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReceivingDate time.Time `gorm:"not null" json:"receiving_date"`
	OrderID       uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	OrderNo       string    `gorm:"type:varchar(50);not null;index" json:"order_no"`
	OrderLineID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_line_id"`
	ItemID        uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	ReceivedQty   int       `gorm:"type:int;not null" json:"received_qty"`
	AcceptedQty   int       `gorm:"type:int;not null" json:"accepted_qty"`
	RejectedQty   int       `gorm:"type:int;not null" json:"rejected_qty"`
	Result        string    `gorm:"type:varchar(20);not null" json:"result"` // pass, contains-defects
	Inspector     string    `gorm:"type:varchar(100);not null" json:"inspector"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ReceivingInspectionRecord) TableName() string { return "receiving_inspection" }

func (r *ReceivingInspectionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
