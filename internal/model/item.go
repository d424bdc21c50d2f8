package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item represents a stocked material or part. CurrentStock is a cached
// projection of the movement ledger; only the ledger service may write it.
type Item struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Category     string          `gorm:"type:varchar(100)" json:"category"`
	Unit         string          `gorm:"type:varchar(20);not null" json:"unit"`
	SafetyStock  int             `gorm:"type:int;default:0;not null" json:"safety_stock"`
	CurrentStock int             `gorm:"type:int;default:0;not null" json:"current_stock"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Item) TableName() string { return "item_master" }

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// MovementKind Enum Simulation
const (
	MovementIn     = "in"
	MovementOut    = "out"
	MovementAdjust = "adjust"
)

// StockMovement is one immutable entry of the item ledger. Quantity is signed:
// positive for "in", negative for "out"; zero is never stored. Corrections are
// new offsetting movements, never edits.
type StockMovement struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	Item      Item      `gorm:"foreignKey:ItemID" json:"-"`
	Kind      string    `gorm:"type:varchar(10);not null" json:"kind"` // in, out, adjust
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
	Warehouse string    `gorm:"type:varchar(100);not null" json:"warehouse"`
	// StockAfter snapshots the cached stock at posting time for traceability.
	StockAfter int        `gorm:"type:int;not null" json:"stock_after"`
	Remark     string     `gorm:"type:text" json:"remark"`
	RefOrderID *uuid.UUID `gorm:"type:uuid;index" json:"ref_order_id"` // set when a receipt posted this
	RefOrderNo string     `gorm:"type:varchar(50)" json:"ref_order_no"`
	RefLineNo  int        `gorm:"type:int;default:0" json:"ref_line_no"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// StockAdjustment is the audit row written alongside every adjust-kind
// movement: who corrected the count and why. The signed quantity itself lives
// in stock_movements so the ledger fold stays single-sourced.
type StockAdjustment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MovementID int64     `gorm:"not null;index" json:"movement_id"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	Quantity   int       `gorm:"type:int;not null" json:"quantity"`
	Reason     string    `gorm:"type:text;not null" json:"reason"`
	AdjustedBy string    `gorm:"type:varchar(100)" json:"adjusted_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StockAdjustment) TableName() string { return "stock_adjustments" }

func (a *StockAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
