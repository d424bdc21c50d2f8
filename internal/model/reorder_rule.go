package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutoReorderRule proposes replenishment when an item's cached stock falls
// below the reorder point. One (item, supplier) pair per rule; an item sourced
// from several suppliers has several rules and each triggers independently.
type AutoReorderRule struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID       uuid.UUID `gorm:"type:uuid;not null;index:idx_rule_item_supplier,unique" json:"item_id"`
	Item         Item      `gorm:"foreignKey:ItemID" json:"item"`
	SupplierID   uuid.UUID `gorm:"type:uuid;not null;index:idx_rule_item_supplier,unique" json:"supplier_id"`
	Supplier     Supplier  `gorm:"foreignKey:SupplierID" json:"supplier"`
	ReorderPoint int       `gorm:"type:int;not null" json:"reorder_point"`
	ReorderQty   int       `gorm:"type:int;not null" json:"reorder_qty"`
	Active       bool      `gorm:"default:true;not null" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AutoReorderRule) TableName() string { return "auto_po_rules" }

func (r *AutoReorderRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
