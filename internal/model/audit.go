package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateItem       = "CREATE_ITEM"
	ActionUpdateItem       = "UPDATE_ITEM"
	ActionPostMovement     = "POST_MOVEMENT"
	ActionAdjustStock      = "ADJUST_STOCK"
	ActionReconcileStock   = "RECONCILE_STOCK"
	ActionCreateSupplier   = "CREATE_SUPPLIER"
	ActionUpdateSupplier   = "UPDATE_SUPPLIER"
	ActionCreateOrder      = "CREATE_PURCHASE_ORDER"
	ActionOrderTransition  = "PURCHASE_ORDER_TRANSITION"
	ActionRecordReceipt    = "RECORD_RECEIPT"
	ActionCreateReorderRule = "CREATE_REORDER_RULE"
	ActionReorderScan      = "REORDER_SCAN"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for the reorder scheduler
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
