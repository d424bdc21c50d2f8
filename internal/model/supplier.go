package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Supplier represents a vendor the factory buys from. The engine only reads
// suppliers, except for the reliability rating which inspection outcomes may
// update through the receiving hook.
type Supplier struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	ContactName  string          `gorm:"type:varchar(255)" json:"contact_name"`
	Phone        string          `gorm:"type:varchar(50)" json:"phone"`
	Email        string          `gorm:"type:varchar(255)" json:"email"`
	Address      string          `gorm:"type:text" json:"address"`
	PaymentTerms string          `gorm:"type:varchar(100)" json:"payment_terms"`
	LeadTimeDays int             `gorm:"type:int;default:7;not null" json:"lead_time_days"`
	Rating       decimal.Decimal `gorm:"type:decimal(4,2);default:0" json:"rating"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Supplier) TableName() string { return "supplier_master" }

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
