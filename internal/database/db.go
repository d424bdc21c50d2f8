package database

import (
	"factorymes/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError is on so unique-constraint violations surface as
// gorm.ErrDuplicatedKey regardless of driver.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the engine's tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Item{},
		&model.StockMovement{},
		&model.StockAdjustment{},
		&model.Supplier{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderLine{},
		&model.ReceivingScheduleEntry{},
		&model.ReceivingInspectionRecord{},
		&model.AutoReorderRule{},
		&model.AuditLog{},
	)
}
