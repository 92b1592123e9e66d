package models

import (
	"log"

	"github.com/stitchline/store_backend/config"
	"gorm.io/gorm"
)

func allModels() []interface{} {
	return []interface{}{
		&User{},
		&Product{}, &ProductVariant{},
		&Order{}, &OrderItem{},
		&Investor{}, &InvestorProductAllocation{},
		&ProfitDistribution{}, &InvestorTransaction{},
		&OutboxMessage{},
		&ReconciliationReport{},
		&ServiceOffering{}, &ServiceAvailability{}, &ServiceBlockout{}, &Booking{},
	}
}

// AutoMigrate creates or updates every table on db.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels()...)
}

func MigrateTable() {
	if err := AutoMigrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}
