package model

import "gorm.io/gorm"

// AutoMigrate создаёт таблицы справочников, договоров и АК.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Region{},
		&District{},
		&ContractType{},
		&Work{},
		&Implementator{},
		&Contract{},
		&SubscriberKit{},
	)
}
