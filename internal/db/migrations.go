package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Запросы только для postgres, выполняются после AutoMigrate
var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pg_trgm;`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_customer_name_trgm ON contracts USING gin (customer_name gin_trgm_ops);`,
	`CREATE INDEX IF NOT EXISTS idx_implementators_name_trgm ON implementators USING gin (name gin_trgm_ops);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_start_date ON contracts (start_date DESC);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_contracts_dates') THEN
			ALTER TABLE contracts ADD CONSTRAINT chk_contracts_dates CHECK (start_date <= end_date);
		END IF;
		-- отрицательные номера бывают только внутри транзакции перенумерации
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_subscriber_kits_number') THEN
			ALTER TABLE subscriber_kits ADD CONSTRAINT chk_subscriber_kits_number CHECK (number BETWEEN -99999999 AND 99999999 AND number <> 0);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_contracts_status') THEN
			ALTER TABLE contracts ADD CONSTRAINT chk_contracts_status CHECK (status IN ('active', 'completed'));
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
