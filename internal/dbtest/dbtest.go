// Package dbtest открывает in-memory базы с миграциями для тестов.
package dbtest

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/contracts-service/internal/config"
	"github.com/nurpe/contracts-service/internal/db"
	"github.com/nurpe/contracts-service/internal/model"
)

// Open возвращает новую базу sqlite с одним соединением, поэтому внутри
// транзакции все запросы должны идти через её хендл
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{DB: config.DBConfig{DSN: "sqlite::memory:", MaxOpenConns: 1}}
	database, err := db.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database
}

type Fixtures struct {
	Region        model.Region
	District      model.District
	OtherDistrict model.District
	Implementator model.Implementator
}

// Seed добавляет регион с двумя районами и одного исполнителя
func Seed(t *testing.T, database *gorm.DB) Fixtures {
	t.Helper()
	f := Fixtures{
		Region:        model.Region{Name: "Самарская область"},
		Implementator: model.Implementator{Name: "ООО Связь", TaxID: "6312345678"},
	}
	require.NoError(t, database.Create(&f.Region).Error)
	f.District = model.District{Name: "Кировский", RegionID: f.Region.ID}
	f.OtherDistrict = model.District{Name: "Ленинский", RegionID: f.Region.ID}
	require.NoError(t, database.Create(&f.District).Error)
	require.NoError(t, database.Create(&f.OtherDistrict).Error)
	require.NoError(t, database.Create(&f.Implementator).Error)
	return f
}
