package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nurpe/contracts-service/internal/dbtest"
	"github.com/nurpe/contracts-service/internal/model"
)

func TestReferenceRepository_ProtectedDeletes(t *testing.T) {
	database := dbtest.Open(t)
	f := dbtest.Seed(t, database)
	repo := NewReferenceRepository(database)
	ctx := context.Background()

	contract := newContract(t, database, f.Implementator.ID, "Лицей", "7712345678", date(2024, 1, 1), date(2024, 12, 31))
	require.NoError(t, database.Create(&model.SubscriberKit{
		ContractID: contract.ID, Number: 1, DistrictID: f.District.ID, Address: "ул. Победы, 5",
	}).Error)

	assert.ErrorIs(t, repo.DeleteImplementator(ctx, f.Implementator.ID), ErrInUse)
	assert.ErrorIs(t, repo.DeleteDistrict(ctx, f.District.ID), ErrInUse)
	assert.ErrorIs(t, repo.DeleteRegion(ctx, f.Region.ID), ErrInUse)

	require.NoError(t, repo.DeleteDistrict(ctx, f.OtherDistrict.ID))
	assert.ErrorIs(t, repo.DeleteDistrict(ctx, f.OtherDistrict.ID), ErrNotFound)

	counts, err := repo.CountDistrictsByRegion(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[f.Region.ID])
}

func TestReferenceRepository_Duplicates(t *testing.T) {
	database := dbtest.Open(t)
	f := dbtest.Seed(t, database)
	repo := NewReferenceRepository(database)
	ctx := context.Background()

	err := repo.CreateImplementator(ctx, &model.Implementator{Name: "Другое", TaxID: f.Implementator.TaxID})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.CreateDistrict(ctx, &model.District{Name: f.District.Name, RegionID: f.Region.ID})
	assert.ErrorIs(t, err, ErrDuplicate)

	other := model.Region{Name: "Тверская область"}
	require.NoError(t, repo.CreateRegion(ctx, &other))
	require.NoError(t, repo.CreateDistrict(ctx, &model.District{Name: f.District.Name, RegionID: other.ID}))

	err = repo.CreateDistrict(ctx, &model.District{Name: "Новый", RegionID: uuid.New()})
	assert.ErrorIs(t, err, ErrForeignKey)
}

func TestReferenceRepository_ListDistricts(t *testing.T) {
	database := dbtest.Open(t)
	f := dbtest.Seed(t, database)
	repo := NewReferenceRepository(database)
	ctx := context.Background()

	other := model.Region{Name: "Тверская область"}
	require.NoError(t, repo.CreateRegion(ctx, &other))
	require.NoError(t, repo.CreateDistrict(ctx, &model.District{Name: "Заволжский", RegionID: other.ID}))

	all, err := repo.ListDistricts(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := repo.ListDistricts(ctx, &f.Region.ID, "")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, d := range filtered {
		require.NotNil(t, d.Region)
		assert.Equal(t, f.Region.ID, d.Region.ID)
	}

	found, err := repo.ListDistricts(ctx, nil, "Ленин")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, f.OtherDistrict.ID, found[0].ID)

	existing, err := repo.ExistingDistrictIDs(ctx, []uuid.UUID{f.District.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, existing, 1)
	assert.Contains(t, existing, f.District.ID)
}

func TestReferenceRepository_ContractTypeCascadesWorks(t *testing.T) {
	database := dbtest.Open(t)
	repo := NewReferenceRepository(database)
	ctx := context.Background()

	price := 1500.0
	ct := model.ContractType{Name: "Обслуживание"}
	require.NoError(t, repo.CreateContractType(ctx, &ct))
	require.NoError(t, repo.CreateWork(ctx, &model.Work{Name: "Выезд", ContractTypeID: ct.ID, Price: &price}))
	require.NoError(t, repo.CreateWork(ctx, &model.Work{Name: "Аудит", ContractTypeID: ct.ID}))

	types, err := repo.ListContractTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)
	require.Len(t, types[0].Works, 2)
	assert.Equal(t, "Аудит", types[0].Works[0].Name)

	require.NoError(t, repo.DeleteContractType(ctx, ct.ID))
	works, err := repo.ListWorks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, works)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	database, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	return database, mock
}

func TestReferenceRepository_PostgresForeignKeyIsInUse(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewReferenceRepository(database)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "contracts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "implementators"`)).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})
	mock.ExpectRollback()

	err := repo.DeleteImplementator(context.Background(), id)
	assert.ErrorIs(t, err, ErrInUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_PostgresUniqueViolation(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewReferenceRepository(database)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "implementators"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.CreateImplementator(context.Background(), &model.Implementator{Name: "ООО Связь", TaxID: "6312345678"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepository_PostgresSearchUsesILike(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewReferenceRepository(database)

	mock.ExpectQuery(`FROM "implementators" WHERE .*name ILIKE \$1 ESCAPE '\\' OR tax_id ILIKE \$2 ESCAPE '\\'`).
		WithArgs("%связь%", "%связь%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tax_id"}).
			AddRow(uuid.NewString(), "ООО Связь", "6312345678"))

	items, err := repo.ListImplementators(context.Background(), "связь")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ООО Связь", items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
