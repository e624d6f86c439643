package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/contracts-service/internal/rules"
)

func TestReferenceService_Permissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.refs.CreateRegion(ctx, manager, RegionInput{Name: "Тверская область"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, e.refs.DeleteImplementator(ctx, viewer, e.fixtures.Implementator.ID), ErrPermissionDenied)

	regions, err := e.refs.ListRegions(ctx, "")
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.EqualValues(t, 2, regions[0].DistrictCount)
}

func TestReferenceService_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.refs.CreateImplementator(ctx, admin, ImplementatorInput{Name: " ", TaxID: "12ab"})
	assert.ErrorIs(t, err, rules.ErrRequired)
	assert.ErrorIs(t, err, rules.ErrInvalidTaxID)

	population := -1
	_, err = e.refs.CreateDistrict(ctx, admin, DistrictInput{Name: "Новый", RegionID: uuid.New(), Population: &population})
	assert.ErrorIs(t, err, rules.ErrNegative)
	assert.ErrorIs(t, err, rules.ErrUnknownReference)

	code := "  "
	region, err := e.refs.CreateRegion(ctx, admin, RegionInput{Name: " Тверская область ", Code: &code})
	require.NoError(t, err)
	assert.Equal(t, "Тверская область", region.Name)
	assert.Nil(t, region.Code)

	_, err = e.refs.CreateRegion(ctx, admin, RegionInput{Name: "Тверская область"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestReferenceService_ProtectedDeletes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.contracts.Create(ctx, e.input(rules.KitRow{Number: 1, DistrictID: e.fixtures.District.ID}))
	require.NoError(t, err)

	assert.ErrorIs(t, e.refs.DeleteImplementator(ctx, admin, e.fixtures.Implementator.ID), ErrReferenced)
	assert.ErrorIs(t, e.refs.DeleteDistrict(ctx, admin, e.fixtures.District.ID), ErrReferenced)
	assert.ErrorIs(t, e.refs.DeleteRegion(ctx, admin, e.fixtures.Region.ID), ErrReferenced)
	assert.ErrorIs(t, e.refs.DeleteRegion(ctx, admin, uuid.New()), ErrNotFound)

	require.NoError(t, e.refs.DeleteDistrict(ctx, admin, e.fixtures.OtherDistrict.ID))
}

func TestReferenceService_ContractTypesAndWorks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ct, err := e.refs.CreateContractType(ctx, admin, ContractTypeInput{Name: "Обслуживание", Description: "ежемесячно"})
	require.NoError(t, err)

	price := 2500.0
	work, err := e.refs.CreateWork(ctx, admin, WorkInput{Name: "Выезд", ContractTypeID: ct.ID, Price: &price})
	require.NoError(t, err)

	_, err = e.refs.CreateWork(ctx, admin, WorkInput{Name: "Выезд", ContractTypeID: ct.ID})
	assert.ErrorIs(t, err, ErrConflict)

	updated, err := e.refs.UpdateWork(ctx, admin, work.ID, WorkInput{Name: "Выезд инженера", ContractTypeID: ct.ID})
	require.NoError(t, err)
	assert.Nil(t, updated.Price)

	works, err := e.refs.ListWorks(ctx, &ct.ID)
	require.NoError(t, err)
	require.Len(t, works, 1)
	assert.Equal(t, "Выезд инженера", works[0].Name)

	require.NoError(t, e.refs.DeleteContractType(ctx, admin, ct.ID))
	works, err = e.refs.ListWorks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, works)
}
