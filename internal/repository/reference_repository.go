package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/contracts-service/internal/model"
)

type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func getByID[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, preloads ...string) (*T, error) {
	var item T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func create[T any](ctx context.Context, db *gorm.DB, item *T) error {
	return translate(db.WithContext(ctx).Omit(clause.Associations).Create(item).Error)
}

func update[T any](ctx context.Context, db *gorm.DB, item *T) error {
	return translate(db.WithContext(ctx).Omit(clause.Associations).Save(item).Error)
}

// deleteUnreferenced удаляет запись, если на неё не ссылается ни одна из перечисленных таблиц
func deleteUnreferenced[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, refs ...reference) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range refs {
			var count int64
			if err := tx.Model(ref.model).Where(ref.column+" = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrInUse
			}
		}
		result := tx.Where("id = ?", id).Delete(new(T))
		if result.Error != nil {
			err := translate(result.Error)
			if errors.Is(err, ErrForeignKey) {
				return ErrInUse
			}
			return err
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type reference struct {
	model  interface{}
	column string
}

// Регионы

func (r *ReferenceRepository) ListRegions(ctx context.Context, query string) ([]model.Region, error) {
	var regions []model.Region
	q := r.db.WithContext(ctx).Order("name ASC")
	if query != "" {
		pattern := likePattern(query)
		q = q.Where("(name "+likeOp(r.db)+" ? ESCAPE '\\' OR code "+likeOp(r.db)+" ? ESCAPE '\\')", pattern, pattern)
	}
	if err := q.Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *ReferenceRepository) GetRegion(ctx context.Context, id uuid.UUID) (*model.Region, error) {
	return getByID[model.Region](ctx, r.db, id)
}

func (r *ReferenceRepository) CreateRegion(ctx context.Context, region *model.Region) error {
	return create(ctx, r.db, region)
}

func (r *ReferenceRepository) UpdateRegion(ctx context.Context, region *model.Region) error {
	return update(ctx, r.db, region)
}

func (r *ReferenceRepository) DeleteRegion(ctx context.Context, id uuid.UUID) error {
	return deleteUnreferenced[model.Region](ctx, r.db, id,
		reference{model: &model.District{}, column: "region_id"})
}

// CountDistrictsByRegion возвращает число районов по каждому региону
func (r *ReferenceRepository) CountDistrictsByRegion(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		RegionID uuid.UUID
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.District{}).
		Select("region_id, COUNT(*) AS total").
		Group("region_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		result[row.RegionID] = row.Total
	}
	return result, nil
}

// Районы

func (r *ReferenceRepository) ListDistricts(ctx context.Context, regionID *uuid.UUID, query string) ([]model.District, error) {
	var districts []model.District
	q := r.db.WithContext(ctx).
		Select("districts.*").
		Preload("Region").
		Joins("JOIN regions ON regions.id = districts.region_id").
		Order("regions.name ASC").
		Order("districts.name ASC")
	if regionID != nil {
		q = q.Where("districts.region_id = ?", *regionID)
	}
	if query != "" {
		pattern := likePattern(query)
		q = q.Where("(districts.name "+likeOp(r.db)+" ? ESCAPE '\\' OR regions.name "+likeOp(r.db)+" ? ESCAPE '\\')", pattern, pattern)
	}
	if err := q.Find(&districts).Error; err != nil {
		return nil, err
	}
	return districts, nil
}

func (r *ReferenceRepository) GetDistrict(ctx context.Context, id uuid.UUID) (*model.District, error) {
	return getByID[model.District](ctx, r.db, id, "Region")
}

func (r *ReferenceRepository) CreateDistrict(ctx context.Context, district *model.District) error {
	return create(ctx, r.db, district)
}

func (r *ReferenceRepository) UpdateDistrict(ctx context.Context, district *model.District) error {
	return update(ctx, r.db, district)
}

func (r *ReferenceRepository) DeleteDistrict(ctx context.Context, id uuid.UUID) error {
	return deleteUnreferenced[model.District](ctx, r.db, id,
		reference{model: &model.SubscriberKit{}, column: "district_id"})
}

// ExistingDistrictIDs возвращает те id, которые есть в таблице районов
func (r *ReferenceRepository) ExistingDistrictIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	result := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&model.District{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		result[id] = struct{}{}
	}
	return result, nil
}

// Типы договоров и работы

func (r *ReferenceRepository) ListContractTypes(ctx context.Context) ([]model.ContractType, error) {
	var types []model.ContractType
	err := r.db.WithContext(ctx).
		Preload("Works", func(db *gorm.DB) *gorm.DB {
			return db.Order("works.name ASC")
		}).
		Order("name ASC").
		Find(&types).Error
	if err != nil {
		return nil, err
	}
	return types, nil
}

func (r *ReferenceRepository) GetContractType(ctx context.Context, id uuid.UUID) (*model.ContractType, error) {
	return getByID[model.ContractType](ctx, r.db, id)
}

func (r *ReferenceRepository) CreateContractType(ctx context.Context, contractType *model.ContractType) error {
	return create(ctx, r.db, contractType)
}

func (r *ReferenceRepository) UpdateContractType(ctx context.Context, contractType *model.ContractType) error {
	return update(ctx, r.db, contractType)
}

// DeleteContractType удаляет тип договора вместе с работами
func (r *ReferenceRepository) DeleteContractType(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_type_id = ?", id).Delete(&model.Work{}).Error; err != nil {
			return translate(err)
		}
		result := tx.Where("id = ?", id).Delete(&model.ContractType{})
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *ReferenceRepository) ListWorks(ctx context.Context, contractTypeID *uuid.UUID) ([]model.Work, error) {
	var works []model.Work
	q := r.db.WithContext(ctx).
		Model(&model.Work{}).
		Select("works.*").
		Joins("JOIN contract_types ON contract_types.id = works.contract_type_id").
		Order("contract_types.name ASC").
		Order("works.name ASC")
	if contractTypeID != nil {
		q = q.Where("works.contract_type_id = ?", *contractTypeID)
	}
	if err := q.Find(&works).Error; err != nil {
		return nil, err
	}
	return works, nil
}

func (r *ReferenceRepository) GetWork(ctx context.Context, id uuid.UUID) (*model.Work, error) {
	return getByID[model.Work](ctx, r.db, id)
}

func (r *ReferenceRepository) CreateWork(ctx context.Context, work *model.Work) error {
	return create(ctx, r.db, work)
}

func (r *ReferenceRepository) UpdateWork(ctx context.Context, work *model.Work) error {
	return update(ctx, r.db, work)
}

func (r *ReferenceRepository) DeleteWork(ctx context.Context, id uuid.UUID) error {
	return deleteUnreferenced[model.Work](ctx, r.db, id)
}

// Исполнители

func (r *ReferenceRepository) ListImplementators(ctx context.Context, query string) ([]model.Implementator, error) {
	var items []model.Implementator
	q := r.db.WithContext(ctx).Order("name ASC")
	if query != "" {
		pattern := likePattern(query)
		q = q.Where("(name "+likeOp(r.db)+" ? ESCAPE '\\' OR tax_id "+likeOp(r.db)+" ? ESCAPE '\\')", pattern, pattern)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReferenceRepository) GetImplementator(ctx context.Context, id uuid.UUID) (*model.Implementator, error) {
	return getByID[model.Implementator](ctx, r.db, id)
}

func (r *ReferenceRepository) CreateImplementator(ctx context.Context, item *model.Implementator) error {
	return create(ctx, r.db, item)
}

func (r *ReferenceRepository) UpdateImplementator(ctx context.Context, item *model.Implementator) error {
	return update(ctx, r.db, item)
}

func (r *ReferenceRepository) DeleteImplementator(ctx context.Context, id uuid.UUID) error {
	return deleteUnreferenced[model.Implementator](ctx, r.db, id,
		reference{model: &model.Contract{}, column: "implementator_id"})
}
