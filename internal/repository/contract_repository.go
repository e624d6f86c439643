package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/rules"
)

type ContractFilter struct {
	Query  string
	Status model.ContractStatus
	// Today дата, относительно которой считается фильтр по статусу
	Today time.Time
}

type Checklist struct {
	GosServices bool
	Oko         bool
	Spolokh     bool
}

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Transaction выполняет fn с репозиторием внутри одной транзакции
func (r *ContractRepository) Transaction(ctx context.Context, fn func(repo *ContractRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ContractRepository{db: tx})
	})
}

func (r *ContractRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).
		Preload("Implementator").
		Preload("Kits", func(db *gorm.DB) *gorm.DB {
			return db.Order("subscriber_kits.number ASC")
		}).
		Preload("Kits.District.Region").
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

// FindContract возвращает договор без связанных записей
func (r *ContractRepository) FindContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

// LockContract как FindContract, но с блокировкой строки в postgres. Вызывать внутри Transaction
func (r *ContractRepository) LockContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&contract, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

func (r *ContractRepository) filtered(ctx context.Context, filter ContractFilter) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Joins("JOIN implementators ON implementators.id = contracts.implementator_id")

	if query := strings.TrimSpace(filter.Query); query != "" {
		op := likeOp(r.db)
		pattern := likePattern(query)
		q = q.Where(
			fmt.Sprintf(`(contracts.customer_name %[1]s ? ESCAPE '\' OR contracts.customer_tax_id %[1]s ? ESCAPE '\' OR implementators.name %[1]s ? ESCAPE '\')`, op),
			pattern, pattern, pattern,
		)
	}

	today := rules.DateOnly(filter.Today)
	switch filter.Status {
	case model.ContractStatusCompleted:
		q = q.Where("contracts.end_date < ?", today)
	case model.ContractStatusActive:
		q = q.Where("contracts.end_date >= ?", today)
	}
	return q
}

// ListContracts возвращает страницу договоров, сначала с самой поздней датой начала
func (r *ContractRepository) ListContracts(ctx context.Context, filter ContractFilter, limit, offset int) ([]model.Contract, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contracts []model.Contract
	q := r.filtered(ctx, filter).
		Select("contracts.*").
		Preload("Implementator").
		Order("contracts.start_date DESC").
		Order("contracts.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&contracts).Error; err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// ListAllContracts возвращает все подходящие договоры с АК для выгрузок
func (r *ContractRepository) ListAllContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.filtered(ctx, filter).
		Select("contracts.*").
		Preload("Implementator").
		Preload("Kits", func(db *gorm.DB) *gorm.DB {
			return db.Order("subscriber_kits.number ASC")
		}).
		Preload("Kits.District").
		Order("contracts.start_date DESC").
		Order("contracts.created_at DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *ContractRepository) CreateContract(ctx context.Context, contract *model.Contract) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error)
}

func (r *ContractRepository) UpdateContract(ctx context.Context, contract *model.Contract) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(contract).Error)
}

func (r *ContractRepository) UpdateChecklist(ctx context.Context, id uuid.UUID, checklist Checklist, status model.ContractStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gos_services": checklist.GosServices,
			"oko":          checklist.Oko,
			"spolokh":      checklist.Spolokh,
			"status":       status,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContract удаляет договор вместе с его АК
func (r *ContractRepository) DeleteContract(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_id = ?", id).Delete(&model.SubscriberKit{}).Error; err != nil {
			return translate(err)
		}
		result := tx.Where("id = ?", id).Delete(&model.Contract{})
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *ContractRepository) ListKits(ctx context.Context, contractID uuid.UUID) ([]model.SubscriberKit, error) {
	var kits []model.SubscriberKit
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("number ASC").
		Find(&kits).Error
	if err != nil {
		return nil, err
	}
	return kits, nil
}

// ApplyKitPlan сохраняет набор АК по плану, вызывать внутри Transaction.
// Изменённые АК сначала получают отрицательные номера, иначе обмен номерами
// нарушит уникальный индекс (contract_id, number)
func (r *ContractRepository) ApplyKitPlan(ctx context.Context, plan rules.KitPlan) error {
	tx := r.db.WithContext(ctx)

	if len(plan.Delete) > 0 {
		err := tx.Where("contract_id = ? AND id IN ?", plan.ContractID, plan.Delete).
			Delete(&model.SubscriberKit{}).Error
		if err != nil {
			return translate(err)
		}
	}

	for i, kit := range plan.Update {
		err := tx.Model(&model.SubscriberKit{}).
			Where("id = ? AND contract_id = ?", kit.ID, plan.ContractID).
			Update("number", -(i + 1)).Error
		if err != nil {
			return translate(err)
		}
	}
	for _, kit := range plan.Update {
		err := tx.Model(&model.SubscriberKit{}).
			Where("id = ? AND contract_id = ?", kit.ID, plan.ContractID).
			Updates(map[string]interface{}{
				"number":      kit.Number,
				"district_id": kit.DistrictID,
				"address":     kit.Address,
			}).Error
		if err != nil {
			return translate(err)
		}
	}

	if len(plan.Insert) > 0 {
		inserts := make([]model.SubscriberKit, len(plan.Insert))
		copy(inserts, plan.Insert)
		for i := range inserts {
			inserts[i].ContractID = plan.ContractID
		}
		if err := tx.Omit(clause.Associations).CreateInBatches(&inserts, 100).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}
