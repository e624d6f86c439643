package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
	"github.com/nurpe/contracts-service/internal/rules"
)

type ReferenceService struct {
	repo *repository.ReferenceRepository
	log  zerolog.Logger
}

func NewReferenceService(repo *repository.ReferenceRepository, log zerolog.Logger) *ReferenceService {
	return &ReferenceService{repo: repo, log: log}
}

type RegionInput struct {
	Name string
	Code *string
}

type RegionView struct {
	model.Region
	DistrictCount int64 `json:"district_count"`
}

type DistrictInput struct {
	Name       string
	RegionID   uuid.UUID
	Population *int
}

type ContractTypeInput struct {
	Name        string
	Description string
}

type WorkInput struct {
	Name           string
	ContractTypeID uuid.UUID
	Price          *float64
}

type ImplementatorInput struct {
	Name  string
	TaxID string
}

func requireName(verr *rules.ValidationError, field, value string, max int) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		verr.Add(rules.ErrRequired, "Заполните поле.", field)
	case len([]rune(value)) > max:
		verr.Add(rules.ErrTooLong, "Слишком длинное значение.", field)
	}
	return value
}

// Регионы

func (s *ReferenceService) ListRegions(ctx context.Context, query string) ([]RegionView, error) {
	regions, err := s.repo.ListRegions(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountDistrictsByRegion(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]RegionView, 0, len(regions))
	for _, region := range regions {
		views = append(views, RegionView{Region: region, DistrictCount: counts[region.ID]})
	}
	return views, nil
}

func (s *ReferenceService) regionFromInput(region *model.Region, input RegionInput) error {
	verr := &rules.ValidationError{}
	region.Name = requireName(verr, "name", input.Name, 150)
	region.Code = nil
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if len([]rune(code)) > 10 {
			verr.Add(rules.ErrTooLong, "Код региона не длиннее 10 символов.", "code")
		}
		if code != "" {
			region.Code = &code
		}
	}
	return verr.Err()
}

func (s *ReferenceService) CreateRegion(ctx context.Context, principal model.Principal, input RegionInput) (*model.Region, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	region := &model.Region{}
	if err := s.regionFromInput(region, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRegion(ctx, region); err != nil {
		return nil, mapRepoError(err)
	}
	return region, nil
}

func (s *ReferenceService) UpdateRegion(ctx context.Context, principal model.Principal, id uuid.UUID, input RegionInput) (*model.Region, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	region, err := s.repo.GetRegion(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.regionFromInput(region, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRegion(ctx, region); err != nil {
		return nil, mapRepoError(err)
	}
	return region, nil
}

func (s *ReferenceService) DeleteRegion(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.CanEditReferences() {
		return ErrPermissionDenied
	}
	return s.deleted("region", id, s.repo.DeleteRegion(ctx, id))
}

// Районы

func (s *ReferenceService) ListDistricts(ctx context.Context, regionID *uuid.UUID, query string) ([]model.District, error) {
	return s.repo.ListDistricts(ctx, regionID, strings.TrimSpace(query))
}

func (s *ReferenceService) districtFromInput(ctx context.Context, district *model.District, input DistrictInput) error {
	verr := &rules.ValidationError{}
	district.Name = requireName(verr, "name", input.Name, 150)
	district.Population = input.Population
	if input.Population != nil && *input.Population < 0 {
		verr.Add(rules.ErrNegative, "Население не может быть отрицательным.", "population")
	}
	if input.RegionID == uuid.Nil {
		verr.Add(rules.ErrRequired, "Выберите регион.", "region_id")
	} else if _, err := s.repo.GetRegion(ctx, input.RegionID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		verr.Add(rules.ErrUnknownReference, "Регион не найден.", "region_id")
	}
	district.RegionID = input.RegionID
	district.Region = nil
	return verr.Err()
}

func (s *ReferenceService) CreateDistrict(ctx context.Context, principal model.Principal, input DistrictInput) (*model.District, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	district := &model.District{}
	if err := s.districtFromInput(ctx, district, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateDistrict(ctx, district); err != nil {
		return nil, mapRepoError(err)
	}
	return district, nil
}

func (s *ReferenceService) UpdateDistrict(ctx context.Context, principal model.Principal, id uuid.UUID, input DistrictInput) (*model.District, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	district, err := s.repo.GetDistrict(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.districtFromInput(ctx, district, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDistrict(ctx, district); err != nil {
		return nil, mapRepoError(err)
	}
	return district, nil
}

func (s *ReferenceService) DeleteDistrict(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.CanEditReferences() {
		return ErrPermissionDenied
	}
	return s.deleted("district", id, s.repo.DeleteDistrict(ctx, id))
}

// Типы договоров и работы

func (s *ReferenceService) ListContractTypes(ctx context.Context) ([]model.ContractType, error) {
	return s.repo.ListContractTypes(ctx)
}

func (s *ReferenceService) CreateContractType(ctx context.Context, principal model.Principal, input ContractTypeInput) (*model.ContractType, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	verr := &rules.ValidationError{}
	item := &model.ContractType{
		Name:        requireName(verr, "name", input.Name, 200),
		Description: strings.TrimSpace(input.Description),
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateContractType(ctx, item); err != nil {
		return nil, mapRepoError(err)
	}
	return item, nil
}

func (s *ReferenceService) UpdateContractType(ctx context.Context, principal model.Principal, id uuid.UUID, input ContractTypeInput) (*model.ContractType, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	item, err := s.repo.GetContractType(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	verr := &rules.ValidationError{}
	item.Name = requireName(verr, "name", input.Name, 200)
	item.Description = strings.TrimSpace(input.Description)
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContractType(ctx, item); err != nil {
		return nil, mapRepoError(err)
	}
	return item, nil
}

func (s *ReferenceService) DeleteContractType(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.CanEditReferences() {
		return ErrPermissionDenied
	}
	return s.deleted("contract_type", id, s.repo.DeleteContractType(ctx, id))
}

func (s *ReferenceService) ListWorks(ctx context.Context, contractTypeID *uuid.UUID) ([]model.Work, error) {
	return s.repo.ListWorks(ctx, contractTypeID)
}

func (s *ReferenceService) workFromInput(ctx context.Context, work *model.Work, input WorkInput) error {
	verr := &rules.ValidationError{}
	work.Name = requireName(verr, "name", input.Name, 200)
	work.Price = input.Price
	if input.Price != nil && *input.Price < 0 {
		verr.Add(rules.ErrNegative, "Стоимость не может быть отрицательной.", "price")
	}
	if input.ContractTypeID == uuid.Nil {
		verr.Add(rules.ErrRequired, "Выберите тип договора.", "contract_type_id")
	} else if _, err := s.repo.GetContractType(ctx, input.ContractTypeID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		verr.Add(rules.ErrUnknownReference, "Тип договора не найден.", "contract_type_id")
	}
	work.ContractTypeID = input.ContractTypeID
	return verr.Err()
}

func (s *ReferenceService) CreateWork(ctx context.Context, principal model.Principal, input WorkInput) (*model.Work, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	work := &model.Work{}
	if err := s.workFromInput(ctx, work, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateWork(ctx, work); err != nil {
		return nil, mapRepoError(err)
	}
	return work, nil
}

func (s *ReferenceService) UpdateWork(ctx context.Context, principal model.Principal, id uuid.UUID, input WorkInput) (*model.Work, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	work, err := s.repo.GetWork(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := s.workFromInput(ctx, work, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWork(ctx, work); err != nil {
		return nil, mapRepoError(err)
	}
	return work, nil
}

func (s *ReferenceService) DeleteWork(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.CanEditReferences() {
		return ErrPermissionDenied
	}
	return s.deleted("work", id, s.repo.DeleteWork(ctx, id))
}

// Исполнители

func (s *ReferenceService) ListImplementators(ctx context.Context, query string) ([]model.Implementator, error) {
	return s.repo.ListImplementators(ctx, strings.TrimSpace(query))
}

func implementatorFromInput(item *model.Implementator, input ImplementatorInput) error {
	verr := &rules.ValidationError{}
	item.Name = requireName(verr, "name", input.Name, 255)
	item.TaxID = strings.TrimSpace(input.TaxID)
	if !rules.ValidTaxID(item.TaxID) {
		verr.Add(rules.ErrInvalidTaxID, "ИНН должен содержать 10 или 12 цифр.", "tax_id")
	}
	return verr.Err()
}

func (s *ReferenceService) CreateImplementator(ctx context.Context, principal model.Principal, input ImplementatorInput) (*model.Implementator, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	item := &model.Implementator{}
	if err := implementatorFromInput(item, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateImplementator(ctx, item); err != nil {
		return nil, mapRepoError(err)
	}
	return item, nil
}

func (s *ReferenceService) UpdateImplementator(ctx context.Context, principal model.Principal, id uuid.UUID, input ImplementatorInput) (*model.Implementator, error) {
	if !principal.CanEditReferences() {
		return nil, ErrPermissionDenied
	}
	item, err := s.repo.GetImplementator(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if err := implementatorFromInput(item, input); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateImplementator(ctx, item); err != nil {
		return nil, mapRepoError(err)
	}
	return item, nil
}

func (s *ReferenceService) DeleteImplementator(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if !principal.CanEditReferences() {
		return ErrPermissionDenied
	}
	return s.deleted("implementator", id, s.repo.DeleteImplementator(ctx, id))
}

func (s *ReferenceService) deleted(kind string, id uuid.UUID, err error) error {
	if err != nil {
		return mapRepoError(err)
	}
	s.log.Info().Str("kind", kind).Str("id", id.String()).Msg("reference record deleted")
	return nil
}
