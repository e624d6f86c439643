package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/contracts-service/internal/model"
	"github.com/nurpe/contracts-service/internal/repository"
	"github.com/nurpe/contracts-service/internal/rules"
	"github.com/nurpe/contracts-service/internal/storage"
)

type FileStorage interface {
	Check(slot int, name string, size int64) error
	Save(ctx context.Context, slot int, up storage.Upload) (storage.Stored, error)
	Open(key string) (*storage.File, error)
	Delete(key string) error
}

type ExcelGenerator interface {
	Generate(registry model.ContractRegistry) ([]byte, error)
}

type PDFGenerator interface {
	Generate(card model.ContractCard) ([]byte, error)
}

type ContractService struct {
	contracts *repository.ContractRepository
	refs      *repository.ReferenceRepository
	files     FileStorage
	excel     ExcelGenerator
	pdf       PDFGenerator
	log       zerolog.Logger
	now       func() time.Time
}

type ContractOption func(*ContractService)

// WithClock задаёт источник текущей даты
func WithClock(now func() time.Time) ContractOption {
	return func(s *ContractService) { s.now = now }
}

func WithPDF(pdf PDFGenerator) ContractOption {
	return func(s *ContractService) { s.pdf = pdf }
}

func NewContractService(
	contracts *repository.ContractRepository,
	refs *repository.ReferenceRepository,
	files FileStorage,
	excel ExcelGenerator,
	log zerolog.Logger,
	opts ...ContractOption,
) *ContractService {
	s := &ContractService{
		contracts: contracts,
		refs:      refs,
		files:     files,
		excel:     excel,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AttachmentInput struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type SubmitContractInput struct {
	CustomerName    string
	CustomerTaxID   string
	StartDate       time.Time
	EndDate         time.Time
	ImplementatorID uuid.UUID
	GosServices     bool
	Oko             bool
	Spolokh         bool
	// Files[i] заменяет слот i+1, ClearFiles[i] очищает его
	Files      [model.FileSlots]*AttachmentInput
	ClearFiles [model.FileSlots]bool
	Kits       []rules.KitRow
	Principal  model.Principal
}

type ListContractsInput struct {
	Query     string
	Status    model.ContractStatus
	Page      int
	Principal model.Principal
}

type ChecklistInput struct {
	GosServices bool
	Oko         bool
	Spolokh     bool
	Principal   model.Principal
}

type FileView struct {
	Slot      int    `json:"slot"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

type ContractView struct {
	Contract model.Contract
	Status   model.ContractStatus
	Files    []FileView
}

type FileResult struct {
	FileName string
	Content  []byte
}

func (s *ContractService) today() time.Time {
	return rules.DateOnly(s.now())
}

func (s *ContractService) view(contract model.Contract) ContractView {
	v := ContractView{
		Contract: contract,
		Status:   rules.DeriveStatus(contract.EndDate, s.today()),
	}
	for i, key := range contract.Files() {
		if key == nil {
			continue
		}
		name := storage.DisplayName(*key)
		v.Files = append(v.Files, FileView{Slot: i + 1, Name: name, Extension: storage.Extension(name)})
	}
	return v
}

func (s *ContractService) List(ctx context.Context, input ListContractsInput) (Page[ContractView], error) {
	if input.Status != "" && !input.Status.Valid() {
		return Page[ContractView]{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}
	page, size, offset := normalizePage(input.Page, DefaultPageSize)

	contracts, total, err := s.contracts.ListContracts(ctx, repository.ContractFilter{
		Query:  input.Query,
		Status: input.Status,
		Today:  s.today(),
	}, size, offset)
	if err != nil {
		return Page[ContractView]{}, err
	}

	views := make([]ContractView, 0, len(contracts))
	for _, c := range contracts {
		views = append(views, s.view(c))
	}
	return newPage(views, page, size, total), nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*ContractView, error) {
	contract, err := s.contracts.GetContract(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	v := s.view(*contract)
	return &v, nil
}

func (s *ContractService) Create(ctx context.Context, input SubmitContractInput) (*ContractView, error) {
	if !input.Principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	return s.submit(ctx, nil, input)
}

func (s *ContractService) Update(ctx context.Context, id uuid.UUID, input SubmitContractInput) (*ContractView, error) {
	if !input.Principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	existing, err := s.contracts.GetContract(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return s.submit(ctx, existing, input)
}

// submit проверяет договор с набором АК, сохраняет новые вложения и записывает
// договор и АК одной транзакцией. Для нового договора existing равен nil
func (s *ContractService) submit(ctx context.Context, existing *model.Contract, input SubmitContractInput) (*ContractView, error) {
	var current [model.FileSlots]*string
	var storedKits []model.SubscriberKit
	contractID := uuid.New()
	if existing != nil {
		current = existing.Files()
		storedKits = existing.Kits
		contractID = existing.ID
	}

	verr := &rules.ValidationError{}

	draft := rules.ContractDraft{
		CustomerName:    strings.TrimSpace(input.CustomerName),
		CustomerTaxID:   strings.TrimSpace(input.CustomerTaxID),
		StartDate:       rules.DateOnly(input.StartDate),
		EndDate:         rules.DateOnly(input.EndDate),
		ImplementatorID: input.ImplementatorID,
	}
	for i := range draft.Files {
		draft.Files[i] = input.Files[i] != nil || (current[i] != nil && !input.ClearFiles[i])
	}
	verr.Merge(rules.Validate(draft))

	for i, file := range input.Files {
		if file == nil {
			continue
		}
		if err := s.files.Check(i+1, file.Name, file.Size); err != nil {
			verr.Add(err, fileMessage(err), fmt.Sprintf("file%d", i+1))
		}
	}

	if input.ImplementatorID != uuid.Nil {
		if _, err := s.refs.GetImplementator(ctx, input.ImplementatorID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			verr.Add(rules.ErrUnknownReference, "Исполнитель не найден.", "implementator_id")
		}
	}

	plan, err := rules.PlanKits(contractID, storedKits, input.Kits)
	if err != nil {
		verr.Merge(err)
	} else if err := s.checkDistricts(ctx, input.Kits, verr); err != nil {
		return nil, err
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}

	uploaded, err := s.storeUploads(ctx, input.Files)
	if err != nil {
		return nil, err
	}

	var replaced []string
	err = s.contracts.Transaction(ctx, func(repo *repository.ContractRepository) error {
		contract := &model.Contract{ID: contractID}
		if existing != nil {
			locked, err := repo.LockContract(ctx, contractID)
			if err != nil {
				return err
			}
			contract = locked
			stored, err := repo.ListKits(ctx, contractID)
			if err != nil {
				return err
			}
			plan, err = rules.PlanKits(contractID, stored, input.Kits)
			if err != nil {
				return err
			}
		}

		contract.CustomerName = draft.CustomerName
		contract.CustomerTaxID = draft.CustomerTaxID
		contract.StartDate = draft.StartDate
		contract.EndDate = draft.EndDate
		contract.ImplementatorID = draft.ImplementatorID
		contract.GosServices = input.GosServices
		contract.Oko = input.Oko
		contract.Spolokh = input.Spolokh
		contract.Status = rules.DeriveStatus(contract.EndDate, s.today())

		replaced = replaced[:0]
		files := contract.Files()
		for i := range files {
			switch {
			case uploaded[i] != nil:
				if files[i] != nil {
					replaced = append(replaced, *files[i])
				}
				key := uploaded[i].Key
				contract.SetFile(i+1, &key)
			case input.ClearFiles[i] && files[i] != nil:
				replaced = append(replaced, *files[i])
				contract.SetFile(i+1, nil)
			}
		}

		if existing == nil {
			if err := repo.CreateContract(ctx, contract); err != nil {
				return err
			}
		} else if err := repo.UpdateContract(ctx, contract); err != nil {
			return err
		}
		return repo.ApplyKitPlan(ctx, plan)
	})
	if err != nil {
		s.discard(uploaded)
		var validation *rules.ValidationError
		if errors.As(err, &validation) {
			return nil, err
		}
		return nil, mapRepoError(err)
	}

	for _, key := range replaced {
		if err := s.files.Delete(key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to delete replaced attachment")
		}
	}

	s.log.Info().
		Str("contract_id", contractID.String()).
		Bool("created", existing == nil).
		Int("kits_inserted", len(plan.Insert)).
		Int("kits_updated", len(plan.Update)).
		Int("kits_deleted", len(plan.Delete)).
		Msg("contract saved")

	return s.Get(ctx, contractID)
}

func (s *ContractService) checkDistricts(ctx context.Context, rows []rules.KitRow, verr *rules.ValidationError) error {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if !row.Delete {
			ids = append(ids, row.DistrictID)
		}
	}
	existing, err := s.refs.ExistingDistrictIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if row.Delete {
			continue
		}
		if _, ok := existing[row.DistrictID]; !ok {
			verr.Add(rules.ErrUnknownReference, "Район не найден.", fmt.Sprintf("kits[%d].district_id", i))
		}
	}
	return nil
}

func (s *ContractService) storeUploads(ctx context.Context, files [model.FileSlots]*AttachmentInput) ([model.FileSlots]*storage.Stored, error) {
	var uploaded [model.FileSlots]*storage.Stored
	for i, file := range files {
		if file == nil {
			continue
		}
		stored, err := s.storeUpload(ctx, i+1, file)
		if err != nil {
			s.discard(uploaded)
			if errors.Is(err, rules.ErrFileTooLarge) || errors.Is(err, rules.ErrUnsupportedFileType) {
				return uploaded, rules.Invalid(err, fileMessage(err), fmt.Sprintf("file%d", i+1))
			}
			return uploaded, fmt.Errorf("store file%d: %w", i+1, err)
		}
		uploaded[i] = &stored
	}
	return uploaded, nil
}

func (s *ContractService) storeUpload(ctx context.Context, slot int, file *AttachmentInput) (storage.Stored, error) {
	reader, err := file.Open()
	if err != nil {
		return storage.Stored{}, err
	}
	defer reader.Close()
	return s.files.Save(ctx, slot, storage.Upload{Name: file.Name, Size: file.Size, Reader: reader})
}

func (s *ContractService) discard(uploaded [model.FileSlots]*storage.Stored) {
	for _, stored := range uploaded {
		if stored == nil {
			continue
		}
		if err := s.files.Delete(stored.Key); err != nil {
			s.log.Warn().Err(err).Str("key", stored.Key).Msg("failed to discard attachment")
		}
	}
}

// UpdateChecklist сохраняет только флаги чек-листа и пересчитанный статус
func (s *ContractService) UpdateChecklist(ctx context.Context, id uuid.UUID, input ChecklistInput) (*ContractView, error) {
	if !input.Principal.CanEditContracts() {
		return nil, ErrPermissionDenied
	}
	err := s.contracts.Transaction(ctx, func(repo *repository.ContractRepository) error {
		contract, err := repo.LockContract(ctx, id)
		if err != nil {
			return err
		}
		return repo.UpdateChecklist(ctx, id, repository.Checklist{
			GosServices: input.GosServices,
			Oko:         input.Oko,
			Spolokh:     input.Spolokh,
		}, rules.DeriveStatus(contract.EndDate, s.today()))
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return s.Get(ctx, id)
}

func (s *ContractService) Delete(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	if !principal.CanEditContracts() {
		return ErrPermissionDenied
	}
	contract, err := s.contracts.FindContract(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if err := s.contracts.DeleteContract(ctx, id); err != nil {
		return mapRepoError(err)
	}
	for _, key := range contract.Files() {
		if key == nil {
			continue
		}
		if err := s.files.Delete(*key); err != nil {
			s.log.Warn().Err(err).Str("key", *key).Msg("failed to delete attachment of removed contract")
		}
	}
	s.log.Info().Str("contract_id", id.String()).Msg("contract deleted")
	return nil
}

func (s *ContractService) OpenFile(ctx context.Context, id uuid.UUID, slot int) (*storage.File, error) {
	if slot < 1 || slot > model.FileSlots {
		return nil, fmt.Errorf("%w: slot must be 1..%d", ErrInvalidInput, model.FileSlots)
	}
	contract, err := s.contracts.FindContract(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	key := contract.Files()[slot-1]
	if key == nil {
		return nil, ErrNotFound
	}
	file, err := s.files.Open(*key)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return file, nil
}

func (s *ContractService) ExportXLSX(ctx context.Context, input ListContractsInput) (*FileResult, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}
	today := s.today()
	contracts, err := s.contracts.ListAllContracts(ctx, repository.ContractFilter{
		Query:  input.Query,
		Status: input.Status,
		Today:  today,
	})
	if err != nil {
		return nil, err
	}

	registry := model.ContractRegistry{
		GeneratedAt: s.now(),
		Query:       strings.TrimSpace(input.Query),
		Status:      input.Status,
		Rows:        make([]model.RegistryRow, 0, len(contracts)),
	}
	for _, c := range contracts {
		registry.Rows = append(registry.Rows, model.RegistryRow{
			Contract: c,
			Status:   rules.DeriveStatus(c.EndDate, today),
		})
	}

	content, err := s.excel.Generate(registry)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("contracts-%s.xlsx", today.Format("20060102")),
		Content:  content,
	}, nil
}

func (s *ContractService) ExportPDF(ctx context.Context, id uuid.UUID) (*FileResult, error) {
	if s.pdf == nil {
		return nil, fmt.Errorf("%w: pdf export is not configured", ErrInvalidInput)
	}
	v, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	card := model.ContractCard{
		Contract:    v.Contract,
		Status:      v.Status,
		GeneratedAt: s.now(),
	}
	for _, f := range v.Files {
		card.Files = append(card.Files, f.Name)
	}

	content, err := s.pdf.Generate(card)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("contract-%s-%s.pdf", sanitizeFileName(v.Contract.CustomerTaxID), v.Contract.StartDate.Format("20060102")),
		Content:  content,
	}, nil
}

func fileMessage(err error) string {
	switch {
	case errors.Is(err, rules.ErrFileTooLarge):
		return "Файл превышает допустимый размер."
	case errors.Is(err, rules.ErrUnsupportedFileType):
		return "Допустимые форматы: " + strings.Join(storage.PrimaryExtensions, ", ") + "."
	default:
		return err.Error()
	}
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
