package rules

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nurpe/contracts-service/internal/model"
)

const (
	MaxKits          = 500
	MinKitNumber     = 1
	MaxKitNumber     = 99_999_999
	MaxAddressLength = 500
)

// KitRow один присланный АК, нулевой ID означает новый
type KitRow struct {
	ID         *uuid.UUID
	Number     int
	DistrictID uuid.UUID
	Address    string
	Delete     bool
}

// KitPlan разница между сохранёнными АК и присланными
type KitPlan struct {
	ContractID uuid.UUID
	Insert     []model.SubscriberKit
	Update     []model.SubscriberKit
	Delete     []uuid.UUID
}

// Kept возвращает АК, которые останутся после применения плана
func (p KitPlan) Kept() []model.SubscriberKit {
	kept := make([]model.SubscriberKit, 0, len(p.Update)+len(p.Insert))
	kept = append(kept, p.Update...)
	return append(kept, p.Insert...)
}

// DistrictIDs возвращает уникальные районы оставшихся АК
func (p KitPlan) DistrictIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, kit := range p.Kept() {
		if _, ok := seen[kit.DistrictID]; ok {
			continue
		}
		seen[kit.DistrictID] = struct{}{}
		ids = append(ids, kit.DistrictID)
	}
	return ids
}

// PlanKits сравнивает присланные строки с сохранёнными АК договора.
// Сохранённые АК, которых нет в строках или помеченные Delete, удаляются
func PlanKits(contractID uuid.UUID, stored []model.SubscriberKit, rows []KitRow) (KitPlan, error) {
	if len(rows) > MaxKits {
		return KitPlan{}, Invalid(ErrTooManyKits,
			fmt.Sprintf("Не более %d АК в одном договоре.", MaxKits), "kits")
	}

	storedByID := make(map[uuid.UUID]model.SubscriberKit, len(stored))
	for _, kit := range stored {
		storedByID[kit.ID] = kit
	}

	verr := &ValidationError{}
	plan := KitPlan{ContractID: contractID}
	touched := make(map[uuid.UUID]struct{}, len(rows))
	numbers := make(map[int][]string)
	var numberOrder []int

	for i, row := range rows {
		prefix := fmt.Sprintf("kits[%d]", i)

		if row.ID != nil {
			if _, ok := storedByID[*row.ID]; !ok {
				verr.Add(ErrUnknownKit, "АК не относится к этому договору.", prefix+".id")
				continue
			}
			if _, dup := touched[*row.ID]; dup {
				verr.Add(ErrDuplicateRow, "АК передан дважды.", prefix+".id")
				continue
			}
			touched[*row.ID] = struct{}{}
		}
		if row.Delete {
			continue
		}

		valid := true
		if row.Number < MinKitNumber || row.Number > MaxKitNumber {
			verr.Add(ErrNumberOutOfRange,
				fmt.Sprintf("Номер АК должен быть от %d до %d.", MinKitNumber, MaxKitNumber), prefix+".number")
			valid = false
		}
		if row.DistrictID == uuid.Nil {
			verr.Add(ErrRequired, "Выберите район.", prefix+".district_id")
			valid = false
		}
		address := strings.TrimSpace(row.Address)
		if len([]rune(address)) > MaxAddressLength {
			verr.Add(ErrTooLong,
				fmt.Sprintf("Адрес длиннее %d символов.", MaxAddressLength), prefix+".address")
			valid = false
		}

		if row.Number >= MinKitNumber && row.Number <= MaxKitNumber {
			if _, ok := numbers[row.Number]; !ok {
				numberOrder = append(numberOrder, row.Number)
			}
			numbers[row.Number] = append(numbers[row.Number], prefix+".number")
		}
		if !valid {
			continue
		}

		kit := model.SubscriberKit{
			ContractID: contractID,
			Number:     row.Number,
			DistrictID: row.DistrictID,
			Address:    address,
		}
		if row.ID != nil {
			kit.ID = *row.ID
			plan.Update = append(plan.Update, kit)
		} else {
			plan.Insert = append(plan.Insert, kit)
		}
	}

	for _, number := range numberOrder {
		if fields := numbers[number]; len(fields) > 1 {
			verr.Add(ErrDuplicateNumber,
				fmt.Sprintf("Номер АК %d повторяется в договоре.", number), fields...)
		}
	}

	if err := verr.Err(); err != nil {
		return KitPlan{}, err
	}

	kept := make(map[uuid.UUID]struct{}, len(plan.Update))
	for _, kit := range plan.Update {
		kept[kit.ID] = struct{}{}
	}
	for _, kit := range stored {
		if _, ok := kept[kit.ID]; !ok {
			plan.Delete = append(plan.Delete, kit.ID)
		}
	}
	return plan, nil
}
