package rules

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/contracts-service/internal/model"
)

var taxIDPattern = regexp.MustCompile(`^(\d{10}|\d{12})$`)

// ContractDraft договор в том виде, в котором он будет сохранён. Files показывает,
// какие слоты вложений заняты после загрузок и очисток
type ContractDraft struct {
	CustomerName    string
	CustomerTaxID   string
	StartDate       time.Time
	EndDate         time.Time
	ImplementatorID uuid.UUID
	Files           [model.FileSlots]bool
}

// ValidTaxID проверяет, что ИНН состоит из 10 или 12 цифр
func ValidTaxID(value string) bool {
	return taxIDPattern.MatchString(value)
}

// Validate проверяет черновик договора и возвращает все нарушения сразу
func Validate(draft ContractDraft) error {
	verr := &ValidationError{}

	if strings.TrimSpace(draft.CustomerName) == "" {
		verr.Add(ErrRequired, "Укажите наименование заказчика.", "customer_name")
	} else if len([]rune(draft.CustomerName)) > 255 {
		verr.Add(ErrTooLong, "Наименование заказчика длиннее 255 символов.", "customer_name")
	}
	if !ValidTaxID(draft.CustomerTaxID) {
		verr.Add(ErrInvalidTaxID, "ИНН заказчика должен содержать 10 или 12 цифр.", "customer_tax_id")
	}
	if draft.ImplementatorID == uuid.Nil {
		verr.Add(ErrRequired, "Выберите исполнителя.", "implementator_id")
	}
	if draft.StartDate.IsZero() {
		verr.Add(ErrRequired, "Укажите дату начала.", "start_date")
	}
	if draft.EndDate.IsZero() {
		verr.Add(ErrRequired, "Укажите дату окончания.", "end_date")
	}
	if !draft.StartDate.IsZero() && !draft.EndDate.IsZero() &&
		DateOnly(draft.StartDate).After(DateOnly(draft.EndDate)) {
		verr.Add(ErrDateRange, "Дата начала не может быть позже даты окончания.", "start_date", "end_date")
	}

	attached := false
	for _, present := range draft.Files {
		attached = attached || present
	}
	if !attached {
		verr.Add(ErrMissingAttachment, "Прикрепите хотя бы один файл.", "file1", "file2", "file3")
	}

	return verr.Err()
}

// DeriveStatus возвращает completed, если сегодня позже даты окончания, иначе active
func DeriveStatus(endDate, today time.Time) model.ContractStatus {
	if DateOnly(today).After(DateOnly(endDate)) {
		return model.ContractStatusCompleted
	}
	return model.ContractStatusActive
}

// DateOnly возвращает полночь UTC календарной даты t
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
