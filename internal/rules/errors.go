package rules

import (
	"errors"
	"strings"
)

var (
	ErrRequired            = errors.New("field is required")
	ErrInvalidTaxID        = errors.New("tax id must contain 10 or 12 digits")
	ErrDateRange           = errors.New("start date is after end date")
	ErrMissingAttachment   = errors.New("at least one file must be attached")
	ErrDuplicateNumber     = errors.New("duplicate subscriber kit number")
	ErrNumberOutOfRange    = errors.New("subscriber kit number is out of range")
	ErrTooLong             = errors.New("value is too long")
	ErrTooManyKits         = errors.New("too many subscriber kits")
	ErrUnknownKit          = errors.New("subscriber kit does not belong to contract")
	ErrDuplicateRow        = errors.New("subscriber kit submitted twice")
	ErrUnknownReference    = errors.New("referenced record does not exist")
	ErrNegative            = errors.New("value must not be negative")
	ErrFileTooLarge        = errors.New("file is too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRequired, "required"},
	{ErrInvalidTaxID, "invalid_tax_id"},
	{ErrDateRange, "date_range"},
	{ErrMissingAttachment, "missing_attachment"},
	{ErrDuplicateNumber, "duplicate_number"},
	{ErrNumberOutOfRange, "out_of_range"},
	{ErrTooLong, "too_long"},
	{ErrTooManyKits, "too_many_kits"},
	{ErrUnknownKit, "unknown_kit"},
	{ErrDuplicateRow, "duplicate_row"},
	{ErrUnknownReference, "unknown_reference"},
	{ErrNegative, "negative"},
	{ErrFileTooLarge, "file_too_large"},
	{ErrUnsupportedFileType, "unsupported_file_type"},
}

// Code возвращает стабильный код вида ошибки валидации
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "invalid"
}

// FieldError одно нарушение и поля, к которым оно относится
type FieldError struct {
	Fields  []string `json:"fields"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Err     error    `json:"-"`
}

func (e FieldError) Error() string {
	return strings.Join(e.Fields, ",") + ": " + e.Message
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// ValidationError собирает все нарушения запроса
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		errs = append(errs, f)
	}
	return errs
}

func (e *ValidationError) Add(err error, message string, fields ...string) {
	e.Fields = append(e.Fields, FieldError{
		Fields:  fields,
		Code:    Code(err),
		Message: message,
		Err:     err,
	})
}

// Merge добавляет нарушения другой ошибки валидации, прочие ошибки игнорируются
func (e *ValidationError) Merge(err error) {
	var other *ValidationError
	if errors.As(err, &other) {
		e.Fields = append(e.Fields, other.Fields...)
	}
}

// Err возвращает nil, если нарушений нет
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid возвращает ошибку с одним нарушением
func Invalid(err error, message string, fields ...string) error {
	verr := &ValidationError{}
	verr.Add(err, message, fields...)
	return verr
}
