package service

import (
	"errors"
	"fmt"

	"github.com/nurpe/contracts-service/internal/repository"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	// ErrReferenced запрет удаления записи, на которую ещё ссылаются
	ErrReferenced = errors.New("record is referenced by other records")
)

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: record already exists", ErrConflict)
	case errors.Is(err, repository.ErrInUse):
		return ErrReferenced
	case errors.Is(err, repository.ErrForeignKey):
		return fmt.Errorf("%w: referenced record does not exist", ErrInvalidInput)
	default:
		return err
	}
}
