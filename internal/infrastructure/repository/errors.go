package repository

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/servora/servora/internal/shared/errors"
)

// storeErr maps driver failures onto the application error taxonomy.
func storeErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError(msg)
	}
	return apperrors.NewDependencyUnavailableError(msg, err)
}
