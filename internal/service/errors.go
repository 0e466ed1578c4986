// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"errors"

	"blogify/internal/models"

	"gorm.io/gorm"
)

// mapRepoError converts gorm's not-found into an AppError and wraps anything else as internal.
func mapRepoError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}
