package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain errors. Callers match them with errors.Is; messages carry the detail.
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("authentication required")
	// ErrNotification never leaves the notification dispatcher.
	ErrNotification = errors.New("notification failed")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound maps gorm.ErrRecordNotFound onto ErrNotFound and passes other errors through.
func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}
