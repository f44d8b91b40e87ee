package service

import (
	"errors"
	"fmt"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/database"
)

var (
	ErrValidation       = errors.New("invalid data")
	ErrNotFound         = errors.New("client not found")
	ErrDecryption       = errors.New("failed to decrypt payload")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrStorage          = errors.New("storage error")
)

// storageErr classifies a database error: missing rows become ErrNotFound,
// anything else ErrStorage.
func storageErr(op string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
