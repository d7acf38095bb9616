package models

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("tracking code not found")
	ErrRateLimited       = errors.New("too many attempts")
	ErrStorage           = errors.New("storage error")
	ErrExhaustedKeyspace = errors.New("tracking code keyspace exhausted")

	// ErrTrackingCodeTaken is returned by storage when a generated code collides.
	ErrTrackingCodeTaken = errors.New("tracking code already taken")
)

// StorageError wraps any persistence failure. errors.Is(err, ErrStorage) holds for it.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// InvalidInput returns an ErrInvalidInput carrying a client-facing reason.
func InvalidInput(reason string) error {
	return errors.WithMessage(ErrInvalidInput, reason)
}
